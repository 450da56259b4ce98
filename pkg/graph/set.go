package graph

import "sort"

// Set is an unordered collection of node ids.
type Set map[string]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id.
func (s Set) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set. A nil set holds nothing.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order, never nil.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Difference returns the members of s that are not in other.
func (s Set) Difference(other Set) Set {
	out := NewSet()
	for id := range s {
		if !other.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Intersects reports whether s and other share a member.
func (s Set) Intersects(other Set) bool {
	for id := range s {
		if other.Has(id) {
			return true
		}
	}
	return false
}
