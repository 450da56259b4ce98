// Package fingerprint digests a scanned tree so a later stage can tell
// whether the files changed since an analysis was written.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Tree holds the content hash of every scanned file, keyed by
// repository-relative path.
type Tree struct {
	hashes map[string]string
}

// New hashes each file's content.
func New(files map[string]string) *Tree {
	t := &Tree{hashes: make(map[string]string, len(files))}
	for p, content := range files {
		t.hashes[p] = hashString(content)
	}
	return t
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FromHashes rebuilds a tree from a path→hash map recorded by Hashes.
func FromHashes(hashes map[string]string) *Tree {
	t := &Tree{hashes: make(map[string]string, len(hashes))}
	for p, h := range hashes {
		t.hashes[p] = h
	}
	return t
}

// Hashes returns a copy of the path→hash map.
func (t *Tree) Hashes() map[string]string {
	out := make(map[string]string, len(t.hashes))
	for p, h := range t.hashes {
		out[p] = h
	}
	return out
}

// Hash returns the content hash recorded for path.
func (t *Tree) Hash(path string) (string, bool) {
	h, ok := t.hashes[path]
	return h, ok
}

// Len returns the number of files in the tree.
func (t *Tree) Len() int {
	return len(t.hashes)
}

// Sum digests the sorted (path, hash) pairs. Two trees with the same files
// and contents always produce the same sum.
func (t *Tree) Sum() string {
	paths := make([]string, 0, len(t.hashes))
	for p := range t.hashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	hasher := sha256.New()
	for _, p := range paths {
		// NUL cannot appear in a path, so pairs never run together.
		fmt.Fprintf(hasher, "%s\x00%s\n", p, t.hashes[p])
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// Changed lists the paths that were added, removed or modified between t
// and other, sorted.
func (t *Tree) Changed(other *Tree) []string {
	out := make([]string, 0)
	for p, h := range t.hashes {
		if oh, ok := other.hashes[p]; !ok || oh != h {
			out = append(out, p)
		}
	}
	for p := range other.hashes {
		if _, ok := t.hashes[p]; !ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
