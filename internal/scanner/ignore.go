package scanner

import (
	"bufio"
	"errors"
	"os"
	"path"
	"strings"
)

// IgnorePattern represents a single gitignore-style pattern.
type IgnorePattern struct {
	pattern     string   // Original pattern
	isNegation  bool     // True if pattern starts with !
	isDirectory bool     // True if pattern ends with /
	isAnchored  bool     // True if pattern contains a slash before its last character
	segments    []string // Pattern split on /
}

// ParseIgnorePattern parses a gitignore-style pattern string.
func ParseIgnorePattern(pattern string) IgnorePattern {
	p := IgnorePattern{pattern: pattern}

	if strings.HasPrefix(pattern, "!") {
		p.isNegation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		p.isDirectory = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.Contains(pattern, "/") {
		p.isAnchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}

	p.segments = strings.Split(pattern, "/")
	return p
}

// IsNegation returns true if this pattern is a negation pattern.
func (p IgnorePattern) IsNegation() bool {
	return p.isNegation
}

// Match reports whether relPath (slash separated, relative to the scan root)
// is covered by the pattern. A pattern that matches a directory also covers
// everything below it.
func (p IgnorePattern) Match(relPath string, isDir bool) bool {
	pathSegs := strings.Split(relPath, "/")

	if !p.isAnchored {
		for i, seg := range pathSegs {
			if !globMatch(p.segments[0], seg) {
				continue
			}
			last := i == len(pathSegs)-1
			if p.isDirectory && last && !isDir {
				continue
			}
			return true
		}
		return false
	}

	for k := 1; k <= len(pathSegs); k++ {
		if !matchSegments(p.segments, pathSegs[:k]) {
			continue
		}
		if k < len(pathSegs) || isDir || !p.isDirectory {
			return true
		}
	}
	return false
}

// matchSegments matches pattern segments, honouring **, against path segments.
func matchSegments(pattern, segs []string) bool {
	if len(pattern) == 0 {
		return len(segs) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(segs); i++ {
			if matchSegments(pattern[1:], segs[i:]) {
				return true
			}
		}
		return false
	}
	if len(segs) == 0 || !globMatch(pattern[0], segs[0]) {
		return false
	}
	return matchSegments(pattern[1:], segs[1:])
}

func globMatch(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// loadIgnoreFile reads patterns from a gitignore-style file. A missing file yields no patterns.
func loadIgnoreFile(file string) ([]IgnorePattern, error) {
	f, err := os.Open(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []IgnorePattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParseIgnorePattern(line))
	}
	return patterns, sc.Err()
}

// ignored applies gitignore semantics: later patterns win, negations un-ignore.
func ignored(relPath string, isDir bool, patterns []IgnorePattern) bool {
	result := false
	for _, p := range patterns {
		if p.Match(relPath, isDir) {
			result = !p.IsNegation()
		}
	}
	return result
}
