// Package extract recovers module references from raw Nix text.
//
// There is no Nix parser here. References are found with a fixed set of
// patterns, which is the whole contract of this package:
//
//  1. import ./path.nix      path rooted at the referencing file's directory
//  2. import ../path.nix     path rooted at an ancestor directory
//  3. import /path.nix       path rooted at the repository root
//  4. import name.nix        bare same-directory file, unless followed by "{"
//  5. ../path.nix            bare token, not enclosed in double quotes
//  6. ./path.nix             bare token, not enclosed in double quotes
//
// Computed or conditional paths ("${dir}/x.nix", builtins.readDir, directory
// imports that rely on default.nix) are not recognised.
//
// Every candidate is resolved against the referencing file's directory,
// cleaned of "." and ".." segments and kept only if it names a known node or
// an existing file under the repository root. Anything else, including paths
// that climb above the root, is discarded silently.
package extract

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	importRelative = regexp.MustCompile(`import\s+(\./[^;\s}]+\.nix)`)
	importParent   = regexp.MustCompile(`import\s+(\.\./[^;\s}]+\.nix)`)
	importRooted   = regexp.MustCompile(`import\s+(/[^;\s}]+\.nix)`)
	importBare     = regexp.MustCompile(`import\s+([^/\s;{}]+\.nix)`)
	barePath       = regexp.MustCompile(`(\.\.?/[^"\s;{}]+\.nix)`)
)

// Extractor resolves references for files of one repository.
type Extractor struct {
	root   string
	known  map[string]bool
	exists func(string) bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExists replaces the on-disk existence check. The argument is a
// repository-relative path.
func WithExists(fn func(rel string) bool) Option {
	return func(e *Extractor) {
		e.exists = fn
	}
}

// New returns an Extractor for the repository at root whose scanned
// module files are known.
func New(root string, known []string, opts ...Option) *Extractor {
	e := &Extractor{
		root:  root,
		known: make(map[string]bool, len(known)),
	}
	for _, id := range known {
		e.known[id] = true
	}
	e.exists = e.onDisk
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) onDisk(rel string) bool {
	info, err := os.Stat(filepath.Join(e.root, filepath.FromSlash(rel)))
	return err == nil && !info.IsDir()
}

// Extract returns the sorted, de-duplicated repository-relative paths that
// content (the text of file id) references.
func (e *Extractor) Extract(id, content string) []string {
	seen := make(map[string]bool)
	for _, cand := range Candidates(content) {
		resolved, ok := Resolve(id, cand)
		if !ok || seen[resolved] {
			continue
		}
		if e.known[resolved] || e.exists(resolved) {
			seen[resolved] = true
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Candidates returns every raw path matched by the extraction patterns, in
// pattern order. Duplicates are kept.
func Candidates(content string) []string {
	var out []string

	for _, re := range []*regexp.Regexp{importRelative, importParent, importRooted} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			out = append(out, m[1])
		}
	}

	for _, m := range importBare.FindAllStringSubmatchIndex(content, -1) {
		if opensAttrSet(content[m[1]:]) {
			continue
		}
		out = append(out, content[m[2]:m[3]])
	}

	for _, m := range barePath.FindAllStringSubmatchIndex(content, -1) {
		start, end := m[2], m[3]
		if start > 0 && !tokenBoundary(content[start-1]) {
			continue
		}
		if end < len(content) && content[end] == '"' {
			continue
		}
		out = append(out, content[start:end])
	}

	return out
}

// opensAttrSet reports whether rest starts, after optional whitespace, with "{".
func opensAttrSet(rest string) bool {
	return strings.HasPrefix(strings.TrimLeft(rest, " \t\r\n"), "{")
}

// tokenBoundary reports whether c may precede a bare path token. Quotes and
// characters that can appear inside a path are not boundaries.
func tokenBoundary(c byte) bool {
	switch {
	case c == '"':
		return false
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == '.', c == '/', c == '-', c == '_', c == '+', c == '~':
		return false
	}
	return true
}

// Resolve turns a raw candidate found in file id into a repository-relative
// path. It reports false when the path leaves the repository.
func Resolve(id, candidate string) (string, bool) {
	var joined string
	if strings.HasPrefix(candidate, "/") {
		joined = strings.TrimLeft(candidate, "/")
	} else {
		joined = path.Join(path.Dir(id), candidate)
	}

	cleaned := path.Clean(joined)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
