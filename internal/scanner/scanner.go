// Package scanner walks a repository and loads every configuration-module file.
// It respects a gitignore-style ignore file and a list of excluded directory
// names. Files that cannot be read are skipped with a warning.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/l3aro/nixdead/internal/log"
)

// FileInfo represents a discovered module file and its text.
type FileInfo struct {
	Path     string // Relative path from root, forward slashes
	FullPath string // Absolute path
	Size     int64  // File size in bytes
	Content  string // Raw text, loaded once
}

// Options configures the scanner behavior.
type Options struct {
	Extension      string     // Extension of module files, including the dot
	SkipHidden     bool       // Skip hidden files and directories (starting with .)
	FollowSymlinks bool       // Follow file symlinks that resolve inside root
	Excludes       []string   // Directory names never descended into
	IgnoreFileName string     // Name of the ignore file in the root directory
	Logger         log.Logger // Receives per-file warnings
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Extension:      ".nix",
		SkipHidden:     false,
		FollowSymlinks: false,
		IgnoreFileName: ".nixdeadignore",
		Excludes: []string{
			".git",
			".direnv",
			"node_modules",
			"result",
		},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Scanner{opts: opts}
}

// Scan recursively scans root and returns every module file sorted by path.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	var patterns []IgnorePattern
	if s.opts.IgnoreFileName != "" {
		patterns, err = loadIgnoreFile(filepath.Join(absRoot, s.opts.IgnoreFileName))
		if err != nil {
			return nil, fmt.Errorf("loading ignore patterns: %w", err)
		}
	}

	var files []FileInfo

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.opts.Logger.Warn("skipping unreadable path", "path", path, "err", walkErr)
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		rel := filepath.ToSlash(relPath)

		if d.IsDir() {
			if s.isExcluded(d.Name()) || (s.opts.SkipHidden && isHidden(d.Name())) || ignored(rel, true, patterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), s.opts.Extension) {
			return nil
		}
		if s.opts.SkipHidden && isHidden(d.Name()) {
			return nil
		}
		if ignored(rel, false, patterns) {
			return nil
		}

		fi, ok := s.load(absRoot, path, rel, d)
		if ok {
			files = append(files, fi)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// load reads one file. Failures are logged and reported as !ok.
func (s *Scanner) load(absRoot, path, rel string, d fs.DirEntry) (FileInfo, bool) {
	if d.Type()&fs.ModeSymlink != 0 {
		if !s.opts.FollowSymlinks {
			return FileInfo{}, false
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			s.opts.Logger.Warn("skipping broken symlink", "path", rel, "err", err)
			return FileInfo{}, false
		}
		if real != absRoot && !strings.HasPrefix(real, absRoot+string(filepath.Separator)) {
			return FileInfo{}, false
		}
		if st, err := os.Stat(real); err != nil || st.IsDir() {
			return FileInfo{}, false
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.opts.Logger.Warn("error reading file", "path", rel, "err", err)
		return FileInfo{}, false
	}
	if !utf8.Valid(data) {
		s.opts.Logger.Warn("error decoding file", "path", rel, "err", "invalid UTF-8")
		return FileInfo{}, false
	}

	return FileInfo{
		Path:     rel,
		FullPath: path,
		Size:     int64(len(data)),
		Content:  string(data),
	}, true
}

// isHidden checks if a file or directory name indicates it's hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func (s *Scanner) isExcluded(name string) bool {
	for _, exclude := range s.opts.Excludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// Contents maps each file's relative path to its text.
func Contents(files []FileInfo) map[string]string {
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f.Path] = f.Content
	}
	return out
}
