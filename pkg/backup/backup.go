// Package backup copies removal candidates aside before they are deleted.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MetadataFile is written into every backup run directory.
const MetadataFile = "backup_metadata.json"

// Metadata records one backup run.
type Metadata struct {
	RunID         string   `json:"run_id"`
	Timestamp     string   `json:"timestamp"`
	BackedUpFiles []string `json:"backed_up_files"`
	Skipped       []string `json:"skipped"`
	TotalCount    int      `json:"total_count"`
}

// Result is the outcome of Create.
type Result struct {
	Dir      string
	Metadata Metadata
}

// Create copies files, given relative to root, into
// <dir>/backup_<YYYYMMDD_HHMMSS>/ keeping their relative paths. dir is
// resolved against root when relative. Missing files are skipped; paths that
// leave root are rejected.
func Create(root, dir string, files []string, now time.Time) (*Result, error) {
	for _, f := range files {
		if !local(f) {
			return nil, fmt.Errorf("refusing to back up %q: path leaves the repository", f)
		}
	}

	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	stamp := now.Format("20060102_150405")
	runDir := filepath.Join(dir, "backup_"+stamp)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	meta := Metadata{
		RunID:         uuid.NewString(),
		Timestamp:     stamp,
		BackedUpFiles: []string{},
		Skipped:       []string{},
	}

	for _, f := range files {
		src := filepath.Join(root, filepath.FromSlash(f))
		dst := filepath.Join(runDir, filepath.FromSlash(f))
		err := copyFile(src, dst)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			meta.Skipped = append(meta.Skipped, f)
		case err != nil:
			return nil, fmt.Errorf("failed to back up %s: %w", f, err)
		default:
			meta.BackedUpFiles = append(meta.BackedUpFiles, f)
		}
	}
	meta.TotalCount = len(meta.BackedUpFiles)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, MetadataFile), append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("failed to write backup metadata: %w", err)
	}

	return &Result{Dir: runDir, Metadata: meta}, nil
}

func local(rel string) bool {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return false
	}
	cleaned := path.Clean(rel)
	return cleaned != "." && cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

// copyFile copies src to dst, creating parent directories and keeping the
// source mode and modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
