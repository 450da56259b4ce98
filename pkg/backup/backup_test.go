package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib", "a.nix"), []byte("{ a = 1; }"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.nix"), []byte("{}"), 0600))

	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	res, err := Create(root, ".dead-code-backup", []string{"lib/a.nix", "top.nix", "lib/gone.nix"}, now)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ".dead-code-backup", "backup_20260506_070809"), res.Dir)
	assert.Equal(t, []string{"lib/a.nix", "top.nix"}, res.Metadata.BackedUpFiles)
	assert.Equal(t, []string{"lib/gone.nix"}, res.Metadata.Skipped)
	assert.Equal(t, 2, res.Metadata.TotalCount)
	_, err = uuid.Parse(res.Metadata.RunID)
	assert.NoError(t, err)

	copied, err := os.ReadFile(filepath.Join(res.Dir, "lib", "a.nix"))
	require.NoError(t, err)
	assert.Equal(t, "{ a = 1; }", string(copied))

	info, err := os.Stat(filepath.Join(res.Dir, "top.nix"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(filepath.Join(res.Dir, MetadataFile))
	require.NoError(t, err)
	var meta Metadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, res.Metadata, meta)
	assert.Equal(t, "20260506_070809", meta.Timestamp)

	// Originals are untouched.
	assert.FileExists(t, filepath.Join(root, "lib", "a.nix"))
}

func TestCreateAbsoluteDir(t *testing.T) {
	root := t.TempDir()
	dest := t.TempDir()

	res, err := Create(root, dest, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, dest, filepath.Dir(res.Dir))
	assert.Equal(t, 0, res.Metadata.TotalCount)
	assert.Equal(t, []string{}, res.Metadata.BackedUpFiles)
}

func TestCreateRejectsEscapingPaths(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"../etc/passwd", "/etc/passwd", "a/../../x.nix", ""} {
		_, err := Create(root, ".bk", []string{f}, time.Now())
		assert.Error(t, err, f)
	}
	assert.NoDirExists(t, filepath.Join(root, ".bk"))
}
