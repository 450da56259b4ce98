package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/nixdead/pkg/classify"
	"github.com/l3aro/nixdead/pkg/report"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testPlanner(opts Options) *Planner {
	opts.Now = func() time.Time { return fixedNow }
	return New(opts)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func reportWith(unused ...string) *report.Report {
	return &report.Report{UnusedAnalysis: report.UnusedAnalysis{Unused: unused}}
}

func TestBuildPhases(t *testing.T) {
	var unused []string
	for i := 0; i < 12; i++ {
		unused = append(unused, fmt.Sprintf("tests/performance/p%02d.nix", i))
	}
	for i := 0; i < 7; i++ {
		unused = append(unused, fmt.Sprintf("lib/orphan%d.nix", i))
	}
	unused = append(unused, "overlays/a.nix", "modules/x/default.nix", "docs/example.nix")

	p := testPlanner(DefaultOptions()).Build(t.TempDir(), reportWith(unused...))

	assert.Equal(t, fixedNow, p.Timestamp)
	assert.Equal(t, len(unused), p.TotalUnused)
	require.Len(t, p.RemovalPhases, 3)

	ph1 := p.RemovalPhases[0]
	assert.Equal(t, 1, ph1.Phase)
	assert.Equal(t, RiskLow, ph1.RiskLevel)
	assert.Len(t, ph1.Files, 10)
	assert.Equal(t, 12, ph1.TotalCandidates)

	ph2 := p.RemovalPhases[1]
	assert.Equal(t, RiskMedium, ph2.RiskLevel)
	assert.Len(t, ph2.Files, 5)
	assert.Equal(t, 7, ph2.TotalCandidates)

	ph3 := p.RemovalPhases[2]
	assert.Equal(t, RiskHigh, ph3.RiskLevel)
	assert.Equal(t, []string{"modules/x/default.nix", "overlays/a.nix"}, ph3.Files)

	assert.Equal(t, []string{"docs/example.nix"}, p.Categories[classify.KeepForReference])
	for _, ph := range p.RemovalPhases {
		assert.NotContains(t, ph.Files, "docs/example.nix")
	}

	assert.Len(t, p.SafetyAnalysis, 20)
}

func TestBuildCategoriesAlwaysPresent(t *testing.T) {
	p := testPlanner(DefaultOptions()).Build(t.TempDir(), reportWith())
	for _, tier := range classify.Tiers {
		assert.NotNil(t, p.Categories[tier], tier)
	}
	for _, ph := range p.RemovalPhases {
		assert.NotNil(t, ph.Files)
		assert.Empty(t, ph.Files)
	}
}

func TestPhaseLookup(t *testing.T) {
	p := testPlanner(DefaultOptions()).Build(t.TempDir(), reportWith("lib/a-backup.nix"))

	ph, ok := p.Phase(1)
	require.True(t, ok)
	assert.Equal(t, []string{"lib/a-backup.nix"}, ph.Files)

	_, ok = p.Phase(4)
	assert.False(t, ok)
}

func TestSafety(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/simple.nix", "{ a = 1; }")
	writeFile(t, root, "lib/letter.nix", "{ letter = 1; }")
	writeFile(t, root, "lib/exports.nix", "let x = 1; in x")
	writeFile(t, root, "lib/imports.nix", "{ }: import ./x.nix")
	writeFile(t, root, "lib/long.nix", strings.Repeat("x\n", 60))

	old := filepath.Join(root, "lib", "simple.nix")
	require.NoError(t, os.Chtimes(old, fixedNow.Add(-90*24*time.Hour), fixedNow.Add(-90*24*time.Hour)))
	recent := filepath.Join(root, "lib", "exports.nix")
	require.NoError(t, os.Chtimes(recent, fixedNow.Add(-time.Hour), fixedNow.Add(-time.Hour)))

	p := testPlanner(DefaultOptions())

	simple := p.Safety(root, "lib/simple.nix")
	assert.True(t, simple.Exists)
	assert.Equal(t, int64(10), simple.SizeBytes)
	assert.Equal(t, 1, simple.LineCount)
	assert.False(t, simple.HasExports)
	assert.False(t, simple.HasComplexLogic)
	assert.False(t, simple.RecentModifications)
	require.NotNil(t, simple.ModifiedAt)

	assert.False(t, p.Safety(root, "lib/letter.nix").HasExports, "let must be a whole word")

	exports := p.Safety(root, "lib/exports.nix")
	assert.True(t, exports.HasExports)
	assert.True(t, exports.RecentModifications)

	assert.True(t, p.Safety(root, "lib/imports.nix").HasComplexLogic)

	long := p.Safety(root, "lib/long.nix")
	assert.Equal(t, 61, long.LineCount)
	assert.True(t, long.HasComplexLogic)

	missing := p.Safety(root, "lib/missing.nix")
	assert.False(t, missing.Exists)
	assert.Nil(t, missing.ModifiedAt)
}

func TestWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	p := testPlanner(DefaultOptions()).Build(dir, reportWith("lib/a-backup.nix", "lib/orphan.nix"))

	path := filepath.Join(dir, "plan.json")
	require.NoError(t, p.Write(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p.RemovalPhases, loaded.RemovalPhases)
	assert.Equal(t, p.Categories, loaded.Categories)
	assert.Equal(t, "nix flake check", loaded.VerifyCommand)
}

func TestScript(t *testing.T) {
	root := t.TempDir()
	p := testPlanner(DefaultOptions()).Build(root, reportWith("tests/performance/a.nix", "lib/orphan.nix"))

	script := p.Script()
	assert.True(t, strings.HasPrefix(script, "#!/usr/bin/env bash\n"))
	assert.Contains(t, script, "set -euo pipefail")
	assert.Contains(t, script, "BACKUP_DIR='.dead-code-backup'")
	assert.Contains(t, script, "rm -- 'tests/performance/a.nix'")
	assert.NotContains(t, script, "rm -- 'lib/orphan.nix'")
	assert.Contains(t, script, "if nix flake check; then")

	require.NoError(t, Verify([]byte(script), []string{"tests/performance/a.nix"}, "nix flake check"))
}

func TestWriteScript(t *testing.T) {
	root := t.TempDir()
	p := testPlanner(DefaultOptions()).Build(root, reportWith("tests/performance/a.nix"))

	path := filepath.Join(root, "remove-dead-code.sh")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))
	require.NoError(t, p.WriteScript(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, p.Script(), string(data))
}

func TestWriteScriptRefusesUnverifiable(t *testing.T) {
	root := t.TempDir()
	p := testPlanner(DefaultOptions()).Build(root, reportWith("tests/performance/a.nix"))
	p.VerifyCommand = ""

	path := filepath.Join(root, "remove-dead-code.sh")
	err := p.WriteScript(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsafeScript))
	assert.NoFileExists(t, path)
}

func TestVerifyRejects(t *testing.T) {
	allowed := []string{"lib/a.nix"}
	verify := "nix flake check"
	tail := "\nif nix flake check; then echo ok; fi\n"

	tests := []struct {
		name   string
		script string
	}{
		{"unscheduled target", "rm -- 'lib/b.nix'" + tail},
		{"recursive flag", "rm -rf 'lib/a.nix'" + tail},
		{"expansion", "rm -- \"$HOME\"" + tail},
		{"glob", "rm -- lib/*.nix" + tail},
		{"no target", "rm --" + tail},
		{"syntax error", "if [ -f 'lib/a.nix' ]; then\nrm -- 'lib/a.nix'\n" + tail},
		{"missing verification", "rm -- 'lib/a.nix'\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify([]byte(tt.script), allowed, verify)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsafeScript), err.Error())
		})
	}
}

func TestVerifyAccepts(t *testing.T) {
	script := "set -euo pipefail\nrm -- 'lib/a.nix'\nrm \"lib/b.nix\"\nrm lib/c.nix\nif nix flake check; then echo ok; fi\n"
	assert.NoError(t, Verify([]byte(script), []string{"lib/a.nix", "lib/b.nix", "lib/c.nix"}, "nix flake check"))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'a b'`, ShellQuote("a b"))
	assert.Equal(t, `'it'\''s'`, ShellQuote("it's"))
}
