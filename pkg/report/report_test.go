package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/nixdead/pkg/analysis"
	"github.com/l3aro/nixdead/pkg/graph"
)

type edgeList map[string][]string

func (e edgeList) Extract(id, _ string) []string { return e[id] }

func sampleInput() Input {
	edges := edgeList{
		"flake.nix":         {"lib/a.nix", "modules/m.nix"},
		"lib/a.nix":         {"lib/b.nix"},
		"lib/b.nix":         {"lib/a.nix"},
		"modules/m.nix":     nil,
		"lib/dead.nix":      nil,
		"overlays/x.nix":    nil,
		"scripts/s.nix":     nil,
		"misc/orphan.nix":   nil,
		"hosts/h/extra.nix": nil,
	}
	files := make(map[string]string)
	for id := range edges {
		files[id] = ""
	}
	g := graph.Build(files, edges)
	entries := analysis.EntryPoints(g)
	reached := analysis.Reachable(g, entries)

	return Input{
		Repository:  "/repo",
		Fingerprint: "abc",
		Graph:       g,
		EntryPoints: entries,
		Reachable:   reached,
		Cycles:      analysis.Cycles(g),
		Depths:      analysis.Depths(g, entries),
		Thresholds:  DefaultThresholds(),
		Now:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestBuild(t *testing.T) {
	r := Build(sampleInput())

	assert.Equal(t, 9, r.Statistics.TotalFiles)
	assert.Equal(t, 3, r.Statistics.LibFiles)
	assert.Equal(t, 1, r.Statistics.ModuleFiles)
	assert.Equal(t, 1, r.Statistics.ScriptFiles)
	assert.Equal(t, 1, r.Statistics.HostFiles)
	assert.Equal(t, 4, r.Statistics.TotalDependencies)
	assert.Equal(t, 5, r.Statistics.UnusedFilesCount)
	assert.Equal(t, 4, r.Statistics.UsedFilesCount)
	assert.Equal(t, 1, r.Statistics.EntryPointsCount)
	assert.Equal(t, 2, r.Statistics.MaxDependencyDepth)
	assert.Equal(t, 1, r.Statistics.FilesByCategory[graph.CategoryEntry])

	assert.Equal(t, []string{"hosts/h/extra.nix", "lib/dead.nix", "misc/orphan.nix", "overlays/x.nix", "scripts/s.nix"}, r.UnusedAnalysis.Unused)
	assert.Equal(t, []string{"flake.nix", "lib/a.nix", "lib/b.nix", "modules/m.nix"}, r.UnusedAnalysis.Used)
	assert.Equal(t, []string{"flake.nix"}, r.UnusedAnalysis.EntryPoints)

	assert.Equal(t, []string{"lib/dead.nix"}, r.UnusedByCategory["lib"])
	assert.Equal(t, []string{"overlays/x.nix"}, r.UnusedByCategory["overlays"])
	assert.Equal(t, []string{"scripts/s.nix"}, r.UnusedByCategory["scripts"])
	assert.Equal(t, []string{"misc/orphan.nix"}, r.UnusedByCategory["other"])
	assert.Equal(t, []string{}, r.UnusedByCategory["tests"])

	assert.Equal(t, [][]string{{"lib/a.nix", "lib/b.nix", "lib/a.nix"}}, r.DependencyCycles)
	assert.Equal(t, map[int]int{0: 1, 1: 2, 2: 1}, r.DepthAnalysis.DepthDistribution)

	assert.Equal(t, []string{
		"Review 5 unused files for potential removal",
		"Fix 1 dependency cycles detected",
	}, r.Recommendations)
}

func TestRecommend(t *testing.T) {
	th := DefaultThresholds()

	assert.Empty(t, Recommend(Statistics{TotalFiles: 10, TotalDependencies: 15}, th))

	recs := Recommend(Statistics{
		TotalFiles:         40,
		LibFiles:           31,
		TotalDependencies:  80,
		MaxDependencyDepth: 6,
	}, th)
	assert.Equal(t, []string{
		"Consider flattening dependency tree (max depth: 6)",
		"Large lib/ directory (31 files) - consider modularization",
		"High dependency ratio (2.00) - review coupling",
	}, recs)
}

func TestDependencyRatioEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Statistics{}.DependencyRatio())
}

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r := Build(sampleInput())
	require.NoError(t, r.Write(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	for _, key := range []string{"statistics", "unused_analysis", "unused_by_category", "dependency_cycles", "depth_analysis", "recommendations"} {
		assert.Contains(t, generic, key)
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.UnusedAnalysis, loaded.UnusedAnalysis)
	assert.Equal(t, r.DepthAnalysis, loaded.DepthAnalysis)
	assert.Equal(t, "abc", loaded.Fingerprint)
	assert.True(t, r.GeneratedAt.Equal(loaded.GeneratedAt))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReportNotFound))
	assert.Contains(t, err.Error(), "nixdead analyze")
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrReportNotFound))
}
