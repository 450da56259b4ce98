package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/nixdead/pkg/graph"
)

// edgeList is an extractor backed by a fixed adjacency list.
type edgeList map[string][]string

func (e edgeList) Extract(id, _ string) []string {
	return e[id]
}

func build(edges edgeList, extra ...string) *graph.Graph {
	files := make(map[string]string)
	for src, targets := range edges {
		files[src] = ""
		for _, t := range targets {
			files[t] = ""
		}
	}
	for _, id := range extra {
		files[id] = ""
	}
	return graph.Build(files, edges)
}

func TestEntryPoints(t *testing.T) {
	g := build(nil,
		"flake.nix",
		"default.nix",
		"modules/default.nix",
		"hosts/darwin/default.nix",
		"hosts/nixos/vm/default.nix",
		"hosts/darwin/extra.nix",
		"apps/x86_64-linux/rollback.nix",
		"apps/x86_64-linux/build-switch.nix",
		"apps/aarch64-darwin/apply.nix",
		"apps/builders/helper.nix",
		"lib/helpers.nix",
	)

	got := EntryPoints(g)
	assert.Equal(t, []string{
		"apps/x86_64-linux/rollback.nix",
		"default.nix",
		"flake.nix",
		"hosts/darwin/default.nix",
		"hosts/nixos/vm/default.nix",
	}, got.Sorted())
}

func TestEntryPointsWithoutBootstrapFiles(t *testing.T) {
	g := build(nil, "lib/a.nix")
	assert.Empty(t, EntryPoints(g))
}

func TestReachableRingScenario(t *testing.T) {
	g := build(edgeList{
		"flake.nix": {"lib/x.nix"},
		"lib/x.nix": {"lib/y.nix"},
		"lib/y.nix": {"lib/z.nix"},
		"lib/z.nix": {"lib/x.nix"},
	})
	entries := EntryPoints(g)

	reached := Reachable(g, entries)
	assert.Equal(t, []string{"flake.nix", "lib/x.nix", "lib/y.nix", "lib/z.nix"}, reached.Sorted())
	assert.Empty(t, Dead(g, reached))

	cycles := Cycles(g)
	require.Len(t, cycles, 1)
	assert.Equal(t, Cycle{"lib/x.nix", "lib/y.nix", "lib/z.nix", "lib/x.nix"}, cycles[0])
}

func TestReachableInvariants(t *testing.T) {
	g := build(edgeList{
		"flake.nix":             {"lib/a.nix"},
		"lib/a.nix":             {"lib/b.nix"},
		"hosts/h/default.nix":   {"modules/m.nix"},
		"lib/orphan.nix":        {"lib/a.nix"},
		"tests/dead/cycle1.nix": {"tests/dead/cycle2.nix"},
		"tests/dead/cycle2.nix": {"tests/dead/cycle1.nix"},
	})
	entries := EntryPoints(g)
	reached := Reachable(g, entries)
	dead := Dead(g, reached)

	for id := range entries {
		assert.True(t, reached.Has(id), "entry %s must be reachable", id)
		assert.False(t, dead.Has(id), "entry %s must not be dead", id)
	}
	assert.False(t, reached.Intersects(dead))
	assert.Equal(t, g.Len(), len(reached)+len(dead))
	assert.Equal(t, []string{"lib/orphan.nix", "tests/dead/cycle1.nix", "tests/dead/cycle2.nix"}, dead.Sorted())
}

func TestReachableIgnoresUnknownEntries(t *testing.T) {
	g := build(edgeList{"flake.nix": {"lib/a.nix"}})
	reached := Reachable(g, graph.NewSet("flake.nix", "nope.nix"))
	assert.Equal(t, []string{"flake.nix", "lib/a.nix"}, reached.Sorted())
}

func TestCyclesInDeadCode(t *testing.T) {
	g := build(edgeList{
		"flake.nix":  {"lib/a.nix"},
		"old/p.nix":  {"old/q.nix"},
		"old/q.nix":  {"old/p.nix"},
		"lib/a.nix":  nil,
		"self/s.nix": {"self/s.nix"},
	})

	cycles := Cycles(g)
	assert.Equal(t, []Cycle{
		{"old/p.nix", "old/q.nix", "old/p.nix"},
		{"self/s.nix", "self/s.nix"},
	}, cycles)
}

func TestCyclesReportsOnePerTraversalRoot(t *testing.T) {
	// a->b->a and a->c->a share a root; only the first is reported.
	g := build(edgeList{
		"a.nix": {"b.nix", "c.nix"},
		"b.nix": {"a.nix"},
		"c.nix": {"a.nix"},
	})

	cycles := Cycles(g)
	require.Len(t, cycles, 1)
	assert.Equal(t, Cycle{"a.nix", "b.nix", "a.nix"}, cycles[0])
}

func TestCyclesAreClosedWalks(t *testing.T) {
	g := build(edgeList{
		"a.nix": {"b.nix"},
		"b.nix": {"c.nix", "d.nix"},
		"c.nix": {"d.nix"},
		"d.nix": {"b.nix"},
	})

	for _, c := range Cycles(g) {
		require.GreaterOrEqual(t, len(c), 2)
		assert.Equal(t, c[0], c[len(c)-1])
		for i := 0; i+1 < len(c); i++ {
			assert.True(t, g.HasEdge(c[i], c[i+1]), "%s -> %s", c[i], c[i+1])
		}
	}
}

func TestCyclesDeepChain(t *testing.T) {
	const n = 50000
	edges := make(edgeList, n)
	for i := 0; i < n; i++ {
		edges[fmt.Sprintf("n%06d.nix", i)] = []string{fmt.Sprintf("n%06d.nix", (i+1)%n)}
	}
	g := build(edges)

	cycles := Cycles(g)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], n+1)
}

func TestCyclesAcyclic(t *testing.T) {
	g := build(edgeList{"flake.nix": {"lib/a.nix"}, "lib/a.nix": {"lib/b.nix"}})
	cycles := Cycles(g)
	assert.NotNil(t, cycles)
	assert.Empty(t, cycles)
}

func TestDepthsTakeMinimumOverEntries(t *testing.T) {
	g := build(edgeList{
		"flake.nix":           {"lib/a.nix"},
		"lib/a.nix":           {"lib/b.nix"},
		"lib/b.nix":           {"lib/c.nix"},
		"hosts/h/default.nix": {"lib/c.nix"},
		"lib/dead.nix":        {"lib/a.nix"},
	})
	entries := EntryPoints(g)
	depths := Depths(g, entries)

	assert.Equal(t, DepthMap{
		"flake.nix":           0,
		"hosts/h/default.nix": 0,
		"lib/a.nix":           1,
		"lib/b.nix":           2,
		"lib/c.nix":           1,
	}, depths)
	assert.Equal(t, 2, depths.Max())
	assert.Equal(t, map[int]int{0: 2, 1: 2, 2: 1}, depths.Distribution())

	_, ok := depths.Lookup("lib/dead.nix")
	assert.False(t, ok)
}

func TestDepthsCoverExactlyReachable(t *testing.T) {
	g := build(edgeList{
		"flake.nix": {"lib/x.nix"},
		"lib/x.nix": {"lib/y.nix"},
		"lib/y.nix": {"lib/x.nix"},
		"other.nix": {"lib/x.nix"},
	})
	entries := EntryPoints(g)
	reached := Reachable(g, entries)
	depths := Depths(g, entries)

	assert.Len(t, depths, len(reached))
	for id := range reached {
		_, ok := depths[id]
		assert.True(t, ok, id)
	}
	for id := range entries {
		assert.Equal(t, 0, depths[id])
	}
}

func TestEmptyDepthMap(t *testing.T) {
	var m DepthMap
	assert.Equal(t, 0, m.Max())
	assert.Empty(t, m.Distribution())
}
