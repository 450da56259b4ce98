// Package graph holds the module reference graph: one node per scanned file and
// a directed edge for every reference between two scanned files.
//
// A Graph is immutable after Build. Every query returns fresh, sorted slices so
// callers can never mutate the adjacency they were handed.
package graph

import (
	"path"
	"sort"
	"strings"
)

// Category classifies a node by its location in the repository.
type Category string

const (
	CategoryEntry   Category = "entry"
	CategoryLibrary Category = "library"
	CategoryModule  Category = "module"
	CategoryTest    Category = "test"
	CategoryHost    Category = "host"
	CategoryOther   Category = "other"
)

// Categories lists every node category in reporting order.
var Categories = []Category{
	CategoryEntry,
	CategoryLibrary,
	CategoryModule,
	CategoryTest,
	CategoryHost,
	CategoryOther,
}

// CategoryOf derives a node category from its repository-relative path.
func CategoryOf(id string) Category {
	switch {
	case id == "flake.nix":
		return CategoryEntry
	case strings.HasPrefix(id, "lib/"):
		return CategoryLibrary
	case strings.HasPrefix(id, "modules/"):
		return CategoryModule
	case strings.HasPrefix(id, "tests/"):
		return CategoryTest
	case strings.HasPrefix(id, "hosts/"):
		return CategoryHost
	default:
		return CategoryOther
	}
}

// Node is one configuration-module file.
type Node struct {
	ID       string
	Content  string
	Category Category
}

// Label is the file name of the node.
func (n *Node) Label() string {
	return path.Base(n.ID)
}

// Extractor returns the repository-relative paths referenced by one file.
type Extractor interface {
	Extract(id, content string) []string
}

// Graph is a forward and reverse adjacency over the scanned files.
type Graph struct {
	nodes   map[string]*Node
	ids     []string
	forward map[string]Set
	reverse map[string]Set
}

// Build assembles the graph from a path→content map. References to paths
// outside the map are dropped, so the node universe is exactly the input keys.
func Build(files map[string]string, ex Extractor) *Graph {
	g := &Graph{
		nodes:   make(map[string]*Node, len(files)),
		ids:     make([]string, 0, len(files)),
		forward: make(map[string]Set, len(files)),
		reverse: make(map[string]Set, len(files)),
	}

	for id, content := range files {
		g.nodes[id] = &Node{ID: id, Content: content, Category: CategoryOf(id)}
		g.ids = append(g.ids, id)
		g.forward[id] = NewSet()
		g.reverse[id] = NewSet()
	}
	sort.Strings(g.ids)

	for _, id := range g.ids {
		for _, target := range ex.Extract(id, g.nodes[id].Content) {
			if _, ok := g.nodes[target]; !ok {
				continue
			}
			g.forward[id].Add(target)
			g.reverse[target].Add(id)
		}
	}

	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.ids)
}

// Nodes returns every node id in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Targets returns the sorted ids that id references.
func (g *Graph) Targets(id string) []string {
	return g.forward[id].Sorted()
}

// Sources returns the sorted ids that reference id.
func (g *Graph) Sources(id string) []string {
	return g.reverse[id].Sorted()
}

// HasEdge reports whether from references to.
func (g *Graph) HasEdge(from, to string) bool {
	return g.forward[from].Has(to)
}

// EdgeCount returns the total number of distinct edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, targets := range g.forward {
		total += len(targets)
	}
	return total
}

// Forward returns a copy of the forward adjacency with sorted target lists.
func (g *Graph) Forward() map[string][]string {
	return adjacency(g.forward)
}

// Reverse returns a copy of the reverse adjacency with sorted source lists.
func (g *Graph) Reverse() map[string][]string {
	return adjacency(g.reverse)
}

func adjacency(m map[string]Set) map[string][]string {
	out := make(map[string][]string, len(m))
	for id, set := range m {
		out[id] = set.Sorted()
	}
	return out
}

// CountByCategory returns the number of nodes per category. Every category is present.
func (g *Graph) CountByCategory() map[Category]int {
	out := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		out[c] = 0
	}
	for _, n := range g.nodes {
		out[n.Category]++
	}
	return out
}
