package analysis

import "github.com/l3aro/nixdead/pkg/graph"

// Reachable returns every node reachable from entries over forward edges,
// entries included. Entries that are not graph nodes are ignored.
func Reachable(g *graph.Graph, entries graph.Set) graph.Set {
	reached := graph.NewSet()
	queue := make([]string, 0, len(entries))
	for _, id := range entries.Sorted() {
		if g.Has(id) {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if reached.Has(current) {
			continue
		}
		reached.Add(current)

		for _, next := range g.Targets(current) {
			if !reached.Has(next) {
				queue = append(queue, next)
			}
		}
	}

	return reached
}

// Dead returns the nodes that are not in reachable.
func Dead(g *graph.Graph, reachable graph.Set) graph.Set {
	return graph.NewSet(g.Nodes()...).Difference(reachable)
}
