package analysis

import "github.com/l3aro/nixdead/pkg/graph"

// DepthMap maps a node to the minimum number of edges between it and any
// entry point. Unreachable nodes have no entry.
type DepthMap map[string]int

// Depths runs one breadth-first traversal per entry point and keeps, for
// every node, the smallest hop count seen.
func Depths(g *graph.Graph, entries graph.Set) DepthMap {
	depths := make(DepthMap)

	for _, entry := range entries.Sorted() {
		if !g.Has(entry) {
			continue
		}
		for id, d := range hops(g, entry) {
			if cur, ok := depths[id]; !ok || d < cur {
				depths[id] = d
			}
		}
	}

	return depths
}

func hops(g *graph.Graph, source string) map[string]int {
	dist := map[string]int{source: 0}
	queue := []string{source}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.Targets(current) {
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[current] + 1
			queue = append(queue, next)
		}
	}

	return dist
}

// Max returns the largest depth, or 0 for an empty map.
func (m DepthMap) Max() int {
	max := 0
	for _, d := range m {
		if d > max {
			max = d
		}
	}
	return max
}

// Distribution returns how many nodes sit at each depth.
func (m DepthMap) Distribution() map[int]int {
	dist := make(map[int]int)
	for _, d := range m {
		dist[d]++
	}
	return dist
}

// Lookup returns the depth of id and whether it is reachable.
func (m DepthMap) Lookup(id string) (int, bool) {
	d, ok := m[id]
	return d, ok
}
