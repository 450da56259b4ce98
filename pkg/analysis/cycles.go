package analysis

import "github.com/l3aro/nixdead/pkg/graph"

// Cycle is a closed walk [n0, n1, ..., nk] with nk == n0 and an edge between
// every consecutive pair.
type Cycle []string

// frame is one level of the simulated recursion: the node, its sorted
// targets and the index of the next target to explore.
type frame struct {
	node    string
	targets []string
	next    int
}

// Cycles runs a depth-first search from every unvisited node, in id order,
// over the whole graph, dead nodes included. Each traversal root contributes
// at most one cycle: the first back edge found ends that root's traversal.
// A component with several cycles therefore reports only one of them, and
// nodes left unexplored by an aborted traversal may start a later root.
//
// The search keeps an explicit stack of frames instead of recursing, so deep
// reference chains cannot exhaust the goroutine stack.
func Cycles(g *graph.Graph) []Cycle {
	visited := graph.NewSet()
	cycles := make([]Cycle, 0)

	for _, root := range g.Nodes() {
		if visited.Has(root) {
			continue
		}
		if cycle, ok := walk(g, root, visited); ok {
			cycles = append(cycles, cycle)
		}
	}

	return cycles
}

// walk explores from root, marking nodes visited, and returns the first
// cycle closed by a back edge.
func walk(g *graph.Graph, root string, visited graph.Set) (Cycle, bool) {
	onStack := graph.NewSet(root)
	visited.Add(root)
	stack := []frame{{node: root, targets: g.Targets(root)}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.targets) {
			delete(onStack, top.node)
			stack = stack[:len(stack)-1]
			continue
		}

		target := top.targets[top.next]
		top.next++

		switch {
		case !visited.Has(target):
			visited.Add(target)
			onStack.Add(target)
			stack = append(stack, frame{node: target, targets: g.Targets(target)})
		case onStack.Has(target):
			return closeCycle(stack, target), true
		}
	}

	return nil, false
}

// closeCycle slices the stack from target's frame and appends target again
// to close the loop.
func closeCycle(stack []frame, target string) Cycle {
	for i := range stack {
		if stack[i].node != target {
			continue
		}
		cycle := make(Cycle, 0, len(stack)-i+1)
		for _, f := range stack[i:] {
			cycle = append(cycle, f.node)
		}
		return append(cycle, target)
	}
	return Cycle{target, target}
}
