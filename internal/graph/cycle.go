package graph

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle. It is fatal: scheduling must not
// proceed until the plan is fixed.
type CycleError struct {
	// Path is the cycle in dependency order: each element is a dependency
	// of the next, and the last element depends back on the first.
	Path []string
}

// Error returns the formatted error message.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// Traversal colors for cycle detection.
const (
	colorWhite = iota // unvisited
	colorGray         // on the current DFS stack
	colorBlack        // fully explored
)

// DetectCycle returns the cycle path if one exists, or nil for acyclic
// graphs. The path is ordered so consecutive elements are each a
// dependency of the next. Runs in O(nodes + edges).
func (g *Graph) DetectCycle() []string {
	color := make(map[string]int, len(g.IDs))
	parent := make(map[string]string, len(g.IDs))

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = colorGray
		for _, next := range g.Forward[node] {
			switch color[next] {
			case colorGray:
				// Back edge: the gray stack from next to node is the cycle.
				cycle := []string{node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			case colorWhite:
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = colorBlack
		return nil
	}

	// IDs are pre-sorted, so detection order is deterministic.
	for _, id := range g.IDs {
		if color[id] == colorWhite {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
