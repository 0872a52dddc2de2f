package graph

import (
	"sort"

	"github.com/jfelton/stagehand/internal/plan"
)

// Analysis holds the critical path layering for an acyclic graph.
//
// layer(t) is 0 for tasks with no dependencies and 1 + max(layer(dep))
// otherwise. suffix(t) is the symmetric measure over dependents: the
// longest chain of dependents starting at t. A task lies on a longest
// path exactly when layer(t) + suffix(t) equals the critical path length.
type Analysis struct {
	// Layers maps each task to its longest-chain distance from a root.
	Layers map[string]int

	// Suffixes maps each task to its longest dependent chain length.
	Suffixes map[string]int

	// CriticalPathLength is max(layer) over all tasks; 0 for empty graphs.
	CriticalPathLength int
}

// Bottleneck is a task ranked by how much of the remaining plan it gates.
type Bottleneck struct {
	TaskID string `json:"task_id"`
	Score  int    `json:"score"`
}

// Analyze computes layers, suffixes, and the critical path length.
// The graph must be acyclic (run DetectCycle first).
func Analyze(g *Graph) *Analysis {
	a := &Analysis{
		Layers:   make(map[string]int, len(g.IDs)),
		Suffixes: make(map[string]int, len(g.IDs)),
	}

	order := topoOrder(g)

	for _, id := range order {
		layer := 0
		for _, dep := range g.Reverse[id] {
			if l := a.Layers[dep] + 1; l > layer {
				layer = l
			}
		}
		a.Layers[id] = layer
		if layer > a.CriticalPathLength {
			a.CriticalPathLength = layer
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		suffix := 0
		for _, dependent := range g.Forward[id] {
			if s := a.Suffixes[dependent] + 1; s > suffix {
				suffix = s
			}
		}
		a.Suffixes[id] = suffix
	}

	return a
}

// OnCriticalPath reports whether the task lies on at least one longest
// dependency chain.
func (a *Analysis) OnCriticalPath(id string) bool {
	layer, ok := a.Layers[id]
	if !ok {
		return false
	}
	return layer+a.Suffixes[id] == a.CriticalPathLength
}

// Bottlenecks ranks tasks by dependents count, doubled for tasks on the
// critical path. Results are sorted by descending score, ties broken by
// ascending task ID.
func (a *Analysis) Bottlenecks(g *Graph) []Bottleneck {
	out := make([]Bottleneck, 0, len(g.IDs))
	for _, id := range g.IDs {
		score := len(g.Forward[id])
		if a.OnCriticalPath(id) {
			score *= 2
		}
		out = append(out, Bottleneck{TaskID: id, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return plan.CompareIDs(out[i].TaskID, out[j].TaskID) < 0
	})
	return out
}

// topoOrder returns task IDs in dependency order using Kahn's algorithm.
// Roots are visited in sorted ID order for determinism.
func topoOrder(g *Graph) []string {
	inDegree := make(map[string]int, len(g.IDs))
	for _, id := range g.IDs {
		inDegree[id] = len(g.Reverse[id])
	}

	var queue []string
	for _, id := range g.IDs {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.IDs))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var ready []string
		for _, dependent := range g.Forward[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sortAdj(ready)
		queue = append(queue, ready...)
	}

	return order
}
