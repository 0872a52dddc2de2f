// Package graph derives the dependency graph from a plan snapshot and
// provides the analyses the scheduler consumes: cycle detection, critical
// path layering, and bottleneck scoring.
//
// The graph is derived, never stored: callers rebuild it (or hit the
// fingerprint cache) whenever the snapshot's structure changes. All
// functions here are pure and safe for concurrent use on a built graph.
package graph

import (
	"fmt"
	"sort"

	"github.com/jfelton/stagehand/internal/plan"
)

// UnknownDependencyError reports a dependency reference to a task ID that
// does not exist in the plan. It is fatal: no scheduling may proceed.
type UnknownDependencyError struct {
	// TaskID is the task that declared the dependency.
	TaskID string
	// MissingID is the referenced ID that does not exist.
	MissingID string
}

// Error returns the formatted error message.
func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %s depends on unknown task %s", e.TaskID, e.MissingID)
}

// Graph is the adjacency view of a snapshot's dependencies. Edges run
// dependency -> dependent in Forward; Reverse maps each task to its
// dependencies. Adjacency lists are sorted for deterministic traversal.
type Graph struct {
	// IDs holds every task ID, in numeric-aware sorted order.
	IDs []string

	// Forward maps a dependency to the tasks that depend on it.
	Forward map[string][]string

	// Reverse maps a task to its dependencies.
	Reverse map[string][]string
}

// Build constructs the dependency graph for a snapshot. Dependencies come
// from each task's structured DependsOn field merged with any
// "(depends: ...)" annotation embedded in its description; both input
// contracts are honored. Returns an UnknownDependencyError if any
// reference points at a task that does not exist.
func Build(snap *plan.Snapshot) (*Graph, error) {
	g := &Graph{
		IDs:     make([]string, 0, len(snap.Tasks)),
		Forward: make(map[string][]string, len(snap.Tasks)),
		Reverse: make(map[string][]string, len(snap.Tasks)),
	}

	exists := make(map[string]bool, len(snap.Tasks))
	for i := range snap.Tasks {
		exists[snap.Tasks[i].ID] = true
		g.IDs = append(g.IDs, snap.Tasks[i].ID)
	}
	plan.SortIDs(g.IDs)

	edgeSeen := make(map[[2]string]bool)
	for i := range snap.Tasks {
		task := &snap.Tasks[i]
		for _, dep := range mergedDeps(task) {
			if !exists[dep] {
				return nil, &UnknownDependencyError{TaskID: task.ID, MissingID: dep}
			}
			key := [2]string{dep, task.ID}
			if edgeSeen[key] {
				continue
			}
			edgeSeen[key] = true
			g.Forward[dep] = append(g.Forward[dep], task.ID)
			g.Reverse[task.ID] = append(g.Reverse[task.ID], dep)
		}
	}

	for id := range g.Forward {
		sortAdj(g.Forward[id])
	}
	for id := range g.Reverse {
		sortAdj(g.Reverse[id])
	}

	return g, nil
}

// Dependencies returns the sorted dependency IDs of a task.
func (g *Graph) Dependencies(id string) []string {
	return g.Reverse[id]
}

// Dependents returns the sorted IDs of tasks that depend on id.
func (g *Graph) Dependents(id string) []string {
	return g.Forward[id]
}

// mergedDeps combines a task's structured dependencies with any annotation
// parsed out of its description, deduplicated in first-seen order.
func mergedDeps(task *plan.Task) []string {
	annotated := plan.ParseDependencies(task.Description)
	if len(annotated) == 0 {
		return task.DependsOn
	}
	if len(task.DependsOn) == 0 {
		return annotated
	}

	seen := make(map[string]bool, len(task.DependsOn)+len(annotated))
	merged := make([]string, 0, len(task.DependsOn)+len(annotated))
	for _, id := range task.DependsOn {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	for _, id := range annotated {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	return merged
}

func sortAdj(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return plan.CompareIDs(ids[i], ids[j]) < 0
	})
}
