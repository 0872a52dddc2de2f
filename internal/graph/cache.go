package graph

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/jfelton/stagehand/internal/plan"
)

// Result bundles everything derived from one snapshot structure: the
// adjacency graph, the cycle (nil when acyclic), and the critical path
// analysis (nil when a cycle exists).
type Result struct {
	Graph    *Graph
	Cycle    []string
	Analysis *Analysis
}

// Cache memoizes graph builds against a structural fingerprint of the
// snapshot. Status changes do not alter structure, so the executor loop
// can resolve on every iteration without rebuilding. Safe for concurrent
// use.
type Cache struct {
	mu          sync.Mutex
	fingerprint uint64
	result      *Result
}

// NewCache returns an empty graph cache.
func NewCache() *Cache {
	return &Cache{}
}

// Resolve returns the graph result for the snapshot, rebuilding only when
// the snapshot's dependency structure has changed since the last call.
// Returns an UnknownDependencyError if the snapshot references a missing
// task; a cycle is not an error here and is reported via Result.Cycle.
func (c *Cache) Resolve(snap *plan.Snapshot) (*Result, error) {
	fp := Fingerprint(snap)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result != nil && c.fingerprint == fp {
		return c.result, nil
	}

	g, err := Build(snap)
	if err != nil {
		return nil, err
	}

	res := &Result{Graph: g}
	if cycle := g.DetectCycle(); cycle != nil {
		res.Cycle = cycle
	} else {
		res.Analysis = Analyze(g)
	}

	c.fingerprint = fp
	c.result = res
	return res, nil
}

// Fingerprint hashes the snapshot's dependency structure: task IDs and
// their (merged) dependency lists, independent of status or timestamps.
func Fingerprint(snap *plan.Snapshot) uint64 {
	lines := make([]string, 0, len(snap.Tasks))
	for i := range snap.Tasks {
		task := &snap.Tasks[i]
		deps := append([]string(nil), mergedDeps(task)...)
		plan.SortIDs(deps)
		lines = append(lines, fmt.Sprintf("%s>%s", task.ID, strings.Join(deps, ",")))
	}
	sort.Strings(lines)

	h := fnv.New64a()
	for _, line := range lines {
		_, _ = h.Write([]byte(line))
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}
