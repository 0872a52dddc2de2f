package scheduler

import (
	"github.com/jfelton/stagehand/internal/graph"
	"github.com/jfelton/stagehand/internal/plan"
)

// Summary is the roll-up view of a snapshot used by status reporting.
type Summary struct {
	// Total is the number of tasks in the plan.
	Total int `json:"total"`

	// Counts tallies tasks per status.
	Counts map[plan.Status]int `json:"counts"`

	// CompletionPct is the percentage of tasks that are satisfied
	// (completed or skipped), in [0, 100].
	CompletionPct float64 `json:"completion_pct"`

	// ReadyIDs lists the pending tasks that are currently eligible to
	// run, in numeric-aware ID order.
	ReadyIDs []string `json:"ready_ids"`

	// CriticalPathLength is the longest dependency chain length, or 0
	// when the graph is cyclic.
	CriticalPathLength int `json:"critical_path_length"`

	// HasCycle is true when the dependency graph contains a cycle.
	HasCycle bool `json:"has_cycle"`
}

// Summarize computes the summary for a snapshot and its graph result.
func Summarize(snap *plan.Snapshot, res *graph.Result, cfg Config) Summary {
	s := Summary{
		Total:  len(snap.Tasks),
		Counts: snap.CountByStatus(),
	}

	if s.Total > 0 {
		satisfied := s.Counts[plan.StatusCompleted] + s.Counts[plan.StatusSkipped]
		s.CompletionPct = float64(satisfied) / float64(s.Total) * 100
	}

	if res.Cycle != nil {
		s.HasCycle = true
		return s
	}

	s.CriticalPathLength = res.Analysis.CriticalPathLength
	s.ReadyIDs = readyPending(snap, res.Graph, cfg)
	plan.SortIDs(s.ReadyIDs)
	return s
}
