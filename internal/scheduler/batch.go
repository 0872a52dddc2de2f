package scheduler

import (
	"sort"

	"github.com/jfelton/stagehand/internal/graph"
	"github.com/jfelton/stagehand/internal/plan"
)

// NextBatch assembles the next execution batch: an ordered list of task
// IDs, at most maxParallel long, that the external executor should start
// now. Tasks already in_progress are never re-proposed. Failed tasks with
// retries remaining take priority over fresh pending work, and at most
// one task per sequential group is admitted.
//
// The result is deterministic for a fixed snapshot and configuration.
// Returns a *graph.CycleError when the snapshot's graph is cyclic.
func NextBatch(snap *plan.Snapshot, res *graph.Result, maxParallel int, cfg Config) ([]string, error) {
	if res.Cycle != nil {
		return nil, &graph.CycleError{Path: res.Cycle}
	}
	if maxParallel <= 0 {
		return nil, nil
	}

	retries := retryCandidates(snap, res.Graph, cfg)
	ready := readyPending(snap, res.Graph, cfg)

	policy := SelectPolicy(len(retries)+len(ready), maxParallel, anyCritical(res.Analysis, ready))

	sortCandidates(snap, retries, nil)
	if policy == PolicyCriticalPathFirst {
		sortCandidates(snap, ready, res.Analysis)
	} else {
		sortCandidates(snap, ready, nil)
	}

	var batch []string
	groupTaken := make(map[*plan.SequentialGroup]bool)

	admit := func(id string) bool {
		if len(batch) >= maxParallel {
			return false
		}
		if group, _ := snap.GroupFor(id); group != nil {
			if groupTaken[group] {
				return true // skip, keep scanning
			}
			groupTaken[group] = true
		}
		batch = append(batch, id)
		return true
	}

	for _, id := range retries {
		if !admit(id) {
			break
		}
	}
	for _, id := range ready {
		if !admit(id) {
			break
		}
	}

	return batch, nil
}

// retryCandidates returns failed tasks with retries remaining that would
// be ready if they were pending.
func retryCandidates(snap *plan.Snapshot, g *graph.Graph, cfg Config) []string {
	var out []string
	for i := range snap.Tasks {
		task := &snap.Tasks[i]
		if task.Status != plan.StatusFailed || task.RetryCount >= cfg.MaxRetries {
			continue
		}
		if readyIgnoringStatus(snap, g, task, cfg) {
			out = append(out, task.ID)
		}
	}
	return out
}

// readyPending returns the IDs of pending tasks that pass every readiness
// rule.
func readyPending(snap *plan.Snapshot, g *graph.Graph, cfg Config) []string {
	var out []string
	for i := range snap.Tasks {
		task := &snap.Tasks[i]
		if task.Status != plan.StatusPending {
			continue
		}
		if readyIgnoringStatus(snap, g, task, cfg) {
			out = append(out, task.ID)
		}
	}
	return out
}

// anyCritical reports whether any candidate lies on the critical path.
func anyCritical(a *graph.Analysis, ids []string) bool {
	for _, id := range ids {
		if a.OnCriticalPath(id) {
			return true
		}
	}
	return false
}

// sortCandidates orders IDs by ascending phase, then critical-path
// membership when an analysis is supplied, then numeric-aware ID.
func sortCandidates(snap *plan.Snapshot, ids []string, a *graph.Analysis) {
	sort.SliceStable(ids, func(i, j int) bool {
		ti, tj := snap.Task(ids[i]), snap.Task(ids[j])
		if ti.Phase != tj.Phase {
			return ti.Phase < tj.Phase
		}
		if a != nil {
			ci, cj := a.OnCriticalPath(ids[i]), a.OnCriticalPath(ids[j])
			if ci != cj {
				return ci
			}
		}
		return plan.CompareIDs(ids[i], ids[j]) < 0
	})
}
