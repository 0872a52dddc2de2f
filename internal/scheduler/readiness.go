// Package scheduler turns a plan snapshot into the next execution batch.
//
// Everything here is a pure computation over an immutable snapshot plus
// its derived graph: readiness evaluation, policy selection, batch
// assembly, and the roll-up summary. No function mutates its inputs or
// holds state between calls, so concurrent reads against the same
// snapshot are safe and idempotent.
package scheduler

import (
	"github.com/jfelton/stagehand/internal/graph"
	"github.com/jfelton/stagehand/internal/plan"
)

// Defaults for scheduling configuration.
const (
	// DefaultMaxRetries is how many times a failed task may be retried.
	DefaultMaxRetries = 2

	// DefaultPhaseThreshold is the fraction of a prior phase that must be
	// satisfied before the next phase may start.
	DefaultPhaseThreshold = 0.8
)

// Config carries the scheduling knobs.
type Config struct {
	// MaxRetries caps retries per failed task.
	MaxRetries int

	// PhaseThreshold is the satisfied fraction of every earlier phase
	// required before a task's phase may begin, in (0, 1].
	PhaseThreshold float64
}

// DefaultConfig returns the standard scheduling configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     DefaultMaxRetries,
		PhaseThreshold: DefaultPhaseThreshold,
	}
}

// IsReady reports whether the task with the given ID is eligible to run:
// it is pending, its dependencies are satisfied, every earlier phase has
// drained past the threshold, and its sequential group (if any) has
// reached its turn. Unknown IDs are never ready.
func IsReady(snap *plan.Snapshot, g *graph.Graph, id string, cfg Config) bool {
	task := snap.Task(id)
	if task == nil {
		return false
	}
	if task.Status != plan.StatusPending {
		return false
	}
	return readyIgnoringStatus(snap, g, task, cfg)
}

// readyIgnoringStatus applies readiness rules 2-4, leaving the status
// check to the caller. Retry candidates are evaluated through this path
// as if they were pending.
func readyIgnoringStatus(snap *plan.Snapshot, g *graph.Graph, task *plan.Task, cfg Config) bool {
	for _, dep := range g.Dependencies(task.ID) {
		depTask := snap.Task(dep)
		if depTask == nil || !depTask.Status.IsSatisfied() {
			return false
		}
	}

	if task.Phase > 0 && !priorPhasesDrained(snap, task.Phase, cfg.PhaseThreshold) {
		return false
	}

	return groupTurnReached(snap, task.ID)
}

// priorPhasesDrained checks that every phase before the given one has a
// satisfied fraction at or above the threshold. This lets the next phase
// begin before the prior phase is fully finished.
func priorPhasesDrained(snap *plan.Snapshot, phase int, threshold float64) bool {
	for _, p := range snap.Phases() {
		if p >= phase {
			continue
		}
		tasks := snap.TasksInPhase(p)
		satisfied := 0
		for _, t := range tasks {
			if t.Status.IsSatisfied() {
				satisfied++
			}
		}
		if satisfied == len(tasks) {
			continue
		}
		if float64(satisfied)/float64(len(tasks)) < threshold {
			return false
		}
	}
	return true
}

// groupTurnReached enforces the sequential group constraint: the task is
// at position 0 or its predecessor is satisfied, and no other member of
// the group is currently in_progress.
func groupTurnReached(snap *plan.Snapshot, id string) bool {
	group, pos := snap.GroupFor(id)
	if group == nil {
		return true
	}

	if pos > 0 {
		prev := snap.Task(group.Order[pos-1])
		if prev == nil || !prev.Status.IsSatisfied() {
			return false
		}
	}

	for _, member := range group.Order {
		if member == id {
			continue
		}
		if t := snap.Task(member); t != nil && t.Status == plan.StatusInProgress {
			return false
		}
	}
	return true
}
