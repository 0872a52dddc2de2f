// Package tracker owns the mutable status of a plan's tasks. It is the
// single writer: everything else reads immutable snapshots it hands out.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jfelton/stagehand/internal/plan"
)

// DefaultStuckThreshold is how long a task may sit in_progress before
// DetectStuck reports it.
const DefaultStuckThreshold = 30 * time.Minute

// Sentinel errors returned by tracker operations.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrGroupBusy         = errors.New("sequential group busy")
	ErrRetriesExhausted  = errors.New("retries exhausted")
)

// Tracker manages task status transitions over a plan snapshot.
// All methods are safe for concurrent use via an internal mutex.
type Tracker struct {
	mu         sync.Mutex
	snap       *plan.Snapshot
	maxRetries int
}

// New creates a Tracker over the given snapshot. The tracker takes
// ownership of the snapshot; callers must not mutate it afterwards.
func New(snap *plan.Snapshot, maxRetries int) *Tracker {
	return &Tracker{
		snap:       snap,
		maxRetries: maxRetries,
	}
}

// Snapshot returns a deep copy of the current plan state. Readers may
// hold it indefinitely without observing later transitions.
func (tr *Tracker) Snapshot() *plan.Snapshot {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.snap.Clone()
}

// MarkStarted transitions a pending task to in_progress and records the
// start time. It refuses to start a task whose sequential group already
// has a member in_progress.
func (tr *Tracker) MarkStarted(id string, now time.Time) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	task := tr.snap.Task(id)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status != plan.StatusPending {
		return fmt.Errorf("%w: cannot start %s from %s", ErrInvalidTransition, id, task.Status)
	}

	if group, _ := tr.snap.GroupFor(id); group != nil {
		for _, member := range group.Order {
			if member == id {
				continue
			}
			if t := tr.snap.Task(member); t != nil && t.Status == plan.StatusInProgress {
				return fmt.Errorf("%w: %s is in_progress in the same group as %s", ErrGroupBusy, member, id)
			}
		}
	}

	task.Status = plan.StatusInProgress
	task.StartedAt = &now
	return nil
}

// MarkCompleted transitions an in_progress task to completed.
func (tr *Tracker) MarkCompleted(id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	task := tr.snap.Task(id)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status != plan.StatusInProgress {
		return fmt.Errorf("%w: cannot complete %s from %s", ErrInvalidTransition, id, task.Status)
	}

	task.Status = plan.StatusCompleted
	task.StartedAt = nil
	task.FailureReason = ""
	return nil
}

// MarkFailed transitions an in_progress task to failed and records the
// reason. The retry count is untouched; it advances only through Retry.
func (tr *Tracker) MarkFailed(id, reason string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	task := tr.snap.Task(id)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status != plan.StatusInProgress {
		return fmt.Errorf("%w: cannot fail %s from %s", ErrInvalidTransition, id, task.Status)
	}

	task.Status = plan.StatusFailed
	task.StartedAt = nil
	task.FailureReason = reason
	return nil
}

// MarkSkipped transitions a pending, in_progress, or failed task to
// skipped. Skipped tasks satisfy their dependents. Skipping an
// in_progress task does not cancel the external work; it only changes
// future scheduling decisions.
func (tr *Tracker) MarkSkipped(id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	task := tr.snap.Task(id)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status.IsSatisfied() {
		return fmt.Errorf("%w: cannot skip %s from %s", ErrInvalidTransition, id, task.Status)
	}

	task.Status = plan.StatusSkipped
	task.StartedAt = nil
	return nil
}

// Retry returns a failed task to pending and increments its retry count.
// Returns ErrRetriesExhausted once the count reaches the maximum.
func (tr *Tracker) Retry(id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	task := tr.snap.Task(id)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status != plan.StatusFailed {
		return fmt.Errorf("%w: cannot retry %s from %s", ErrInvalidTransition, id, task.Status)
	}
	if task.RetryCount >= tr.maxRetries {
		return fmt.Errorf("%w: %s has used %d of %d retries", ErrRetriesExhausted, id, task.RetryCount, tr.maxRetries)
	}

	task.RetryCount++
	task.Status = plan.StatusPending
	task.StartedAt = nil
	return nil
}

// DetectStuck returns the IDs of tasks that have been in_progress longer
// than the threshold, in numeric-aware ID order. Detection is read-only:
// nothing transitions and no retry is consumed until the caller acts.
func (tr *Tracker) DetectStuck(threshold time.Duration, now time.Time) []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if threshold <= 0 {
		threshold = DefaultStuckThreshold
	}
	cutoff := now.Add(-threshold)

	var stuck []string
	for i := range tr.snap.Tasks {
		task := &tr.snap.Tasks[i]
		if task.Status == plan.StatusInProgress && task.StartedAt != nil && task.StartedAt.Before(cutoff) {
			stuck = append(stuck, task.ID)
		}
	}
	plan.SortIDs(stuck)
	return stuck
}
