// Package plan defines the task plan data model used by the scheduler:
// tasks, sequential groups, and point-in-time snapshots.
//
// A Snapshot is the unit of input for every scheduling decision. Snapshots
// are treated as immutable values: the tracker hands out deep copies, and
// the graph/scheduler packages never mutate the snapshot they are given.
package plan

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	// StatusPending indicates the task has not started yet.
	StatusPending Status = "pending"

	// StatusInProgress indicates the task is currently running.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the task finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the most recent attempt failed. The task may
	// still be retried while retries remain.
	StatusFailed Status = "failed"

	// StatusSkipped indicates an operator removed the task from the run.
	// Skipped counts as satisfied for dependency purposes.
	StatusSkipped Status = "skipped"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsSatisfied returns true if the status unblocks dependents:
// completed and skipped tasks both count.
func (s Status) IsSatisfied() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Task is a single unit of work in a plan. IDs follow the "phase.index"
// convention (e.g. "2.3" is the third task of phase 2).
type Task struct {
	// ID uniquely identifies the task within a plan.
	ID string `json:"id" yaml:"id"`

	// Description is free text. It may embed a dependency annotation of
	// the form "(depends: a, b)" which the plan loader folds into DependsOn.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Status is the current lifecycle state.
	Status Status `json:"status" yaml:"status"`

	// Phase is the ordered tier this task belongs to. Later phases are
	// gated on earlier phases' near-completion.
	Phase int `json:"phase" yaml:"phase"`

	// DependsOn lists the IDs of tasks that must be satisfied first.
	DependsOn []string `json:"depends_on" yaml:"depends_on"`

	// RetryCount is the number of retries consumed so far.
	RetryCount int `json:"retry_count" yaml:"retry_count"`

	// StartedAt records when the task last entered in_progress.
	StartedAt *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`

	// FailureReason holds context from the most recent failure.
	FailureReason string `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
}

// SequentialGroup is an ordered list of task IDs that must run one at a
// time, in list order. At most one member may be in_progress at any time,
// and the task at position k is gated on position k-1 being satisfied.
type SequentialGroup struct {
	// Reason is the free-text justification from the plan annotation.
	Reason string `json:"reason" yaml:"reason"`

	// Order is the ordered list of member task IDs.
	Order []string `json:"order" yaml:"order"`
}

// Position returns the index of id within the group, or -1 if id is not
// a member.
func (g *SequentialGroup) Position(id string) int {
	for i, member := range g.Order {
		if member == id {
			return i
		}
	}
	return -1
}

// Snapshot is the aggregate of all tasks and sequential groups at a point
// in time. Scheduling operations treat a snapshot as read-only.
type Snapshot struct {
	// ID identifies the plan this snapshot belongs to.
	ID string `json:"id" yaml:"id"`

	// CreatedAt is when the plan was initialized.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Tasks holds every task in the plan, in load order.
	Tasks []Task `json:"tasks" yaml:"tasks"`

	// Groups holds the sequential group constraints.
	Groups []SequentialGroup `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// Clone returns a deep copy of the snapshot. Mutating the copy never
// affects the original.
func (s *Snapshot) Clone() *Snapshot {
	cp := &Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Tasks:     make([]Task, len(s.Tasks)),
		Groups:    make([]SequentialGroup, len(s.Groups)),
	}
	for i, t := range s.Tasks {
		tc := t
		tc.DependsOn = append([]string(nil), t.DependsOn...)
		if t.StartedAt != nil {
			at := *t.StartedAt
			tc.StartedAt = &at
		}
		cp.Tasks[i] = tc
	}
	for i, g := range s.Groups {
		cp.Groups[i] = SequentialGroup{
			Reason: g.Reason,
			Order:  append([]string(nil), g.Order...),
		}
	}
	return cp
}

// Task returns a pointer to the task with the given ID, or nil if the
// snapshot contains no such task.
func (s *Snapshot) Task(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

// GroupFor returns the sequential group containing id and the task's
// position within it. Returns (nil, -1) if id belongs to no group.
func (s *Snapshot) GroupFor(id string) (*SequentialGroup, int) {
	for i := range s.Groups {
		if pos := s.Groups[i].Position(id); pos >= 0 {
			return &s.Groups[i], pos
		}
	}
	return nil, -1
}

// TasksInPhase returns the tasks belonging to the given phase.
func (s *Snapshot) TasksInPhase(phase int) []*Task {
	var out []*Task
	for i := range s.Tasks {
		if s.Tasks[i].Phase == phase {
			out = append(out, &s.Tasks[i])
		}
	}
	return out
}

// Phases returns the distinct phase numbers present in the snapshot,
// in ascending order. Phase numbers are not required to be contiguous.
func (s *Snapshot) Phases() []int {
	seen := make(map[int]bool)
	var phases []int
	for i := range s.Tasks {
		if !seen[s.Tasks[i].Phase] {
			seen[s.Tasks[i].Phase] = true
			phases = append(phases, s.Tasks[i].Phase)
		}
	}
	sort.Ints(phases)
	return phases
}

// CountByStatus tallies tasks per status.
func (s *Snapshot) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for i := range s.Tasks {
		counts[s.Tasks[i].Status]++
	}
	return counts
}

// SplitID parses a "phase.index" task ID into its numeric components.
// Returns ok=false for IDs that do not follow the convention.
func SplitID(id string) (phase, index int, ok bool) {
	dot := strings.IndexByte(id, '.')
	if dot <= 0 || dot == len(id)-1 {
		return 0, 0, false
	}
	phase, err := strconv.Atoi(id[:dot])
	if err != nil {
		return 0, 0, false
	}
	index, err = strconv.Atoi(id[dot+1:])
	if err != nil {
		return 0, 0, false
	}
	return phase, index, true
}

// CompareIDs orders task IDs numeric-aware: "2.9" sorts before "2.10".
// IDs that do not parse as phase.index fall back to plain string order.
func CompareIDs(a, b string) int {
	ap, ai, aok := SplitID(a)
	bp, bi, bok := SplitID(b)
	if aok && bok {
		if ap != bp {
			if ap < bp {
				return -1
			}
			return 1
		}
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// SortIDs sorts task IDs in place using CompareIDs.
func SortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return CompareIDs(ids[i], ids[j]) < 0
	})
}
