package scheduler

import (
	"testing"

	"github.com/jfelton/stagehand/internal/graph"
	"github.com/jfelton/stagehand/internal/plan"
)

func resolve(t *testing.T, snap *plan.Snapshot) *graph.Result {
	t.Helper()
	res, err := graph.NewCache().Resolve(snap)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return res
}

func TestIsReady(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("pending task with satisfied deps is ready", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusCompleted},
			{ID: "1.2", Phase: 0, Status: plan.StatusSkipped},
			{ID: "1.3", Phase: 0, Status: plan.StatusPending, DependsOn: []string{"1.1", "1.2"}},
		}}
		res := resolve(t, snap)

		if !IsReady(snap, res.Graph, "1.3", cfg) {
			t.Error("IsReady(1.3) = false, want true")
		}
	})

	t.Run("unsatisfied dependency blocks readiness", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusInProgress},
			{ID: "1.2", Phase: 0, Status: plan.StatusPending, DependsOn: []string{"1.1"}},
		}}
		res := resolve(t, snap)

		if IsReady(snap, res.Graph, "1.2", cfg) {
			t.Error("IsReady(1.2) = true with in_progress dependency")
		}
	})

	t.Run("non-pending statuses are never ready", func(t *testing.T) {
		for _, status := range []plan.Status{plan.StatusInProgress, plan.StatusCompleted, plan.StatusFailed, plan.StatusSkipped} {
			snap := &plan.Snapshot{Tasks: []plan.Task{{ID: "0.1", Phase: 0, Status: status}}}
			res := resolve(t, snap)
			if IsReady(snap, res.Graph, "0.1", cfg) {
				t.Errorf("IsReady = true for status %s", status)
			}
		}
	})

	t.Run("unknown id is not ready", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{{ID: "0.1", Phase: 0, Status: plan.StatusPending}}}
		res := resolve(t, snap)
		if IsReady(snap, res.Graph, "9.9", cfg) {
			t.Error("IsReady(9.9) = true for unknown id")
		}
	})

	t.Run("phase gate opens at threshold", func(t *testing.T) {
		// Scenario E: phase 0 has 5 tasks, 4 satisfied (80%); the phase 1
		// task has no other deps and must be ready under threshold 0.8.
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "0.1", Phase: 0, Status: plan.StatusCompleted},
			{ID: "0.2", Phase: 0, Status: plan.StatusCompleted},
			{ID: "0.3", Phase: 0, Status: plan.StatusCompleted},
			{ID: "0.4", Phase: 0, Status: plan.StatusCompleted},
			{ID: "0.5", Phase: 0, Status: plan.StatusPending},
			{ID: "1.1", Phase: 1, Status: plan.StatusPending},
		}}
		res := resolve(t, snap)

		if !IsReady(snap, res.Graph, "1.1", cfg) {
			t.Error("IsReady(1.1) = false at exactly the phase threshold")
		}
	})

	t.Run("phase gate stays closed below threshold", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "0.1", Phase: 0, Status: plan.StatusCompleted},
			{ID: "0.2", Phase: 0, Status: plan.StatusCompleted},
			{ID: "0.3", Phase: 0, Status: plan.StatusCompleted},
			{ID: "0.4", Phase: 0, Status: plan.StatusPending},
			{ID: "0.5", Phase: 0, Status: plan.StatusPending},
			{ID: "1.1", Phase: 1, Status: plan.StatusPending},
		}}
		res := resolve(t, snap)

		if IsReady(snap, res.Graph, "1.1", cfg) {
			t.Error("IsReady(1.1) = true with only 60% of phase 0 satisfied")
		}
	})

	t.Run("phase gate checks every earlier phase", func(t *testing.T) {
		// Phase 0 is drained but phase 1 is not; phase numbers need not be
		// contiguous.
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "0.1", Phase: 0, Status: plan.StatusCompleted},
			{ID: "1.1", Phase: 1, Status: plan.StatusPending},
			{ID: "3.1", Phase: 3, Status: plan.StatusPending},
		}}
		res := resolve(t, snap)

		if IsReady(snap, res.Graph, "3.1", cfg) {
			t.Error("IsReady(3.1) = true while phase 1 is undrained")
		}
	})

	t.Run("sequential group admits only the head", func(t *testing.T) {
		snap := &plan.Snapshot{
			Tasks: []plan.Task{
				{ID: "3.1", Phase: 0, Status: plan.StatusPending},
				{ID: "3.2", Phase: 0, Status: plan.StatusPending},
				{ID: "3.3", Phase: 0, Status: plan.StatusPending},
			},
			Groups: []plan.SequentialGroup{{Reason: "shared resource", Order: []string{"3.1", "3.2", "3.3"}}},
		}
		res := resolve(t, snap)

		if !IsReady(snap, res.Graph, "3.1", cfg) {
			t.Error("IsReady(3.1) = false, want true for group head")
		}
		if IsReady(snap, res.Graph, "3.2", cfg) {
			t.Error("IsReady(3.2) = true before 3.1 is satisfied")
		}
	})

	t.Run("in_progress group member blocks the rest", func(t *testing.T) {
		snap := &plan.Snapshot{
			Tasks: []plan.Task{
				{ID: "3.1", Phase: 0, Status: plan.StatusSkipped},
				{ID: "3.2", Phase: 0, Status: plan.StatusInProgress},
				{ID: "3.3", Phase: 0, Status: plan.StatusPending},
			},
			Groups: []plan.SequentialGroup{{Reason: "shared resource", Order: []string{"3.1", "3.2", "3.3"}}},
		}
		res := resolve(t, snap)

		if IsReady(snap, res.Graph, "3.3", cfg) {
			t.Error("IsReady(3.3) = true while 3.2 is in_progress")
		}
	})

	t.Run("skipped predecessor unblocks the next group member", func(t *testing.T) {
		snap := &plan.Snapshot{
			Tasks: []plan.Task{
				{ID: "3.1", Phase: 0, Status: plan.StatusSkipped},
				{ID: "3.2", Phase: 0, Status: plan.StatusPending},
			},
			Groups: []plan.SequentialGroup{{Reason: "shared resource", Order: []string{"3.1", "3.2"}}},
		}
		res := resolve(t, snap)

		if !IsReady(snap, res.Graph, "3.2", cfg) {
			t.Error("IsReady(3.2) = false after predecessor was skipped")
		}
	})
}
