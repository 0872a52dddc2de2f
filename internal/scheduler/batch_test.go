package scheduler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jfelton/stagehand/internal/graph"
	"github.com/jfelton/stagehand/internal/plan"
)

func TestNextBatch(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("dependency chain releases one task at a time", func(t *testing.T) {
		// Scenario A: 2.1 depends on 1.1. Only 1.1 is proposed while it is
		// unfinished; 2.1 appears once 1.1 completes.
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusPending},
			{ID: "2.1", Phase: 0, Status: plan.StatusPending, DependsOn: []string{"1.1"}},
		}}
		res := resolve(t, snap)

		batch, err := NextBatch(snap, res, 4, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if !reflect.DeepEqual(batch, []string{"1.1"}) {
			t.Fatalf("batch = %v, want [1.1]", batch)
		}

		snap.Task("1.1").Status = plan.StatusCompleted
		res = resolve(t, snap)

		batch, err = NextBatch(snap, res, 4, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if !reflect.DeepEqual(batch, []string{"2.1"}) {
			t.Fatalf("batch = %v, want [2.1]", batch)
		}
	})

	t.Run("sequential group yields one member per batch", func(t *testing.T) {
		// Scenario B: a three-member group plus an unrelated task. Each
		// batch carries at most one group member even with spare capacity.
		snap := &plan.Snapshot{
			Tasks: []plan.Task{
				{ID: "3.1", Phase: 0, Status: plan.StatusPending},
				{ID: "3.2", Phase: 0, Status: plan.StatusPending},
				{ID: "3.3", Phase: 0, Status: plan.StatusPending},
				{ID: "3.4", Phase: 0, Status: plan.StatusPending},
			},
			Groups: []plan.SequentialGroup{{Reason: "migration order", Order: []string{"3.1", "3.2", "3.3"}}},
		}
		res := resolve(t, snap)

		batch, err := NextBatch(snap, res, 4, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if !reflect.DeepEqual(batch, []string{"3.1", "3.4"}) {
			t.Fatalf("batch = %v, want [3.1 3.4]", batch)
		}

		snap.Task("3.1").Status = plan.StatusCompleted
		snap.Task("3.4").Status = plan.StatusCompleted
		res = resolve(t, snap)

		batch, err = NextBatch(snap, res, 4, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if !reflect.DeepEqual(batch, []string{"3.2"}) {
			t.Fatalf("batch = %v, want [3.2]", batch)
		}
	})

	t.Run("maxParallel caps the batch", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusPending},
			{ID: "1.2", Phase: 0, Status: plan.StatusPending},
			{ID: "1.3", Phase: 0, Status: plan.StatusPending},
			{ID: "1.4", Phase: 0, Status: plan.StatusPending},
			{ID: "1.5", Phase: 0, Status: plan.StatusPending},
		}}
		res := resolve(t, snap)

		batch, err := NextBatch(snap, res, 2, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if !reflect.DeepEqual(batch, []string{"1.1", "1.2"}) {
			t.Fatalf("batch = %v, want [1.1 1.2]", batch)
		}
	})

	t.Run("non-positive maxParallel yields empty batch", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusPending},
		}}
		res := resolve(t, snap)

		for _, n := range []int{0, -1} {
			batch, err := NextBatch(snap, res, n, cfg)
			if err != nil {
				t.Fatalf("NextBatch(%d): %v", n, err)
			}
			if len(batch) != 0 {
				t.Errorf("NextBatch(%d) = %v, want empty", n, batch)
			}
		}
	})

	t.Run("idempotent for an unchanged snapshot", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "2.10", Phase: 0, Status: plan.StatusPending},
			{ID: "2.9", Phase: 0, Status: plan.StatusPending},
			{ID: "1.1", Phase: 0, Status: plan.StatusPending},
		}}
		res := resolve(t, snap)

		first, err := NextBatch(snap, res, 4, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		for i := 0; i < 5; i++ {
			again, err := NextBatch(snap, res, 4, cfg)
			if err != nil {
				t.Fatalf("NextBatch: %v", err)
			}
			if !reflect.DeepEqual(again, first) {
				t.Fatalf("batch changed across calls: %v vs %v", again, first)
			}
		}
		// Numeric-aware ordering: 2.9 before 2.10.
		if !reflect.DeepEqual(first, []string{"1.1", "2.9", "2.10"}) {
			t.Fatalf("batch = %v, want [1.1 2.9 2.10]", first)
		}
	})

	t.Run("retry candidates precede fresh work", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusFailed, RetryCount: 1},
			{ID: "1.2", Phase: 0, Status: plan.StatusPending},
		}}
		res := resolve(t, snap)

		batch, err := NextBatch(snap, res, 1, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if !reflect.DeepEqual(batch, []string{"1.1"}) {
			t.Fatalf("batch = %v, want the retry candidate [1.1]", batch)
		}
	})

	t.Run("exhausted retries drop out of the batch", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusFailed, RetryCount: DefaultMaxRetries},
			{ID: "1.2", Phase: 0, Status: plan.StatusPending},
		}}
		res := resolve(t, snap)

		batch, err := NextBatch(snap, res, 4, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if !reflect.DeepEqual(batch, []string{"1.2"}) {
			t.Fatalf("batch = %v, want [1.2]", batch)
		}
	})

	t.Run("in_progress tasks are never re-proposed", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusInProgress},
			{ID: "1.2", Phase: 0, Status: plan.StatusPending},
		}}
		res := resolve(t, snap)

		batch, err := NextBatch(snap, res, 4, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if !reflect.DeepEqual(batch, []string{"1.2"}) {
			t.Fatalf("batch = %v, want [1.2]", batch)
		}
	})

	t.Run("critical path tasks jump the queue under contention", func(t *testing.T) {
		// Chain 1.1 -> 2.1 -> 3.1 makes 1.1 critical; 1.5 and 1.6 are
		// leaves. With few ready tasks the policy is critical-path-first,
		// so 1.1 must lead the batch even though all share a phase.
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusPending},
			{ID: "1.5", Phase: 0, Status: plan.StatusPending},
			{ID: "1.6", Phase: 0, Status: plan.StatusPending},
			{ID: "2.1", Phase: 0, Status: plan.StatusPending, DependsOn: []string{"1.1"}},
			{ID: "3.1", Phase: 0, Status: plan.StatusPending, DependsOn: []string{"2.1"}},
		}}
		res := resolve(t, snap)

		batch, err := NextBatch(snap, res, 2, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if !reflect.DeepEqual(batch, []string{"1.1", "1.5"}) {
			t.Fatalf("batch = %v, want [1.1 1.5]", batch)
		}
	})

	t.Run("cycle surfaces as CycleError", func(t *testing.T) {
		snap := &plan.Snapshot{Tasks: []plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusPending, DependsOn: []string{"1.2"}},
			{ID: "1.2", Phase: 0, Status: plan.StatusPending, DependsOn: []string{"1.1"}},
		}}
		res := resolve(t, snap)

		_, err := NextBatch(snap, res, 4, cfg)
		var cycErr *graph.CycleError
		if !errors.As(err, &cycErr) {
			t.Fatalf("NextBatch error = %v, want *graph.CycleError", err)
		}
		if len(cycErr.Path) == 0 {
			t.Error("CycleError.Path is empty")
		}
	})

	t.Run("empty plan yields empty batch", func(t *testing.T) {
		snap := &plan.Snapshot{}
		res := resolve(t, snap)

		batch, err := NextBatch(snap, res, 4, cfg)
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		if len(batch) != 0 {
			t.Errorf("batch = %v, want empty", batch)
		}
	})
}
