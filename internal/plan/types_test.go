package plan

import (
	"testing"
	"time"
)

func TestStatusIsSatisfied(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusFailed, false},
		{StatusSkipped, true},
	}
	for _, tc := range cases {
		if got := tc.status.IsSatisfied(); got != tc.want {
			t.Errorf("%s.IsSatisfied() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestSnapshotClone(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := &Snapshot{
		ID:        "plan-1",
		CreatedAt: started,
		Tasks: []Task{
			{ID: "1.1", Status: StatusInProgress, Phase: 1, DependsOn: []string{}, StartedAt: &started},
			{ID: "2.1", Status: StatusPending, Phase: 2, DependsOn: []string{"1.1"}},
		},
		Groups: []SequentialGroup{
			{Reason: "migrations", Order: []string{"1.1", "2.1"}},
		},
	}

	cp := snap.Clone()

	cp.Tasks[0].Status = StatusCompleted
	cp.Tasks[1].DependsOn[0] = "x.x"
	*cp.Tasks[0].StartedAt = time.Time{}
	cp.Groups[0].Order[0] = "mutated"

	if snap.Tasks[0].Status != StatusInProgress {
		t.Error("clone mutation leaked into original status")
	}
	if snap.Tasks[1].DependsOn[0] != "1.1" {
		t.Error("clone mutation leaked into original deps")
	}
	if !snap.Tasks[0].StartedAt.Equal(started) {
		t.Error("clone mutation leaked into original StartedAt")
	}
	if snap.Groups[0].Order[0] != "1.1" {
		t.Error("clone mutation leaked into original group order")
	}
}

func TestSnapshotLookups(t *testing.T) {
	snap := &Snapshot{
		Tasks: []Task{
			{ID: "0.1", Phase: 0},
			{ID: "0.2", Phase: 0},
			{ID: "2.1", Phase: 2},
		},
		Groups: []SequentialGroup{{Reason: "r", Order: []string{"0.1", "0.2"}}},
	}

	if task := snap.Task("0.2"); task == nil || task.ID != "0.2" {
		t.Errorf("Task(0.2) = %+v", task)
	}
	if task := snap.Task("9.9"); task != nil {
		t.Errorf("Task(9.9) = %+v, want nil", task)
	}

	g, pos := snap.GroupFor("0.2")
	if g == nil || pos != 1 {
		t.Errorf("GroupFor(0.2) = %v, %d; want group at position 1", g, pos)
	}
	if g, pos := snap.GroupFor("2.1"); g != nil || pos != -1 {
		t.Errorf("GroupFor(2.1) = %v, %d; want nil, -1", g, pos)
	}

	phases := snap.Phases()
	if len(phases) != 2 || phases[0] != 0 || phases[1] != 2 {
		t.Errorf("Phases() = %v, want [0 2]", phases)
	}
	if got := len(snap.TasksInPhase(0)); got != 2 {
		t.Errorf("TasksInPhase(0) has %d tasks, want 2", got)
	}
}

func TestCompareIDs(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2.9", "2.10", -1},
		{"2.10", "2.9", 1},
		{"1.5", "2.1", -1},
		{"3.3", "3.3", 0},
		{"alpha", "beta", -1},
	}
	for _, tc := range cases {
		got := CompareIDs(tc.a, tc.b)
		if (got < 0) != (tc.want < 0) || (got > 0) != (tc.want > 0) {
			t.Errorf("CompareIDs(%q, %q) = %d, want sign of %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSortIDs(t *testing.T) {
	ids := []string{"2.10", "1.2", "2.2", "1.10", "2.9"}
	SortIDs(ids)
	want := []string{"1.2", "1.10", "2.2", "2.9", "2.10"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("SortIDs = %v, want %v", ids, want)
		}
	}
}
