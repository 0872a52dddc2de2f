package tracker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jfelton/stagehand/internal/plan"
)

func TestSaveLoad(t *testing.T) {
	t.Run("round trip preserves state", func(t *testing.T) {
		dir := t.TempDir()
		started := time.Now().UTC().Truncate(time.Second)

		tr := newTestTracker([]plan.Task{
			{ID: "1.1", Phase: 0, Status: plan.StatusCompleted, Description: "scaffold repo"},
			{ID: "2.1", Phase: 1, Status: plan.StatusInProgress, StartedAt: &started, DependsOn: []string{"1.1"}},
			{ID: "2.2", Phase: 1, Status: plan.StatusFailed, RetryCount: 1, FailureReason: "lint errors"},
		}, []plan.SequentialGroup{{Reason: "schema changes", Order: []string{"2.1", "2.2"}}})

		if err := tr.Save(dir); err != nil {
			t.Fatalf("Save: %v", err)
		}

		loaded, err := Load(dir, 2)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		snap := loaded.Snapshot()

		if got := snap.Task("2.2"); got.RetryCount != 1 || got.FailureReason != "lint errors" {
			t.Errorf("2.2 = %+v", got)
		}
		if got := snap.Task("2.1"); got.StartedAt == nil || !got.StartedAt.Equal(started) {
			t.Errorf("2.1 StartedAt = %v, want %v", got.StartedAt, started)
		}
		if len(snap.Groups) != 1 || snap.Groups[0].Reason != "schema changes" {
			t.Errorf("Groups = %+v", snap.Groups)
		}
	})

	t.Run("load rejects unknown status", func(t *testing.T) {
		dir := t.TempDir()
		raw := `{"tasks":[{"id":"1.1","status":"bogus"}]}`
		if err := os.WriteFile(StatePath(dir), []byte(raw), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := Load(dir, 2); err == nil {
			t.Fatal("Load succeeded with an unknown status")
		}
	})

	t.Run("load fails when no state file exists", func(t *testing.T) {
		if _, err := Load(t.TempDir(), 2); err == nil {
			t.Fatal("Load succeeded with no state file")
		}
	})

	t.Run("save leaves no temp file behind", func(t *testing.T) {
		dir := t.TempDir()
		tr := newTestTracker([]plan.Task{{ID: "1.1", Status: plan.StatusPending}}, nil)

		if err := tr.Save(dir); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, stateFileName+".tmp")); !os.IsNotExist(err) {
			t.Errorf("temp file still present: %v", err)
		}
	})
}
