package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jfelton/stagehand/internal/plan"
)

const stateFileName = "stagehand-state.json"

// StatePath returns the path of the state file inside dir.
func StatePath(dir string) string {
	return filepath.Join(dir, stateFileName)
}

// Save writes the current plan state to a JSON file in the given
// directory. The write is atomic: data goes to a temporary file first,
// then is renamed into place. A file lock is held during the operation
// for cross-process safety.
func (tr *Tracker) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	tr.mu.Lock()
	data, err := json.MarshalIndent(tr.snap, "", "  ")
	tr.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal plan state: %w", err)
	}

	target := StatePath(dir)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Load restores a Tracker from a previously saved state file in the
// given directory. A file lock is held during the read for
// cross-process safety.
func Load(dir string, maxRetries int) (*Tracker, error) {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	data, err := os.ReadFile(StatePath(dir))
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var snap plan.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal plan state: %w", err)
	}

	for i := range snap.Tasks {
		if !snap.Tasks[i].Status.Valid() {
			return nil, fmt.Errorf("task %s: unknown status %q", snap.Tasks[i].ID, snap.Tasks[i].Status)
		}
	}

	return New(&snap, maxRetries), nil
}
