// Package planfile loads plan documents from disk into snapshots.
package planfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jfelton/stagehand/internal/plan"
)

// DefaultFileName is the plan file stagehand looks for when none is given.
const DefaultFileName = "stagehand-plan.json"

// fileTask tolerates the field-name variants plan authors produce.
type fileTask struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description" yaml:"description"`
	Phase       *int     `json:"phase,omitempty" yaml:"phase,omitempty"`
	Status      string   `json:"status,omitempty" yaml:"status,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Depends     []string `json:"depends,omitempty" yaml:"depends,omitempty"` // Alternative name
}

type fileDoc struct {
	Summary string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	Tasks   []fileTask `json:"tasks" yaml:"tasks"`
	Notes   []string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Load reads a plan file and builds a snapshot. Files ending in .yaml or
// .yml are parsed as YAML, everything else as JSON. Both a root-level
// document and one wrapped under a "plan" key are accepted.
//
// Task IDs follow the "phase.index" convention; when a task omits its
// phase field the phase is derived from the ID prefix. Notes lines are
// scanned for sequential-group annotations.
func Load(path string) (*plan.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}

	doc, err := decode(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(doc.Tasks) == 0 {
		return nil, fmt.Errorf("plan contains no tasks")
	}

	snap := &plan.Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Tasks:     make([]plan.Task, 0, len(doc.Tasks)),
	}

	seen := make(map[string]bool, len(doc.Tasks))
	for _, ft := range doc.Tasks {
		if ft.ID == "" {
			return nil, fmt.Errorf("task with empty id")
		}
		if seen[ft.ID] {
			return nil, fmt.Errorf("duplicate task id %s", ft.ID)
		}
		seen[ft.ID] = true

		task, err := buildTask(ft)
		if err != nil {
			return nil, err
		}
		snap.Tasks = append(snap.Tasks, task)
	}

	groups, err := parseGroups(doc.Notes, seen)
	if err != nil {
		return nil, err
	}
	snap.Groups = groups

	return snap, nil
}

func decode(data []byte, ext string) (*fileDoc, error) {
	unmarshal := json.Unmarshal
	if ext == ".yaml" || ext == ".yml" {
		unmarshal = yaml.Unmarshal
	}

	var doc fileDoc
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plan file: %w", err)
	}

	// Fall back to the wrapped format when the root has no tasks.
	if len(doc.Tasks) == 0 {
		var wrapped struct {
			Plan fileDoc `json:"plan" yaml:"plan"`
		}
		if err := unmarshal(data, &wrapped); err == nil && len(wrapped.Plan.Tasks) > 0 {
			doc = wrapped.Plan
		}
	}
	return &doc, nil
}

func buildTask(ft fileTask) (plan.Task, error) {
	status := plan.Status(strings.TrimSpace(ft.Status))
	if status == "" {
		status = plan.StatusPending
	}
	if !status.Valid() {
		return plan.Task{}, fmt.Errorf("task %s: unknown status %q", ft.ID, ft.Status)
	}

	phase := 0
	if ft.Phase != nil {
		phase = *ft.Phase
	} else if p, _, ok := plan.SplitID(ft.ID); ok {
		phase = p
	}
	if phase < 0 {
		return plan.Task{}, fmt.Errorf("task %s: negative phase %d", ft.ID, phase)
	}

	dependsOn := ft.DependsOn
	if len(dependsOn) == 0 && len(ft.Depends) > 0 {
		dependsOn = ft.Depends
	}

	return plan.Task{
		ID:          ft.ID,
		Description: ft.Description,
		Status:      status,
		Phase:       phase,
		DependsOn:   dependsOn,
	}, nil
}

// parseGroups extracts sequential groups from the notes lines. Lines
// without a [SEQUENTIAL] marker are ignored; marked lines must parse,
// and every task they reference must exist in the plan.
func parseGroups(notes []string, known map[string]bool) ([]plan.SequentialGroup, error) {
	var groups []plan.SequentialGroup
	for _, line := range notes {
		if !strings.Contains(strings.ToUpper(line), "[SEQUENTIAL]") {
			continue
		}
		group, err := plan.ParseSequentialAnnotation(line)
		if err != nil {
			return nil, fmt.Errorf("notes: %w", err)
		}
		for _, id := range group.Order {
			if !known[id] {
				return nil, fmt.Errorf("notes: sequential annotation references unknown task %s", id)
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}
