package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/jfelton/stagehand/internal/config"
	"github.com/jfelton/stagehand/internal/graph"
	"github.com/jfelton/stagehand/internal/logging"
	"github.com/jfelton/stagehand/internal/plan"
	"github.com/jfelton/stagehand/internal/planfile"
	"github.com/jfelton/stagehand/internal/scheduler"
	"github.com/jfelton/stagehand/internal/tracker"
)

// loadConfig loads and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// stateDir resolves the state directory against the working directory.
func stateDir(cfg *config.Config) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cfg.State.ResolveDir(cwd), nil
}

// openTracker loads persisted state when present, and otherwise imports
// the plan file as a fresh state.
func openTracker(cfg *config.Config) (*tracker.Tracker, string, error) {
	dir, err := stateDir(cfg)
	if err != nil {
		return nil, "", err
	}

	if _, statErr := os.Stat(tracker.StatePath(dir)); statErr == nil {
		tr, err := tracker.Load(dir, cfg.Scheduler.MaxRetries)
		if err != nil {
			return nil, "", fmt.Errorf("load state: %w", err)
		}
		return tr, dir, nil
	}

	snap, err := planfile.Load(cfg.State.PlanFile)
	if err != nil {
		return nil, "", fmt.Errorf("load plan: %w", err)
	}
	return tracker.New(snap, cfg.Scheduler.MaxRetries), dir, nil
}

// newLogger builds the configured logger. Logging writes into the state
// directory unless disabled.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	dir, err := stateDir(cfg)
	if err != nil {
		return nil, err
	}
	return logging.NewWithRotation(dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}

// schedulerConfig maps the file configuration onto the scheduler knobs.
func schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		MaxRetries:     cfg.Scheduler.MaxRetries,
		PhaseThreshold: cfg.Scheduler.PhaseThreshold,
	}
}

// resolveGraph builds the graph result for a snapshot, translating an
// unknown dependency into a user-facing message.
func resolveGraph(snap *plan.Snapshot) (*graph.Result, error) {
	res, err := graph.NewCache().Resolve(snap)
	if err != nil {
		var unknown *graph.UnknownDependencyError
		if errors.As(err, &unknown) {
			return nil, fmt.Errorf("plan is invalid: task %s depends on unknown task %s", unknown.TaskID, unknown.MissingID)
		}
		return nil, err
	}
	return res, nil
}
