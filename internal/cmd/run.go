package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jfelton/stagehand/internal/runner"
	"github.com/jfelton/stagehand/internal/scheduler"
)

var runCommand string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the plan with the configured command",
	Long: `Run drives the plan to completion: it repeatedly assembles the next
batch and executes each task by invoking the runner command with the
task ID appended. State is persisted after every batch, so an
interrupted run resumes where it left off.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runCommand, "command", "", "command to run per task (overrides runner.command)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	command := cfg.Runner.Command
	if runCommand != "" {
		command = runCommand
	}
	if command == "" {
		return errors.New("no runner command configured; set runner.command or pass --command")
	}

	tr, dir, err := openTracker(cfg)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	r, err := runner.New(tr, runner.Options{
		MaxParallel:  cfg.Scheduler.MaxParallel,
		Scheduler:    schedulerConfig(cfg),
		StuckTimeout: cfg.Scheduler.StuckTimeout(),
		PollInterval: cfg.Runner.PollInterval(),
		StateDir:     dir,
		Exec:         runner.CommandExec(command),
		Logger:       log.WithPlan(tr.Snapshot().ID),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := r.Run(ctx)

	snap := tr.Snapshot()
	res, resolveErr := resolveGraph(snap)
	if resolveErr == nil {
		summary := scheduler.Summarize(snap, res, schedulerConfig(cfg))
		fmt.Printf("Done: %.0f%% complete, %d failed\n",
			summary.CompletionPct, summary.Counts["failed"])
	}

	if errors.Is(runErr, runner.ErrNoProgress) {
		return fmt.Errorf("plan stalled: remaining tasks are blocked by permanent failures")
	}
	return runErr
}
