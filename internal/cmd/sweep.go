package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfelton/stagehand/internal/runner"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail tasks stuck in progress past the timeout",
	Long: `Sweep finds tasks that have been in_progress longer than
scheduler.stuck_timeout_minutes and marks them failed so the scheduler
can propose retries. Tasks within the timeout are left alone.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tr, dir, err := openTracker(cfg)
	if err != nil {
		return err
	}

	swept, err := runner.Sweep(tr, cfg.Scheduler.StuckTimeout(), time.Now())
	if err != nil {
		return err
	}
	if len(swept) == 0 {
		fmt.Println("No stuck tasks.")
		return nil
	}

	if err := tr.Save(dir); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	for _, id := range swept {
		fmt.Printf("%s marked failed (timed out in progress)\n", id)
	}
	return nil
}
