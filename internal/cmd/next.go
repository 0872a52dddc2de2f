package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfelton/stagehand/internal/scheduler"
)

var (
	nextMaxParallel int
	nextJSON        bool
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Propose the next batch of tasks to run",
	Long: `Next evaluates readiness against the current state and prints the
batch an external executor should start now. The proposal is read-only;
running next repeatedly without state changes yields the same batch.`,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().IntVarP(&nextMaxParallel, "max-parallel", "n", 0, "batch size cap (default from config)")
	nextCmd.Flags().BoolVar(&nextJSON, "json", false, "emit the batch as JSON")
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tr, _, err := openTracker(cfg)
	if err != nil {
		return err
	}

	maxParallel := cfg.Scheduler.MaxParallel
	if nextMaxParallel > 0 {
		maxParallel = nextMaxParallel
	}

	snap := tr.Snapshot()
	res, err := resolveGraph(snap)
	if err != nil {
		return err
	}

	batch, err := scheduler.NextBatch(snap, res, maxParallel, schedulerConfig(cfg))
	if err != nil {
		return err
	}

	if nextJSON {
		return json.NewEncoder(os.Stdout).Encode(batch)
	}

	if len(batch) == 0 {
		fmt.Println("No tasks are ready.")
		return nil
	}
	for _, id := range batch {
		task := snap.Task(id)
		fmt.Printf("%s\t%s\n", id, task.Description)
	}
	return nil
}
