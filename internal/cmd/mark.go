package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var markReason string

var markCmd = &cobra.Command{
	Use:   "mark <started|completed|failed|skipped|retry> <task-id>",
	Short: "Record a task status transition",
	Long: `Mark records the outcome of externally executed work:

  started    pending -> in_progress (refused while a group member runs)
  completed  in_progress -> completed
  failed     in_progress -> failed (use --reason to record context)
  skipped    pending, in_progress or failed -> skipped; dependents treat it as done
  retry      failed -> pending, consuming one retry

The updated state is persisted to the state directory.`,
	Args: cobra.ExactArgs(2),
	RunE: runMark,
}

func init() {
	markCmd.Flags().StringVarP(&markReason, "reason", "r", "", "failure reason (with failed)")
	rootCmd.AddCommand(markCmd)
}

func runMark(cmd *cobra.Command, args []string) error {
	transition, id := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tr, dir, err := openTracker(cfg)
	if err != nil {
		return err
	}

	switch transition {
	case "started":
		err = tr.MarkStarted(id, time.Now())
	case "completed":
		err = tr.MarkCompleted(id)
	case "failed":
		err = tr.MarkFailed(id, markReason)
	case "skipped":
		err = tr.MarkSkipped(id)
	case "retry":
		err = tr.Retry(id)
	default:
		return fmt.Errorf("unknown transition %q", transition)
	}
	if err != nil {
		return err
	}

	if err := tr.Save(dir); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	fmt.Printf("%s marked %s\n", id, transition)
	return nil
}
