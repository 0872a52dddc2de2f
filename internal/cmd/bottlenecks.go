package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var bottlenecksTop int

var bottlenecksCmd = &cobra.Command{
	Use:   "bottlenecks",
	Short: "Rank tasks by how much of the plan they gate",
	Long: `Bottlenecks scores each task by its direct dependent count, doubled
when the task lies on the critical path, and prints the highest scores.
Prioritizing these tasks unblocks the most downstream work.`,
	RunE: runBottlenecks,
}

func init() {
	bottlenecksCmd.Flags().IntVarP(&bottlenecksTop, "top", "t", 10, "how many tasks to show")
	rootCmd.AddCommand(bottlenecksCmd)
}

func runBottlenecks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tr, _, err := openTracker(cfg)
	if err != nil {
		return err
	}

	snap := tr.Snapshot()
	res, err := resolveGraph(snap)
	if err != nil {
		return err
	}
	if res.Cycle != nil {
		return fmt.Errorf("dependency cycle blocks analysis; run validate for details")
	}

	ranked := res.Analysis.Bottlenecks(res.Graph)
	if bottlenecksTop > 0 && len(ranked) > bottlenecksTop {
		ranked = ranked[:bottlenecksTop]
	}

	for _, b := range ranked {
		marker := " "
		if res.Analysis.OnCriticalPath(b.TaskID) {
			marker = "*"
		}
		task := snap.Task(b.TaskID)
		fmt.Printf("%3d %s %-8s %s\n", b.Score, marker, b.TaskID, task.Description)
	}
	fmt.Println("\n* = on the critical path")
	return nil
}
