package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jfelton/stagehand/internal/plan"
	"github.com/jfelton/stagehand/internal/scheduler"
	"github.com/jfelton/stagehand/internal/util"
)

// descriptionWidth caps task descriptions in list output.
const descriptionWidth = 60

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show plan progress",
	Long:  `Display per-phase progress, status counts, and the ready set.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	progressStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func statusStyle(s plan.Status) lipgloss.Style {
	switch s {
	case plan.StatusCompleted:
		return completedStyle
	case plan.StatusFailed:
		return failedStyle
	case plan.StatusInProgress:
		return progressStyle
	default:
		return mutedStyle
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	summary := scheduler.Summarize(snap, res, schedulerConfig(cfg))

	fmt.Println(headerStyle.Render(fmt.Sprintf("Plan %s", snap.ID)))
	fmt.Printf("Tasks: %d   Complete: %.0f%%   Critical path: %d\n",
		summary.Total, summary.CompletionPct, summary.CriticalPathLength)
	if summary.HasCycle {
		fmt.Println(failedStyle.Render("Dependency cycle detected; scheduling is blocked."))
	}
	fmt.Println()

	for _, phase := range snap.Phases() {
		tasks := snap.TasksInPhase(phase)
		satisfied := 0
		for _, t := range tasks {
			if t.Status.IsSatisfied() {
				satisfied++
			}
		}
		fmt.Println(headerStyle.Render(fmt.Sprintf("Phase %d (%d/%d)", phase, satisfied, len(tasks))))

		sort.Slice(tasks, func(i, j int) bool {
			return plan.CompareIDs(tasks[i].ID, tasks[j].ID) < 0
		})
		for _, t := range tasks {
			line := fmt.Sprintf("  %-8s %-12s %s", t.ID, t.Status, util.TruncateString(t.Description, descriptionWidth))
			if t.Status == plan.StatusFailed && t.FailureReason != "" {
				line += fmt.Sprintf(" (%s)", t.FailureReason)
			}
			fmt.Println(statusStyle(t.Status).Render(line))
		}
		fmt.Println()
	}

	if len(summary.ReadyIDs) > 0 {
		fmt.Printf("Ready: %s\n", strings.Join(summary.ReadyIDs, ", "))
	}
	return nil
}
