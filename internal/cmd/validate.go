package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfelton/stagehand/internal/planfile"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the plan file for cycles and unknown dependencies",
	Long: `Validate parses the plan file, builds the dependency graph, and
reports structural problems: references to unknown tasks, dependency
cycles, and malformed sequential annotations.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := planfile.Load(cfg.State.PlanFile)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	res, err := resolveGraph(snap)
	if err != nil {
		return err
	}

	if res.Cycle != nil {
		return fmt.Errorf("plan is invalid: dependency cycle: %s", strings.Join(res.Cycle, " -> "))
	}

	fmt.Printf("Plan OK: %d tasks, %d phases, %d sequential groups\n",
		len(snap.Tasks), len(snap.Phases()), len(snap.Groups))
	fmt.Printf("Critical path length: %d\n", res.Analysis.CriticalPathLength)

	bottlenecks := res.Analysis.Bottlenecks(res.Graph)
	if len(bottlenecks) > 0 && bottlenecks[0].Score > 0 {
		fmt.Printf("Top bottleneck: %s (score %d)\n", bottlenecks[0].TaskID, bottlenecks[0].Score)
	}
	return nil
}
