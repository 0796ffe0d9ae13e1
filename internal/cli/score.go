package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/costpilot/internal/waste"
)

func newScoreCmd() *cobra.Command {
	var cpu float64
	var instanceType, state string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the waste score for a resource",
		Long: `Computes the additive waste score (0-100) and severity band for a
resource described by its CPU utilization, instance type and state, using
the same scoring the waste classifier applies during detection.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			score := waste.Score(cpu, instanceType, state)
			band := waste.Classify(score)

			if outputFormat == "table" {
				fmt.Printf("score: %d\nband:  %s\n", score, band)
				return nil
			}
			return printOutput(map[string]interface{}{
				"cpu_utilization": cpu,
				"instance_type":   instanceType,
				"state":           state,
				"score":           score,
				"band":            string(band),
			})
		},
	}

	cmd.Flags().Float64Var(&cpu, "cpu", 0, "average CPU utilization percent")
	cmd.Flags().StringVar(&instanceType, "type", "", "instance type, e.g. m5.xlarge")
	cmd.Flags().StringVar(&state, "state", "running", "resource state: running or stopped")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
