package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/costpilot/internal/domain/remediation"
	"github.com/pratik-mahalle/costpilot/internal/waste"
)

func newDetectCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run one detection and remediation cycle",
		Long: `Runs the full cycle once: queries the enabled cost providers, detects
anomalies and drives each one through the remediation pipeline. With
--dry-run the cycle stops after detection and prints what was found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner := buildRunner(cfg, log, dryRun, nil)
			report := runner.RunOnce(ctx)
			return printReport(report, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "detect anomalies without remediating them")
	return cmd
}

func printReport(report *remediation.Report, dryRun bool) error {
	if outputFormat != "table" {
		return printOutput(report)
	}

	if len(report.Anomalies) == 0 {
		fmt.Println("No anomalies detected.")
		return nil
	}

	t := NewTable("SERVICE", "ISSUE", "RESOURCE", "CURRENT", "EXPECTED", "SCORE", "BAND")
	for _, a := range report.Anomalies {
		t.AddRow(
			a.Service,
			string(a.IssueType),
			orDash(a.ResourceID),
			fmt.Sprintf("$%.2f", a.CurrentCost),
			fmt.Sprintf("$%.2f", a.ExpectedCost),
			fmt.Sprintf("%d", a.WasteScore),
			string(waste.Classify(a.WasteScore)),
		)
	}
	t.Render()

	if dryRun {
		fmt.Printf("\nDry run: %d anomalies detected, remediation skipped.\n", len(report.Anomalies))
		return nil
	}

	fmt.Printf("\nRun %s: %d/%d remediated, %d proposals, estimated savings $%.2f/mo\n",
		report.Summary.RunID,
		report.Summary.Succeeded,
		report.Summary.Total,
		report.Summary.Proposals,
		report.Summary.TotalSavings,
	)
	for _, res := range report.Results {
		if res.Succeeded() {
			continue
		}
		fmt.Printf("  failed %s (%s) at %s: %s\n", res.Anomaly.Service, res.Anomaly.IssueType, res.FailedStage, res.Reason)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
