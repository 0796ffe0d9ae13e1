// Package worker runs the detection and remediation cycle, either once or on
// a cron schedule.
package worker

import (
	"context"
	"time"

	"github.com/pratik-mahalle/costpilot/internal/detect"
	"github.com/pratik-mahalle/costpilot/internal/domain/remediation"
	"github.com/pratik-mahalle/costpilot/internal/orchestrator"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/pkg/metrics"
)

// Runner executes one full detection-then-remediation cycle
type Runner struct {
	engine       *detect.Engine
	orchestrator *orchestrator.Orchestrator
	dryRun       bool
	onReport     func(*remediation.Report)
	logger       *logger.Logger
}

// NewRunner creates a cycle runner. onReport, when non-nil, receives the
// report of every completed cycle. In dry-run mode anomalies are detected
// and reported but no remediation pipeline runs.
func NewRunner(engine *detect.Engine, orch *orchestrator.Orchestrator, dryRun bool, onReport func(*remediation.Report), log *logger.Logger) *Runner {
	return &Runner{
		engine:       engine,
		orchestrator: orch,
		dryRun:       dryRun,
		onReport:     onReport,
		logger:       log,
	}
}

// RunOnce detects anomalies and remediates them, returning the run report
func (r *Runner) RunOnce(ctx context.Context) *remediation.Report {
	started := time.Now().UTC()
	anomalies := r.engine.Detect(ctx)

	var report *remediation.Report
	if r.dryRun {
		r.logger.Infof("Dry run: detected %d anomalies, skipping remediation", len(anomalies))
		report = &remediation.Report{
			Summary: remediation.Summary{
				StartedAt:  started,
				FinishedAt: time.Now().UTC(),
				Total:      len(anomalies),
			},
			Anomalies: anomalies,
		}
	} else {
		report = r.orchestrator.Run(ctx, anomalies)
	}

	metrics.SetEstimatedSavings(report.Summary.TotalSavings)
	if r.onReport != nil {
		r.onReport(report)
	}
	r.logger.WithFields(map[string]interface{}{
		"anomalies": report.Summary.Total,
		"succeeded": report.Summary.Succeeded,
		"failed":    report.Summary.Failed,
		"duration":  time.Since(started).String(),
	}).Info("Cycle complete")
	return report
}
