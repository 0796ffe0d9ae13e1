// Package orchestrator drives each detected anomaly through the four-stage
// remediation pipeline: context retrieval, recommendation generation, change
// proposal, notification. Failures are isolated per anomaly; one anomaly
// failing never aborts the batch.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/domain/remediation"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/pkg/metrics"
)

// Orchestrator owns one remediation run at a time. Anomalies are processed
// by a bounded worker pool; collaborator calls share a token-bucket rate
// limit and a per-stage timeout.
type Orchestrator struct {
	retriever remediation.ContextRetriever
	generator remediation.Generator
	proposals remediation.ProposalSink
	notifier  remediation.Notifier

	workers      int
	stageTimeout time.Duration
	limiter      *rate.Limiter
	logger       *logger.Logger
}

// New creates a remediation orchestrator
func New(
	retriever remediation.ContextRetriever,
	generator remediation.Generator,
	proposals remediation.ProposalSink,
	notifier remediation.Notifier,
	cfg config.RemediationConfig,
	log *logger.Logger,
) *Orchestrator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		retriever:    retriever,
		generator:    generator,
		proposals:    proposals,
		notifier:     notifier,
		workers:      workers,
		stageTimeout: cfg.StageTimeout,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSec), int(cfg.RatePerSec)*2+1),
		logger:       log,
	}
}

// Run processes every anomaly to a terminal state and returns the run
// report. Exactly one summary notification is sent when the batch is
// non-empty. Cancelling ctx stops new pipelines from starting; in-flight
// stage calls are allowed to finish or time out.
func (o *Orchestrator) Run(ctx context.Context, anomalies []*anomaly.Anomaly) *remediation.Report {
	runID := uuid.New().String()
	started := time.Now().UTC()

	report := &remediation.Report{
		Summary: remediation.Summary{
			RunID:     runID,
			StartedAt: started,
			Total:     len(anomalies),
		},
		Anomalies: anomalies,
	}

	if len(anomalies) == 0 {
		o.logger.Info("No anomalies to remediate")
		report.Summary.FinishedAt = time.Now().UTC()
		return report
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":    runID,
		"anomalies": len(anomalies),
		"workers":   o.workers,
	}).Info("Starting remediation run")

	results := make([]*remediation.Result, len(anomalies))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := o.workers
	if workers > len(anomalies) {
		workers = len(anomalies)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = &remediation.Result{
						Anomaly: anomalies[idx],
						Status:  remediation.StatusFailed,
						Reason:  "run canceled before processing",
					}
					metrics.RecordPipelineAnomaly("canceled")
					continue
				}
				results[idx] = o.process(ctx, anomalies[idx])
			}
		}()
	}
	for i := range anomalies {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report.Results = results
	report.Summary = o.aggregate(report.Summary, results)
	report.Summary.FinishedAt = time.Now().UTC()

	// One summary per non-empty batch, even when nothing succeeded.
	notifyCtx, cancel := o.stageContext(ctx)
	defer cancel()
	if err := o.notifier.NotifySummary(notifyCtx, anomalies, report.Summary.TotalSavings, report.Summary.Succeeded); err != nil {
		o.logger.ErrorWithErr(err, "Failed to send run summary notification")
	}

	metrics.SetEstimatedSavings(report.Summary.TotalSavings)
	o.logger.WithFields(map[string]interface{}{
		"run_id":        runID,
		"total":         report.Summary.Total,
		"succeeded":     report.Summary.Succeeded,
		"failed":        report.Summary.Failed,
		"proposals":     report.Summary.Proposals,
		"total_savings": report.Summary.TotalSavings,
	}).Info("Remediation run complete")

	return report
}

// process walks one anomaly through the pipeline. Stage transitions are
// strictly sequential: a later stage never starts if an earlier one failed.
func (o *Orchestrator) process(runCtx context.Context, a *anomaly.Anomaly) *remediation.Result {
	log := o.logger.WithFields(map[string]interface{}{
		"service":     a.Service,
		"resource_id": a.ResourceID,
		"issue_type":  string(a.IssueType),
	})
	res := &remediation.Result{
		Anomaly: a,
		Status:  remediation.StatusReceived,
	}

	// Stage 1: context retrieval. The retriever contract is best-effort
	// and never fails, so the only failure mode is the rate-limit wait.
	log.Infof("Retrieving context for %s", a)
	stageCtx, cancel := o.stageContext(runCtx)
	if err := o.limiter.Wait(stageCtx); err != nil {
		cancel()
		return o.fail(res, remediation.StageContextRetrieval, err, log)
	}
	docContext := o.retriever.Retrieve(stageCtx, a)
	cancel()
	res.Status = remediation.StatusContextRetrieved
	metrics.RecordPipelineStage(string(remediation.StageContextRetrieval), "ok")

	// Stage 2: recommendation generation
	log.Info("Generating recommendation")
	stageCtx, cancel = o.stageContext(runCtx)
	if err := o.limiter.Wait(stageCtx); err != nil {
		cancel()
		return o.fail(res, remediation.StageRecommendation, err, log)
	}
	rec, err := o.generator.Generate(stageCtx, a, docContext)
	cancel()
	if err != nil {
		return o.fail(res, remediation.StageRecommendation, err, log)
	}
	res.Recommendation = rec
	res.Status = remediation.StatusRecommendationGenerated
	metrics.RecordPipelineStage(string(remediation.StageRecommendation), "ok")

	// Stage 3: change proposal
	log.Info("Filing change proposal")
	stageCtx, cancel = o.stageContext(runCtx)
	if err := o.limiter.Wait(stageCtx); err != nil {
		cancel()
		return o.fail(res, remediation.StageChangeProposal, err, log)
	}
	ref, err := o.proposals.Propose(stageCtx, rec)
	cancel()
	if err != nil {
		return o.fail(res, remediation.StageChangeProposal, err, log)
	}
	res.ProposalRef = ref
	res.Status = remediation.StatusChangeProposed
	metrics.RecordPipelineStage(string(remediation.StageChangeProposal), "ok")
	metrics.RecordProposalCreated()

	// Stage 4: notification. A notifier failure here is logged but does
	// not retroactively fail an anomaly whose proposal was created.
	log.Info("Sending notification")
	stageCtx, cancel = o.stageContext(runCtx)
	if err := o.limiter.Wait(stageCtx); err == nil {
		err = o.notifier.Notify(stageCtx, a, rec, ref)
	}
	cancel()
	if err != nil {
		log.ErrorWithErr(err, "Notification failed; anomaly remains succeeded")
		metrics.RecordPipelineStage(string(remediation.StageNotification), "error")
	} else {
		metrics.RecordPipelineStage(string(remediation.StageNotification), "ok")
	}

	res.Status = remediation.StatusNotified
	metrics.RecordPipelineAnomaly("succeeded")
	log.Infof("Processed %s: savings $%.2f/mo, proposal %s", a, rec.SavingsEstimate, ref)
	return res
}

// fail marks the anomaly failed at the given stage and logs it. The batch
// continues with the next anomaly.
func (o *Orchestrator) fail(res *remediation.Result, stage remediation.Stage, err error, log *logger.Logger) *remediation.Result {
	res.Status = remediation.StatusFailed
	res.FailedStage = stage
	res.Reason = err.Error()

	metrics.RecordPipelineStage(string(stage), "error")
	metrics.RecordPipelineAnomaly("failed")
	log.WithFields(map[string]interface{}{
		"stage": string(stage),
	}).ErrorWithErr(err, fmt.Sprintf("Failed to process anomaly %s", res.Anomaly))
	return res
}

// stageContext bounds one collaborator call. It is detached from run
// cancellation so an in-flight call can finish instead of being hard-killed,
// but still carries the stage timeout.
func (o *Orchestrator) stageContext(runCtx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(runCtx)
	if o.stageTimeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, o.stageTimeout)
}

// aggregate reduces per-anomaly results into the run summary. Savings are
// summed over succeeded anomalies only.
func (o *Orchestrator) aggregate(s remediation.Summary, results []*remediation.Result) remediation.Summary {
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Succeeded() {
			s.Succeeded++
			if r.Recommendation != nil {
				s.TotalSavings += r.Recommendation.SavingsEstimate
			}
			if r.ProposalRef != "" {
				s.Proposals++
			}
		} else {
			s.Failed++
		}
	}
	return s
}
