package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/domain/remediation"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/testutil"
)

func testRemediationConfig() config.RemediationConfig {
	return config.RemediationConfig{
		Workers:      2,
		StageTimeout: 5 * time.Second,
		RatePerSec:   1000,
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func testAnomalies(services ...string) []*anomaly.Anomaly {
	out := make([]*anomaly.Anomaly, 0, len(services))
	for _, svc := range services {
		out = append(out, &anomaly.Anomaly{
			Service:      svc,
			IssueType:    anomaly.TypeCostSpike,
			CurrentCost:  200,
			ExpectedCost: 100,
			Timestamp:    time.Now().UTC(),
		})
	}
	return out
}

func newTestOrchestrator(gen *testutil.MockGenerator, sink *testutil.MockProposalSink, notifier *testutil.MockNotifier) *Orchestrator {
	return New(&testutil.MockRetriever{Context: "docs"}, gen, sink, notifier, testRemediationConfig(), testLogger())
}

func TestRun_AllSucceed(t *testing.T) {
	gen := &testutil.MockGenerator{Savings: 120.5}
	sink := &testutil.MockProposalSink{}
	notifier := &testutil.MockNotifier{}
	o := newTestOrchestrator(gen, sink, notifier)

	report := o.Run(context.Background(), testAnomalies("EC2", "S3"))

	if report.Summary.Total != 2 || report.Summary.Succeeded != 2 || report.Summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 2 total, 2 succeeded", report.Summary)
	}
	if report.Summary.TotalSavings != 241 {
		t.Errorf("TotalSavings = %v, want 241", report.Summary.TotalSavings)
	}
	if report.Summary.Proposals != 2 {
		t.Errorf("Proposals = %d, want 2", report.Summary.Proposals)
	}
	for i, res := range report.Results {
		if !res.Succeeded() {
			t.Errorf("result %d not succeeded: %+v", i, res)
		}
		if res.ProposalRef == "" {
			t.Errorf("result %d has no proposal ref", i)
		}
	}
	if notifier.SummaryCalls != 1 {
		t.Errorf("summary notifications = %d, want 1", notifier.SummaryCalls)
	}
}

func TestRun_MiddleAnomalyFailureIsIsolated(t *testing.T) {
	// Recommendation generation fails for the second anomaly only; the
	// first and third still reach the notified state and the failed one
	// contributes no savings.
	gen := &testutil.MockGenerator{
		Savings: 100,
		FailFor: map[string]error{"RDS": errors.New("model returned no JSON")},
	}
	sink := &testutil.MockProposalSink{}
	notifier := &testutil.MockNotifier{}
	o := newTestOrchestrator(gen, sink, notifier)

	report := o.Run(context.Background(), testAnomalies("EC2", "RDS", "S3"))

	if report.Summary.Succeeded != 2 || report.Summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 2 succeeded and 1 failed", report.Summary)
	}
	if report.Summary.TotalSavings != 200 {
		t.Errorf("TotalSavings = %v, want 200 (failed anomaly excluded)", report.Summary.TotalSavings)
	}

	if got := report.Results[0]; !got.Succeeded() {
		t.Errorf("first anomaly should succeed, got %+v", got)
	}
	if got := report.Results[2]; !got.Succeeded() {
		t.Errorf("third anomaly should succeed, got %+v", got)
	}

	failed := report.Results[1]
	if failed.Succeeded() {
		t.Fatalf("second anomaly should fail")
	}
	if failed.Status != remediation.StatusFailed {
		t.Errorf("failed status = %s, want %s", failed.Status, remediation.StatusFailed)
	}
	if failed.FailedStage != remediation.StageRecommendation {
		t.Errorf("failed stage = %s, want %s", failed.FailedStage, remediation.StageRecommendation)
	}
	if failed.Recommendation != nil {
		t.Errorf("failed anomaly should carry no recommendation")
	}

	if len(notifier.SummaryCounts) != 1 || notifier.SummaryCounts[0] != 2 {
		t.Errorf("summary success count = %v, want [2]", notifier.SummaryCounts)
	}
}

func TestRun_ProposalFailureStopsBeforeNotification(t *testing.T) {
	gen := &testutil.MockGenerator{Savings: 50}
	sink := &testutil.MockProposalSink{Err: errors.New("repo unreachable")}
	notifier := &testutil.MockNotifier{}
	o := newTestOrchestrator(gen, sink, notifier)

	report := o.Run(context.Background(), testAnomalies("EC2"))

	res := report.Results[0]
	if res.Succeeded() {
		t.Fatalf("anomaly should fail at the proposal stage")
	}
	if res.FailedStage != remediation.StageChangeProposal {
		t.Errorf("failed stage = %s, want %s", res.FailedStage, remediation.StageChangeProposal)
	}
	// The per-anomaly notification stage never ran
	if len(notifier.Notices) != 0 {
		t.Errorf("notices = %v, want none", notifier.Notices)
	}
	// A later stage never starts, but the recommendation from the earlier
	// stage is kept on the result for the report.
	if res.Recommendation == nil {
		t.Errorf("recommendation from completed stage should be retained")
	}
	if report.Summary.TotalSavings != 0 {
		t.Errorf("TotalSavings = %v, want 0", report.Summary.TotalSavings)
	}
}

func TestRun_NotificationFailureDoesNotFailAnomaly(t *testing.T) {
	gen := &testutil.MockGenerator{Savings: 75}
	sink := &testutil.MockProposalSink{}
	notifier := &testutil.MockNotifier{NotifyErr: errors.New("webhook 500")}
	o := newTestOrchestrator(gen, sink, notifier)

	report := o.Run(context.Background(), testAnomalies("EC2"))

	if report.Summary.Succeeded != 1 {
		t.Fatalf("summary = %+v, want 1 succeeded despite notification failure", report.Summary)
	}
	if !report.Results[0].Succeeded() {
		t.Errorf("result = %+v, want succeeded", report.Results[0])
	}
	if report.Summary.TotalSavings != 75 {
		t.Errorf("TotalSavings = %v, want 75", report.Summary.TotalSavings)
	}
}

func TestRun_EmptyBatchEmitsNoSummary(t *testing.T) {
	notifier := &testutil.MockNotifier{}
	o := newTestOrchestrator(&testutil.MockGenerator{}, &testutil.MockProposalSink{}, notifier)

	report := o.Run(context.Background(), nil)

	if report.Summary.Total != 0 {
		t.Errorf("Total = %d, want 0", report.Summary.Total)
	}
	if notifier.SummaryCalls != 0 {
		t.Errorf("summary notifications = %d, want 0 for an empty batch", notifier.SummaryCalls)
	}
}

func TestRun_SummarySentWhenEverythingFails(t *testing.T) {
	gen := &testutil.MockGenerator{
		FailFor: map[string]error{
			"EC2": errors.New("boom"),
			"S3":  errors.New("boom"),
		},
	}
	notifier := &testutil.MockNotifier{}
	o := newTestOrchestrator(gen, &testutil.MockProposalSink{}, notifier)

	report := o.Run(context.Background(), testAnomalies("EC2", "S3"))

	if report.Summary.Succeeded != 0 || report.Summary.Failed != 2 {
		t.Fatalf("summary = %+v, want 0 succeeded, 2 failed", report.Summary)
	}
	if notifier.SummaryCalls != 1 {
		t.Errorf("summary notifications = %d, want 1 even with zero successes", notifier.SummaryCalls)
	}
	if notifier.SummaryCounts[0] != 0 {
		t.Errorf("summary success count = %d, want 0", notifier.SummaryCounts[0])
	}
}

func TestRun_CancellationStopsNewPipelines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &testutil.MockGenerator{Savings: 10}
	notifier := &testutil.MockNotifier{}
	o := newTestOrchestrator(gen, &testutil.MockProposalSink{}, notifier)

	report := o.Run(ctx, testAnomalies("EC2", "S3", "RDS"))

	if report.Summary.Succeeded != 0 {
		t.Fatalf("summary = %+v, want no successes after cancellation", report.Summary)
	}
	for i, res := range report.Results {
		if res.Status != remediation.StatusFailed {
			t.Errorf("result %d status = %s, want %s", i, res.Status, remediation.StatusFailed)
		}
	}
	if gen.Calls != 0 {
		t.Errorf("generator ran %d times after cancellation, want 0", gen.Calls)
	}
}

func TestRun_ResultsPreserveInputOrder(t *testing.T) {
	gen := &testutil.MockGenerator{Savings: 1}
	notifier := &testutil.MockNotifier{}
	o := newTestOrchestrator(gen, &testutil.MockProposalSink{}, notifier)

	services := []string{"A", "B", "C", "D", "E", "F", "G"}
	report := o.Run(context.Background(), testAnomalies(services...))

	for i, res := range report.Results {
		if res.Anomaly.Service != services[i] {
			t.Errorf("result %d is for %q, want %q", i, res.Anomaly.Service, services[i])
		}
	}
}
