package testutil

import (
	"context"
	"sync"

	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/domain/recommendation"
)

// MockCostSource is a mock implementation of anomaly.CostSource
type MockCostSource struct {
	DailyCosts     map[string][]float64
	Snapshots      []anomaly.ResourceSnapshot
	DailyCostsErr  error
	SnapshotsErr   error
	DailyCostCalls int
	SnapshotCalls  int
}

func (m *MockCostSource) QueryDailyCosts(ctx context.Context, grouping anomaly.Grouping, windowDays int) (map[string][]float64, error) {
	m.DailyCostCalls++
	if m.DailyCostsErr != nil {
		return nil, m.DailyCostsErr
	}
	return m.DailyCosts, nil
}

func (m *MockCostSource) QueryResourceSnapshots(ctx context.Context, minWasteScore, windowHours int) ([]anomaly.ResourceSnapshot, error) {
	m.SnapshotCalls++
	if m.SnapshotsErr != nil {
		return nil, m.SnapshotsErr
	}
	return m.Snapshots, nil
}

// MockRetriever is a mock implementation of remediation.ContextRetriever
type MockRetriever struct {
	mu      sync.Mutex
	Context string
	Calls   int
}

func (m *MockRetriever) Retrieve(ctx context.Context, a *anomaly.Anomaly) string {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Context == "" {
		return "no relevant documentation found"
	}
	return m.Context
}

// MockGenerator is a mock implementation of remediation.Generator.
// FailFor contains service names whose generation should fail.
type MockGenerator struct {
	mu      sync.Mutex
	Savings float64
	FailFor map[string]error
	Calls   int
}

func (m *MockGenerator) Generate(ctx context.Context, a *anomaly.Anomaly, docContext string) (*recommendation.Recommendation, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if err, ok := m.FailFor[a.Service]; ok {
		return nil, err
	}
	return &recommendation.Recommendation{
		Anomaly:         a,
		RootCause:       "test root cause",
		Actions:         []string{"step one", "step two"},
		ChangeProposal:  "resource \"aws_instance\" \"example\" {}",
		SavingsEstimate: m.Savings,
		RiskLevel:       recommendation.RiskLow,
		RollbackPlan:    "revert the change",
		Confidence:      0.9,
	}, nil
}

// MockProposalSink is a mock implementation of remediation.ProposalSink
type MockProposalSink struct {
	mu      sync.Mutex
	Ref     string
	Err     error
	FailFor map[string]error
	Calls   int
}

func (m *MockProposalSink) Propose(ctx context.Context, rec *recommendation.Recommendation) (string, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if err, ok := m.FailFor[rec.Anomaly.Service]; ok {
		return "", err
	}
	if m.Ref == "" {
		return "https://github.com/example/infra/pull/1", nil
	}
	return m.Ref, nil
}

// MockNotifier is a mock implementation of remediation.Notifier and records
// every delivered notice.
type MockNotifier struct {
	mu            sync.Mutex
	NotifyErr     error
	SummaryErr    error
	Notices       []string
	SummaryCalls  int
	SummaryTotals []float64
	SummaryCounts []int
}

func (m *MockNotifier) Notify(ctx context.Context, a *anomaly.Anomaly, rec *recommendation.Recommendation, proposalRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NotifyErr != nil {
		return m.NotifyErr
	}
	m.Notices = append(m.Notices, a.Service)
	return nil
}

func (m *MockNotifier) NotifySummary(ctx context.Context, anomalies []*anomaly.Anomaly, totalSavings float64, successCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummaryCalls++
	m.SummaryTotals = append(m.SummaryTotals, totalSavings)
	m.SummaryCounts = append(m.SummaryCounts, successCount)
	if m.SummaryErr != nil {
		return m.SummaryErr
	}
	return nil
}

// Float64 returns a pointer to v, for building snapshots in tests
func Float64(v float64) *float64 {
	return &v
}
