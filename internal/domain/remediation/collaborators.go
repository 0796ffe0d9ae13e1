package remediation

import (
	"context"

	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/domain/recommendation"
)

// ContextRetriever fetches knowledge-base context for an anomaly. It never
// fails: implementations return a best-effort fallback string on internal
// failure.
type ContextRetriever interface {
	Retrieve(ctx context.Context, a *anomaly.Anomaly) string
}

// Generator produces a structured recommendation for an anomaly given
// retrieved context. A malformed upstream response surfaces as an error and
// is treated as a stage failure by the orchestrator.
type Generator interface {
	Generate(ctx context.Context, a *anomaly.Anomaly, docContext string) (*recommendation.Recommendation, error)
}

// ProposalSink files a change proposal and returns its reference (URL or ID)
type ProposalSink interface {
	Propose(ctx context.Context, rec *recommendation.Recommendation) (string, error)
}

// Notifier delivers per-anomaly notices and the run-level summary
type Notifier interface {
	Notify(ctx context.Context, a *anomaly.Anomaly, rec *recommendation.Recommendation, proposalRef string) error
	NotifySummary(ctx context.Context, anomalies []*anomaly.Anomaly, totalSavings float64, successCount int) error
}
