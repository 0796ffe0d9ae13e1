package remediation

import (
	"time"

	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/domain/recommendation"
)

// Stage is one step of the per-anomaly remediation pipeline
type Stage string

// Pipeline stages, in execution order
const (
	StageContextRetrieval Stage = "context_retrieval"
	StageRecommendation   Stage = "recommendation"
	StageChangeProposal   Stage = "change_proposal"
	StageNotification     Stage = "notification"
)

// Status tracks an anomaly through the pipeline
type Status string

// Statuses
const (
	StatusReceived                Status = "received"
	StatusContextRetrieved        Status = "context_retrieved"
	StatusRecommendationGenerated Status = "recommendation_generated"
	StatusChangeProposed          Status = "change_proposed"
	StatusNotified                Status = "notified"
	StatusFailed                  Status = "failed"
)

// Result is the terminal outcome for one anomaly. Exactly one of the two
// shapes holds: a succeeded result carries the recommendation and proposal
// reference, a failed result carries the stage that stopped the pipeline.
type Result struct {
	Anomaly        *anomaly.Anomaly               `json:"anomaly"`
	Status         Status                         `json:"status"`
	Recommendation *recommendation.Recommendation `json:"recommendation,omitempty"`
	ProposalRef    string                         `json:"proposal_ref,omitempty"`
	FailedStage    Stage                          `json:"failed_stage,omitempty"`
	Reason         string                         `json:"reason,omitempty"`
}

// Succeeded reports whether the anomaly reached the terminal notified state
func (r *Result) Succeeded() bool {
	return r.Status == StatusNotified
}

// Summary aggregates one remediation run
type Summary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Total        int       `json:"total"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Proposals    int       `json:"proposals"`
	TotalSavings float64   `json:"total_savings"`
}

// Report is the full output of one detection+remediation run, retained in
// memory for the ops API.
type Report struct {
	Summary   Summary            `json:"summary"`
	Anomalies []*anomaly.Anomaly `json:"anomalies"`
	Results   []*Result          `json:"results"`
}
