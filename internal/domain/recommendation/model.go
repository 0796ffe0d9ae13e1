package recommendation

import (
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
)

// RiskLevel grades a proposed optimization
type RiskLevel string

// Risk levels
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel maps a collaborator-supplied value to a known risk level,
// defaulting to medium on anything unrecognized.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s)
	}
	return RiskMedium
}

// DefaultConfidence is used when the generator omits a confidence value.
const DefaultConfidence = 0.5

// Recommendation is the structured output of the recommendation generator
// for one anomaly. It lives for the duration of one pipeline run.
type Recommendation struct {
	Anomaly         *anomaly.Anomaly `json:"anomaly"`
	RootCause       string           `json:"root_cause"`
	Actions         []string         `json:"actions"`
	ChangeProposal  string           `json:"change_proposal"`
	SavingsEstimate float64          `json:"savings_estimate"`
	RiskLevel       RiskLevel        `json:"risk_level"`
	RollbackPlan    string           `json:"rollback_plan"`
	Confidence      float64          `json:"confidence"`
}

// ToMap serializes for proposal bodies and notification payloads
func (r *Recommendation) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"anomaly":          r.Anomaly.ToMap(),
		"root_cause":       r.RootCause,
		"actions":          r.Actions,
		"change_proposal":  r.ChangeProposal,
		"savings_estimate": r.SavingsEstimate,
		"risk_level":       string(r.RiskLevel),
		"rollback_plan":    r.RollbackPlan,
		"confidence":       r.Confidence,
	}
}
