package anomaly

import (
	"fmt"
	"math"
	"time"
)

// IssueType classifies a detected anomaly
type IssueType string

// Issue types
const (
	TypeCostSpike        IssueType = "cost_spike"
	TypeIdleResource     IssueType = "idle_resource"
	TypeOverprovisioned  IssueType = "overprovisioned"
	TypeStoppedButBilled IssueType = "stopped_but_billed"
	TypeWastePattern     IssueType = "waste_pattern"
)

// IsValid reports whether t is a known issue type
func (t IssueType) IsValid() bool {
	switch t {
	case TypeCostSpike, TypeIdleResource, TypeOverprovisioned, TypeStoppedButBilled, TypeWastePattern:
		return true
	}
	return false
}

// Anomaly represents a detected cost anomaly or waste pattern.
// It is created by the detection engine and read-only thereafter.
type Anomaly struct {
	Service      string                 `json:"service"`
	IssueType    IssueType              `json:"issue_type"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Account      string                 `json:"account,omitempty"`
	Region       string                 `json:"region,omitempty"`
	CurrentCost  float64                `json:"current_cost"`
	ExpectedCost float64                `json:"expected_cost"`
	WasteScore   int                    `json:"waste_score"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// IncreasePct returns the percentage increase over expected cost.
// Zero when no expected cost is known.
func (a *Anomaly) IncreasePct() float64 {
	if a.ExpectedCost <= 0 {
		return 0
	}
	return ((a.CurrentCost - a.ExpectedCost) / a.ExpectedCost) * 100
}

// EstimatedMonthlyWaste returns a rough monthly waste estimate based on
// current cost and waste score.
func (a *Anomaly) EstimatedMonthlyWaste() float64 {
	return a.CurrentCost * (float64(a.WasteScore) / 100.0)
}

// ToMap serializes to a plain key-value structure for logging and for
// handoff to the notifier and change-proposal collaborators.
func (a *Anomaly) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"service":       a.Service,
		"resource_id":   a.ResourceID,
		"issue_type":    string(a.IssueType),
		"current_cost":  a.CurrentCost,
		"expected_cost": a.ExpectedCost,
		"increase_pct":  math.Round(a.IncreasePct()*10) / 10,
		"waste_score":   a.WasteScore,
		"metrics":       a.Metrics,
		"account":       a.Account,
		"region":        a.Region,
		"timestamp":     a.Timestamp.Format(time.RFC3339),
	}
}

// String renders a short single-line identity for logs
func (a *Anomaly) String() string {
	s := fmt.Sprintf("[%s] %s", a.IssueType, a.Service)
	if a.ResourceID != "" {
		s += fmt.Sprintf(" (%s)", a.ResourceID)
	}
	s += fmt.Sprintf(" $%.2f", a.CurrentCost)
	if a.WasteScore > 0 {
		s += fmt.Sprintf(" waste=%d", a.WasteScore)
	}
	return s
}

// ResourceSnapshot is a point-in-time utilization record for a billed
// resource. The four pointer/required fields must all be present; a
// snapshot missing any of them is a data-quality error, not a default.
type ResourceSnapshot struct {
	ResourceID     string    `json:"resource_id" validate:"required"`
	Service        string    `json:"service"`
	Account        string    `json:"account"`
	Region         string    `json:"region"`
	InstanceType   string    `json:"instance_type" validate:"required"`
	State          string    `json:"state" validate:"required"`
	CPUUtilization *float64  `json:"cpu_utilization" validate:"required"`
	Cost           *float64  `json:"cost" validate:"required"`
	WasteScore     int       `json:"waste_score" validate:"gte=0,lte=100"`
	ObservedAt     time.Time `json:"observed_at"`
}

// CPU returns the CPU utilization, valid only after validation
func (s *ResourceSnapshot) CPU() float64 {
	if s.CPUUtilization == nil {
		return 0
	}
	return *s.CPUUtilization
}

// DailyCost returns the snapshot cost, valid only after validation
func (s *ResourceSnapshot) DailyCost() float64 {
	if s.Cost == nil {
		return 0
	}
	return *s.Cost
}
