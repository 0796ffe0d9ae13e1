// Package waste assigns a deterministic 0-100 waste score to a cloud
// resource from its utilization, instance type, and state. It runs locally
// with no external calls.
package waste

import "strings"

// Band is a human-readable waste classification
type Band string

// Bands, ordered by score
const (
	BandCritical Band = "critical"
	BandHigh     Band = "high"
	BandMedium   Band = "medium"
	BandLow      Band = "low"
	BandNone     Band = "none"
)

// Score calculates a waste score for an EC2-like instance. Rules are
// additive and independently triggered, then clamped to 100:
//
//   - running with cpu < 5%: +80 (idle but still billed)
//   - cpu < 20%: +50 (general overprovisioning)
//   - "xlarge" type with cpu < 30%: +60 (expensive with low use)
//   - stopped: +40 (attached storage still billed)
func Score(cpuUtil float64, instanceType, state string) int {
	score := 0

	if state == "running" && cpuUtil < 5 {
		score += 80
	}

	if cpuUtil < 20 {
		score += 50
	}

	if strings.Contains(strings.ToLower(instanceType), "xlarge") && cpuUtil < 30 {
		score += 60
	}

	if state == "stopped" {
		score += 40
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Classify maps a score to its band. Lower bounds are inclusive.
func Classify(score int) Band {
	switch {
	case score >= 80:
		return BandCritical
	case score >= 60:
		return BandHigh
	case score >= 40:
		return BandMedium
	case score >= 20:
		return BandLow
	default:
		return BandNone
	}
}
