package anomaly

import (
	"strings"
	"testing"
)

func TestIncreasePct(t *testing.T) {
	a := &Anomaly{CurrentCost: 200, ExpectedCost: 110}
	if got := a.IncreasePct(); got < 81.8 || got > 81.9 {
		t.Errorf("IncreasePct = %v, want ~81.82", got)
	}

	// No expected cost means the increase is undefined, reported as zero.
	a = &Anomaly{CurrentCost: 50, ExpectedCost: 0}
	if got := a.IncreasePct(); got != 0 {
		t.Errorf("IncreasePct with zero expected = %v, want 0", got)
	}
}

func TestEstimatedMonthlyWaste(t *testing.T) {
	a := &Anomaly{CurrentCost: 100, WasteScore: 80}
	if got := a.EstimatedMonthlyWaste(); got != 80 {
		t.Errorf("EstimatedMonthlyWaste = %v, want 80", got)
	}
}

func TestIssueTypeIsValid(t *testing.T) {
	for _, it := range []IssueType{TypeCostSpike, TypeIdleResource, TypeOverprovisioned, TypeStoppedButBilled, TypeWastePattern} {
		if !it.IsValid() {
			t.Errorf("%s should be valid", it)
		}
	}
	if IssueType("surprise").IsValid() {
		t.Error("unknown issue type should be invalid")
	}
}

func TestStringIdentity(t *testing.T) {
	a := &Anomaly{Service: "EC2", IssueType: TypeIdleResource, ResourceID: "i-1", CurrentCost: 4.8, WasteScore: 80}
	s := a.String()
	for _, want := range []string{"idle_resource", "EC2", "i-1", "$4.80", "waste=80"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestSnapshotAccessorsNilSafe(t *testing.T) {
	s := &ResourceSnapshot{}
	if s.CPU() != 0 || s.DailyCost() != 0 {
		t.Error("nil pointer fields should read as zero")
	}
}
