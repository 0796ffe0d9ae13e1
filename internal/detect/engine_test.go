package detect

import (
	"context"
	"testing"

	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/testutil"
)

func TestEngine_MergesDetectorOutputs(t *testing.T) {
	source := &testutil.MockCostSource{
		DailyCosts: map[string][]float64{
			"EC2": append(constantSeries(100, 9), 200),
		},
		Snapshots: []anomaly.ResourceSnapshot{
			snapshot("i-idle", "m5.xlarge", "running", 2, 96, 100),
		},
	}
	e := NewEngine(source, testDetectionConfig(), testLogger())

	got := e.Detect(context.Background())
	if len(got) != 2 {
		t.Fatalf("Detect() returned %d anomalies, want 2", len(got))
	}
	// Spikes are reported before waste patterns
	if got[0].IssueType != anomaly.TypeCostSpike {
		t.Errorf("first anomaly = %s, want %s", got[0].IssueType, anomaly.TypeCostSpike)
	}
	if got[1].IssueType != anomaly.TypeIdleResource {
		t.Errorf("second anomaly = %s, want %s", got[1].IssueType, anomaly.TypeIdleResource)
	}
}

func TestEngine_DetectorFailureIsIsolated(t *testing.T) {
	// The cost query fails but the snapshot query still runs, so the
	// engine returns partial results.
	source := &testutil.MockCostSource{
		DailyCostsErr: anomaly.ErrUnavailable,
		Snapshots: []anomaly.ResourceSnapshot{
			snapshot("i-stop", "m5.large", "stopped", 0, 12, 90),
		},
	}
	e := NewEngine(source, testDetectionConfig(), testLogger())

	got := e.Detect(context.Background())
	if len(got) != 1 {
		t.Fatalf("Detect() returned %d anomalies, want 1", len(got))
	}
	if got[0].IssueType != anomaly.TypeStoppedButBilled {
		t.Errorf("anomaly = %s, want %s", got[0].IssueType, anomaly.TypeStoppedButBilled)
	}
	if source.SnapshotCalls != 1 {
		t.Errorf("snapshot query ran %d times, want 1", source.SnapshotCalls)
	}
}

func TestEngine_NoDeduplicationAcrossDetectors(t *testing.T) {
	// The same service can surface as both a spike and a waste pattern;
	// both findings are kept.
	source := &testutil.MockCostSource{
		DailyCosts: map[string][]float64{
			"EC2": append(constantSeries(100, 9), 200),
		},
		Snapshots: []anomaly.ResourceSnapshot{
			snapshot("i-1", "m5.xlarge", "running", 2, 96, 100),
		},
	}
	e := NewEngine(source, testDetectionConfig(), testLogger())

	got := e.Detect(context.Background())
	if len(got) != 2 {
		t.Fatalf("Detect() returned %d anomalies, want 2 findings for the same service", len(got))
	}
	if got[0].Service != "EC2" || got[1].Service != "EC2" {
		t.Errorf("services = %q, %q, want EC2 twice", got[0].Service, got[1].Service)
	}
}

func TestEngine_EmptyData(t *testing.T) {
	e := NewEngine(&testutil.MockCostSource{}, testDetectionConfig(), testLogger())
	if got := e.Detect(context.Background()); len(got) != 0 {
		t.Fatalf("Detect() returned %d anomalies, want 0", len(got))
	}
}
