package providers

import (
	"context"
	"testing"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/detect"
)

func TestSeriesByEntityKeepsSparseSeriesShort(t *testing.T) {
	byEntity := map[string]map[string]float64{
		"EC2": {
			"2026-08-20": 10, "2026-08-21": 10, "2026-08-22": 10, "2026-08-23": 10,
			"2026-08-24": 10, "2026-08-25": 10, "2026-08-26": 10, "2026-08-27": 10,
		},
		// First billed yesterday. Must not be padded out to EC2's days.
		"SageMaker": {"2026-08-27": 450},
	}

	series := seriesByEntity(byEntity)
	if len(series["EC2"]) != 8 {
		t.Errorf("EC2 series length = %d, want 8", len(series["EC2"]))
	}
	if len(series["SageMaker"]) != 1 {
		t.Fatalf("SageMaker series length = %d, want 1 (one billed day is one observation)", len(series["SageMaker"]))
	}
	if series["SageMaker"][0] != 450 {
		t.Errorf("SageMaker series = %v", series["SageMaker"])
	}
}

func TestSeriesByEntityOrdersDaysOldestFirst(t *testing.T) {
	series := seriesByEntity(map[string]map[string]float64{
		"S3": {"2026-08-27": 3, "2026-08-25": 1, "2026-08-26": 2},
	})
	want := []float64{1, 2, 3}
	got := series["S3"]
	if len(got) != len(want) {
		t.Fatalf("series = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("series = %v, want %v", got, want)
		}
	}
}

// A newly billed entity has too few observations to score; it must be
// skipped by the minimum-observation guard rather than flagged as a spike
// against a synthesized near-zero baseline.
func TestSparseEntityNotFlaggedAsSpike(t *testing.T) {
	byEntity := map[string]map[string]float64{
		"SageMaker": {"2026-08-27": 450},
	}
	source := &fakeSource{name: "aws", series: seriesByEntity(byEntity)}

	cfg := config.DetectionConfig{WindowDays: 30, MinObservations: 7, SigmaMultiplier: 2.0}
	detector := detect.NewSpikeDetector(source, cfg, testLog())

	if anomalies := detector.Detect(context.Background()); len(anomalies) != 0 {
		t.Fatalf("got %d anomalies for an entity with one observation, want 0", len(anomalies))
	}
}
