package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/testutil"
)

func testDetectionConfig() config.DetectionConfig {
	return config.DetectionConfig{
		WindowDays:        30,
		MinObservations:   7,
		SigmaMultiplier:   2.0,
		WasteScoreMin:     70,
		SnapshotWindowHrs: 24,
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func constantSeries(value float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = value
	}
	return s
}

func TestSpikeDetector_Detect(t *testing.T) {
	// Nine days at 100 then a jump to 200: mean=110, stddev=30,
	// threshold=170, so the latest observation is a spike.
	spiky := append(constantSeries(100, 9), 200)

	tests := []struct {
		name   string
		series map[string][]float64
		want   int
	}{
		{
			name:   "latest beyond two sigma is flagged once",
			series: map[string][]float64{"EC2": spiky},
			want:   1,
		},
		{
			name:   "constant series never flags",
			series: map[string][]float64{"S3": constantSeries(50, 10)},
			want:   0,
		},
		{
			name:   "fewer than seven observations is skipped",
			series: map[string][]float64{"Lambda": {1, 1, 1, 1, 1, 1000}},
			want:   0,
		},
		{
			name: "mixed entities flag independently",
			series: map[string][]float64{
				"EC2": spiky,
				"S3":  constantSeries(50, 10),
				"RDS": append(constantSeries(10, 14), 40),
			},
			want: 2,
		},
		{
			name:   "empty result set",
			series: map[string][]float64{},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &testutil.MockCostSource{DailyCosts: tt.series}
			d := NewSpikeDetector(source, testDetectionConfig(), testLogger())

			got := d.Detect(context.Background())
			if len(got) != tt.want {
				t.Fatalf("Detect() returned %d anomalies, want %d", len(got), tt.want)
			}
			for _, a := range got {
				if a.IssueType != anomaly.TypeCostSpike {
					t.Errorf("anomaly has issue type %s, want %s", a.IssueType, anomaly.TypeCostSpike)
				}
			}
		})
	}
}

func TestSpikeDetector_AnomalyFields(t *testing.T) {
	series := map[string][]float64{
		"EC2": append(constantSeries(100, 9), 200),
	}
	source := &testutil.MockCostSource{DailyCosts: series}
	d := NewSpikeDetector(source, testDetectionConfig(), testLogger())

	got := d.Detect(context.Background())
	if len(got) != 1 {
		t.Fatalf("Detect() returned %d anomalies, want 1", len(got))
	}

	a := got[0]
	if a.Service != "EC2" {
		t.Errorf("Service = %q, want EC2", a.Service)
	}
	if a.CurrentCost != 200 {
		t.Errorf("CurrentCost = %v, want 200", a.CurrentCost)
	}
	if a.ExpectedCost != 110 {
		t.Errorf("ExpectedCost = %v, want 110", a.ExpectedCost)
	}
	if a.Metrics["days_analyzed"] != 10 {
		t.Errorf("days_analyzed = %v, want 10", a.Metrics["days_analyzed"])
	}
	if a.Metrics["mean_30d"] != 110.0 {
		t.Errorf("mean_30d = %v, want 110", a.Metrics["mean_30d"])
	}
	if a.Metrics["std_dev"] != 30.0 {
		t.Errorf("std_dev = %v, want 30", a.Metrics["std_dev"])
	}
	if a.Metrics["threshold"] != 170.0 {
		t.Errorf("threshold = %v, want 170", a.Metrics["threshold"])
	}
}

func TestSpikeDetector_SourceUnavailable(t *testing.T) {
	source := &testutil.MockCostSource{
		DailyCostsErr: anomaly.ErrUnavailable,
	}
	d := NewSpikeDetector(source, testDetectionConfig(), testLogger())

	got := d.Detect(context.Background())
	if len(got) != 0 {
		t.Fatalf("Detect() with unavailable source returned %d anomalies, want 0", len(got))
	}
}

func TestPopulationStats(t *testing.T) {
	mean, std := populationStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Errorf("mean = %v, want 5", mean)
	}
	if std != 2 {
		t.Errorf("std = %v, want 2", std)
	}

	mean, std = populationStats(nil)
	if mean != 0 || std != 0 {
		t.Errorf("stats of empty series = (%v, %v), want (0, 0)", mean, std)
	}
}

func TestSpikeDetector_ErrorIsNotUnavailableSentinel(t *testing.T) {
	// Any query error degrades to an empty result, not just the sentinel.
	source := &testutil.MockCostSource{DailyCostsErr: errors.New("connection reset")}
	d := NewSpikeDetector(source, testDetectionConfig(), testLogger())

	if got := d.Detect(context.Background()); len(got) != 0 {
		t.Fatalf("Detect() returned %d anomalies, want 0", len(got))
	}
}
