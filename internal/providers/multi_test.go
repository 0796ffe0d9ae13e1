package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/testutil"
)

type fakeSource struct {
	name      string
	series    map[string][]float64
	snapshots []anomaly.ResourceSnapshot
	err       error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) QueryDailyCosts(ctx context.Context, grouping anomaly.Grouping, windowDays int) (map[string][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

func (f *fakeSource) QueryResourceSnapshots(ctx context.Context, minWasteScore, windowHours int) ([]anomaly.ResourceSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshots, nil
}

func testLog() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "console"})
}

func TestMultiSourceMergesProviders(t *testing.T) {
	multi := NewMultiSourceWith(testLog(),
		&fakeSource{name: "aws", series: map[string][]float64{"EC2": {1, 2}, "S3": {3}}},
		&fakeSource{name: "gcp", series: map[string][]float64{"BigQuery": {4}}},
	)

	series, err := multi.QueryDailyCosts(context.Background(), anomaly.GroupByService, 30)
	if err != nil {
		t.Fatalf("QueryDailyCosts: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("got %d entities, want 3", len(series))
	}
	if len(series["EC2"]) != 2 || len(series["BigQuery"]) != 1 {
		t.Errorf("merged series wrong: %v", series)
	}
}

func TestMultiSourceDisambiguatesCollidingEntities(t *testing.T) {
	multi := NewMultiSourceWith(testLog(),
		&fakeSource{name: "aws", series: map[string][]float64{"Compute": {1}}},
		&fakeSource{name: "gcp", series: map[string][]float64{"Compute": {2}}},
	)

	series, err := multi.QueryDailyCosts(context.Background(), anomaly.GroupByService, 30)
	if err != nil {
		t.Fatalf("QueryDailyCosts: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("got %d entities, want 2 (colliding names must not merge): %v", len(series), series)
	}
	if _, ok := series["Compute (gcp)"]; !ok {
		t.Errorf("expected disambiguated key, got %v", series)
	}
}

func TestMultiSourceToleratesPartialFailure(t *testing.T) {
	multi := NewMultiSourceWith(testLog(),
		&fakeSource{name: "aws", err: anomaly.ErrUnavailable},
		&fakeSource{name: "gcp", series: map[string][]float64{"BigQuery": {4}}},
	)

	series, err := multi.QueryDailyCosts(context.Background(), anomaly.GroupByService, 30)
	if err != nil {
		t.Fatalf("partial failure should not fail the query: %v", err)
	}
	if len(series) != 1 {
		t.Errorf("got %d entities, want 1", len(series))
	}
}

func TestMultiSourceFailsWhenAllProvidersFail(t *testing.T) {
	multi := NewMultiSourceWith(testLog(),
		&fakeSource{name: "aws", err: anomaly.ErrUnavailable},
		&fakeSource{name: "azure", err: errors.New("auth failure")},
	)

	_, err := multi.QueryDailyCosts(context.Background(), anomaly.GroupByService, 30)
	if !errors.Is(err, anomaly.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	_, err = multi.QueryResourceSnapshots(context.Background(), 70, 24)
	if !errors.Is(err, anomaly.ErrUnavailable) {
		t.Fatalf("snapshots err = %v, want ErrUnavailable", err)
	}
}

func TestMultiSourceFailsWithNoProviders(t *testing.T) {
	multi := NewMultiSourceWith(testLog())
	if _, err := multi.QueryDailyCosts(context.Background(), anomaly.GroupByService, 30); !errors.Is(err, anomaly.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestMultiSourceSnapshotConcatenation(t *testing.T) {
	multi := NewMultiSourceWith(testLog(),
		&fakeSource{name: "aws", snapshots: []anomaly.ResourceSnapshot{
			{ResourceID: "i-1", InstanceType: "t3.medium", State: "stopped", CPUUtilization: testutil.Float64(0), Cost: testutil.Float64(0.8)},
		}},
		&fakeSource{name: "gcp"},
	)

	snapshots, err := multi.QueryResourceSnapshots(context.Background(), 30, 24)
	if err != nil {
		t.Fatalf("QueryResourceSnapshots: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].ResourceID != "i-1" {
		t.Errorf("snapshots = %v", snapshots)
	}
}
