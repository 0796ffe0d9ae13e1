package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/pkg/metrics"
)

// NamedSource is a CostSource that identifies itself for logs and metrics
type NamedSource interface {
	anomaly.CostSource
	Name() string
}

// MultiSource fans a query out to every enabled provider and merges the
// results. A failing provider degrades to empty results for that provider;
// the query fails only when every provider fails.
type MultiSource struct {
	sources []NamedSource
	logger  *logger.Logger
}

// NewMultiSource builds the combined source from configuration. Disabled
// providers are not constructed.
func NewMultiSource(cfg *config.Config, log *logger.Logger) *MultiSource {
	var sources []NamedSource
	if cfg.AWS.Enabled {
		sources = append(sources, NewAWSSource(cfg.AWS, log))
	}
	if cfg.GCP.Enabled {
		sources = append(sources, NewGCPSource(cfg.GCP, log))
	}
	if cfg.Azure.Enabled {
		sources = append(sources, NewAzureSource(cfg.Azure, log))
	}
	return &MultiSource{sources: sources, logger: log}
}

// NewMultiSourceWith builds a combined source from explicit sources, used in
// tests.
func NewMultiSourceWith(log *logger.Logger, sources ...NamedSource) *MultiSource {
	return &MultiSource{sources: sources, logger: log}
}

// QueryDailyCosts merges per-entity series from all providers. An entity
// name already claimed by an earlier provider is suffixed with the provider
// name so series are never silently summed across providers.
func (m *MultiSource) QueryDailyCosts(ctx context.Context, grouping anomaly.Grouping, windowDays int) (map[string][]float64, error) {
	if len(m.sources) == 0 {
		return nil, fmt.Errorf("%w: no cost providers enabled", anomaly.ErrUnavailable)
	}

	merged := map[string][]float64{}
	failures := 0
	for _, source := range m.sources {
		start := time.Now()
		series, err := source.QueryDailyCosts(ctx, grouping, windowDays)
		if err != nil {
			metrics.RecordProviderQuery(source.Name(), "error", time.Since(start))
			m.logger.Warnf("Provider %s daily costs unavailable: %v", source.Name(), err)
			failures++
			continue
		}
		metrics.RecordProviderQuery(source.Name(), "success", time.Since(start))
		for entity, seq := range series {
			key := entity
			if _, taken := merged[key]; taken {
				key = fmt.Sprintf("%s (%s)", entity, source.Name())
			}
			merged[key] = seq
		}
	}
	if failures == len(m.sources) {
		return nil, fmt.Errorf("%w: all %d providers failed", anomaly.ErrUnavailable, failures)
	}
	return merged, nil
}

// QueryResourceSnapshots concatenates snapshots from all providers
func (m *MultiSource) QueryResourceSnapshots(ctx context.Context, minWasteScore, windowHours int) ([]anomaly.ResourceSnapshot, error) {
	if len(m.sources) == 0 {
		return nil, fmt.Errorf("%w: no cost providers enabled", anomaly.ErrUnavailable)
	}

	var merged []anomaly.ResourceSnapshot
	failures := 0
	for _, source := range m.sources {
		start := time.Now()
		snapshots, err := source.QueryResourceSnapshots(ctx, minWasteScore, windowHours)
		if err != nil {
			metrics.RecordProviderQuery(source.Name(), "error", time.Since(start))
			m.logger.Warnf("Provider %s snapshots unavailable: %v", source.Name(), err)
			failures++
			continue
		}
		metrics.RecordProviderQuery(source.Name(), "success", time.Since(start))
		merged = append(merged, snapshots...)
	}
	if failures == len(m.sources) {
		return nil, fmt.Errorf("%w: all %d providers failed", anomaly.ErrUnavailable, failures)
	}
	return merged, nil
}
