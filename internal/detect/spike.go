package detect

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

// SpikeDetector flags entities whose latest daily cost exceeds the mean of
// the trailing window by a configured number of standard deviations.
type SpikeDetector struct {
	source anomaly.CostSource
	cfg    config.DetectionConfig
	logger *logger.Logger
}

// NewSpikeDetector creates a new spike detector
func NewSpikeDetector(source anomaly.CostSource, cfg config.DetectionConfig, log *logger.Logger) *SpikeDetector {
	return &SpikeDetector{
		source: source,
		cfg:    cfg,
		logger: log,
	}
}

// Detect returns cost-spike anomalies for the current window. A failed
// source query is logged and yields an empty result, never an error.
func (d *SpikeDetector) Detect(ctx context.Context) []*anomaly.Anomaly {
	series, err := d.source.QueryDailyCosts(ctx, anomaly.GroupByService, d.cfg.WindowDays)
	if err != nil {
		d.logger.ErrorWithErr(err, "Cost spike query failed")
		return nil
	}

	// Stable report ordering
	entities := make([]string, 0, len(series))
	for entity := range series {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	var anomalies []*anomaly.Anomaly
	for _, entity := range entities {
		costs := series[entity]
		if len(costs) < d.cfg.MinObservations {
			// Not enough signal for meaningful stats
			continue
		}

		mean, std := populationStats(costs)
		latest := costs[len(costs)-1]
		threshold := mean + d.cfg.SigmaMultiplier*std

		if !(latest > threshold && std > 0) {
			continue
		}

		a := &anomaly.Anomaly{
			Service:      entity,
			IssueType:    anomaly.TypeCostSpike,
			CurrentCost:  latest,
			ExpectedCost: round2(mean),
			Metrics: map[string]interface{}{
				"mean_30d":      round2(mean),
				"std_dev":       round2(std),
				"threshold":     round2(threshold),
				"days_analyzed": len(costs),
			},
			Timestamp: time.Now().UTC(),
		}
		d.logger.Warnf("Cost spike detected: %s", a)
		anomalies = append(anomalies, a)
	}

	d.logger.Infof("Cost spike detection found %d anomalies", len(anomalies))
	return anomalies
}

// populationStats returns the population mean and standard deviation
func populationStats(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= n

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= n
	return mean, math.Sqrt(variance)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
