// Package detect implements the anomaly detection engine: a statistical
// cost spike detector and a threshold-based waste pattern classifier over
// a shared cost source.
package detect

import (
	"context"
	"time"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/pkg/metrics"
)

// Detector produces anomalies for the current data. Implementations never
// return an error; a failed underlying query yields an empty result.
type Detector interface {
	Detect(ctx context.Context) []*anomaly.Anomaly
}

// Engine runs all detection strategies over the current data and merges
// their outputs into one ordered anomaly set. Detector failures are
// isolated from each other; no deduplication is performed across
// strategies because a spike and a waste pattern on the same entity are
// distinct findings.
type Engine struct {
	detectors []Detector
	logger    *logger.Logger
}

// NewEngine creates a detection engine over a cost source
func NewEngine(source anomaly.CostSource, cfg config.DetectionConfig, log *logger.Logger) *Engine {
	return &Engine{
		detectors: []Detector{
			NewSpikeDetector(source, cfg, log),
			NewWasteClassifier(source, cfg, log),
		},
		logger: log,
	}
}

// NewEngineWithDetectors creates an engine over explicit detectors
func NewEngineWithDetectors(log *logger.Logger, detectors ...Detector) *Engine {
	return &Engine{
		detectors: detectors,
		logger:    log,
	}
}

// Detect runs all strategies and returns the combined anomaly list
func (e *Engine) Detect(ctx context.Context) []*anomaly.Anomaly {
	e.logger.Info("Starting anomaly detection pass")
	start := time.Now()

	var anomalies []*anomaly.Anomaly
	for _, d := range e.detectors {
		anomalies = append(anomalies, d.Detect(ctx)...)
	}

	spikes := 0
	for _, a := range anomalies {
		if a.IssueType == anomaly.TypeCostSpike {
			spikes++
		}
		metrics.RecordAnomaly(string(a.IssueType))
	}

	metrics.RecordDetectionRun("ok", time.Since(start))
	e.logger.Infof("Detection complete: %d total anomalies (%d spikes, %d waste)",
		len(anomalies), spikes, len(anomalies)-spikes)
	return anomalies
}
