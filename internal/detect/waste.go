package detect

import (
	"context"
	"time"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/pkg/validator"
)

// WasteClassifier turns high-waste resource snapshots into anomalies,
// classifying each into exactly one issue type. Stopped state dominates
// low-CPU classification.
type WasteClassifier struct {
	source   anomaly.CostSource
	validate *validator.Validator
	cfg      config.DetectionConfig
	logger   *logger.Logger
}

// NewWasteClassifier creates a new waste pattern classifier
func NewWasteClassifier(source anomaly.CostSource, cfg config.DetectionConfig, log *logger.Logger) *WasteClassifier {
	return &WasteClassifier{
		source:   source,
		validate: validator.New(),
		cfg:      cfg,
		logger:   log,
	}
}

// Detect returns waste-pattern anomalies from recent resource snapshots.
// A failed source query is logged and yields an empty result. Snapshots
// missing required fields are rejected as data-quality errors and skipped.
func (d *WasteClassifier) Detect(ctx context.Context) []*anomaly.Anomaly {
	snapshots, err := d.source.QueryResourceSnapshots(ctx, d.cfg.WasteScoreMin, d.cfg.SnapshotWindowHrs)
	if err != nil {
		d.logger.ErrorWithErr(err, "Waste pattern query failed")
		return nil
	}

	var anomalies []*anomaly.Anomaly
	for i := range snapshots {
		snap := &snapshots[i]

		if verrs := d.validate.Validate(snap); len(verrs) > 0 {
			d.logger.WithFields(map[string]interface{}{
				"resource_id": snap.ResourceID,
				"errors":      verrs,
			}).Error("Rejecting snapshot with missing required fields")
			continue
		}

		issue := classifySnapshot(snap)

		a := &anomaly.Anomaly{
			Service:     serviceOrDefault(snap),
			IssueType:   issue,
			ResourceID:  snap.ResourceID,
			CurrentCost: snap.DailyCost(),
			WasteScore:  snap.WasteScore,
			Account:     snap.Account,
			Region:      snap.Region,
			Metrics: map[string]interface{}{
				"cpu_utilization": snap.CPU(),
				"instance_type":   snap.InstanceType,
				"state":           snap.State,
			},
			Timestamp: time.Now().UTC(),
		}
		d.logger.Warnf("Waste pattern detected: %s", a)
		anomalies = append(anomalies, a)
	}

	d.logger.Infof("Waste detection found %d anomalies", len(anomalies))
	return anomalies
}

// classifySnapshot assigns an issue type. Precedence is fixed: stopped
// state first, then idle CPU, then overprovisioned.
func classifySnapshot(snap *anomaly.ResourceSnapshot) anomaly.IssueType {
	switch {
	case snap.State == "stopped":
		return anomaly.TypeStoppedButBilled
	case snap.CPU() < 5:
		return anomaly.TypeIdleResource
	default:
		return anomaly.TypeOverprovisioned
	}
}

func serviceOrDefault(snap *anomaly.ResourceSnapshot) string {
	if snap.Service != "" {
		return snap.Service
	}
	return "EC2"
}
