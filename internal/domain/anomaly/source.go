package anomaly

import (
	"context"
	"errors"
)

// ErrUnavailable signals that a cost source could not be reached. Detectors
// treat it as "no observations this run", never as a fatal condition.
var ErrUnavailable = errors.New("cost source unavailable")

// Grouping selects the entity dimension for daily cost series
type Grouping string

// Groupings
const (
	GroupByService Grouping = "service"
	GroupByAccount Grouping = "account"
)

// CostSource provides the time-series data the detection engine runs over.
// Implementations must return an error wrapping ErrUnavailable on
// connectivity failure rather than malformed data.
type CostSource interface {
	// QueryDailyCosts returns, per entity, the daily cost sequence for the
	// trailing window, ordered oldest to newest.
	QueryDailyCosts(ctx context.Context, grouping Grouping, windowDays int) (map[string][]float64, error)

	// QueryResourceSnapshots returns recent resource snapshots with a waste
	// score strictly above minWasteScore.
	QueryResourceSnapshots(ctx context.Context, minWasteScore, windowHours int) ([]ResourceSnapshot, error)
}
