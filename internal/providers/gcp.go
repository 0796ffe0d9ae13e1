package providers

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/errors"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

// GCPSource reads daily costs from a BigQuery billing export table. GCP does
// not expose a Cost-Explorer-style API; the standard billing export is the
// supported path for programmatic cost data.
type GCPSource struct {
	cfg    config.GCPConfig
	logger *logger.Logger
}

// NewGCPSource creates a GCP cost source
func NewGCPSource(cfg config.GCPConfig, log *logger.Logger) *GCPSource {
	return &GCPSource{cfg: cfg, logger: log}
}

// Name identifies the provider in logs and metrics
func (s *GCPSource) Name() string { return "gcp" }

// QueryDailyCosts aggregates the billing export by service (or billing
// account) per day over the trailing window.
func (s *GCPSource) QueryDailyCosts(ctx context.Context, grouping anomaly.Grouping, windowDays int) (map[string][]float64, error) {
	if s.cfg.BillingDataset == "" {
		return nil, fmt.Errorf("%w: gcp billing dataset not configured", anomaly.ErrUnavailable)
	}

	var opts []option.ClientOption
	if s.cfg.ServiceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(s.cfg.ServiceAccountJSON)))
	}
	client, err := bigquery.NewClient(ctx, s.cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating bigquery client: %v", anomaly.ErrUnavailable, err)
	}
	defer client.Close()

	entityExpr := "service.description"
	if grouping == anomaly.GroupByAccount {
		entityExpr = "billing_account_id"
	}

	query := client.Query(fmt.Sprintf(`
		SELECT
			%s AS entity,
			DATE(usage_start_time) AS cost_date,
			SUM(cost) AS daily_cost
		FROM `+"`%s`"+`
		WHERE DATE(usage_start_time) >= @start_date
		GROUP BY entity, cost_date
		ORDER BY cost_date ASC
	`, entityExpr, s.cfg.BillingDataset))
	query.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: time.Now().UTC().AddDate(0, 0, -windowDays).Format("2006-01-02")},
	}

	it, err := query.Read(ctx)
	if err != nil {
		return nil, errors.ProviderAPIError("gcp", fmt.Errorf("%w: bigquery query: %v", anomaly.ErrUnavailable, err))
	}

	byEntity := map[string]map[string]float64{}
	for {
		var row struct {
			Entity    string            `bigquery:"entity"`
			CostDate  bigquery.NullDate `bigquery:"cost_date"`
			DailyCost float64           `bigquery:"daily_cost"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.ProviderAPIError("gcp", fmt.Errorf("bigquery row read: %w", err))
		}
		if !row.CostDate.Valid || row.DailyCost == 0 {
			continue
		}
		day := row.CostDate.Date.String()
		if byEntity[row.Entity] == nil {
			byEntity[row.Entity] = map[string]float64{}
		}
		byEntity[row.Entity][day] += row.DailyCost
	}

	series := seriesByEntity(byEntity)
	s.logger.Debugf("GCP billing export returned %d entities", len(series))
	return series, nil
}

// QueryResourceSnapshots returns no snapshots. The billing export carries no
// utilization data, so GCP contributes to spike detection only.
func (s *GCPSource) QueryResourceSnapshots(ctx context.Context, minWasteScore, windowHours int) ([]anomaly.ResourceSnapshot, error) {
	return nil, nil
}
