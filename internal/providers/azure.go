package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/errors"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

// AzureSource reads daily costs from the Azure Cost Management query API,
// scoped to a single subscription.
type AzureSource struct {
	cfg    config.AzureConfig
	logger *logger.Logger
}

// NewAzureSource creates an Azure cost source
func NewAzureSource(cfg config.AzureConfig, log *logger.Logger) *AzureSource {
	return &AzureSource{cfg: cfg, logger: log}
}

// Name identifies the provider in logs and metrics
func (s *AzureSource) Name() string { return "azure" }

// QueryDailyCosts aggregates pre-tax cost by service name per day. The
// account grouping maps to the subscription since the source is scoped to
// one subscription already.
func (s *AzureSource) QueryDailyCosts(ctx context.Context, grouping anomaly.Grouping, windowDays int) (map[string][]float64, error) {
	credential, err := azidentity.NewClientSecretCredential(s.cfg.TenantID, s.cfg.ClientID, s.cfg.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating azure credential: %v", anomaly.ErrUnavailable, err)
	}
	client, err := armcostmanagement.NewQueryClient(credential, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating cost management client: %v", anomaly.ErrUnavailable, err)
	}

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -windowDays)
	scope := fmt.Sprintf("subscriptions/%s", s.cfg.SubscriptionID)

	groupName := "ServiceName"
	if grouping == anomaly.GroupByAccount {
		groupName = "SubscriptionName"
	}

	sumFunc := armcostmanagement.FunctionTypeSum
	dimGrouping := armcostmanagement.QueryColumnTypeDimension
	granularity := armcostmanagement.GranularityTypeDaily
	timeframeCustom := armcostmanagement.TimeframeTypeCustom
	exportType := armcostmanagement.ExportTypeActualCost

	result, err := client.Usage(ctx, scope, armcostmanagement.QueryDefinition{
		Type:      &exportType,
		Timeframe: &timeframeCustom,
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: &start,
			To:   &now,
		},
		Dataset: &armcostmanagement.QueryDataset{
			Granularity: &granularity,
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"PreTaxCost": {Name: ptrStr("PreTaxCost"), Function: &sumFunc},
			},
			Grouping: []*armcostmanagement.QueryGrouping{
				{Type: &dimGrouping, Name: ptrStr(groupName)},
			},
		},
	}, nil)
	if err != nil {
		return nil, errors.ProviderAPIError("azure", fmt.Errorf("%w: cost management query: %v", anomaly.ErrUnavailable, err))
	}
	if result.Properties == nil || result.Properties.Rows == nil {
		return map[string][]float64{}, nil
	}

	colIndex := map[string]int{}
	for i, col := range result.Properties.Columns {
		if col.Name != nil {
			colIndex[*col.Name] = i
		}
	}
	costIdx, hasCost := colIndex["PreTaxCost"]
	entityIdx, hasEntity := colIndex[groupName]
	dateIdx, hasDate := colIndex["UsageDateKey"]
	if !hasDate {
		dateIdx, hasDate = colIndex["UsageDate"]
	}
	if !hasCost || !hasEntity || !hasDate {
		return nil, errors.Malformed("azure", fmt.Errorf("query result missing expected columns: %v", colIndex))
	}

	byEntity := map[string]map[string]float64{}
	for _, row := range result.Properties.Rows {
		if len(row) <= costIdx || len(row) <= entityIdx || len(row) <= dateIdx {
			continue
		}
		cost, ok := row[costIdx].(float64)
		if !ok || cost == 0 {
			continue
		}
		entity, ok := row[entityIdx].(string)
		if !ok {
			continue
		}
		day := usageDay(row[dateIdx])
		if day == "" {
			continue
		}
		if byEntity[entity] == nil {
			byEntity[entity] = map[string]float64{}
		}
		byEntity[entity][day] += cost
	}

	series := seriesByEntity(byEntity)
	s.logger.Debugf("Azure cost management returned %d entities", len(series))
	return series, nil
}

// QueryResourceSnapshots returns no snapshots. Azure utilization data lives
// in Monitor, which this source does not query; Azure contributes to spike
// detection only.
func (s *AzureSource) QueryResourceSnapshots(ctx context.Context, minWasteScore, windowHours int) ([]anomaly.ResourceSnapshot, error) {
	return nil, nil
}

// usageDay normalizes the UsageDate column, which Azure returns either as a
// YYYYMMDD number or a date string.
func usageDay(v interface{}) string {
	switch d := v.(type) {
	case float64:
		dateInt := int(d)
		return fmt.Sprintf("%04d-%02d-%02d", dateInt/10000, (dateInt%10000)/100, dateInt%100)
	case string:
		if t, err := time.Parse("2006-01-02", d); err == nil {
			return t.Format("2006-01-02")
		}
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func ptrStr(s string) *string {
	return &s
}
