// Package providers implements anomaly.CostSource against the cloud billing
// APIs. Each provider returns daily cost series and, where the API exposes
// utilization, resource snapshots for waste classification.
package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/errors"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/waste"
)

// AWSSource reads daily costs from Cost Explorer and resource snapshots from
// EC2 plus CloudWatch. Cost Explorer is only served out of us-east-1.
type AWSSource struct {
	cfg    config.AWSConfig
	logger *logger.Logger

	mu        sync.Mutex
	awsConfig *aws.Config
}

// NewAWSSource creates an AWS cost source
func NewAWSSource(cfg config.AWSConfig, log *logger.Logger) *AWSSource {
	return &AWSSource{cfg: cfg, logger: log}
}

// Name identifies the provider in logs and metrics
func (s *AWSSource) Name() string { return "aws" }

func (s *AWSSource) loadConfig(ctx context.Context, region string) (aws.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.awsConfig != nil {
		cfg := *s.awsConfig
		cfg.Region = region
		return cfg, nil
	}

	var cfg aws.Config
	var err error
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, "")),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: loading aws config: %v", anomaly.ErrUnavailable, err)
	}
	s.awsConfig = &cfg
	return cfg, nil
}

// QueryDailyCosts returns per-entity daily cost series for the trailing
// window, ordered oldest to newest. Only days with reported cost become
// observations; an entity billed for a handful of days yields a short
// series rather than a zero-padded one.
func (s *AWSSource) QueryDailyCosts(ctx context.Context, grouping anomaly.Grouping, windowDays int) (map[string][]float64, error) {
	cfg, err := s.loadConfig(ctx, "us-east-1")
	if err != nil {
		return nil, err
	}
	client := costexplorer.NewFromConfig(cfg)

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -windowDays)

	groupKey := "SERVICE"
	if grouping == anomaly.GroupByAccount {
		groupKey = "LINKED_ACCOUNT"
	}

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start.Format("2006-01-02")),
			End:   aws.String(now.Format("2006-01-02")),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String(groupKey)},
		},
	}

	// Per-entity cost keyed by day, flattened into ordered series below.
	byEntity := map[string]map[string]float64{}
	for {
		result, err := client.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, errors.ProviderAPIError("aws", fmt.Errorf("%w: cost explorer: %v", anomaly.ErrUnavailable, err))
		}
		for _, byTime := range result.ResultsByTime {
			if byTime.TimePeriod == nil || byTime.TimePeriod.Start == nil {
				continue
			}
			day := *byTime.TimePeriod.Start
			for _, group := range byTime.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				entity := group.Keys[0]
				amount := 0.0
				if metric, ok := group.Metrics["UnblendedCost"]; ok && metric.Amount != nil {
					amount, _ = strconv.ParseFloat(*metric.Amount, 64)
				}
				if amount == 0 {
					continue
				}
				if byEntity[entity] == nil {
					byEntity[entity] = map[string]float64{}
				}
				byEntity[entity][day] += amount
			}
		}
		if result.NextPageToken == nil {
			break
		}
		input.NextPageToken = result.NextPageToken
	}

	series := seriesByEntity(byEntity)
	s.logger.Debugf("AWS cost explorer returned %d entities", len(series))
	return series, nil
}

// QueryResourceSnapshots lists EC2 instances in the configured region,
// resolves recent average CPU from CloudWatch and keeps snapshots scoring
// strictly above minWasteScore.
func (s *AWSSource) QueryResourceSnapshots(ctx context.Context, minWasteScore, windowHours int) ([]anomaly.ResourceSnapshot, error) {
	cfg, err := s.loadConfig(ctx, s.cfg.Region)
	if err != nil {
		return nil, err
	}
	ec2Client := ec2.NewFromConfig(cfg)
	cwClient := cloudwatch.NewFromConfig(cfg)

	now := time.Now().UTC()
	var snapshots []anomaly.ResourceSnapshot

	paginator := ec2.NewDescribeInstancesPaginator(ec2Client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.ProviderAPIError("aws", fmt.Errorf("%w: describe instances: %v", anomaly.ErrUnavailable, err))
		}
		for _, reservation := range page.Reservations {
			account := aws.ToString(reservation.OwnerId)
			for _, inst := range reservation.Instances {
				id := aws.ToString(inst.InstanceId)
				if id == "" {
					continue
				}
				state := "unknown"
				if inst.State != nil && inst.State.Name != "" {
					state = string(inst.State.Name)
				}
				if state == "terminated" {
					continue
				}

				cpu := 0.0
				if state == "running" {
					cpu = s.averageCPU(ctx, cwClient, id, windowHours)
				}
				score := waste.Score(cpu, string(inst.InstanceType), state)
				if score <= minWasteScore {
					continue
				}

				snapshots = append(snapshots, anomaly.ResourceSnapshot{
					ResourceID:     id,
					Service:        "EC2",
					Account:        account,
					Region:         s.cfg.Region,
					InstanceType:   string(inst.InstanceType),
					State:          state,
					CPUUtilization: aws.Float64(cpu),
					Cost:           aws.Float64(estimateDailyCost(string(inst.InstanceType), state)),
					WasteScore:     score,
					ObservedAt:     now,
				})
			}
		}
	}

	s.logger.Debugf("AWS snapshot scan kept %d instances above score %d", len(snapshots), minWasteScore)
	return snapshots, nil
}

// averageCPU returns the mean CPUUtilization over the window. A CloudWatch
// failure or empty result degrades to zero rather than failing the scan.
func (s *AWSSource) averageCPU(ctx context.Context, client *cloudwatch.Client, instanceID string, windowHours int) float64 {
	end := time.Now().UTC()
	start := end.Add(-time.Duration(windowHours) * time.Hour)

	out, err := client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/EC2"),
		MetricName: aws.String("CPUUtilization"),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("InstanceId"), Value: aws.String(instanceID)},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(3600),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil {
		s.logger.Warnf("CloudWatch CPU lookup failed for %s: %v", instanceID, err)
		return 0
	}
	if len(out.Datapoints) == 0 {
		return 0
	}
	sum := 0.0
	for _, dp := range out.Datapoints {
		sum += aws.ToFloat64(dp.Average)
	}
	return sum / float64(len(out.Datapoints))
}

// estimateDailyCost gives a rough on-demand daily cost by instance size so
// stopped or idle instances still carry a nonzero savings signal. Billing
// accuracy comes from Cost Explorer; this only ranks snapshots.
func estimateDailyCost(instanceType, state string) float64 {
	if state == "stopped" {
		// Stopped instances keep accruing EBS charges.
		return 0.8
	}
	hourly := 0.05
	switch {
	case strings.Contains(instanceType, "4xlarge"):
		hourly = 0.8
	case strings.Contains(instanceType, "2xlarge"):
		hourly = 0.4
	case strings.Contains(instanceType, "xlarge"):
		hourly = 0.2
	case strings.Contains(instanceType, "large"):
		hourly = 0.1
	}
	return hourly * 24
}
