package metricsource

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// CloudWatchSource reads request-rate and CPU series from CloudWatch and
// zips them into samples by period-aligned timestamp. Request rate comes
// from a Sum statistic divided by the period; CPU from an Average.
type CloudWatchSource struct {
	client        cloudwatchiface.CloudWatchAPI
	namespace     string
	rateMetric    string
	cpuMetric     string
	clusterName   string
	serviceName   string
	periodSeconds int
}

type CloudWatchConfig struct {
	Client        cloudwatchiface.CloudWatchAPI
	Namespace     string
	RateMetric    string
	CPUMetric     string
	ClusterName   string
	ServiceName   string
	PeriodSeconds int
}

func NewCloudWatchSource(cfg CloudWatchConfig) *CloudWatchSource {
	if cfg.Namespace == "" {
		cfg.Namespace = "AWS/ECS"
	}
	if cfg.RateMetric == "" {
		cfg.RateMetric = "RequestCount"
	}
	if cfg.CPUMetric == "" {
		cfg.CPUMetric = "CPUUtilization"
	}
	if cfg.PeriodSeconds <= 0 {
		cfg.PeriodSeconds = 60
	}

	return &CloudWatchSource{
		client:        cfg.Client,
		namespace:     cfg.Namespace,
		rateMetric:    cfg.RateMetric,
		cpuMetric:     cfg.CPUMetric,
		clusterName:   cfg.ClusterName,
		serviceName:   cfg.ServiceName,
		periodSeconds: cfg.PeriodSeconds,
	}
}

func (s *CloudWatchSource) GetRecentSamples(ctx context.Context, resourceID string, window time.Duration) (*models.SampleWindow, error) {
	end := time.Now()
	start := end.Add(-window)

	rates, err := s.fetchStatistics(ctx, s.rateMetric, cloudwatch.StatisticSum, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}

	cpus, err := s.fetchStatistics(ctx, s.cpuMetric, cloudwatch.StatisticAverage, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}

	samples := s.zip(rates, cpus)

	logger.WithResource(resourceID).Debugf("Fetched %d samples from CloudWatch", len(samples))

	return &models.SampleWindow{ResourceID: resourceID, Samples: samples}, nil
}

type datapoint struct {
	timestamp time.Time
	value     float64
}

func (s *CloudWatchSource) fetchStatistics(ctx context.Context, metricName, statistic string, start, end time.Time) ([]datapoint, error) {
	input := &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(s.namespace),
		MetricName: aws.String(metricName),
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int64(int64(s.periodSeconds)),
		Statistics: []*string{aws.String(statistic)},
		Dimensions: []*cloudwatch.Dimension{
			{Name: aws.String("ClusterName"), Value: aws.String(s.clusterName)},
			{Name: aws.String("ServiceName"), Value: aws.String(s.serviceName)},
		},
	}

	resp, err := s.client.GetMetricStatisticsWithContext(ctx, input)
	if err != nil {
		return nil, err
	}

	points := make([]datapoint, 0, len(resp.Datapoints))
	for _, dp := range resp.Datapoints {
		if dp.Timestamp == nil {
			continue
		}
		var value float64
		switch statistic {
		case cloudwatch.StatisticSum:
			if dp.Sum == nil {
				continue
			}
			// Convert a per-period count into a per-second rate.
			value = *dp.Sum / float64(s.periodSeconds)
		default:
			if dp.Average == nil {
				continue
			}
			value = *dp.Average
		}
		points = append(points, datapoint{timestamp: *dp.Timestamp, value: value})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].timestamp.Before(points[j].timestamp)
	})

	return points, nil
}

// zip aligns the two series by truncated period timestamp. Periods missing
// a CPU datapoint keep the rate and report CPU 0.
func (s *CloudWatchSource) zip(rates, cpus []datapoint) []models.MetricSample {
	period := time.Duration(s.periodSeconds) * time.Second

	cpuByPeriod := make(map[time.Time]float64, len(cpus))
	for _, dp := range cpus {
		cpuByPeriod[dp.timestamp.Truncate(period)] = dp.value
	}

	samples := make([]models.MetricSample, 0, len(rates))
	for _, dp := range rates {
		samples = append(samples, models.MetricSample{
			Timestamp:      dp.timestamp,
			RequestRate:    dp.value,
			CPUUtilization: cpuByPeriod[dp.timestamp.Truncate(period)],
		})
	}

	return samples
}

func (s *CloudWatchSource) HealthCheck(ctx context.Context) error {
	_, err := s.client.ListMetricsWithContext(ctx, &cloudwatch.ListMetricsInput{
		Namespace: aws.String(s.namespace),
	})
	if err != nil {
		return fmt.Errorf("cloudwatch health check failed: %w", err)
	}
	return nil
}

func (s *CloudWatchSource) Close() error {
	return nil
}
