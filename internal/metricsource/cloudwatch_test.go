package metricsource

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	cloudwatchiface.CloudWatchAPI

	byMetric map[string][]*cloudwatch.Datapoint
	err      error
}

func (f *fakeCloudWatch) GetMetricStatisticsWithContext(ctx aws.Context, input *cloudwatch.GetMetricStatisticsInput, opts ...request.Option) (*cloudwatch.GetMetricStatisticsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.GetMetricStatisticsOutput{
		Datapoints: f.byMetric[aws.StringValue(input.MetricName)],
	}, nil
}

func TestCloudWatchSource_GetRecentSamples(t *testing.T) {
	t1 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	f := &fakeCloudWatch{
		byMetric: map[string][]*cloudwatch.Datapoint{
			// Returned out of order; the source must sort ascending.
			"RequestCount": {
				{Timestamp: aws.Time(t2), Sum: aws.Float64(7200)},
				{Timestamp: aws.Time(t1), Sum: aws.Float64(6000)},
			},
			"CPUUtilization": {
				{Timestamp: aws.Time(t1), Average: aws.Float64(40)},
				{Timestamp: aws.Time(t2), Average: aws.Float64(55)},
			},
		},
	}

	s := NewCloudWatchSource(CloudWatchConfig{
		Client:        f,
		ClusterName:   "prod-cluster",
		ServiceName:   "web-app",
		PeriodSeconds: 60,
	})

	window, err := s.GetRecentSamples(context.Background(), "web-app", 10*time.Minute)

	require.NoError(t, err)
	require.Len(t, window.Samples, 2)

	// 6000 requests over a 60s period is 100 req/s.
	assert.Equal(t, 100.0, window.Samples[0].RequestRate)
	assert.Equal(t, 40.0, window.Samples[0].CPUUtilization)
	assert.Equal(t, 120.0, window.Samples[1].RequestRate)
	assert.Equal(t, 55.0, window.Samples[1].CPUUtilization)
	assert.True(t, window.Samples[0].Timestamp.Before(window.Samples[1].Timestamp))
}

func TestCloudWatchSource_MissingCPUDatapoint(t *testing.T) {
	t1 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	f := &fakeCloudWatch{
		byMetric: map[string][]*cloudwatch.Datapoint{
			"RequestCount": {
				{Timestamp: aws.Time(t1), Sum: aws.Float64(3000)},
			},
		},
	}

	s := NewCloudWatchSource(CloudWatchConfig{Client: f, PeriodSeconds: 60})

	window, err := s.GetRecentSamples(context.Background(), "web-app", time.Hour)

	require.NoError(t, err)
	require.Len(t, window.Samples, 1)
	assert.Equal(t, 50.0, window.Samples[0].RequestRate)
	assert.Equal(t, 0.0, window.Samples[0].CPUUtilization)
}

func TestCloudWatchSource_APIFailure(t *testing.T) {
	f := &fakeCloudWatch{err: awserr.New("Throttling", "rate exceeded", nil)}

	s := NewCloudWatchSource(CloudWatchConfig{Client: f})

	_, err := s.GetRecentSamples(context.Background(), "web-app", time.Hour)

	assert.ErrorIs(t, err, ErrMetricsUnavailable)
}
