package metricsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// HTTPSource fetches samples from a JSON endpoint and extracts fields with
// gjson paths, so any metrics API that can emit a sample array works
// without a bespoke client.
type HTTPSource struct {
	client        *http.Client
	endpoint      string
	samplesPath   string
	timestampPath string
	ratePath      string
	cpuPath       string
}

type HTTPSourceConfig struct {
	Endpoint string
	Timeout  time.Duration

	// gjson paths; SamplesPath selects the sample array, the remaining
	// paths are evaluated relative to each element.
	SamplesPath   string
	TimestampPath string
	RatePath      string
	CPUPath       string
}

func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if cfg.SamplesPath == "" {
		cfg.SamplesPath = "samples"
	}
	if cfg.TimestampPath == "" {
		cfg.TimestampPath = "timestamp"
	}
	if cfg.RatePath == "" {
		cfg.RatePath = "request_rate"
	}
	if cfg.CPUPath == "" {
		cfg.CPUPath = "cpu_utilization"
	}

	return &HTTPSource{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint:      cfg.Endpoint,
		samplesPath:   cfg.SamplesPath,
		timestampPath: cfg.TimestampPath,
		ratePath:      cfg.RatePath,
		cpuPath:       cfg.CPUPath,
	}
}

func (s *HTTPSource) GetRecentSamples(ctx context.Context, resourceID string, window time.Duration) (*models.SampleWindow, error) {
	url := fmt.Sprintf("%s/%s?window=%d", s.endpoint, resourceID, int(window.Seconds()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrMetricsUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	logger.WithResource(resourceID).Debugf("Fetching samples from %s", url)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrMetricsUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrMetricsUnavailable, err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrInvalidResponse)
	}

	samples, err := s.extractSamples(body)
	if err != nil {
		return nil, err
	}

	logger.WithResource(resourceID).Debugf("Fetched %d samples", len(samples))

	return &models.SampleWindow{ResourceID: resourceID, Samples: samples}, nil
}

func (s *HTTPSource) extractSamples(body []byte) ([]models.MetricSample, error) {
	array := gjson.GetBytes(body, s.samplesPath)
	if !array.Exists() || !array.IsArray() {
		return nil, fmt.Errorf("%w: path %q did not resolve to an array", ErrInvalidResponse, s.samplesPath)
	}

	var samples []models.MetricSample
	for _, elem := range array.Array() {
		ts, err := parseTimestamp(elem.Get(s.timestampPath))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}

		samples = append(samples, models.MetricSample{
			Timestamp:      ts,
			RequestRate:    elem.Get(s.ratePath).Float(),
			CPUUtilization: elem.Get(s.cpuPath).Float(),
			DesiredCount:   int(elem.Get("desired_count").Int()),
			RunningCount:   int(elem.Get("running_count").Int()),
			HealthyCount:   int(elem.Get("healthy_count").Int()),
		})
	}

	return samples, nil
}

// parseTimestamp accepts RFC3339 strings or Unix seconds.
func parseTimestamp(value gjson.Result) (time.Time, error) {
	if value.Type == gjson.String {
		ts, err := time.Parse(time.RFC3339, value.String())
		if err != nil {
			return time.Time{}, fmt.Errorf("bad timestamp %q: %v", value.String(), err)
		}
		return ts, nil
	}
	if value.Type == gjson.Number {
		return time.Unix(value.Int(), 0), nil
	}
	return time.Time{}, fmt.Errorf("missing timestamp field")
}

func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", s.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
