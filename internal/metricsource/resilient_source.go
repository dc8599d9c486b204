package metricsource

import (
	"context"
	"time"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/internal/resilience"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// ResilientSource wraps a Source with bounded retries and a circuit
// breaker. Exhausted retries surface the last error; an open circuit fails
// fast without touching the backend.
type ResilientSource struct {
	source         Source
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientSourceConfig struct {
	Source        Source
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientSource(cfg ResilientSourceConfig) *ResilientSource {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "metric_source",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientSource{
		source:         cfg.Source,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (s *ResilientSource) GetRecentSamples(ctx context.Context, resourceID string, window time.Duration) (*models.SampleWindow, error) {
	var samples *models.SampleWindow
	var lastErr error

	err := s.circuitBreaker.Execute(func() error {
		for attempt := 1; attempt <= s.retryAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var err error
			samples, err = s.source.GetRecentSamples(ctx, resourceID, window)
			if err == nil {
				return nil
			}

			lastErr = err
			logger.WithResource(resourceID).Warnf(
				"Sample fetch attempt %d/%d failed: %v",
				attempt, s.retryAttempts, err,
			)

			if attempt < s.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.retryDelay):
				}
			}
		}
		return lastErr
	})

	if err != nil {
		return nil, err
	}

	return samples, nil
}

func (s *ResilientSource) HealthCheck(ctx context.Context) error {
	return s.source.HealthCheck(ctx)
}

func (s *ResilientSource) Close() error {
	return s.source.Close()
}

func (s *ResilientSource) CircuitState() resilience.State {
	return s.circuitBreaker.State()
}
