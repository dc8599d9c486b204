package metricsource

import (
	"context"
	"errors"
	"time"

	"github.com/fleetpilot/fleetpilot/pkg/models"
)

var (
	ErrMetricsUnavailable = errors.New("metrics unavailable")
	ErrTimeout            = errors.New("metric fetch timeout")
	ErrInvalidResponse    = errors.New("invalid response from metric source")
)

// Source fetches recent load samples for a resource. A short or empty
// window is a valid result; transport failures surface as
// ErrMetricsUnavailable and the caller degrades to a confidence-0 forecast.
type Source interface {
	// GetRecentSamples returns samples for the lookback window, ordered
	// most-recent-last.
	GetRecentSamples(ctx context.Context, resourceID string, window time.Duration) (*models.SampleWindow, error)

	// HealthCheck verifies the source can reach its backend
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the source
	Close() error
}
