package orchestration

import (
	"context"
	"errors"

	"github.com/fleetpilot/fleetpilot/pkg/models"
)

var (
	// ErrUnavailable marks transient transport failures; callers may retry
	// within the same cycle.
	ErrUnavailable = errors.New("orchestration API unavailable")
	// ErrRejected marks requests the orchestration layer refused (bad
	// parameters, unknown resource). Never retried.
	ErrRejected = errors.New("orchestration request rejected")
)

type ReplaceMode string

const (
	// ReplaceModeDrain deregisters the instance from traffic and waits out
	// a grace period before terminating it.
	ReplaceModeDrain ReplaceMode = "drain"
	// ReplaceModeForce terminates immediately.
	ReplaceModeForce ReplaceMode = "force"
)

// API is the narrow boundary to the container-orchestration service.
type API interface {
	// GetDesiredCount returns the currently configured desired capacity.
	GetDesiredCount(ctx context.Context, resourceID string) (int, error)

	// SetDesiredCount updates the desired capacity.
	SetDesiredCount(ctx context.Context, resourceID string, count int) error

	// ListInstances returns the current fleet inventory with raw health
	// status per instance.
	ListInstances(ctx context.Context, resourceID string) ([]models.Instance, error)

	// ReplaceInstance terminates an instance so the orchestration layer
	// provisions a replacement.
	ReplaceInstance(ctx context.Context, resourceID, instanceID string, mode ReplaceMode) error

	// Close releases resources
	Close() error
}
