package statestore

import (
	"context"
	"time"

	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// AgentState is the only durable mutable state the agent owns: health
// hysteresis counters and the last scale-up timestamp that drives the
// scale-down cooldown. It is loaded at the start of a cycle and written
// back at the end, keeping the decision core a pure function of (inputs,
// prior state).
type AgentState struct {
	ResourceID    string                                  `json:"resource_id"`
	LastScaleUpAt *time.Time                              `json:"last_scale_up_at,omitempty"`
	Health        map[string]*models.InstanceHealthRecord `json:"health"`
	UpdatedAt     time.Time                               `json:"updated_at"`
}

// NewAgentState returns an empty state for a resource seen for the first
// time (or after state was lost; hysteresis then rebuilds from fresh
// observations rather than drifting unbounded).
func NewAgentState(resourceID string) *AgentState {
	return &AgentState{
		ResourceID: resourceID,
		Health:     make(map[string]*models.InstanceHealthRecord),
	}
}

type Store interface {
	// Load returns the persisted state for a resource; found is false
	// when none exists yet.
	Load(ctx context.Context, resourceID string) (state *AgentState, found bool, err error)

	// Save persists the state, replacing any previous version.
	Save(ctx context.Context, state *AgentState) error

	// Close releases backend resources
	Close() error
}
