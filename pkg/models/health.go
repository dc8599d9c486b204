package models

import "time"

type InstanceStatus string

const (
	StatusHealthy  InstanceStatus = "healthy"
	StatusDegraded InstanceStatus = "degraded"
	StatusStuck    InstanceStatus = "stuck"
)

// Instance is one member of the fleet as reported by the orchestration API.
type Instance struct {
	InstanceID string `json:"instance_id"`
	RawStatus  string `json:"raw_status"`
}

// InstanceHealthRecord tracks per-instance health hysteresis across cycles.
// It is the only durable mutable state the agent owns: records are loaded
// from the state store at cycle start, updated, and written back at the end.
// A record is discarded when its instance disappears from the fleet.
type InstanceHealthRecord struct {
	InstanceID           string         `json:"instance_id"`
	Status               InstanceStatus `json:"status"`
	ConsecutiveUnhealthy int            `json:"consecutive_unhealthy"`
	LastSeenHealthyAt    *time.Time     `json:"last_seen_healthy_at,omitempty"`
	// ReplaceGeneration counts replacements issued for this instance id.
	// A stuck observation with a non-zero generation means a prior graceful
	// replace did not resolve the problem and remediation escalates.
	ReplaceGeneration int        `json:"replace_generation"`
	LastRemediatedAt  *time.Time `json:"last_remediated_at,omitempty"`
}

func (r *InstanceHealthRecord) IsStuck() bool {
	return r.Status == StatusStuck
}
