package models

import "time"

type RemediationMode string

const (
	RemediationNone RemediationMode = "none"
	// RemediationDrain deregisters the instance from traffic, waits out a
	// configured grace period, then replaces it.
	RemediationDrain RemediationMode = "drain_and_replace"
	// RemediationForce terminates immediately with no drain.
	RemediationForce RemediationMode = "force_replace"
)

// RemediationAction is one replace decision for a stuck instance.
type RemediationAction struct {
	InstanceID string          `json:"instance_id"`
	Action     RemediationMode `json:"action"`
	Reason     string          `json:"reason"`
	Timestamp  time.Time       `json:"timestamp"`
}
