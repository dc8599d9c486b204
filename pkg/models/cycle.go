package models

import "time"

// Stage names used in cycle error records.
const (
	StageFetchMetrics  = "fetch_metrics"
	StageForecast      = "forecast"
	StageDecideScale   = "decide_scale"
	StageDecideHealth  = "decide_health"
	StageApplyScale    = "apply_scale"
	StageApplyHealth   = "apply_health"
	StageNotify        = "notify"
	StageTelemetry     = "telemetry"
)

type ErrorSeverity string

const (
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
)

// CycleError is one isolated stage failure. Failures never abort a cycle;
// they are collected here and the cycle proceeds with degraded inputs.
type CycleError struct {
	Stage    string        `json:"stage"`
	Message  string        `json:"message"`
	Severity ErrorSeverity `json:"severity"`
}

// CycleRecord is the unit of telemetry and notification: one per
// evaluation, emitted whether or not any action fired. Append-only, never
// mutated after emission.
type CycleRecord struct {
	CycleID            string              `json:"cycle_id"`
	ResourceID         string              `json:"resource_id"`
	Timestamp          time.Time           `json:"timestamp"`
	ScalingDecision    *ScalingDecision    `json:"scaling_decision,omitempty"`
	RemediationActions []RemediationAction `json:"remediation_actions,omitempty"`
	Errors             []CycleError        `json:"errors,omitempty"`
}

func NewCycleRecord(resourceID string) *CycleRecord {
	return &CycleRecord{
		CycleID:    NewUUID(),
		ResourceID: resourceID,
		Timestamp:  time.Now(),
	}
}

// AddError appends a stage failure with error severity.
func (c *CycleRecord) AddError(stage, message string) {
	c.Errors = append(c.Errors, CycleError{Stage: stage, Message: message, Severity: SeverityError})
}

// AddWarning appends a stage failure with warning severity. Telemetry
// append failures are the canonical case: they compromise auditability but
// must not abort the cycle.
func (c *CycleRecord) AddWarning(stage, message string) {
	c.Errors = append(c.Errors, CycleError{Stage: stage, Message: message, Severity: SeverityWarning})
}

func (c *CycleRecord) HasErrors() bool {
	return len(c.Errors) > 0
}
