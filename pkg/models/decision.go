package models

import "time"

type DecisionTrigger string

const (
	TriggerForecast    DecisionTrigger = "forecast"
	TriggerManualFloor DecisionTrigger = "manual_floor"
)

// Well-known decision reasons. Reasons are free-form strings; these are the
// ones the policy emits itself.
const (
	ReasonSteadyState       = "steady-state"
	ReasonForecastScaleUp   = "forecast-scale-up"
	ReasonScaleDown         = "scale-down"
	ReasonCooldownActive    = "cooldown-active"
	ReasonLowConfidence     = "low-confidence"
	ReasonScaleDownGuard    = "scale-down-guard"
	ReasonCapacityFloor     = "capacity-floor"
	ReasonDegradedNoMetrics = "degraded-no-metrics"
)

// ScalingDecision is the output of one policy evaluation. TargetDesired is
// always clamped to the configured capacity bounds and never negative.
type ScalingDecision struct {
	ResourceID     string          `json:"resource_id"`
	Timestamp      time.Time       `json:"timestamp"`
	CurrentDesired int             `json:"current_desired"`
	TargetDesired  int             `json:"target_desired"`
	Reason         string          `json:"reason"`
	TriggeredBy    DecisionTrigger `json:"triggered_by"`
	Confidence     float64         `json:"confidence,omitempty"`
}

func (d *ScalingDecision) Delta() int {
	return d.TargetDesired - d.CurrentDesired
}

// ShouldExecute reports whether the decision calls for a mutating action.
func (d *ScalingDecision) ShouldExecute() bool {
	return d.TargetDesired != d.CurrentDesired
}

func (d *ScalingDecision) IsScaleUp() bool {
	return d.TargetDesired > d.CurrentDesired
}
