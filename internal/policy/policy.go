package policy

import (
	"math"
	"time"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

type Config struct {
	MinCapacity         int
	MaxCapacity         int
	PerInstanceCapacity float64
	ScaleDownCooldown   time.Duration
	MinConfidence       float64
	// ScaleDownLoadFactor guards scale-downs: the observed request rate
	// must be below factor × capacity of the reduced fleet before a
	// decrease is issued.
	ScaleDownLoadFactor float64
}

// Policy turns a forecast plus current capacity state into a scaling
// decision. It is a pure function of its inputs; cooldown state is passed
// in by the caller and recorded externally after a scale-up is applied.
type Policy struct {
	config Config
}

func New(cfg Config) *Policy {
	if cfg.MaxCapacity == 0 {
		cfg.MaxCapacity = 20
	}
	if cfg.PerInstanceCapacity == 0 {
		cfg.PerInstanceCapacity = 50.0
	}
	if cfg.ScaleDownCooldown == 0 {
		cfg.ScaleDownCooldown = 5 * time.Minute
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 0.6
	}
	if cfg.ScaleDownLoadFactor == 0 {
		cfg.ScaleDownLoadFactor = 0.7
	}

	return &Policy{config: cfg}
}

// Decide computes the target desired count. Guards apply in order: clamp
// to configured bounds, scale-down cooldown after a recent increase, then
// the confidence gate. The gate applies to increases only, so a
// low-confidence forecast never blocks a decrease justified by observed
// low load.
func (p *Policy) Decide(
	resourceID string,
	current models.MetricSample,
	currentDesired int,
	fc models.Forecast,
	lastScaleUpAt *time.Time,
) *models.ScalingDecision {
	decision := &models.ScalingDecision{
		ResourceID:     resourceID,
		Timestamp:      time.Now(),
		CurrentDesired: currentDesired,
		TargetDesired:  currentDesired,
		TriggeredBy:    models.TriggerForecast,
		Confidence:     fc.Confidence,
	}

	rawTarget := int(math.Ceil(fc.PredictedRequestRate / p.config.PerInstanceCapacity))
	target := p.clamp(rawTarget)

	if target == currentDesired {
		decision.Reason = models.ReasonSteadyState
		logger.WithResource(resourceID).Debugf("Decision: maintain %d (steady-state)", currentDesired)
		return decision
	}

	if target > currentDesired {
		return p.decideIncrease(decision, target, rawTarget, fc)
	}

	return p.decideDecrease(decision, target, current, lastScaleUpAt)
}

// DecideDegraded is the decision used when the metric source failed: hold
// the current desired count and record why.
func (p *Policy) DecideDegraded(resourceID string, currentDesired int) *models.ScalingDecision {
	return &models.ScalingDecision{
		ResourceID:     resourceID,
		Timestamp:      time.Now(),
		CurrentDesired: currentDesired,
		TargetDesired:  currentDesired,
		Reason:         models.ReasonDegradedNoMetrics,
		TriggeredBy:    models.TriggerForecast,
	}
}

func (p *Policy) decideIncrease(decision *models.ScalingDecision, target, rawTarget int, fc models.Forecast) *models.ScalingDecision {
	// Forecast-driven increases are confidence-gated: a shaky forecast
	// never provisions capacity. Increases forced by the configured floor
	// are not forecast-driven and bypass the gate.
	floorDriven := rawTarget < p.config.MinCapacity

	if !floorDriven && fc.Confidence < p.config.MinConfidence {
		decision.Reason = models.ReasonLowConfidence
		logger.WithResource(decision.ResourceID).Infof(
			"Decision: maintain %d (confidence %.2f below %.2f)",
			decision.CurrentDesired, fc.Confidence, p.config.MinConfidence,
		)
		return decision
	}

	decision.TargetDesired = target
	if floorDriven {
		decision.Reason = models.ReasonCapacityFloor
		decision.TriggeredBy = models.TriggerManualFloor
	} else {
		decision.Reason = models.ReasonForecastScaleUp
	}

	logger.WithResource(decision.ResourceID).Infof(
		"Decision: scale up %d -> %d (reason: %s)",
		decision.CurrentDesired, target, decision.Reason,
	)

	return decision
}

func (p *Policy) decideDecrease(
	decision *models.ScalingDecision,
	target int,
	current models.MetricSample,
	lastScaleUpAt *time.Time,
) *models.ScalingDecision {
	if lastScaleUpAt != nil && time.Since(*lastScaleUpAt) < p.config.ScaleDownCooldown {
		decision.Reason = models.ReasonCooldownActive
		logger.WithResource(decision.ResourceID).Debugf(
			"Decision: maintain %d (scale-down cooldown active)", decision.CurrentDesired,
		)
		return decision
	}

	// Conservative guard: only shrink when observed load would still fit
	// comfortably on the reduced fleet.
	safeLoad := p.config.ScaleDownLoadFactor * p.config.PerInstanceCapacity * float64(target)
	if current.RequestRate > safeLoad {
		decision.Reason = models.ReasonScaleDownGuard
		logger.WithResource(decision.ResourceID).Debugf(
			"Decision: maintain %d (observed %.1f req/s above safe load %.1f)",
			decision.CurrentDesired, current.RequestRate, safeLoad,
		)
		return decision
	}

	decision.TargetDesired = target
	decision.Reason = models.ReasonScaleDown

	logger.WithResource(decision.ResourceID).Infof(
		"Decision: scale down %d -> %d",
		decision.CurrentDesired, target,
	)

	return decision
}

func (p *Policy) clamp(target int) int {
	if target < p.config.MinCapacity {
		target = p.config.MinCapacity
	}
	if target > p.config.MaxCapacity {
		target = p.config.MaxCapacity
	}
	if target < 0 {
		target = 0
	}
	return target
}
