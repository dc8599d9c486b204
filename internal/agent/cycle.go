package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
	"github.com/fleetpilot/fleetpilot/pkg/statestore"
)

// RunCycle executes one full evaluation. Stage failures are isolated: a
// failed metric fetch degrades the scaling decision, a failed fleet listing
// skips remediation, and reporting always runs. The returned record is
// complete and already persisted/notified.
func (a *Agent) RunCycle(ctx context.Context) *models.CycleRecord {
	started := time.Now()
	resourceID := a.config.Agent.ResourceID
	record := models.NewCycleRecord(resourceID)

	log := logger.WithCycle(record.CycleID)
	log.Debug("Cycle started")

	state := a.loadState(ctx, resourceID, record)

	decision := a.decideScaling(ctx, resourceID, state, record)
	actions := a.decideHealth(ctx, resourceID, state, record)

	a.applyActions(ctx, state, record, decision, actions)

	a.saveState(ctx, state, record)
	a.report(ctx, record)

	if a.metrics != nil {
		a.metrics.ObserveCycle(record, time.Since(started).Seconds())
	}
	a.setLatestRecord(record)

	log.WithField("errors", len(record.Errors)).Debugf(
		"Cycle finished in %s", time.Since(started).Round(time.Millisecond),
	)

	return record
}

func (a *Agent) loadState(ctx context.Context, resourceID string, record *models.CycleRecord) *statestore.AgentState {
	state, found, err := a.store.Load(ctx, resourceID)
	if err != nil {
		record.AddWarning(models.StageFetchMetrics, fmt.Sprintf("failed to load agent state: %v", err))
	}
	if err != nil || !found {
		return statestore.NewAgentState(resourceID)
	}
	return state
}

// decideScaling produces the cycle's scaling decision. When the desired
// count cannot be read no decision is possible; when only the metric fetch
// fails the decision degrades to holding the current count.
func (a *Agent) decideScaling(ctx context.Context, resourceID string, state *statestore.AgentState, record *models.CycleRecord) *models.ScalingDecision {
	currentDesired, err := a.api.GetDesiredCount(ctx, resourceID)
	if err != nil {
		record.AddError(models.StageDecideScale, fmt.Sprintf("failed to read desired count: %v", err))
		return nil
	}

	window, err := a.source.GetRecentSamples(ctx, resourceID, a.config.Metrics.Lookback)
	if err != nil {
		record.AddError(models.StageFetchMetrics, fmt.Sprintf("metric fetch failed: %v", err))
		return a.policy.DecideDegraded(resourceID, currentDesired)
	}

	fc := a.forecaster.Forecast(window, a.config.Forecast.HorizonSeconds)
	if a.metrics != nil {
		a.metrics.ObserveForecast(&fc)
	}

	var current models.MetricSample
	if window != nil {
		if latest, ok := window.Latest(); ok {
			current = latest
		}
	}

	return a.policy.Decide(resourceID, current, currentDesired, fc, state.LastScaleUpAt)
}

// decideHealth classifies the fleet and picks remediation actions. The
// hysteresis counters in state are advanced here even when no instance is
// stuck yet.
func (a *Agent) decideHealth(ctx context.Context, resourceID string, state *statestore.AgentState, record *models.CycleRecord) []models.RemediationAction {
	instances, err := a.api.ListInstances(ctx, resourceID)
	if err != nil {
		record.AddError(models.StageDecideHealth, fmt.Sprintf("failed to list instances: %v", err))
		return nil
	}

	state.Health = a.inspector.ClassifyFleet(instances, state.Health)

	stuck := 0
	for _, r := range state.Health {
		if r.IsStuck() {
			stuck++
		}
	}
	if a.metrics != nil {
		a.metrics.SetStuckInstances(stuck)
	}

	return a.remediator.Decide(state.Health, len(instances))
}

func (a *Agent) applyActions(
	ctx context.Context,
	state *statestore.AgentState,
	record *models.CycleRecord,
	decision *models.ScalingDecision,
	actions []models.RemediationAction,
) {
	result := a.applier.Apply(ctx, a.config.Agent.ResourceID, decision, actions)

	record.ScalingDecision = decision
	record.RemediationActions = result.Remediated
	record.Errors = append(record.Errors, result.Errors...)

	now := time.Now()

	if result.ScaleApplied && decision.IsScaleUp() {
		state.LastScaleUpAt = &now
	}

	// A successful replacement bumps the generation so a recurrence
	// escalates to a forced replace.
	for _, action := range result.Remediated {
		if h := state.Health[action.InstanceID]; h != nil {
			h.ReplaceGeneration++
			h.LastRemediatedAt = &now
			h.ConsecutiveUnhealthy = 0
			h.Status = models.StatusDegraded
		}
	}
}

func (a *Agent) saveState(ctx context.Context, state *statestore.AgentState, record *models.CycleRecord) {
	state.UpdatedAt = time.Now()
	if err := a.store.Save(ctx, state); err != nil {
		record.AddWarning(models.StageTelemetry, fmt.Sprintf("failed to save agent state: %v", err))
	}
}

// report emits the record to the notification sink and the telemetry
// recorder. Both are best-effort: failures are logged and recorded as
// warnings but never abort the cycle.
func (a *Agent) report(ctx context.Context, record *models.CycleRecord) {
	if a.sink != nil {
		if err := a.sink.Send(ctx, record); err != nil {
			record.AddWarning(models.StageNotify, fmt.Sprintf("notification failed: %v", err))
			logger.WithCycle(record.CycleID).Warnf("Notification failed: %v", err)
		}
	}

	if a.recorder != nil {
		if err := a.recorder.Append(ctx, record); err != nil {
			record.AddWarning(models.StageTelemetry, fmt.Sprintf("telemetry append failed: %v", err))
			logger.WithCycle(record.CycleID).Warnf("Telemetry append failed: %v", err)
		}
	}
}
