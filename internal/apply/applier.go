package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/internal/orchestration"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

type Config struct {
	// RetryAttempts is the number of retries after the first attempt for
	// transient orchestration failures. Rejected requests never retry.
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Applier executes scaling and remediation decisions against the
// orchestration API. Scaling and remediation are applied independently: a
// failure in one never blocks the other, and every sub-action failure is
// collected rather than raised.
type Applier struct {
	api    orchestration.API
	config Config
}

// Result reports what actually happened during application.
type Result struct {
	// ScaleApplied is true when a mutating desired-count call was issued.
	ScaleApplied bool
	// ScaleSkipped is true when the observed desired count already
	// matched the target and no call was made.
	ScaleSkipped bool
	// Remediated holds the actions that were applied successfully.
	Remediated []models.RemediationAction
	// Errors holds every sub-action failure.
	Errors []models.CycleError
}

func New(api orchestration.API, cfg Config) *Applier {
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	return &Applier{api: api, config: cfg}
}

func (a *Applier) Apply(ctx context.Context, resourceID string, decision *models.ScalingDecision, actions []models.RemediationAction) *Result {
	result := &Result{}

	a.applyScaling(ctx, resourceID, decision, result)
	a.applyRemediation(ctx, resourceID, actions, result)

	return result
}

func (a *Applier) applyScaling(ctx context.Context, resourceID string, decision *models.ScalingDecision, result *Result) {
	if decision == nil || !decision.ShouldExecute() {
		return
	}

	// Re-read the observed desired count immediately before mutating.
	// This both makes repeated identical decisions no-ops and resolves
	// read-modify-write races with overlapping invocations without
	// locking.
	var observed int
	err := a.retry(ctx, func() error {
		var inner error
		observed, inner = a.api.GetDesiredCount(ctx, resourceID)
		return inner
	})
	if err != nil {
		result.Errors = append(result.Errors, models.CycleError{
			Stage:    models.StageApplyScale,
			Message:  fmt.Sprintf("failed to read desired count: %v", err),
			Severity: models.SeverityError,
		})
		return
	}

	if observed == decision.TargetDesired {
		result.ScaleSkipped = true
		logger.WithResource(resourceID).Debugf(
			"Scale apply skipped: observed desired count already %d", observed,
		)
		return
	}

	err = a.retry(ctx, func() error {
		return a.api.SetDesiredCount(ctx, resourceID, decision.TargetDesired)
	})
	if err != nil {
		result.Errors = append(result.Errors, models.CycleError{
			Stage:    models.StageApplyScale,
			Message:  fmt.Sprintf("failed to set desired count to %d: %v", decision.TargetDesired, err),
			Severity: models.SeverityError,
		})
		return
	}

	result.ScaleApplied = true
	logger.WithResource(resourceID).Infof(
		"Applied scaling: %d -> %d (%s)",
		observed, decision.TargetDesired, decision.Reason,
	)
}

func (a *Applier) applyRemediation(ctx context.Context, resourceID string, actions []models.RemediationAction, result *Result) {
	for _, action := range actions {
		mode := orchestration.ReplaceModeDrain
		if action.Action == models.RemediationForce {
			mode = orchestration.ReplaceModeForce
		}

		err := a.retry(ctx, func() error {
			return a.api.ReplaceInstance(ctx, resourceID, action.InstanceID, mode)
		})
		if err != nil {
			result.Errors = append(result.Errors, models.CycleError{
				Stage:    models.StageApplyHealth,
				Message:  fmt.Sprintf("failed to replace instance %s: %v", action.InstanceID, err),
				Severity: models.SeverityError,
			})
			continue
		}

		result.Remediated = append(result.Remediated, action)
		logger.WithResource(resourceID).Infof(
			"Replaced instance %s (mode: %s, reason: %s)",
			action.InstanceID, mode, action.Reason,
		)
	}
}

// retry runs fn, retrying transient orchestration failures with
// exponential backoff. Rejections and context cancellation return
// immediately.
func (a *Applier) retry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= a.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := a.config.RetryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, orchestration.ErrUnavailable) {
			return lastErr
		}

		logger.Warnf("Transient orchestration failure (attempt %d/%d): %v",
			attempt+1, a.config.RetryAttempts+1, lastErr)
	}

	return lastErr
}
