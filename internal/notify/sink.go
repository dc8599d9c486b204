package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// Sink receives the human-readable side of a cycle record. Send failures
// are logged by the caller and never fatal to the cycle.
type Sink interface {
	Send(ctx context.Context, record *models.CycleRecord) error
}

// Summarize renders a cycle record as a short human-readable message.
// Cycles that took no action still produce a line so the feed shows the
// agent is alive; degraded cycles say what went wrong.
func Summarize(record *models.CycleRecord) string {
	var parts []string

	if d := record.ScalingDecision; d != nil {
		switch {
		case d.ShouldExecute():
			arrow := ":rocket:"
			if !d.IsScaleUp() {
				arrow = ":chart_with_downwards_trend:"
			}
			parts = append(parts, fmt.Sprintf(
				"%s Scaling %s: desired %d -> %d (%s)",
				arrow, record.ResourceID, d.CurrentDesired, d.TargetDesired, d.Reason,
			))
		case d.Reason == models.ReasonDegradedNoMetrics:
			parts = append(parts, fmt.Sprintf(
				":grey_question: Scaling skipped for %s: metrics unavailable", record.ResourceID,
			))
		default:
			parts = append(parts, fmt.Sprintf(
				"%s steady at %d (%s)", record.ResourceID, d.CurrentDesired, d.Reason,
			))
		}
	}

	for _, action := range record.RemediationActions {
		parts = append(parts, fmt.Sprintf(
			":wrench: Self-heal: %s on %s (%s)",
			action.Action, action.InstanceID, action.Reason,
		))
	}

	for _, cycleErr := range record.Errors {
		icon := ":x:"
		if cycleErr.Severity == models.SeverityWarning {
			icon = ":warning:"
		}
		parts = append(parts, fmt.Sprintf("%s [%s] %s", icon, cycleErr.Stage, cycleErr.Message))
	}

	return strings.Join(parts, "\n")
}
