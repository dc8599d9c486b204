package remediate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetpilot/fleetpilot/pkg/models"
)

func stuckRecord(id string, generation int) *models.InstanceHealthRecord {
	return &models.InstanceHealthRecord{
		InstanceID:           id,
		Status:               models.StatusStuck,
		ConsecutiveUnhealthy: 3,
		ReplaceGeneration:    generation,
	}
}

func TestRemediator_Decide_NoStuckInstances(t *testing.T) {
	r := New(Config{MaxFleetFraction: 0.25})

	records := map[string]*models.InstanceHealthRecord{
		"i-1": {InstanceID: "i-1", Status: models.StatusHealthy},
		"i-2": {InstanceID: "i-2", Status: models.StatusDegraded, ConsecutiveUnhealthy: 2},
	}

	assert.Nil(t, r.Decide(records, 2))
}

func TestRemediator_Decide_FirstReplacementDrains(t *testing.T) {
	r := New(Config{MaxFleetFraction: 0.25})

	records := map[string]*models.InstanceHealthRecord{
		"i-1": stuckRecord("i-1", 0),
	}

	actions := r.Decide(records, 4)

	assert.Len(t, actions, 1)
	assert.Equal(t, "i-1", actions[0].InstanceID)
	assert.Equal(t, models.RemediationDrain, actions[0].Action)
}

func TestRemediator_Decide_RepeatOffenderEscalatesToForce(t *testing.T) {
	r := New(Config{MaxFleetFraction: 0.25})

	records := map[string]*models.InstanceHealthRecord{
		"i-1": stuckRecord("i-1", 1),
	}

	actions := r.Decide(records, 4)

	assert.Len(t, actions, 1)
	assert.Equal(t, models.RemediationForce, actions[0].Action)
}

func TestRemediator_Decide_CapsAtFleetFraction(t *testing.T) {
	r := New(Config{MaxFleetFraction: 0.25})

	records := map[string]*models.InstanceHealthRecord{
		"i-1": stuckRecord("i-1", 0),
		"i-2": stuckRecord("i-2", 0),
		"i-3": stuckRecord("i-3", 2),
	}

	// ceil(0.25 * 8) = 2; the escalation wins a slot first.
	actions := r.Decide(records, 8)

	assert.Len(t, actions, 2)
	assert.Equal(t, "i-3", actions[0].InstanceID)
	assert.Equal(t, models.RemediationForce, actions[0].Action)
	assert.Equal(t, "i-1", actions[1].InstanceID)
}

func TestRemediator_Decide_AlwaysAllowsOneAction(t *testing.T) {
	r := New(Config{MaxFleetFraction: 0.25})

	records := map[string]*models.InstanceHealthRecord{
		"i-1": stuckRecord("i-1", 0),
		"i-2": stuckRecord("i-2", 0),
	}

	// ceil(0.25 * 1) = 1: a tiny fleet can still heal.
	actions := r.Decide(records, 1)

	assert.Len(t, actions, 1)
}

func TestRemediator_Decide_DeterministicOrder(t *testing.T) {
	r := New(Config{MaxFleetFraction: 1.0})

	records := map[string]*models.InstanceHealthRecord{
		"i-c": stuckRecord("i-c", 0),
		"i-a": stuckRecord("i-a", 0),
		"i-b": stuckRecord("i-b", 0),
	}

	actions := r.Decide(records, 12)

	assert.Len(t, actions, 3)
	assert.Equal(t, "i-a", actions[0].InstanceID)
	assert.Equal(t, "i-b", actions[1].InstanceID)
	assert.Equal(t, "i-c", actions[2].InstanceID)
}
