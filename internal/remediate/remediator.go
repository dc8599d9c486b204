package remediate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

type Config struct {
	// MaxFleetFraction caps how much of the fleet may be replaced in one
	// cycle. The cap is max(1, ceil(fraction × fleetSize)), bounding the
	// blast radius of a bad health signal.
	MaxFleetFraction float64
}

// Remediator decides which stuck instances to replace and how. A first
// replacement is graceful (drain); an instance that comes back stuck after
// a prior replacement escalates to a forced one.
type Remediator struct {
	config Config
}

func New(cfg Config) *Remediator {
	if cfg.MaxFleetFraction <= 0 || cfg.MaxFleetFraction > 1 {
		cfg.MaxFleetFraction = 0.25
	}

	return &Remediator{config: cfg}
}

func (r *Remediator) Decide(records map[string]*models.InstanceHealthRecord, fleetSize int) []models.RemediationAction {
	stuck := make([]*models.InstanceHealthRecord, 0)
	for _, record := range records {
		if record.IsStuck() {
			stuck = append(stuck, record)
		}
	}
	if len(stuck) == 0 {
		return nil
	}

	// Escalations first: an instance that already survived a replacement
	// is the strongest signal. Ties break on instance id for determinism.
	sort.Slice(stuck, func(i, j int) bool {
		if stuck[i].ReplaceGeneration != stuck[j].ReplaceGeneration {
			return stuck[i].ReplaceGeneration > stuck[j].ReplaceGeneration
		}
		return stuck[i].InstanceID < stuck[j].InstanceID
	})

	limit := r.maxActions(fleetSize)
	if len(stuck) > limit {
		logger.Warnf("Capping remediation at %d of %d stuck instances", limit, len(stuck))
		stuck = stuck[:limit]
	}

	actions := make([]models.RemediationAction, 0, len(stuck))
	for _, record := range stuck {
		actions = append(actions, r.actionFor(record))
	}

	return actions
}

func (r *Remediator) actionFor(record *models.InstanceHealthRecord) models.RemediationAction {
	action := models.RemediationAction{
		InstanceID: record.InstanceID,
		Timestamp:  time.Now(),
	}

	if record.ReplaceGeneration > 0 {
		action.Action = models.RemediationForce
		action.Reason = fmt.Sprintf(
			"stuck after %d prior replacement(s), escalating to force",
			record.ReplaceGeneration,
		)
	} else {
		action.Action = models.RemediationDrain
		action.Reason = fmt.Sprintf(
			"stuck after %d consecutive unhealthy checks",
			record.ConsecutiveUnhealthy,
		)
	}

	return action
}

func (r *Remediator) maxActions(fleetSize int) int {
	if fleetSize <= 0 {
		return 1
	}

	limit := int(math.Ceil(r.config.MaxFleetFraction * float64(fleetSize)))
	if limit < 1 {
		limit = 1
	}
	return limit
}
