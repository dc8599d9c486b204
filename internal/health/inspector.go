package health

import (
	"strings"
	"time"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

type Config struct {
	// UnhealthyThreshold is the number of consecutive non-OK checks before
	// an instance is declared stuck.
	UnhealthyThreshold int
	// OKStatuses are raw status values treated as serving. Matching is
	// case-insensitive.
	OKStatuses []string
}

// Inspector classifies fleet instances with per-instance hysteresis:
// healthy → degraded on the first non-OK check, degraded → stuck after
// UnhealthyThreshold consecutive non-OK checks, and any OK check resets to
// healthy. A single transient failed check therefore never triggers a
// replacement.
type Inspector struct {
	config     Config
	okStatuses map[string]bool
}

func New(cfg Config) *Inspector {
	if cfg.UnhealthyThreshold <= 0 {
		cfg.UnhealthyThreshold = 3
	}
	if len(cfg.OKStatuses) == 0 {
		cfg.OKStatuses = []string{"RUNNING", "HEALTHY"}
	}

	ok := make(map[string]bool, len(cfg.OKStatuses))
	for _, s := range cfg.OKStatuses {
		ok[strings.ToUpper(s)] = true
	}

	return &Inspector{config: cfg, okStatuses: ok}
}

// Classify advances one instance's state machine by one observation. A nil
// previous record means the instance is being seen for the first time.
func (i *Inspector) Classify(instanceID, rawStatus string, prev *models.InstanceHealthRecord) *models.InstanceHealthRecord {
	record := &models.InstanceHealthRecord{
		InstanceID: instanceID,
		Status:     models.StatusHealthy,
	}
	if prev != nil {
		copied := *prev
		record = &copied
	}

	if i.isOK(rawStatus) {
		now := time.Now()
		record.Status = models.StatusHealthy
		record.ConsecutiveUnhealthy = 0
		record.LastSeenHealthyAt = &now
		return record
	}

	record.ConsecutiveUnhealthy++
	if record.ConsecutiveUnhealthy >= i.config.UnhealthyThreshold {
		if record.Status != models.StatusStuck {
			logger.WithField("instance_id", instanceID).Warnf(
				"Instance stuck after %d consecutive unhealthy checks (status: %s)",
				record.ConsecutiveUnhealthy, rawStatus,
			)
		}
		record.Status = models.StatusStuck
	} else {
		record.Status = models.StatusDegraded
	}

	return record
}

// ClassifyFleet runs Classify over a full instance listing. Records for
// instances that disappeared from the inventory are dropped: the
// orchestration layer already terminated them.
func (i *Inspector) ClassifyFleet(instances []models.Instance, prev map[string]*models.InstanceHealthRecord) map[string]*models.InstanceHealthRecord {
	records := make(map[string]*models.InstanceHealthRecord, len(instances))
	for _, inst := range instances {
		records[inst.InstanceID] = i.Classify(inst.InstanceID, inst.RawStatus, prev[inst.InstanceID])
	}
	return records
}

func (i *Inspector) isOK(rawStatus string) bool {
	return i.okStatuses[strings.ToUpper(rawStatus)]
}
