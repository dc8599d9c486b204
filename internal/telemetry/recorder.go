package telemetry

import (
	"context"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/database"
	"github.com/fleetpilot/fleetpilot/pkg/database/queries"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// Recorder persists cycle records for audit. Appends must never mutate
// previously written records.
type Recorder interface {
	Append(ctx context.Context, record *models.CycleRecord) error
	Close() error
}

// PostgresRecorder writes cycle records to the cycle_records tables.
type PostgresRecorder struct {
	db     *database.DB
	cycles *queries.CycleRepository
}

func NewPostgresRecorder(db *database.DB) *PostgresRecorder {
	return &PostgresRecorder{
		db:     db,
		cycles: queries.NewCycleRepository(db),
	}
}

func (r *PostgresRecorder) Append(ctx context.Context, record *models.CycleRecord) error {
	return r.cycles.Insert(ctx, record)
}

func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}

// LogRecorder is the fallback when no database is configured. Records go
// to the structured log only.
type LogRecorder struct{}

func NewLogRecorder() *LogRecorder {
	return &LogRecorder{}
}

func (r *LogRecorder) Append(_ context.Context, record *models.CycleRecord) error {
	fields := map[string]interface{}{
		"cycle_id":     record.CycleID,
		"resource_id":  record.ResourceID,
		"remediations": len(record.RemediationActions),
		"errors":       len(record.Errors),
	}
	if d := record.ScalingDecision; d != nil {
		fields["current_desired"] = d.CurrentDesired
		fields["target_desired"] = d.TargetDesired
		fields["reason"] = d.Reason
	}
	logger.WithFields(fields).Info("Cycle recorded")
	return nil
}

func (r *LogRecorder) Close() error {
	return nil
}
