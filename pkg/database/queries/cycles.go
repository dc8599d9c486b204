package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleetpilot/fleetpilot/pkg/database"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

type CycleRepository struct {
	db *database.DB
}

func NewCycleRepository(db *database.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// Insert writes a cycle record and its child rows in one transaction.
func (r *CycleRepository) Insert(ctx context.Context, record *models.CycleRecord) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var (
			currentDesired, targetDesired sql.NullInt64
			reason, triggeredBy           sql.NullString
			confidence                    sql.NullFloat64
		)
		if d := record.ScalingDecision; d != nil {
			currentDesired = sql.NullInt64{Int64: int64(d.CurrentDesired), Valid: true}
			targetDesired = sql.NullInt64{Int64: int64(d.TargetDesired), Valid: true}
			reason = sql.NullString{String: d.Reason, Valid: true}
			triggeredBy = sql.NullString{String: string(d.TriggeredBy), Valid: true}
			confidence = sql.NullFloat64{Float64: d.Confidence, Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO cycle_records
				(cycle_id, resource_id, timestamp, current_desired, target_desired,
				 reason, triggered_by, confidence, remediation_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			record.CycleID, record.ResourceID, record.Timestamp,
			currentDesired, targetDesired, reason, triggeredBy, confidence,
			len(record.RemediationActions),
		)
		if err != nil {
			return err
		}

		for _, e := range record.Errors {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO cycle_errors (cycle_id, stage, message, severity)
				VALUES ($1, $2, $3, $4)`,
				record.CycleID, e.Stage, e.Message, string(e.Severity),
			)
			if err != nil {
				return err
			}
		}

		for _, a := range record.RemediationActions {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO remediation_actions (cycle_id, instance_id, action, reason, timestamp)
				VALUES ($1, $2, $3, $4, $5)`,
				record.CycleID, a.InstanceID, string(a.Action), a.Reason, a.Timestamp,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

type CycleRow struct {
	CycleID          string    `json:"cycle_id"`
	ResourceID       string    `json:"resource_id"`
	Timestamp        time.Time `json:"timestamp"`
	CurrentDesired   *int      `json:"current_desired,omitempty"`
	TargetDesired    *int      `json:"target_desired,omitempty"`
	Reason           *string   `json:"reason,omitempty"`
	TriggeredBy      *string   `json:"triggered_by,omitempty"`
	Confidence       *float64  `json:"confidence,omitempty"`
	RemediationCount int       `json:"remediation_count"`
}

// GetRecent returns the newest cycle rows for a resource, newest first.
func (r *CycleRepository) GetRecent(ctx context.Context, resourceID string, limit int) ([]CycleRow, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT cycle_id, resource_id, timestamp, current_desired, target_desired,
			   reason, triggered_by, confidence, remediation_count
		FROM cycle_records
		WHERE resource_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, resourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CycleRow
	for rows.Next() {
		var c CycleRow
		err := rows.Scan(
			&c.CycleID, &c.ResourceID, &c.Timestamp,
			&c.CurrentDesired, &c.TargetDesired, &c.Reason,
			&c.TriggeredBy, &c.Confidence, &c.RemediationCount,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, c)
	}

	return records, rows.Err()
}

// GetErrors returns the stage failures recorded for one cycle.
func (r *CycleRepository) GetErrors(ctx context.Context, cycleID string) ([]models.CycleError, error) {
	query := `
		SELECT stage, message, severity
		FROM cycle_errors
		WHERE cycle_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []models.CycleError
	for rows.Next() {
		var e models.CycleError
		if err := rows.Scan(&e.Stage, &e.Message, &e.Severity); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}

	return errs, rows.Err()
}
