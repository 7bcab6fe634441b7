package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/pkg/database"
)

// RegistrantRepository handles per-registrant updates that do not rewrite the whole registration.
type RegistrantRepository struct {
	db *sqlx.DB
}

// NewRegistrantRepository constructs the repository.
func NewRegistrantRepository(db *sqlx.DB) *RegistrantRepository {
	return &RegistrantRepository{db: db}
}

// GetByID fetches a registrant.
func (r *RegistrantRepository) GetByID(ctx context.Context, id string) (*models.Registrant, error) {
	query := `SELECT ` + registrantColumns + ` FROM registrants WHERE id = $1`
	var reg models.Registrant
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// AttendanceParams records a check-in state change for one registrant.
type AttendanceParams struct {
	RegistrantID   string
	RegistrationID string
	CheckedInAt    *time.Time
	CheckedOutAt   *time.Time
	// AllowedFrom lists the registration statuses the projection may overwrite.
	AllowedFrom []models.RegistrationStatus
}

// RecordAttendance updates the registrant timestamps and re-derives the
// registration status from all registrants in the same transaction. The status
// held before the first check-in is kept in status_before_check_in and restored
// once nobody is on site.
func (r *RegistrantRepository) RecordAttendance(ctx context.Context, params AttendanceParams) (models.RegistrationStatus, error) {
	var projected models.RegistrationStatus
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		const update = `UPDATE registrants SET checked_in_at = $1, checked_out_at = $2, updated_at = $3
		WHERE id = $4 AND registration_id = $5`
		result, err := tx.ExecContext(ctx, update, params.CheckedInAt, params.CheckedOutAt, now, params.RegistrantID, params.RegistrationID)
		if err != nil {
			return fmt.Errorf("update registrant attendance: %w", err)
		}
		if err := expectAffected(result); err != nil {
			return err
		}

		var current struct {
			Status models.RegistrationStatus `db:"status"`
			Before models.RegistrationStatus `db:"status_before_check_in"`
		}
		const lock = `SELECT status, COALESCE(status_before_check_in, '') AS status_before_check_in
		FROM registrations WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &current, lock, params.RegistrationID); err != nil {
			return err
		}
		var counts models.AttendanceCounts
		const count = `SELECT COUNT(*) AS total, COUNT(checked_in_at) AS checked_in, COUNT(checked_out_at) AS checked_out
		FROM registrants WHERE registration_id = $1`
		if err := tx.GetContext(ctx, &counts, count, params.RegistrationID); err != nil {
			return fmt.Errorf("count attendance: %w", err)
		}

		var restore models.RegistrationStatus
		projected, restore = models.ProjectAttendance(counts, current.Status, current.Before)

		statuses := make([]string, len(params.AllowedFrom))
		for i, s := range params.AllowedFrom {
			statuses[i] = string(s)
		}
		const project = `UPDATE registrations SET status = $1, status_before_check_in = NULLIF($2, ''), updated_at = $3
		WHERE id = $4 AND status = ANY($5)`
		result, err = tx.ExecContext(ctx, project, projected, restore, now, params.RegistrationID, pq.Array(statuses))
		if err != nil {
			return fmt.Errorf("project registration status: %w", err)
		}
		return expectAffected(result)
	})
	if err != nil {
		return "", err
	}
	return projected, nil
}

// UpdateRole assigns an event role and optionally a new shirt size.
func (r *RegistrantRepository) UpdateRole(ctx context.Context, id, role, shirtSize string) error {
	const query = `UPDATE registrants SET event_role = $1, shirt_size = COALESCE(NULLIF($2, ''), shirt_size), updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, role, shirtSize, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update registrant role: %w", err)
	}
	return expectAffected(result)
}

// UpdatePortrait stores the portrait URL used on badges.
func (r *RegistrantRepository) UpdatePortrait(ctx context.Context, id, url string) error {
	const query = `UPDATE registrants SET portrait_url = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, url, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update registrant portrait: %w", err)
	}
	return expectAffected(result)
}
