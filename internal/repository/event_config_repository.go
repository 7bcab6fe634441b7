package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/pkg/database"
)

const eventColumns = `id, name, base_price, start_date, end_date, payment_deadline_days, cancellation_deadline, is_active, created_at, updated_at`

// EventConfigRepository persists event editions.
type EventConfigRepository struct {
	db *sqlx.DB
}

// NewEventConfigRepository constructs the repository.
func NewEventConfigRepository(db *sqlx.DB) *EventConfigRepository {
	return &EventConfigRepository{db: db}
}

// List returns all event configurations, newest first.
func (r *EventConfigRepository) List(ctx context.Context) ([]models.EventConfig, error) {
	query := `SELECT ` + eventColumns + ` FROM event_configs ORDER BY start_date DESC`
	var events []models.EventConfig
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list event configs: %w", err)
	}
	return events, nil
}

// GetByID fetches one event configuration.
func (r *EventConfigRepository) GetByID(ctx context.Context, id string) (*models.EventConfig, error) {
	query := `SELECT ` + eventColumns + ` FROM event_configs WHERE id = $1`
	var event models.EventConfig
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// GetActive returns the single active event configuration.
func (r *EventConfigRepository) GetActive(ctx context.Context) (*models.EventConfig, error) {
	query := `SELECT ` + eventColumns + ` FROM event_configs WHERE is_active = TRUE ORDER BY updated_at DESC LIMIT 1`
	var event models.EventConfig
	if err := r.db.GetContext(ctx, &event, query); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a new inactive event configuration.
func (r *EventConfigRepository) Create(ctx context.Context, event *models.EventConfig) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt, event.UpdatedAt = now, now
	const query = `INSERT INTO event_configs (id, name, base_price, start_date, end_date, payment_deadline_days, cancellation_deadline, is_active, created_at, updated_at)
	VALUES (:id, :name, :base_price, :start_date, :end_date, :payment_deadline_days, :cancellation_deadline, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event config: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an event configuration.
func (r *EventConfigRepository) Update(ctx context.Context, event *models.EventConfig) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE event_configs SET name = :name, base_price = :base_price, start_date = :start_date, end_date = :end_date,
	payment_deadline_days = :payment_deadline_days, cancellation_deadline = :cancellation_deadline, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update event config: %w", err)
	}
	return expectAffected(result)
}

// Activate marks id as the only active event.
func (r *EventConfigRepository) Activate(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE event_configs SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE AND id <> $2`, now, id); err != nil {
			return fmt.Errorf("deactivate event configs: %w", err)
		}
		result, err := tx.ExecContext(ctx, `UPDATE event_configs SET is_active = TRUE, updated_at = $1 WHERE id = $2`, now, id)
		if err != nil {
			return fmt.Errorf("activate event config: %w", err)
		}
		return expectAffected(result)
	})
}
