package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/event-registration-api/internal/models"
)

// AnalyticsRepository exposes read-optimised queries for analytics endpoints.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// ListForAnalytics returns every registration in scope with registrants attached,
// oldest first. Free-text search is applied by the caller.
func (r *AnalyticsRepository) ListForAnalytics(ctx context.Context, filter models.AnalyticsFilter) ([]models.Registration, error) {
	where, args := buildRegistrationConditions(filter.EventConfigID, "", filter.Statuses, filter.From, filter.To, "")
	query := "SELECT " + registrationColumns + " FROM registrations" + where + " ORDER BY created_at ASC"

	var regs []models.Registration
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, fmt.Errorf("list registrations for analytics: %w", err)
	}
	if err := attachRegistrants(ctx, r.db, regs); err != nil {
		return nil, err
	}
	return regs, nil
}
