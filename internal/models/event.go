package models

import "time"

// EventConfig describes one edition of the event and its pricing.
type EventConfig struct {
	ID                   string     `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	BasePrice            int64      `db:"base_price" json:"base_price"`
	StartDate            time.Time  `db:"start_date" json:"start_date"`
	EndDate              time.Time  `db:"end_date" json:"end_date"`
	PaymentDeadlineDays  int        `db:"payment_deadline_days" json:"payment_deadline_days"`
	CancellationDeadline *time.Time `db:"cancellation_deadline" json:"cancellation_deadline,omitempty"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// PaymentDueAt returns when payment for a registration created at createdAt is due.
func (e EventConfig) PaymentDueAt(createdAt time.Time) *time.Time {
	if e.PaymentDeadlineDays <= 0 {
		return nil
	}
	due := createdAt.AddDate(0, 0, e.PaymentDeadlineDays)
	return &due
}

// CancellationOpen reports whether cancellations may still be requested at now.
func (e EventConfig) CancellationOpen(now time.Time) bool {
	if e.CancellationDeadline == nil {
		return now.Before(e.StartDate)
	}
	return !now.After(*e.CancellationDeadline)
}

// EventDays lists each calendar day of the event.
func (e EventConfig) EventDays() []time.Time {
	days := make([]time.Time, 0)
	start := time.Date(e.StartDate.Year(), e.StartDate.Month(), e.StartDate.Day(), 0, 0, 0, 0, e.StartDate.Location())
	for d := start; !d.After(e.EndDate); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// EventConfigRequest creates or updates an event configuration.
type EventConfigRequest struct {
	Name                 string     `json:"name" validate:"required,max=200"`
	BasePrice            int64      `json:"base_price" validate:"gte=0"`
	StartDate            time.Time  `json:"start_date" validate:"required"`
	EndDate              time.Time  `json:"end_date" validate:"required,gtefield=StartDate"`
	PaymentDeadlineDays  int        `json:"payment_deadline_days" validate:"gte=0,lte=90"`
	CancellationDeadline *time.Time `json:"cancellation_deadline,omitempty"`
}
