package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventConfigDeadlines(t *testing.T) {
	start := time.Date(2025, 10, 11, 8, 0, 0, 0, time.UTC)
	cfg := EventConfig{StartDate: start, EndDate: start.Add(30 * time.Hour), PaymentDeadlineDays: 7}

	created := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	due := cfg.PaymentDueAt(created)
	if assert.NotNil(t, due) {
		assert.Equal(t, time.Date(2025, 8, 8, 12, 0, 0, 0, time.UTC), *due)
	}

	assert.True(t, cfg.CancellationOpen(start.Add(-time.Hour)))
	assert.False(t, cfg.CancellationOpen(start.Add(time.Hour)))

	deadline := time.Date(2025, 9, 30, 23, 59, 0, 0, time.UTC)
	cfg.CancellationDeadline = &deadline
	assert.False(t, cfg.CancellationOpen(deadline.Add(time.Minute)))
	assert.Len(t, cfg.EventDays(), 2)
}
