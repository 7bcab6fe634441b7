package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type stubEventStore struct {
	events    map[string]*models.EventConfig
	activated string
	updated   *models.EventConfig
}

func (s *stubEventStore) List(ctx context.Context) ([]models.EventConfig, error) {
	return nil, nil
}

func (s *stubEventStore) GetByID(ctx context.Context, id string) (*models.EventConfig, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyE := *e
	return &copyE, nil
}

func (s *stubEventStore) GetActive(ctx context.Context) (*models.EventConfig, error) {
	for _, e := range s.events {
		if e.IsActive {
			return e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubEventStore) Create(ctx context.Context, event *models.EventConfig) error {
	event.ID = "ev-new"
	return nil
}

func (s *stubEventStore) Update(ctx context.Context, event *models.EventConfig) error {
	s.updated = event
	return nil
}

func (s *stubEventStore) Activate(ctx context.Context, id string) error {
	if _, ok := s.events[id]; !ok {
		return sql.ErrNoRows
	}
	for key, e := range s.events {
		e.IsActive = key == id
	}
	s.activated = id
	return nil
}

func eventRequest() models.EventConfigRequest {
	return models.EventConfigRequest{
		Name:                "Đại hội 2026",
		BasePrice:           12000,
		StartDate:           time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		EndDate:             time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC),
		PaymentDeadlineDays: 14,
	}
}

func TestEventConfigServiceActiveMissing(t *testing.T) {
	svc := NewEventConfigService(&stubEventStore{events: map[string]*models.EventConfig{}}, nil, nil, nil, nil)
	_, err := svc.Active(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrNoActiveEvent))

	events, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
}

func TestEventConfigServiceCreateValidates(t *testing.T) {
	svc := NewEventConfigService(&stubEventStore{}, nil, nil, nil, nil)

	req := eventRequest()
	req.EndDate = req.StartDate.AddDate(0, 0, -1)
	_, err := svc.Create(context.Background(), Actor{UserID: "admin"}, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = eventRequest()
	late := req.EndDate.AddDate(0, 0, 3)
	req.CancellationDeadline = &late
	_, err = svc.Create(context.Background(), Actor{UserID: "admin"}, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	event, err := svc.Create(context.Background(), Actor{UserID: "admin"}, eventRequest())
	require.NoError(t, err)
	assert.Equal(t, "ev-new", event.ID)
	assert.False(t, event.IsActive)
}

func TestEventConfigServiceActivateInvalidatesCache(t *testing.T) {
	store := &stubEventStore{events: map[string]*models.EventConfig{
		"ev-1": {ID: "ev-1", Name: "2025", IsActive: true},
		"ev-2": {ID: "ev-2", Name: "2026"},
	}}
	audit := &stubAudit{}
	cache := &countingInvalidator{}
	svc := NewEventConfigService(store, audit, nil, cache, nil)

	event, err := svc.Activate(context.Background(), Actor{UserID: "admin", Role: models.RoleSuperAdmin}, "ev-2")
	require.NoError(t, err)
	assert.True(t, event.IsActive)
	assert.False(t, store.events["ev-1"].IsActive)
	assert.Equal(t, 1, cache.calls)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionEventActivate, audit.entries[0].Action)

	_, err = svc.Activate(context.Background(), Actor{UserID: "admin"}, "ev-9")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestEventConfigServiceUpdate(t *testing.T) {
	store := &stubEventStore{events: map[string]*models.EventConfig{"ev-1": {ID: "ev-1", Name: "old", IsActive: true}}}
	cache := &countingInvalidator{}
	svc := NewEventConfigService(store, nil, nil, cache, nil)

	event, err := svc.Update(context.Background(), Actor{UserID: "admin"}, "ev-1", eventRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(12000), event.BasePrice)
	assert.Equal(t, "Đại hội 2026", store.updated.Name)
	assert.Equal(t, 1, cache.calls)
}
