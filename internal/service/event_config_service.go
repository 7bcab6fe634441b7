package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type eventConfigStore interface {
	List(ctx context.Context) ([]models.EventConfig, error)
	GetByID(ctx context.Context, id string) (*models.EventConfig, error)
	GetActive(ctx context.Context) (*models.EventConfig, error)
	Create(ctx context.Context, event *models.EventConfig) error
	Update(ctx context.Context, event *models.EventConfig) error
	Activate(ctx context.Context, id string) error
}

// EventConfigService manages event editions and which one accepts registrations.
type EventConfigService struct {
	repo      eventConfigStore
	audit     auditLogger
	validator *RegistrantValidator
	cache     cacheInvalidator
	logger    *zap.Logger
}

// NewEventConfigService constructs the service.
func NewEventConfigService(repo eventConfigStore, audit auditLogger, validator *RegistrantValidator, cache cacheInvalidator, logger *zap.Logger) *EventConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = NewRegistrantValidator(nil)
	}
	return &EventConfigService{repo: repo, audit: audit, validator: validator, cache: cache, logger: logger}
}

// List returns every event edition.
func (s *EventConfigService) List(ctx context.Context) ([]models.EventConfig, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	if events == nil {
		events = []models.EventConfig{}
	}
	return events, nil
}

// Get returns one event edition.
func (s *EventConfigService) Get(ctx context.Context, id string) (*models.EventConfig, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Active returns the event currently open for registration.
func (s *EventConfigService) Active(ctx context.Context) (*models.EventConfig, error) {
	event, err := s.repo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoActiveEvent, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active event")
	}
	return event, nil
}

// Create stores a new, inactive event edition.
func (s *EventConfigService) Create(ctx context.Context, actor Actor, req models.EventConfigRequest) (*models.EventConfig, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	event := &models.EventConfig{}
	applyEventRequest(event, req)
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	recordAudit(ctx, s.audit, s.logger, actor, "EVENT_CREATE", "event_config", event.ID, nil, event)
	return event, nil
}

// Update changes pricing and dates of an event edition.
func (s *EventConfigService) Update(ctx context.Context, actor Actor, id string, req models.EventConfigRequest) (*models.EventConfig, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *event
	applyEventRequest(event, req)
	if err := s.repo.Update(ctx, event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	recordAudit(ctx, s.audit, s.logger, actor, "EVENT_UPDATE", "event_config", event.ID, before, event)
	if event.IsActive && s.cache != nil {
		s.cache.InvalidateCache(ctx)
	}
	return event, nil
}

// Activate makes id the only event accepting registrations.
func (s *EventConfigService) Activate(ctx context.Context, actor Actor, id string) (*models.EventConfig, error) {
	if err := s.repo.Activate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate event")
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionEventActivate, "event_config", id, nil, map[string]string{"name": event.Name})
	if s.cache != nil {
		s.cache.InvalidateCache(ctx)
	}
	s.logger.Info("event activated", zap.String("event_id", id), zap.String("name", event.Name))
	return event, nil
}

func (s *EventConfigService) validate(ctx context.Context, req models.EventConfigRequest) error {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return err
	}
	if req.CancellationDeadline != nil && req.CancellationDeadline.After(req.EndDate) {
		return validationError("invalid event configuration", []appErrors.FieldDetail{
			{Field: "cancellation_deadline", Message: "must not be after the end date"},
		})
	}
	return nil
}

func applyEventRequest(event *models.EventConfig, req models.EventConfigRequest) {
	event.Name = strings.TrimSpace(req.Name)
	event.BasePrice = req.BasePrice
	event.StartDate = req.StartDate
	event.EndDate = req.EndDate
	event.PaymentDeadlineDays = req.PaymentDeadlineDays
	event.CancellationDeadline = req.CancellationDeadline
}
