package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/pkg/messaging/rabbit"
)

// StatusChangedEvent is published after every committed registration status change.
type StatusChangedEvent struct {
	RegistrationID string                    `json:"registration_id"`
	InvoiceCode    string                    `json:"invoice_code"`
	From           models.RegistrationStatus `json:"from"`
	To             models.RegistrationStatus `json:"to"`
	Action         string                    `json:"action"`
	ActorID        string                    `json:"actor_id"`
	Email          string                    `json:"email,omitempty"`
	FullName       string                    `json:"full_name,omitempty"`
	OccurredAt     time.Time                 `json:"occurred_at"`
}

// NotificationService forwards domain events to the message broker.
type NotificationService struct {
	publisher  rabbit.Publisher
	routingKey string
	metrics    *MetricsService
	logger     *zap.Logger
	timeout    time.Duration
}

// NewNotificationService constructs the service. A nil publisher disables publishing.
func NewNotificationService(publisher rabbit.Publisher, routingKey string, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if publisher == nil {
		publisher = rabbit.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if routingKey == "" {
		routingKey = "registration.status_changed"
	}
	return &NotificationService{publisher: publisher, routingKey: routingKey, metrics: metrics, logger: logger, timeout: 3 * time.Second}
}

// StatusChanged publishes a status change. Failures are logged and counted, never returned.
func (s *NotificationService) StatusChanged(ctx context.Context, reg *models.Registration, from models.RegistrationStatus, action string, actorID string) {
	if s == nil {
		return
	}
	event := StatusChangedEvent{
		RegistrationID: reg.ID,
		InvoiceCode:    reg.InvoiceCode,
		From:           from,
		To:             reg.Status,
		Action:         action,
		ActorID:        actorID,
		OccurredAt:     time.Now().UTC(),
	}
	if primary := reg.Primary(); primary != nil {
		event.FullName = primary.FullName
		if primary.Email != nil {
			event.Email = *primary.Email
		}
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal status change event", zap.Error(err))
		return
	}

	// The request may already be finishing; publish on a detached deadline.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, s.routingKey, body); err != nil {
		s.metrics.RecordPublishFailure()
		s.logger.Warn("failed to publish status change",
			zap.String("registration_id", reg.ID),
			zap.String("to", string(reg.Status)),
			zap.Error(err))
	}
}
