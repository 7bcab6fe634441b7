package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

// Actor identifies who is acting on a registration.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// ResolveTransition checks that actor may apply action to reg and returns the matching rule.
func ResolveTransition(reg *models.Registration, action models.RegistrationAction, actor Actor, event *models.EventConfig, now time.Time) (models.TransitionRule, error) {
	rule, ok := models.FindTransition(action, reg.Status)
	if !ok {
		return models.TransitionRule{}, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s a registration in status %s", action, reg.Status))
	}
	isOwner := actor.UserID != "" && actor.UserID == reg.UserID
	if !rule.Permits(actor.Role, isOwner) {
		return models.TransitionRule{}, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("role %s may not %s this registration", actor.Role, action))
	}

	switch action {
	case models.ActionReportPayment:
		if reg.ReceiptURL == nil || *reg.ReceiptURL == "" {
			return models.TransitionRule{}, appErrors.Clone(appErrors.ErrValidation, "a payment receipt is required")
		}
	case models.ActionRequestCancel:
		if event != nil && !event.CancellationOpen(now) {
			return models.TransitionRule{}, appErrors.Clone(appErrors.ErrDeadlinePassed, "the cancellation deadline has passed")
		}
	}
	return rule, nil
}

// CheckParticipantChange rejects registrant edits outside the editable statuses.
// Edits that keep the count are still rejected once the list is frozen.
func CheckParticipantChange(status models.RegistrationStatus, current, next int) error {
	if status.Editable() {
		return nil
	}
	if current != next {
		return appErrors.Clone(appErrors.ErrParticipantsFrozen,
			fmt.Sprintf("participant count is frozen at %d while the registration is %s", current, status))
	}
	return appErrors.Clone(appErrors.ErrParticipantsFrozen,
		fmt.Sprintf("registrants cannot be edited while the registration is %s", status))
}
