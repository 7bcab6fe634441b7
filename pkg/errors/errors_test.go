package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrParticipantsFrozen, "participant count is frozen at 3")
	assert.True(t, errors.Is(err, ErrParticipantsFrozen))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.Equal(t, "PARTICIPANTS_FROZEN", ErrParticipantsFrozen.Code)
	assert.Equal(t, "participant list can no longer be changed", ErrParticipantsFrozen.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("query: %w", sql.ErrConnDone))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.True(t, errors.Is(appErr, sql.ErrConnDone))

	typed := FromError(fmt.Errorf("ctx: %w", ErrNotFound))
	assert.Equal(t, http.StatusNotFound, typed.Status)
}

func TestWithDetailsCopies(t *testing.T) {
	details := []FieldDetail{{Field: "registrants[0].phone", Message: "invalid"}}
	err := WithDetails(ErrValidation, details)
	details[0].Message = "changed"
	assert.Equal(t, "invalid", err.Details[0].Message)
	assert.Empty(t, ErrValidation.Details)
}
