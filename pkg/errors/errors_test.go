package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"not found", errors.New("robot R9 not found"), CodeNotFound, http.StatusNotFound},
		{"already exists", errors.New("bin B1 already exists"), CodeConflict, http.StatusConflict},
		{"invalid", errors.New("invalid quantity"), CodeValidationError, http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, CodeTimeout, http.StatusGatewayTimeout},
		{"other", errors.New("disk on fire"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapDomainError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestMapDomainErrorKeepsWrappedAppError(t *testing.T) {
	stock := ErrInsufficientStock("ITEM-1 short by 3")
	wrapped := fmt.Errorf("allocate: %w", stock)

	appErr := MapDomainError(wrapped)
	assert.Same(t, stock, appErr)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	assert.Nil(t, MapDomainError(nil))
}

func TestFulfillmentErrorStatuses(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, ErrCapacityExceeded("full").HTTPStatus)
	assert.Equal(t, http.StatusConflict, ErrRobotUnavailable("busy").HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, ErrUnknownCommandType("DANCE").HTTPStatus)
	assert.Equal(t, http.StatusConflict, ErrTransactionConflict("stale").HTTPStatus)
	assert.Equal(t, CodeInvalidTransition, ErrInvalidTransition("COMPLETED -> PENDING").Code)
}

func TestErrorTextCarriesCauseOnce(t *testing.T) {
	cause := errors.New("bin B1 already exists")
	assert.Equal(t, "CONFLICT: bin B1 already exists", ErrConflict(cause.Error()).Wrap(cause).Error())

	wrapped := fmt.Errorf("place stock: %w", cause)
	assert.Equal(t, "CONFLICT: place stock: bin B1 already exists", ErrConflict(cause.Error()).Wrap(wrapped).Error())

	busy := errors.New("lock not obtained")
	assert.Equal(t, "CONFLICT: resource is busy: lock not obtained", ErrConflict("resource is busy").Wrap(busy).Error())
	assert.Equal(t, "TIMEOUT: operation timed out", ErrTimeout("operation").Error())
}
