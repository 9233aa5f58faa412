package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:            http.StatusNotFound,
		ErrCodeValidation:          http.StatusBadRequest,
		ErrCodeInvalidState:        http.StatusConflict,
		ErrCodeAlreadyResolved:     http.StatusConflict,
		ErrCodeRoleConflict:        http.StatusConflict,
		ErrCodeCooldownActive:      http.StatusTooManyRequests,
		ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,
		ErrCodeDependencyFailure:   http.StatusBadGateway,
		ErrCodeDatabaseError:       http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, string(code))
	}
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	base := New(ErrCodeInvalidState, "bad")
	withDetail := base.WithDetail("current_status", "assigned")

	assert.Nil(t, base.Details)
	assert.Equal(t, "assigned", withDetail.Details["current_status"])
}

func TestCooldownActive_CarriesRemainingSeconds(t *testing.T) {
	err := CooldownActive(42)
	assert.Equal(t, ErrCodeCooldownActive, err.Code)
	assert.Equal(t, 42, err.Details["remaining_seconds"])
}

func TestCodeOf_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrJobNotFound)
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestIsInvalidState_IncludesAlreadyResolved(t *testing.T) {
	assert.True(t, IsInvalidState(AlreadyResolved("accepted")))
	assert.True(t, IsInvalidState(InvalidState("x", "open")))
	assert.False(t, IsInvalidState(ErrForbidden))
}
