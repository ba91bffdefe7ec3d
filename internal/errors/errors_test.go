package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppError(t *testing.T) {
	appErr := NewAppError(ErrorTypeValidation, "INVALID_INPUT", "Invalid input provided")

	assert.Equal(t, ErrorTypeValidation, appErr.Type)
	assert.Equal(t, "INVALID_INPUT", appErr.Code)
	assert.Equal(t, "Invalid input provided", appErr.Message)
	assert.WithinDuration(t, time.Now(), appErr.Timestamp, time.Second)
	assert.Nil(t, appErr.Cause)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestNewAppErrorWithCause(t *testing.T) {
	cause := errors.New("connection timeout")
	appErr := NewAppErrorWithCause(ErrorTypeDatabase, "DB_ERROR", "Database connection failed", cause)

	assert.Equal(t, cause, appErr.Cause)
	assert.Equal(t, "connection timeout", appErr.Details)
	assert.Equal(t, cause, errors.Unwrap(appErr))
}

func TestAppError_Error(t *testing.T) {
	appErr := NewAppError(ErrorTypeInternal, "INTERNAL_ERROR", "Something went wrong")
	assert.Equal(t, "INTERNAL_ERROR: Something went wrong", appErr.Error())

	appErr = appErr.WithDetails("stack overflow")
	assert.Equal(t, "INTERNAL_ERROR: Something went wrong - stack overflow", appErr.Error())
}

func TestDefaultHTTPStatus(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		expected  int
	}{
		{ErrorTypeValidation, http.StatusBadRequest},
		{ErrorTypeIncompleteProfile, http.StatusBadRequest},
		{ErrorTypeBanned, http.StatusForbidden},
		{ErrorTypeNotFound, http.StatusNotFound},
		{ErrorTypeConflict, http.StatusConflict},
		{ErrorTypeRateLimit, http.StatusTooManyRequests},
		{ErrorTypeDatabase, http.StatusInternalServerError},
		{ErrorTypeCache, http.StatusInternalServerError},
		{ErrorTypeTelegram, http.StatusInternalServerError},
		{ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			appErr := NewAppError(tt.errorType, "CODE", "message")
			assert.Equal(t, tt.expected, appErr.HTTPStatus)
		})
	}
}

func TestNewIncompleteProfileError(t *testing.T) {
	appErr := NewIncompleteProfileError("birth_date")

	assert.Equal(t, ErrorTypeIncompleteProfile, appErr.Type)
	assert.Equal(t, "INCOMPLETE_PROFILE", appErr.Code)
	assert.Contains(t, appErr.Message, "birth_date")
	assert.Equal(t, "birth_date", appErr.Metadata["field"])
}

func TestNewRateLimitError(t *testing.T) {
	appErr := NewRateLimitError(90 * time.Second)

	assert.Equal(t, ErrorTypeRateLimit, appErr.Type)
	assert.Equal(t, 90, appErr.Metadata["retry_after_seconds"])
}

func TestNewBannedError(t *testing.T) {
	t.Run("Permanent", func(t *testing.T) {
		appErr := NewBannedError(nil)
		assert.Equal(t, ErrorTypeBanned, appErr.Type)
		_, present := appErr.Metadata["banned_until"]
		assert.False(t, present)
	})

	t.Run("Temporary", func(t *testing.T) {
		until := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
		appErr := NewBannedError(&until)
		assert.Equal(t, "2026-09-01T12:00:00Z", appErr.Metadata["banned_until"])
	})
}

func TestNewNotFoundError(t *testing.T) {
	appErr := NewNotFoundError("profile")

	assert.Equal(t, ErrorTypeNotFound, appErr.Type)
	assert.Equal(t, "profile not found", appErr.Message)
	assert.Equal(t, "profile", appErr.Metadata["resource"])
}

func TestNewDatabaseError(t *testing.T) {
	cause := errors.New("deadlock detected")
	appErr := NewDatabaseError("record like", cause)

	assert.Equal(t, ErrorTypeDatabase, appErr.Type)
	assert.Contains(t, appErr.Message, "record like")
	assert.Equal(t, cause, appErr.Cause)
}

func TestIsErrorType(t *testing.T) {
	appErr := NewRateLimitError(time.Minute)

	assert.True(t, IsErrorType(appErr, ErrorTypeRateLimit))
	assert.False(t, IsErrorType(appErr, ErrorTypeBanned))
	assert.False(t, IsErrorType(errors.New("plain"), ErrorTypeRateLimit))
	assert.False(t, IsErrorType(nil, ErrorTypeRateLimit))
}

func TestIsErrorType_Wrapped(t *testing.T) {
	appErr := NewNotFoundError("profile")
	wrapped := fmt.Errorf("failed to render card: %w", appErr)

	assert.True(t, IsErrorType(wrapped, ErrorTypeNotFound))
}

func TestGetErrorType(t *testing.T) {
	appErr := NewBannedError(nil)

	errorType, ok := GetErrorType(appErr)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeBanned, errorType)

	_, ok = GetErrorType(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithMetadata_Chains(t *testing.T) {
	appErr := NewAppError(ErrorTypeConflict, "CONFLICT", "already exists").
		WithMetadata("first", 1).
		WithMetadata("second", "two")

	assert.Equal(t, 1, appErr.Metadata["first"])
	assert.Equal(t, "two", appErr.Metadata["second"])
}
