package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotConnected", ErrNotConnected},
		{"ErrSyncInProgress", ErrSyncInProgress},
		{"ErrAuthInvalid", ErrAuthInvalid},
		{"ErrAuthExpired", ErrAuthExpired},
		{"ErrTokenRefreshFailed", ErrTokenRefreshFailed},
		{"ErrTransient", ErrTransient},
		{"ErrPermanent", ErrPermanent},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrCursorStalled", ErrCursorStalled},
		{"ErrPersistence", ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrNotConnected_Message(t *testing.T) {
	assert.Equal(t, "Time Doctor is not connected", ErrNotConnected.Error())
}

func TestAuthError(t *testing.T) {
	err := fmt.Errorf("fetch users: %w", &AuthError{StatusCode: 401, Message: "token revoked"})

	assert.True(t, errors.Is(err, ErrAuthInvalid))
	assert.True(t, IsAuthFailure(err))
	assert.False(t, IsRetryable(err))

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, 401, authErr.StatusCode)
	assert.Contains(t, err.Error(), "token revoked")
}

func TestRefreshError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &RefreshError{Exhausted: true, Attempts: 4, Err: cause}

	assert.True(t, errors.Is(err, ErrTokenRefreshFailed))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "after 4 attempts")

	notExhausted := &RefreshError{Err: cause}
	assert.NotContains(t, notExhausted.Error(), "attempts")
}

func TestTransientProviderError(t *testing.T) {
	err := &TransientProviderError{StatusCode: 503, Err: errors.New("service unavailable")}

	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, IsRetryable(err))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", err)))
	assert.Contains(t, err.Error(), "503")
}

func TestPermanentProviderError(t *testing.T) {
	err := &PermanentProviderError{StatusCode: 404, Message: "company not found", URL: "https://example/api"}

	assert.True(t, errors.Is(err, ErrPermanent))
	assert.False(t, IsRetryable(err))
	assert.False(t, IsAuthFailure(err))
	assert.Contains(t, err.Error(), "404")
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "window", Reason: "too long"}

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "invalid window: too long", err.Error())
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("database is locked")
	err := &PersistenceError{EntityType: EntityWorklogs, BatchSize: 100, Err: cause}

	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "upsert 100 worklogs: database is locked", err.Error())
}
