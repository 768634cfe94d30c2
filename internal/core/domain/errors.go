package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConnected indicates no provider credential is stored.
	ErrNotConnected = errors.New("Time Doctor is not connected")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// Authentication Errors.

	// ErrAuthInvalid indicates the provider rejected the credential.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrAuthExpired indicates the stored credential has expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// Provider Errors.

	// ErrTransient indicates a retryable provider failure (timeout, 5xx, rate limit).
	ErrTransient = errors.New("transient provider error")

	// ErrPermanent indicates a non-retryable provider failure (4xx other than auth).
	ErrPermanent = errors.New("permanent provider error")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrCursorStalled indicates the provider returned a next page that does not advance.
	ErrCursorStalled = errors.New("pagination cursor did not advance")

	// Storage Errors.

	// ErrPersistence indicates an upsert batch could not be written.
	ErrPersistence = errors.New("persistence failed")
)

// AuthError reports a credential the provider refused even after a forced refresh.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("timedoctor: authentication failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("timedoctor: authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap allows errors.Is(err, ErrAuthInvalid).
func (e *AuthError) Unwrap() error { return ErrAuthInvalid }

// RefreshError reports a token refresh that did not succeed.
// Exhausted is set once every attempt allowed by the retry policy has failed.
type RefreshError struct {
	Exhausted bool
	Attempts  int
	Err       error
}

func (e *RefreshError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("token refresh failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *RefreshError) Unwrap() []error {
	return []error{ErrTokenRefreshFailed, e.Err}
}

// TransientProviderError is a network, 5xx or rate-limit failure.
// It escapes the provider client only once the retry budget is spent.
type TransientProviderError struct {
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *TransientProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("timedoctor: transient error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("timedoctor: transient error: %v", e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *TransientProviderError) Unwrap() []error {
	return []error{ErrTransient, e.Err}
}

// PermanentProviderError is a 4xx response other than an authentication failure.
type PermanentProviderError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *PermanentProviderError) Error() string {
	return fmt.Sprintf("timedoctor: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap allows errors.Is(err, ErrPermanent).
func (e *PermanentProviderError) Unwrap() error { return ErrPermanent }

// ValidationError rejects a request before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// PersistenceError reports a failed upsert batch.
type PersistenceError struct {
	EntityType EntityType
	BatchSize  int
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("upsert %d %s: %v", e.BatchSize, e.EntityType, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// IsRetryable reports whether err is worth another provider attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsAuthFailure reports whether err means the provider refused the credential.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthInvalid)
}
