// Package retry provides the bounded, fixed-delay retry policy shared by
// token refresh and provider page fetches.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExhaustedError is returned once every attempt allowed by a Policy failed
// with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err came from a spent retry budget.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

// Policy retries an operation a fixed number of times with a fixed delay.
//
// MaxRetries counts retries after the first attempt, so an operation runs at
// most MaxRetries+1 times.
type Policy struct {
	MaxRetries int
	Delay      time.Duration

	// Retryable classifies errors. Nil means every error is retryable.
	Retryable func(error) bool

	// OnRetry is called after each failed attempt that will be retried.
	OnRetry func(attempt int, err error)

	// Sleep waits between attempts. Nil uses a timer that honours ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// budget is spent. Non-retryable errors are returned unchanged.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	maxAttempts := p.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !p.retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}
		if err := p.sleep(ctx, p.Delay); err != nil {
			return fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}

	return &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
