package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTimeout = errors.New("timeout")
var errFatal = errors.New("bad request")

// recordingSleep captures requested delays without waiting.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func failThenSucceed(failures int, err error) (func(context.Context, int) error, *int) {
	calls := 0
	return func(_ context.Context, _ int) error {
		calls++
		if calls <= failures {
			return err
		}
		return nil
	}, &calls
}

func TestPolicy_SucceedsExactlyAtBudget(t *testing.T) {
	s := &recordingSleep{}
	p := Policy{MaxRetries: 3, Delay: 5 * time.Second, Sleep: s.sleep}

	fn, calls := failThenSucceed(3, errTimeout)
	err := p.Do(context.Background(), fn)

	require.NoError(t, err)
	assert.Equal(t, 4, *calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, s.delays)
}

func TestPolicy_ExhaustsOneBelowBudget(t *testing.T) {
	s := &recordingSleep{}
	p := Policy{MaxRetries: 2, Delay: time.Second, Sleep: s.sleep}

	fn, calls := failThenSucceed(3, errTimeout)
	err := p.Do(context.Background(), fn)

	require.Error(t, err)
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, errTimeout)
	assert.Equal(t, 3, *calls)
	assert.Len(t, s.delays, 2, "no delay after the final attempt")

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
}

func TestPolicy_NonRetryableReturnsImmediately(t *testing.T) {
	s := &recordingSleep{}
	p := Policy{
		MaxRetries: 3,
		Sleep:      s.sleep,
		Retryable:  func(err error) bool { return errors.Is(err, errTimeout) },
	}

	fn, calls := failThenSucceed(5, errFatal)
	err := p.Do(context.Background(), fn)

	assert.Equal(t, errFatal, err)
	assert.False(t, IsExhausted(err))
	assert.Equal(t, 1, *calls)
	assert.Empty(t, s.delays)
}

func TestPolicy_ZeroRetriesRunsOnce(t *testing.T) {
	p := Policy{MaxRetries: 0}

	fn, calls := failThenSucceed(1, errTimeout)
	err := p.Do(context.Background(), fn)

	assert.True(t, IsExhausted(err))
	assert.Equal(t, 1, *calls)
}

func TestPolicy_OnRetryCalledPerRetry(t *testing.T) {
	var attempts []int
	p := Policy{
		MaxRetries: 2,
		Sleep:      (&recordingSleep{}).sleep,
		OnRetry:    func(attempt int, _ error) { attempts = append(attempts, attempt) },
	}

	fn, _ := failThenSucceed(10, errTimeout)
	_ = p.Do(context.Background(), fn)

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestPolicy_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxRetries: 5,
		Sleep: func(_ context.Context, _ time.Duration) error {
			cancel()
			return context.Canceled
		},
	}

	fn, calls := failThenSucceed(10, errTimeout)
	err := p.Do(ctx, fn)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, *calls)
}

func TestSleep(t *testing.T) {
	t.Run("returns after delay", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("returns early on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	})
}
