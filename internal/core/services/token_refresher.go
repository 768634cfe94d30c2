package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
	"github.com/custodia-labs/tdsync/internal/logger"
	"github.com/custodia-labs/tdsync/internal/retry"
)

// Ensure TokenRefresher implements the interfaces.
var (
	_ driven.TokenProvider      = (*TokenRefresher)(nil)
	_ driving.ConnectionService = (*TokenRefresher)(nil)
)

const refreshKey = "refresh"

// TokenRefresher owns the provider credential.
// It refreshes proactively once the credential enters the expiry buffer and
// lets at most one refresh run at a time; concurrent callers share its outcome.
type TokenRefresher struct {
	store  driven.CredentialStore
	auth   driven.Authenticator
	config domain.SyncConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	group singleflight.Group

	mu      sync.RWMutex
	current *domain.Credential
	loaded  bool
	lastErr error
}

// TokenRefresherOption configures a TokenRefresher.
type TokenRefresherOption func(*TokenRefresher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TokenRefresherOption {
	return func(r *TokenRefresher) { r.now = now }
}

// WithRetrySleep replaces the wait between refresh attempts.
func WithRetrySleep(sleep func(ctx context.Context, d time.Duration) error) TokenRefresherOption {
	return func(r *TokenRefresher) { r.sleep = sleep }
}

// NewTokenRefresher creates a token refresher.
func NewTokenRefresher(
	store driven.CredentialStore,
	auth driven.Authenticator,
	config domain.SyncConfig,
	opts ...TokenRefresherOption,
) *TokenRefresher {
	r := &TokenRefresher{
		store:  store,
		auth:   auth,
		config: config,
		now:    time.Now,
		sleep:  retry.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureValidCredential returns a credential that has not expired.
//
// Inside the expiry buffer it refreshes first. If every refresh attempt
// fails but the current credential is still unexpired, that credential is
// returned and the failure is kept for ConnectionStatus.
func (r *TokenRefresher) EnsureValidCredential(ctx context.Context) (*domain.Credential, error) {
	cur, err := r.RefreshIfDue(ctx)
	if err == nil {
		return cur, nil
	}

	var refreshErr *domain.RefreshError
	if !errors.As(err, &refreshErr) {
		return nil, err
	}
	if cur != nil && cur.IsUsable(r.now()) {
		logger.Warn("token-refresher: refresh failed, using current credential until %s: %v",
			cur.ExpiresAt.Format(time.RFC3339), err)
		return cur, nil
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrAuthExpired, err)
}

// RefreshIfDue refreshes the credential when it is inside the expiry buffer.
// A failed refresh is returned as a *domain.RefreshError together with the
// credential held before the attempt, which may still be usable.
func (r *TokenRefresher) RefreshIfDue(ctx context.Context) (*domain.Credential, error) {
	cur, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, domain.ErrNotConnected
	}
	if !cur.NeedsRefresh(r.now(), r.config.TokenExpiryBuffer) {
		return cur, nil
	}

	logger.Debug("token-refresher: credential expires at %s, refreshing", cur.ExpiresAt.Format(time.RFC3339))
	seen := cur.AccessToken
	fresh, err := r.refresh(ctx, func(latest *domain.Credential, now time.Time) bool {
		return latest.AccessToken != seen && !latest.NeedsRefresh(now, r.config.TokenExpiryBuffer)
	})
	if err != nil {
		return cur, err
	}
	return fresh, nil
}

// ForceRefresh replaces a credential the provider rejected before its expiry.
func (r *TokenRefresher) ForceRefresh(ctx context.Context, rejectedToken string) (*domain.Credential, error) {
	cur, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, domain.ErrNotConnected
	}
	if cur.AccessToken != rejectedToken && cur.IsUsable(r.now()) {
		// Another caller already replaced the rejected token.
		return cur, nil
	}

	logger.Info("token-refresher: provider rejected credential, forcing refresh")
	return r.refresh(ctx, func(latest *domain.Credential, now time.Time) bool {
		return latest.AccessToken != rejectedToken && latest.IsUsable(now)
	})
}

// Connect performs the initial authentication and stores the credential.
func (r *TokenRefresher) Connect(ctx context.Context) (*domain.Credential, error) {
	return r.refresh(ctx, nil)
}

// ConnectionStatus reports the stored credential and the last refresh failure.
func (r *TokenRefresher) ConnectionStatus(ctx context.Context) (*domain.ConnectionStatus, error) {
	cur, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	status := &domain.ConnectionStatus{}
	r.mu.RLock()
	if r.lastErr != nil {
		status.LastRefreshError = r.lastErr.Error()
	}
	r.mu.RUnlock()

	if cur == nil {
		return status, nil
	}

	now := r.now()
	status.Connected = cur.IsUsable(now)
	status.IssuedAt = cur.IssuedAt
	status.ExpiresAt = cur.ExpiresAt
	status.NeedsRefresh = cur.NeedsRefresh(now, r.config.TokenExpiryBuffer)
	return status, nil
}

// Disconnect deletes the stored credential.
func (r *TokenRefresher) Disconnect(ctx context.Context) error {
	if err := r.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	r.mu.Lock()
	r.current = nil
	r.loaded = true
	r.lastErr = nil
	r.mu.Unlock()
	return nil
}

// load returns a copy of the current credential, reading the store once.
func (r *TokenRefresher) load(ctx context.Context) (*domain.Credential, error) {
	// Fast path: check cache with read lock
	r.mu.RLock()
	if r.loaded {
		cur := r.copyCurrent()
		r.mu.RUnlock()
		return cur, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if r.loaded {
		return r.copyCurrent(), nil
	}

	cred, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	r.current = cred
	r.loaded = true
	return r.copyCurrent(), nil
}

// copyCurrent must be called with mu held.
func (r *TokenRefresher) copyCurrent() *domain.Credential {
	if r.current == nil {
		return nil
	}
	c := *r.current
	return &c
}

// superseded reports whether the credential now held makes the caller's
// refresh unnecessary.
type superseded func(latest *domain.Credential, now time.Time) bool

// refresh joins the in-flight refresh or starts one.
// The shared refresh is detached from the caller's cancellation so one
// caller giving up does not fail the others; each caller still stops
// waiting when its own context ends.
//
// A caller can decide to refresh just after another refresh has finished
// and left the group. done is checked against the current credential
// inside the group, so that caller gets the new credential instead of
// starting a second network refresh. A nil done always authenticates.
func (r *TokenRefresher) refresh(ctx context.Context, done superseded) (*domain.Credential, error) {
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(refreshKey, func() (any, error) {
		if done != nil {
			r.mu.RLock()
			latest := r.copyCurrent()
			r.mu.RUnlock()
			if latest != nil && done(latest, r.now()) {
				return latest, nil
			}
		}
		return r.doRefresh(shared)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cred := *res.Val.(*domain.Credential)
		return &cred, nil
	}
}

func (r *TokenRefresher) doRefresh(ctx context.Context) (*domain.Credential, error) {
	policy := retry.Policy{
		MaxRetries: r.config.MaxRefreshRetries,
		Delay:      r.config.RefreshRetryDelay,
		Retryable: func(err error) bool {
			return !domain.IsAuthFailure(err) && !errors.Is(err, domain.ErrInvalidInput)
		},
		OnRetry: func(attempt int, err error) {
			logger.Warn("token-refresher: refresh attempt %d failed: %v", attempt, err)
		},
		Sleep: r.sleep,
	}

	var result *driven.AuthResult
	err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		res, err := r.auth.Authenticate(ctx)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		refreshErr := &domain.RefreshError{Err: err}
		var ex *retry.ExhaustedError
		if errors.As(err, &ex) {
			refreshErr.Exhausted = true
			refreshErr.Attempts = ex.Attempts
			refreshErr.Err = ex.Err
		}
		logger.Error("token-refresher: %v", refreshErr)

		r.mu.Lock()
		r.lastErr = refreshErr
		r.mu.Unlock()
		return nil, refreshErr
	}

	cred := domain.NewCredential(result.AccessToken, result.RefreshToken, r.now(), r.config.TokenLifespan)
	if err := r.store.Save(ctx, cred); err != nil {
		// The provider already issued the token, so keep using it in memory.
		logger.Error("token-refresher: persist credential: %v", err)
	}

	r.mu.Lock()
	r.current = &cred
	r.loaded = true
	r.lastErr = nil
	r.mu.Unlock()

	logger.Info("token-refresher: credential refreshed, expires at %s", cred.ExpiresAt.Format(time.RFC3339))
	return &cred, nil
}
