package services

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tdsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// mockAuthenticator fails the first len(errs) calls, then issues "token-N".
type mockAuthenticator struct {
	mu      stdsync.Mutex
	calls   int
	errs    []error
	release chan struct{}
}

func (m *mockAuthenticator) Authenticate(ctx context.Context) (*driven.AuthResult, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()

	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= len(m.errs) {
		return nil, m.errs[n-1]
	}
	return &driven.AuthResult{AccessToken: fmt.Sprintf("token-%d", n)}, nil
}

func (m *mockAuthenticator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// failingCredentialStore fails every Save.
type failingCredentialStore struct {
	*memory.CredentialStore
}

func (s failingCredentialStore) Save(_ context.Context, _ domain.Credential) error {
	return errors.New("disk full")
}

var refresherNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func timeoutErr() error {
	return &domain.TransientProviderError{Err: errors.New("timeout")}
}

type refresherFixture struct {
	store    *memory.CredentialStore
	auth     *mockAuthenticator
	refresh  *TokenRefresher
	sleeps   []time.Duration
	sleepsMu stdsync.Mutex
}

func newRefresherFixture(t *testing.T, cfg domain.SyncConfig, existing *domain.Credential) *refresherFixture {
	t.Helper()
	f := &refresherFixture{
		store: memory.NewCredentialStore(),
		auth:  &mockAuthenticator{},
	}
	if existing != nil {
		require.NoError(t, f.store.Save(context.Background(), *existing))
	}
	f.refresh = NewTokenRefresher(f.store, f.auth, cfg,
		WithClock(func() time.Time { return refresherNow }),
		WithRetrySleep(func(_ context.Context, d time.Duration) error {
			f.sleepsMu.Lock()
			f.sleeps = append(f.sleeps, d)
			f.sleepsMu.Unlock()
			return nil
		}),
	)
	return f
}

// credentialExpiringIn returns a 6-day credential with the given time left.
func credentialExpiringIn(left time.Duration) *domain.Credential {
	issued := refresherNow.Add(left - domain.DefaultTokenLifespan)
	c := domain.NewCredential("token-old", "", issued, domain.DefaultTokenLifespan)
	return &c
}

func TestTokenRefresher_NotConnected(t *testing.T) {
	f := newRefresherFixture(t, domain.DefaultSyncConfig(), nil)

	cred, err := f.refresh.EnsureValidCredential(context.Background())

	assert.Nil(t, cred)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Equal(t, "Time Doctor is not connected", err.Error())
	assert.Zero(t, f.auth.Calls())
}

func TestTokenRefresher_ExpiryBuffer(t *testing.T) {
	tests := []struct {
		name        string
		left        time.Duration
		wantRefresh bool
	}{
		{"five days left", 5 * 24 * time.Hour, false},
		{"73 hours left", 73 * time.Hour, false},
		{"exactly 72 hours left", 72 * time.Hour, true},
		{"71 hours left", 71 * time.Hour, true},
		{"one minute left", time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRefresherFixture(t, domain.DefaultSyncConfig(), credentialExpiringIn(tt.left))

			cred, err := f.refresh.EnsureValidCredential(context.Background())

			require.NoError(t, err)
			if tt.wantRefresh {
				assert.Equal(t, 1, f.auth.Calls())
				assert.Equal(t, "token-1", cred.AccessToken)
				assert.Equal(t, refresherNow, cred.IssuedAt)
				assert.Equal(t, refresherNow.Add(domain.DefaultTokenLifespan), cred.ExpiresAt)
			} else {
				assert.Zero(t, f.auth.Calls())
				assert.Equal(t, "token-old", cred.AccessToken)
			}
		})
	}
}

func TestTokenRefresher_RetriesUpToBudget(t *testing.T) {
	f := newRefresherFixture(t, domain.DefaultSyncConfig(), credentialExpiringIn(71*time.Hour))
	f.auth.errs = []error{timeoutErr(), timeoutErr(), timeoutErr()}

	cred, err := f.refresh.EnsureValidCredential(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "token-4", cred.AccessToken)
	assert.Equal(t, 4, f.auth.Calls())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, f.sleeps)

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-4", stored.AccessToken)
	assert.Equal(t, refresherNow.Add(6*24*time.Hour), stored.ExpiresAt)

	status, err := f.refresh.ConnectionStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status.LastRefreshError)
}

func TestTokenRefresher_ExhaustedKeepsValidCredential(t *testing.T) {
	cfg := domain.DefaultSyncConfig()
	cfg.MaxRefreshRetries = 2
	f := newRefresherFixture(t, cfg, credentialExpiringIn(71*time.Hour))
	f.auth.errs = []error{timeoutErr(), timeoutErr(), timeoutErr()}

	cred, err := f.refresh.EnsureValidCredential(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "token-old", cred.AccessToken, "stale but valid credential is returned")
	assert.Equal(t, 3, f.auth.Calls())

	status, err := f.refresh.ConnectionStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.True(t, status.NeedsRefresh)
	assert.Contains(t, status.LastRefreshError, "after 3 attempts")
}

func TestTokenRefresher_ExhaustedWithExpiredCredential(t *testing.T) {
	cfg := domain.DefaultSyncConfig()
	cfg.MaxRefreshRetries = 1
	f := newRefresherFixture(t, cfg, credentialExpiringIn(-time.Minute))
	f.auth.errs = []error{timeoutErr(), timeoutErr()}

	cred, err := f.refresh.EnsureValidCredential(context.Background())

	assert.Nil(t, cred)
	assert.ErrorIs(t, err, domain.ErrAuthExpired)
	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)

	var refreshErr *domain.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.True(t, refreshErr.Exhausted)
	assert.Equal(t, 2, refreshErr.Attempts)
}

func TestTokenRefresher_RejectedSecretNotRetried(t *testing.T) {
	f := newRefresherFixture(t, domain.DefaultSyncConfig(), credentialExpiringIn(-time.Hour))
	f.auth.errs = []error{&domain.AuthError{StatusCode: 401, Message: "invalid password"}}

	_, err := f.refresh.EnsureValidCredential(context.Background())

	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.Equal(t, 1, f.auth.Calls())
	assert.Empty(t, f.sleeps)

	var refreshErr *domain.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.False(t, refreshErr.Exhausted)
}

func TestTokenRefresher_ConcurrentCallersShareOneRefresh(t *testing.T) {
	f := newRefresherFixture(t, domain.DefaultSyncConfig(), credentialExpiringIn(time.Hour))
	f.auth.release = make(chan struct{})

	const callers = 10
	results := make(chan string, callers)
	var wg stdsync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred, err := f.refresh.EnsureValidCredential(context.Background())
			if err != nil {
				results <- "error: " + err.Error()
				return
			}
			results <- cred.AccessToken
		}()
	}

	require.Eventually(t, func() bool { return f.auth.Calls() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight refresh.
	time.Sleep(20 * time.Millisecond)
	close(f.auth.release)
	wg.Wait()
	close(results)

	assert.Equal(t, 1, f.auth.Calls())
	for token := range results {
		assert.Equal(t, "token-1", token)
	}
}

func TestTokenRefresher_LateCallerUsesFinishedRefresh(t *testing.T) {
	store := memory.NewCredentialStore()
	require.NoError(t, store.Save(context.Background(), *credentialExpiringIn(time.Hour)))
	auth := &mockAuthenticator{}

	// The first clock read belongs to the late caller, which stays parked
	// after loading the old credential until the other refresh is done.
	parked := make(chan struct{})
	resume := make(chan struct{})
	var clockMu stdsync.Mutex
	reads := 0
	clock := func() time.Time {
		clockMu.Lock()
		reads++
		first := reads == 1
		clockMu.Unlock()
		if first {
			close(parked)
			<-resume
		}
		return refresherNow
	}
	refresher := NewTokenRefresher(store, auth, domain.DefaultSyncConfig(), WithClock(clock))

	lateCh := make(chan *domain.Credential, 1)
	go func() {
		cred, err := refresher.EnsureValidCredential(context.Background())
		assert.NoError(t, err)
		lateCh <- cred
	}()
	<-parked

	first, err := refresher.EnsureValidCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", first.AccessToken)

	close(resume)
	late := <-lateCh

	require.NotNil(t, late)
	assert.Equal(t, "token-1", late.AccessToken)
	assert.Equal(t, 1, auth.Calls())
}

func TestTokenRefresher_RefreshIfDueReportsExhaustion(t *testing.T) {
	f := newRefresherFixture(t, domain.DefaultSyncConfig(), credentialExpiringIn(10*time.Hour))
	f.auth.errs = []error{timeoutErr(), timeoutErr(), timeoutErr(), timeoutErr()}

	cred, err := f.refresh.RefreshIfDue(context.Background())

	var refreshErr *domain.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.True(t, refreshErr.Exhausted)
	assert.Equal(t, 4, refreshErr.Attempts)
	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)
	require.NotNil(t, cred)
	assert.Equal(t, "token-old", cred.AccessToken)

	// Page fetches keep working on the unexpired credential.
	cred, err = f.refresh.EnsureValidCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-old", cred.AccessToken)
}

func TestTokenRefresher_RefreshIfDueOutsideBuffer(t *testing.T) {
	f := newRefresherFixture(t, domain.DefaultSyncConfig(), credentialExpiringIn(5*24*time.Hour))

	cred, err := f.refresh.RefreshIfDue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "token-old", cred.AccessToken)
	assert.Zero(t, f.auth.Calls())
}

func TestTokenRefresher_CancelledCallerDoesNotAbortRefresh(t *testing.T) {
	f := newRefresherFixture(t, domain.DefaultSyncConfig(), credentialExpiringIn(-time.Minute))
	f.auth.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := f.refresh.EnsureValidCredential(ctx)
		errCh <- err
	}()

	require.Eventually(t, func() bool { return f.auth.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(f.auth.release)
	require.Eventually(t, func() bool {
		stored, _ := f.store.Load(context.Background())
		return stored != nil && stored.AccessToken == "token-1"
	}, time.Second, time.Millisecond)

	cred, err := f.refresh.EnsureValidCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", cred.AccessToken)
	assert.Equal(t, 1, f.auth.Calls())
}

func TestTokenRefresher_ForceRefresh(t *testing.T) {
	t.Run("refreshes the rejected token", func(t *testing.T) {
		f := newRefresherFixture(t, domain.DefaultSyncConfig(), credentialExpiringIn(5*24*time.Hour))

		cred, err := f.refresh.ForceRefresh(context.Background(), "token-old")

		require.NoError(t, err)
		assert.Equal(t, "token-1", cred.AccessToken)
		assert.Equal(t, 1, f.auth.Calls())
	})

	t.Run("skips when token already replaced", func(t *testing.T) {
		f := newRefresherFixture(t, domain.DefaultSyncConfig(), credentialExpiringIn(5*24*time.Hour))

		cred, err := f.refresh.ForceRefresh(context.Background(), "token-from-before")

		require.NoError(t, err)
		assert.Equal(t, "token-old", cred.AccessToken)
		assert.Zero(t, f.auth.Calls())
	})

	t.Run("not connected", func(t *testing.T) {
		f := newRefresherFixture(t, domain.DefaultSyncConfig(), nil)

		_, err := f.refresh.ForceRefresh(context.Background(), "x")

		assert.ErrorIs(t, err, domain.ErrNotConnected)
	})
}

func TestTokenRefresher_ConnectAndDisconnect(t *testing.T) {
	f := newRefresherFixture(t, domain.DefaultSyncConfig(), nil)
	ctx := context.Background()

	status, err := f.refresh.ConnectionStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)

	cred, err := f.refresh.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", cred.AccessToken)

	status, err = f.refresh.ConnectionStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.False(t, status.NeedsRefresh)
	assert.Equal(t, refresherNow.Add(domain.DefaultTokenLifespan), status.ExpiresAt)

	require.NoError(t, f.refresh.Disconnect(ctx))

	stored, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = f.refresh.EnsureValidCredential(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestTokenRefresher_PersistFailureKeepsToken(t *testing.T) {
	store := failingCredentialStore{memory.NewCredentialStore()}
	auth := &mockAuthenticator{}
	refresher := NewTokenRefresher(store, auth, domain.DefaultSyncConfig(),
		WithClock(func() time.Time { return refresherNow }))

	cred, err := refresher.Connect(context.Background())
	require.NoError(t, err)

	again, err := refresher.EnsureValidCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cred.AccessToken, again.AccessToken)
	assert.Equal(t, 1, auth.Calls())
}
