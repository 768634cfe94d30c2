package driven

import (
	"context"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// TokenProvider provides credentials for authenticated provider calls.
// Implementations refresh proactively before expiry, so callers only see
// a forced refresh when the provider rejects a token early.
type TokenProvider interface {
	// EnsureValidCredential returns a credential usable for at least the next call.
	// It never returns a credential whose expiry has passed.
	EnsureValidCredential(ctx context.Context) (*domain.Credential, error)

	// RefreshIfDue refreshes when the credential is inside the expiry buffer.
	// Unlike EnsureValidCredential it reports a failed refresh even while the
	// current credential is still usable.
	RefreshIfDue(ctx context.Context) (*domain.Credential, error)

	// ForceRefresh replaces the credential the provider rejected.
	// If the current token already differs from rejectedToken, the current
	// credential is returned without another refresh.
	ForceRefresh(ctx context.Context, rejectedToken string) (*domain.Credential, error)
}

// Authenticator exchanges the stored account secret for a new access token.
type Authenticator interface {
	// Authenticate calls the provider's authentication endpoint.
	// Returned errors are classified so retry policies can tell transient
	// failures from rejected credentials.
	Authenticate(ctx context.Context) (*AuthResult, error)
}

// AuthResult is the raw outcome of an authentication call.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
}
