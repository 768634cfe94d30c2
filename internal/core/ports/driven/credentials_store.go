package driven

import (
	"context"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// CredentialStore persists the provider credential.
// There is at most one credential per connection, so the store is keyed implicitly.
type CredentialStore interface {
	// Load returns the stored credential.
	// Returns nil and no error if no credential exists.
	Load(ctx context.Context) (*domain.Credential, error)

	// Save replaces the stored credential atomically.
	Save(ctx context.Context, cred domain.Credential) error

	// Delete removes the stored credential. Deleting a missing credential is not an error.
	Delete(ctx context.Context) error
}
