package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore is an in-memory implementation of driven.CredentialStore.
type CredentialStore struct {
	mu   sync.RWMutex
	cred *domain.Credential
}

// NewCredentialStore creates a new in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// Load returns a copy of the stored credential, or nil if none is stored.
func (s *CredentialStore) Load(_ context.Context) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

// Save replaces the stored credential.
func (s *CredentialStore) Save(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	return nil
}

// Delete removes the stored credential.
func (s *CredentialStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}
