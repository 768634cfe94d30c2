package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// credentialStore implements driven.CredentialStore.
// The credential lives in a single-row table so Save is one atomic upsert.
type credentialStore struct {
	store *Store
}

var _ driven.CredentialStore = (*credentialStore)(nil)

// Load returns the stored credential, or nil if none exists.
func (s *credentialStore) Load(ctx context.Context) (*domain.Credential, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, issued_at, expires_at, lifespan_seconds
		FROM credential WHERE id = 1
	`)

	var cred domain.Credential
	var refreshToken sql.NullString
	var issuedAt, expiresAt, lifespanSeconds int64
	if err := row.Scan(&cred.AccessToken, &refreshToken, &issuedAt, &expiresAt, &lifespanSeconds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning credential: %w", err)
	}

	cred.RefreshToken = refreshToken.String
	cred.IssuedAt = fromUnixNano(issuedAt)
	cred.ExpiresAt = fromUnixNano(expiresAt)
	cred.Lifespan = time.Duration(lifespanSeconds) * time.Second
	return &cred, nil
}

// Save replaces the stored credential.
func (s *credentialStore) Save(ctx context.Context, cred domain.Credential) error {
	if cred.AccessToken == "" {
		return &domain.ValidationError{Field: "access_token", Reason: "must not be empty"}
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO credential (id, access_token, refresh_token, issued_at, expires_at, lifespan_seconds, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at,
			lifespan_seconds = excluded.lifespan_seconds,
			updated_at = excluded.updated_at
	`, cred.AccessToken, nullString(cred.RefreshToken),
		unixNano(cred.IssuedAt), unixNano(cred.ExpiresAt),
		int64(cred.Lifespan/time.Second), unixNano(s.store.now()))
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Delete removes the stored credential.
func (s *credentialStore) Delete(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM credential WHERE id = 1"); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}
