package timedoctor

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// TokenType is the Authorization scheme Time Doctor expects.
const TokenType = "JWT"

// TokenSourceAdapter adapts a TokenProvider to oauth2.TokenSource.
type TokenSourceAdapter struct {
	provider driven.TokenProvider
	ctx      context.Context
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &TokenSourceAdapter{
		provider: provider,
		ctx:      ctx,
	}
}

// Token implements oauth2.TokenSource.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	cred, err := t.provider.EnsureValidCredential(t.ctx)
	if err != nil {
		return nil, err
	}
	return credentialToken(cred), nil
}

// credentialToken converts a credential so SetAuthHeader writes "JWT <token>".
func credentialToken(cred *domain.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: cred.AccessToken,
		TokenType:   TokenType,
		Expiry:      cred.ExpiresAt,
	}
}
