package domain

import "time"

// DefaultTokenLifespan is how long a Time Doctor access token stays valid.
const DefaultTokenLifespan = 6 * 24 * time.Hour

// Credential is the provider access token together with its validity window.
// There is at most one Credential per provider connection.
type Credential struct {
	// AccessToken is sent on every provider call.
	AccessToken string `json:"access_token"`

	// RefreshToken is kept when the provider issues one. Time Doctor does not,
	// so refreshes re-authenticate with the stored account secret.
	RefreshToken string `json:"refresh_token,omitempty"`

	// IssuedAt is when the token was obtained.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is always IssuedAt + Lifespan.
	ExpiresAt time.Time `json:"expires_at"`

	// Lifespan is the fixed provider token lifetime.
	Lifespan time.Duration `json:"lifespan"`
}

// NewCredential builds a credential issued at issuedAt.
func NewCredential(accessToken, refreshToken string, issuedAt time.Time, lifespan time.Duration) Credential {
	if lifespan <= 0 {
		lifespan = DefaultTokenLifespan
	}
	return Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(lifespan),
		Lifespan:     lifespan,
	}
}

// IsExpired returns true once now has reached ExpiresAt.
func (c *Credential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// NeedsRefresh returns true when now is inside the buffer before expiry.
func (c *Credential) NeedsRefresh(now time.Time, buffer time.Duration) bool {
	return !now.Before(c.ExpiresAt.Add(-buffer))
}

// IsUsable returns true if the credential can authenticate a call at now.
func (c *Credential) IsUsable(now time.Time) bool {
	return c != nil && c.AccessToken != "" && !c.IsExpired(now)
}

// ConnectionStatus describes the provider connection for the admin surface.
type ConnectionStatus struct {
	Connected        bool
	IssuedAt         time.Time
	ExpiresAt        time.Time
	NeedsRefresh     bool
	LastRefreshError string
}
