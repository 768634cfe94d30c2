package timedoctor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// Ensure Authenticator implements the interface.
var _ driven.Authenticator = (*Authenticator)(nil)

const loginPath = "/api/1.0/authorization/login"

// Authenticator obtains access tokens from the login endpoint.
// Time Doctor issues no refresh token, so every refresh is a new login.
type Authenticator struct {
	account func() (domain.ProviderSettings, error)
	http    *http.Client
}

// NewAuthenticator creates an authenticator for the configured account.
// A nil httpClient uses a client with DefaultTimeout.
func NewAuthenticator(settings domain.ProviderSettings, httpClient *http.Client) *Authenticator {
	return NewAccountAuthenticator(func() (domain.ProviderSettings, error) { return settings, nil }, httpClient)
}

// NewAccountAuthenticator creates an authenticator that reads the account
// on every login, so a changed password is picked up without a restart.
func NewAccountAuthenticator(account func() (domain.ProviderSettings, error), httpClient *http.Client) *Authenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Authenticator{account: account, http: httpClient}
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Permissions string `json:"permissions"`
}

type companyJSON struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

type loginResponse struct {
	Data struct {
		Token     string        `json:"token"`
		Companies []companyJSON `json:"companies"`
	} `json:"data"`
}

// Authenticate exchanges the account email and password for an access token.
func (a *Authenticator) Authenticate(ctx context.Context) (*driven.AuthResult, error) {
	account, err := a.account()
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account.Email == "" || account.Password == "" {
		return nil, &domain.ValidationError{Field: "timedoctor.email", Reason: "email and password must be configured"}
	}
	baseURL := strings.TrimRight(account.BaseURL, "/")
	if baseURL == "" {
		baseURL = domain.DefaultBaseURL
	}

	body, err := json.Marshal(loginRequest{Email: account.Email, Password: account.Password, Permissions: "read"})
	if err != nil {
		return nil, fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TransientProviderError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyResponse(resp)
	}

	var out loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody*16)).Decode(&out); err != nil {
		return nil, &domain.TransientProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode login response: %w", err)}
	}
	if out.Data.Token == "" {
		return nil, &domain.AuthError{StatusCode: resp.StatusCode, Message: "login response carried no token"}
	}
	if account.CompanyID != "" && len(out.Data.Companies) > 0 && !hasCompany(out.Data.Companies, account.CompanyID) {
		return nil, &domain.PermanentProviderError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("account has no access to company %s", account.CompanyID),
			URL:        baseURL + loginPath,
		}
	}

	return &driven.AuthResult{AccessToken: out.Data.Token}, nil
}

func hasCompany(companies []companyJSON, id string) bool {
	for _, c := range companies {
		if string(c.ID) == id {
			return true
		}
	}
	return false
}
