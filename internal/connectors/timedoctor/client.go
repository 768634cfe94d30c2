package timedoctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
	"github.com/custodia-labs/tdsync/internal/logger"
	"github.com/custodia-labs/tdsync/internal/retry"
)

// Ensure Client implements the interface.
var _ driven.ProviderClient = (*Client)(nil)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxResponseBody bounds a single list response.
	maxResponseBody = 32 << 20
)

// Config configures the provider client.
type Config struct {
	// BaseURL is the API root, e.g. https://api2.timedoctor.com.
	BaseURL string

	// CompanyID scopes every list call.
	CompanyID string

	// PageLimit is the largest page size a cursor may request.
	PageLimit int

	// MaxRetries and RetryDelay drive the transient-failure retry policy.
	MaxRetries int
	RetryDelay time.Duration

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64
}

// ConfigFromSettings builds a client config from application settings.
func ConfigFromSettings(provider domain.ProviderSettings, sync domain.SyncConfig) Config {
	return Config{
		BaseURL:           provider.BaseURL,
		CompanyID:         provider.CompanyID,
		PageLimit:         sync.PaginationLimit,
		MaxRetries:        sync.MaxRefreshRetries,
		RetryDelay:        sync.RefreshRetryDelay,
		RequestsPerSecond: provider.RequestsPerSecond,
	}
}

// Client fetches Time Doctor records.
type Client struct {
	cfg         Config
	tokens      driven.TokenProvider
	http        *http.Client
	rateLimiter *RateLimiter
	sleep       func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithSleep replaces the wait between retry attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a Time Doctor client authenticating through tokens.
func NewClient(cfg Config, tokens driven.TokenProvider, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = domain.DefaultPaginationLimit
	}

	c := &Client{
		cfg:         cfg,
		tokens:      tokens,
		http:        &http.Client{Timeout: DefaultTimeout},
		rateLimiter: NewRateLimiter(cfg.RequestsPerSecond),
		sleep:       retry.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage returns one page of records for window starting at cursor.
//
// A 401 or 403 triggers one forced token refresh and one retry. Transient
// failures are retried up to MaxRetries times. A next offset that does not
// advance ends pagination and is reported as ErrCursorStalled alongside the
// page's records.
func (c *Client) FetchPage(
	ctx context.Context,
	entityType domain.EntityType,
	window domain.SyncWindow,
	cursor domain.PageCursor,
) (*domain.Page, error) {
	if window.EntityType != entityType {
		return nil, &domain.ValidationError{
			Field:  "window",
			Reason: fmt.Sprintf("window for %s used to fetch %s", window.EntityType, entityType),
		}
	}
	if err := window.Validate(0); err != nil {
		return nil, err
	}
	if err := cursor.Validate(c.cfg.PageLimit); err != nil {
		return nil, err
	}

	endpoint, err := c.listURL(window, cursor)
	if err != nil {
		return nil, err
	}

	forced := false
	policy := retry.Policy{
		MaxRetries: c.cfg.MaxRetries,
		Delay:      c.cfg.RetryDelay,
		Retryable: func(err error) bool {
			// Refresh failures were already retried by the token provider.
			return domain.IsRetryable(err) && !errors.Is(err, domain.ErrTokenRefreshFailed)
		},
		OnRetry: func(attempt int, err error) {
			logger.Warn("timedoctor: %s offset %d attempt %d failed: %v", window, cursor.Offset, attempt, err)
		},
		Sleep: c.sleep,
	}

	var env *listEnvelope
	err = policy.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		env, err = c.getAuthorized(ctx, endpoint, &forced)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s offset %d: %w", window, cursor.Offset, err)
	}

	records, err := decodeRecords(entityType, env.Data)
	if err != nil {
		return nil, &domain.PermanentProviderError{StatusCode: http.StatusOK, Message: err.Error(), URL: redactURL(endpoint)}
	}
	page := &domain.Page{Records: records}

	offset, more, err := nextOffset(env.Paging.Next)
	if err != nil {
		return nil, &domain.PermanentProviderError{StatusCode: http.StatusOK, Message: err.Error(), URL: redactURL(endpoint)}
	}
	if !more {
		return page, nil
	}
	if offset <= cursor.Offset {
		logger.Warn("timedoctor: %s next offset %d does not advance past %d, stopping", window, offset, cursor.Offset)
		return page, fmt.Errorf("%s: next offset %d after %d: %w", window, offset, cursor.Offset, domain.ErrCursorStalled)
	}
	page.Next = &domain.PageCursor{Offset: offset, Limit: cursor.Limit}
	return page, nil
}

// getAuthorized performs one GET, forcing one token refresh on an auth failure.
// forced persists across retry attempts so a single FetchPage refreshes at most once.
func (c *Client) getAuthorized(ctx context.Context, endpoint string, forced *bool) (*listEnvelope, error) {
	token, err := NewTokenSource(ctx, c.tokens).Token()
	if err != nil {
		return nil, err
	}

	env, err := c.get(ctx, endpoint, token)
	if err == nil || !domain.IsAuthFailure(err) {
		return env, err
	}
	if *forced {
		return nil, err
	}
	*forced = true

	cred, refreshErr := c.tokens.ForceRefresh(ctx, token.AccessToken)
	if refreshErr != nil {
		return nil, fmt.Errorf("provider rejected token: %w", refreshErr)
	}
	return c.get(ctx, endpoint, credentialToken(cred))
}

func (c *Client) get(ctx context.Context, endpoint string, token *oauth2.Token) (*listEnvelope, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TransientProviderError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := classifyResponse(resp)
		var transient *domain.TransientProviderError
		if errors.As(err, &transient) && transient.StatusCode == http.StatusTooManyRequests {
			c.rateLimiter.RecordRateLimit(transient.RetryAfter)
		}
		return nil, err
	}

	var env listEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&env); err != nil {
		return nil, &domain.TransientProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &env, nil
}

func (c *Client) listURL(window domain.SyncWindow, cursor domain.PageCursor) (string, error) {
	path, ok := endpoints[window.EntityType]
	if !ok {
		return "", &domain.ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", window.EntityType)}
	}

	q := url.Values{}
	q.Set("company", c.cfg.CompanyID)
	q.Set("offset", strconv.Itoa(cursor.Offset))
	q.Set("limit", strconv.Itoa(cursor.Limit))
	if !window.IsFull() {
		q.Set("from", window.Start.UTC().Format(time.RFC3339))
		q.Set("to", window.End.UTC().Format(time.RFC3339))
	}

	return c.cfg.BaseURL + path + "?" + q.Encode(), nil
}
