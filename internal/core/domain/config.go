package domain

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultTokenExpiryBuffer = 259200 * time.Second
	DefaultMaxRefreshRetries = 3
	DefaultRefreshRetryDelay = 5 * time.Second
	DefaultSyncBatchSize     = 100
	DefaultMaxDateRangeDays  = 31
	DefaultPaginationLimit   = 250
	DefaultWindowConcurrency = 4
	DefaultRequestsPerSecond = 5.0
	DefaultBaseURL           = "https://api2.timedoctor.com"
)

// ProviderSettings holds Time Doctor account configuration.
type ProviderSettings struct {
	// BaseURL is the API root.
	BaseURL string

	// Email and Password authenticate the integration account.
	Email    string
	Password string

	// CompanyID scopes every list call.
	CompanyID string

	// RequestsPerSecond throttles provider calls.
	RequestsPerSecond float64
}

// IsConfigured returns true if credentials for the login endpoint are present.
func (p ProviderSettings) IsConfigured() bool {
	return p.Email != "" && p.Password != "" && p.CompanyID != ""
}

// SyncConfig holds the token and sync tuning knobs.
type SyncConfig struct {
	// TokenLifespan is the provider's fixed token lifetime.
	TokenLifespan time.Duration

	// TokenExpiryBuffer is how long before expiry a refresh is triggered.
	TokenExpiryBuffer time.Duration

	// MaxRefreshRetries is the retry budget after the first attempt, shared
	// by token refresh and transient page fetch failures.
	MaxRefreshRetries int

	// RefreshRetryDelay is the fixed wait between attempts.
	RefreshRetryDelay time.Duration

	// SyncBatchSize bounds each upsert call.
	SyncBatchSize int

	// MaxDateRangeDays bounds each worklog window.
	MaxDateRangeDays int

	// PaginationLimit is the page size requested from the provider.
	PaginationLimit int

	// WindowConcurrency bounds how many windows of one entity type run at once.
	WindowConcurrency int
}

// DefaultSyncConfig returns the documented defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		TokenLifespan:     DefaultTokenLifespan,
		TokenExpiryBuffer: DefaultTokenExpiryBuffer,
		MaxRefreshRetries: DefaultMaxRefreshRetries,
		RefreshRetryDelay: DefaultRefreshRetryDelay,
		SyncBatchSize:     DefaultSyncBatchSize,
		MaxDateRangeDays:  DefaultMaxDateRangeDays,
		PaginationLimit:   DefaultPaginationLimit,
		WindowConcurrency: DefaultWindowConcurrency,
	}
}

// Validate checks that the configuration is usable.
func (c SyncConfig) Validate() error {
	switch {
	case c.TokenLifespan <= 0:
		return &ValidationError{Field: "token_lifespan", Reason: "must be positive"}
	case c.TokenExpiryBuffer < 0:
		return &ValidationError{Field: "token_expiry_buffer_seconds", Reason: "must not be negative"}
	case c.TokenExpiryBuffer >= c.TokenLifespan:
		return &ValidationError{
			Field:  "token_expiry_buffer_seconds",
			Reason: fmt.Sprintf("buffer %s must be shorter than lifespan %s", c.TokenExpiryBuffer, c.TokenLifespan),
		}
	case c.MaxRefreshRetries < 0:
		return &ValidationError{Field: "max_refresh_retries", Reason: "must not be negative"}
	case c.RefreshRetryDelay < 0:
		return &ValidationError{Field: "refresh_retry_delay", Reason: "must not be negative"}
	case c.SyncBatchSize <= 0:
		return &ValidationError{Field: "sync_batch_size", Reason: "must be positive"}
	case c.MaxDateRangeDays <= 0:
		return &ValidationError{Field: "max_date_range_days", Reason: "must be positive"}
	case c.PaginationLimit <= 0:
		return &ValidationError{Field: "pagination_limit", Reason: "must be positive"}
	case c.WindowConcurrency <= 0:
		return &ValidationError{Field: "window_concurrency", Reason: "must be positive"}
	}
	return nil
}

// AppSettings is the full application configuration.
type AppSettings struct {
	Provider  ProviderSettings
	Sync      SyncConfig
	Scheduler SchedulerConfig
}

// DefaultAppSettings returns sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Provider: ProviderSettings{
			BaseURL:           DefaultBaseURL,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Sync:      DefaultSyncConfig(),
		Scheduler: DefaultSchedulerConfig(),
	}
}
