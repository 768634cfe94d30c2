package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSyncConfig(t *testing.T) {
	cfg := DefaultSyncConfig()

	assert.Equal(t, 72*time.Hour, cfg.TokenExpiryBuffer)
	assert.Equal(t, 3, cfg.MaxRefreshRetries)
	assert.Equal(t, 5*time.Second, cfg.RefreshRetryDelay)
	assert.Equal(t, 100, cfg.SyncBatchSize)
	assert.Equal(t, 31, cfg.MaxDateRangeDays)
	assert.Equal(t, 250, cfg.PaginationLimit)
	assert.NoError(t, cfg.Validate())
}

func TestSyncConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SyncConfig)
		field  string
	}{
		{"buffer longer than lifespan", func(c *SyncConfig) { c.TokenExpiryBuffer = 7 * 24 * time.Hour }, "token_expiry_buffer_seconds"},
		{"negative retries", func(c *SyncConfig) { c.MaxRefreshRetries = -1 }, "max_refresh_retries"},
		{"zero batch", func(c *SyncConfig) { c.SyncBatchSize = 0 }, "sync_batch_size"},
		{"zero range", func(c *SyncConfig) { c.MaxDateRangeDays = 0 }, "max_date_range_days"},
		{"zero page size", func(c *SyncConfig) { c.PaginationLimit = 0 }, "pagination_limit"},
		{"zero concurrency", func(c *SyncConfig) { c.WindowConcurrency = 0 }, "window_concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSyncConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestProviderSettings_IsConfigured(t *testing.T) {
	assert.False(t, ProviderSettings{}.IsConfigured())
	assert.True(t, ProviderSettings{Email: "a@b.c", Password: "x", CompanyID: "c1"}.IsConfigured())
}
