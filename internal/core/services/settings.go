package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
	"github.com/custodia-labs/tdsync/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyBaseURL           = "timedoctor.base_url"
	keyEmail             = "timedoctor.email"
	keyPassword          = "timedoctor.password"
	keyCompanyID         = "timedoctor.company_id"
	keyRequestsPerSecond = "timedoctor.requests_per_second"

	keyTokenLifespanHours  = "sync.token_lifespan_hours"
	keyExpiryBufferSeconds = "sync.token_expiry_buffer_seconds"
	keyExpiryBufferHours   = "sync.token_expiry_buffer_hours"
	keyMaxRefreshRetries   = "sync.max_refresh_retries"
	keyRefreshRetryDelay   = "sync.refresh_retry_delay"
	keySyncBatchSize       = "sync.sync_batch_size"
	keyMaxDateRangeDays    = "sync.max_date_range_days"
	keyPaginationLimit     = "sync.pagination_limit"
	keyWindowConcurrency   = "sync.window_concurrency"

	keySchedulerEnabled       = "scheduler.enabled"
	keySyncIntervalMinutes    = "scheduler.sync_interval_minutes"
	keyRefreshIntervalMinutes = "scheduler.refresh_interval_minutes"
)

// SettingsService maps the config file onto domain settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Unset keys take their defaults; the result is validated before it is returned.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Provider: domain.ProviderSettings{
			BaseURL:           s.getString(keyBaseURL, defaults.Provider.BaseURL),
			Email:             s.configStore.GetString(keyEmail),
			Password:          s.configStore.GetString(keyPassword),
			CompanyID:         s.configStore.GetString(keyCompanyID),
			RequestsPerSecond: s.getFloat(keyRequestsPerSecond, defaults.Provider.RequestsPerSecond),
		},
		Sync: domain.SyncConfig{
			TokenLifespan:     s.getHours(keyTokenLifespanHours, defaults.Sync.TokenLifespan),
			TokenExpiryBuffer: s.expiryBuffer(defaults.Sync.TokenExpiryBuffer),
			MaxRefreshRetries: s.getInt(keyMaxRefreshRetries, defaults.Sync.MaxRefreshRetries),
			RefreshRetryDelay: time.Duration(s.getInt(keyRefreshRetryDelay, int(defaults.Sync.RefreshRetryDelay/time.Second))) * time.Second,
			SyncBatchSize:     s.getInt(keySyncBatchSize, defaults.Sync.SyncBatchSize),
			MaxDateRangeDays:  s.getInt(keyMaxDateRangeDays, defaults.Sync.MaxDateRangeDays),
			PaginationLimit:   s.getInt(keyPaginationLimit, defaults.Sync.PaginationLimit),
			WindowConcurrency: s.getInt(keyWindowConcurrency, defaults.Sync.WindowConcurrency),
		},
		Scheduler: s.schedulerConfig(defaults.Scheduler),
	}

	if err := settings.Sync.Validate(); err != nil {
		return settings, fmt.Errorf("config %s: %w", s.configStore.Path(), err)
	}
	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Sync.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyBaseURL, settings.Provider.BaseURL},
		{keyEmail, settings.Provider.Email},
		{keyCompanyID, settings.Provider.CompanyID},
		{keyRequestsPerSecond, settings.Provider.RequestsPerSecond},
		{keyTokenLifespanHours, int(settings.Sync.TokenLifespan / time.Hour)},
		{keyExpiryBufferSeconds, int(settings.Sync.TokenExpiryBuffer / time.Second)},
		{keyMaxRefreshRetries, settings.Sync.MaxRefreshRetries},
		{keyRefreshRetryDelay, int(settings.Sync.RefreshRetryDelay / time.Second)},
		{keySyncBatchSize, settings.Sync.SyncBatchSize},
		{keyMaxDateRangeDays, settings.Sync.MaxDateRangeDays},
		{keyPaginationLimit, settings.Sync.PaginationLimit},
		{keyWindowConcurrency, settings.Sync.WindowConcurrency},
		{keySchedulerEnabled, settings.Scheduler.Enabled},
		{keySyncIntervalMinutes, int(settings.Scheduler.GetTaskConfig(domain.TaskIDTimeDoctorSync).Interval / time.Minute)},
		{keyRefreshIntervalMinutes, int(settings.Scheduler.GetTaskConfig(domain.TaskIDTokenRefresh).Interval / time.Minute)},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Seconds is the buffer's single source of truth once settings are saved.
	if err := s.configStore.Unset(keyExpiryBufferHours); err != nil {
		return fmt.Errorf("save %s: %w", keyExpiryBufferHours, err)
	}

	// The password is only written when one was supplied.
	if settings.Provider.Password != "" {
		if err := s.configStore.Set(keyPassword, settings.Provider.Password); err != nil {
			return fmt.Errorf("save %s: %w", keyPassword, err)
		}
	}

	return nil
}

// SetProviderAccount stores the Time Doctor login used by Connect and refresh.
func (s *SettingsService) SetProviderAccount(email, password, companyID string) error {
	switch {
	case email == "":
		return &domain.ValidationError{Field: "email", Reason: "is required"}
	case password == "":
		return &domain.ValidationError{Field: "password", Reason: "is required"}
	case companyID == "":
		return &domain.ValidationError{Field: "company_id", Reason: "is required"}
	}

	if err := s.configStore.Set(keyEmail, email); err != nil {
		return fmt.Errorf("save %s: %w", keyEmail, err)
	}
	if err := s.configStore.Set(keyPassword, password); err != nil {
		return fmt.Errorf("save %s: %w", keyPassword, err)
	}
	if err := s.configStore.Set(keyCompanyID, companyID); err != nil {
		return fmt.Errorf("save %s: %w", keyCompanyID, err)
	}
	return nil
}

// ClearProviderSecret removes the stored password.
func (s *SettingsService) ClearProviderSecret() error {
	if err := s.configStore.Unset(keyPassword); err != nil {
		return fmt.Errorf("clear %s: %w", keyPassword, err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// expiryBuffer resolves the refresh buffer. Seconds wins; hours is only
// read when seconds is absent.
func (s *SettingsService) expiryBuffer(defaultVal time.Duration) time.Duration {
	_, hasSeconds := s.configStore.Get(keyExpiryBufferSeconds)
	_, hasHours := s.configStore.Get(keyExpiryBufferHours)

	switch {
	case hasSeconds:
		buffer := time.Duration(s.configStore.GetInt(keyExpiryBufferSeconds)) * time.Second
		if hasHours {
			hours := time.Duration(s.configStore.GetInt(keyExpiryBufferHours)) * time.Hour
			if hours != buffer {
				logger.Warn("%s (%s) and %s (%s) disagree, using %s",
					keyExpiryBufferSeconds, buffer, keyExpiryBufferHours, hours, keyExpiryBufferSeconds)
			}
		}
		return buffer
	case hasHours:
		return time.Duration(s.configStore.GetInt(keyExpiryBufferHours)) * time.Hour
	default:
		return defaultVal
	}
}

func (s *SettingsService) schedulerConfig(defaults domain.SchedulerConfig) domain.SchedulerConfig {
	cfg := domain.SchedulerConfig{
		Enabled:     s.getBool(keySchedulerEnabled, defaults.Enabled),
		TaskConfigs: make(map[string]domain.TaskConfig, len(defaults.TaskConfigs)),
	}

	intervals := map[string]string{
		domain.TaskIDTimeDoctorSync: keySyncIntervalMinutes,
		domain.TaskIDTokenRefresh:   keyRefreshIntervalMinutes,
	}
	for id, def := range defaults.TaskConfigs {
		minutes := s.getInt(intervals[id], int(def.Interval/time.Minute))
		tc := domain.TaskConfig{Enabled: def.Enabled && cfg.Enabled, Interval: time.Duration(minutes) * time.Minute}
		if minutes <= 0 {
			tc.Enabled = false
		}
		cfg.TaskConfigs[id] = tc
	}
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt returns defaultVal only when the key is absent, so an explicit 0 is kept.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getHours(key string, defaultVal time.Duration) time.Duration {
	hours := s.getInt(key, 0)
	if hours <= 0 {
		return defaultVal
	}
	return time.Duration(hours) * time.Hour
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}
