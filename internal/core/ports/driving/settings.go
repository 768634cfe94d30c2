package driving

import "github.com/custodia-labs/tdsync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, filling defaults for unset keys.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetProviderAccount stores the Time Doctor account used by the login endpoint.
	SetProviderAccount(email, password, companyID string) error

	// ClearProviderSecret removes the stored password.
	ClearProviderSecret() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
