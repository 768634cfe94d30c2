package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the Time Doctor account, sync tuning and scheduler
settings stored in config.toml.

Use 'tdsync connect --email --company' to change the account login.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a single setting",
	Long: `Change one setting. Durations are whole numbers in the unit the key names.

Keys:
` + settingKeysHelp(),
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if settings == nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	// Account settings
	cmd.Println("[Time Doctor]")
	cmd.Printf("  Base URL: %s\n", settings.Provider.BaseURL)
	cmd.Printf("  Email: %s\n", valueOrUnset(settings.Provider.Email))
	if settings.Provider.Password != "" {
		cmd.Printf("  Password: %s\n", maskSecret(settings.Provider.Password))
	} else {
		cmd.Printf("  Password: (not set)\n")
	}
	cmd.Printf("  Company ID: %s\n", valueOrUnset(settings.Provider.CompanyID))
	cmd.Printf("  Requests per second: %g\n", settings.Provider.RequestsPerSecond)
	status := "configured"
	if !settings.Provider.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	// Sync settings
	s := settings.Sync
	cmd.Println("[Sync]")
	cmd.Printf("  Token lifespan: %s\n", s.TokenLifespan)
	cmd.Printf("  Refresh buffer: %s\n", s.TokenExpiryBuffer)
	cmd.Printf("  Refresh retries: %d (every %s)\n", s.MaxRefreshRetries, s.RefreshRetryDelay)
	cmd.Printf("  Batch size: %d\n", s.SyncBatchSize)
	cmd.Printf("  Max window: %d days\n", s.MaxDateRangeDays)
	cmd.Printf("  Page size: %d\n", s.PaginationLimit)
	cmd.Printf("  Window concurrency: %d\n", s.WindowConcurrency)
	cmd.Println()

	// Scheduler settings
	cmd.Println("[Scheduler]")
	cmd.Printf("  Enabled: %t\n", settings.Scheduler.Enabled)
	for _, id := range []string{domain.TaskIDTokenRefresh, domain.TaskIDTimeDoctorSync} {
		tc := settings.Scheduler.GetTaskConfig(id)
		state := "every " + tc.Interval.String()
		if !tc.Enabled {
			state = "disabled"
		}
		cmd.Printf("  %s: %s\n", id, state)
	}

	if err != nil {
		cmd.Println()
		cmd.Println(errorStyle.Render("Invalid: " + err.Error()))
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, raw := args[0], args[1]
	apply, ok := settingSetters[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}

	settings, err := settingsService.Get()
	if settings == nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := apply(settings, raw); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("%s set to %s\n", key, raw)
	return nil
}

// settingSetters maps each settable key onto the field it changes.
var settingSetters = map[string]func(*domain.AppSettings, string) error{
	"timedoctor.base_url": func(s *domain.AppSettings, v string) error {
		s.Provider.BaseURL = v
		return nil
	},
	"timedoctor.requests_per_second": func(s *domain.AppSettings, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return errors.New("must be a positive number")
		}
		s.Provider.RequestsPerSecond = f
		return nil
	},
	"sync.token_lifespan_hours":       durationSetter(func(s *domain.AppSettings) *time.Duration { return &s.Sync.TokenLifespan }, time.Hour),
	"sync.token_expiry_buffer_seconds": durationSetter(func(s *domain.AppSettings) *time.Duration { return &s.Sync.TokenExpiryBuffer }, time.Second),
	"sync.refresh_retry_delay":         durationSetter(func(s *domain.AppSettings) *time.Duration { return &s.Sync.RefreshRetryDelay }, time.Second),
	"sync.max_refresh_retries":         intSetter(func(s *domain.AppSettings) *int { return &s.Sync.MaxRefreshRetries }),
	"sync.sync_batch_size":             intSetter(func(s *domain.AppSettings) *int { return &s.Sync.SyncBatchSize }),
	"sync.max_date_range_days":         intSetter(func(s *domain.AppSettings) *int { return &s.Sync.MaxDateRangeDays }),
	"sync.pagination_limit":            intSetter(func(s *domain.AppSettings) *int { return &s.Sync.PaginationLimit }),
	"sync.window_concurrency":          intSetter(func(s *domain.AppSettings) *int { return &s.Sync.WindowConcurrency }),
	"scheduler.enabled": func(s *domain.AppSettings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("must be true or false")
		}
		s.Scheduler.Enabled = b
		return nil
	},
	"scheduler.sync_interval_minutes":    intervalSetter(domain.TaskIDTimeDoctorSync),
	"scheduler.refresh_interval_minutes": intervalSetter(domain.TaskIDTokenRefresh),
}

func intSetter(field func(*domain.AppSettings) *int) func(*domain.AppSettings, string) error {
	return func(s *domain.AppSettings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("must be a whole number")
		}
		*field(s) = n
		return nil
	}
}

func durationSetter(field func(*domain.AppSettings) *time.Duration, unit time.Duration) func(*domain.AppSettings, string) error {
	return func(s *domain.AppSettings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("must be a whole number")
		}
		*field(s) = time.Duration(n) * unit
		return nil
	}
}

func intervalSetter(taskID string) func(*domain.AppSettings, string) error {
	return func(s *domain.AppSettings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("must be a whole number")
		}
		if s.Scheduler.TaskConfigs == nil {
			s.Scheduler.TaskConfigs = make(map[string]domain.TaskConfig)
		}
		s.Scheduler.TaskConfigs[taskID] = domain.TaskConfig{Enabled: n > 0, Interval: time.Duration(n) * time.Minute}
		return nil
	}
}

func settingKeysHelp() string {
	keys := make([]string, 0, len(settingSetters))
	for k := range settingSetters {
		keys = append(keys, "  "+k)
	}
	sort.Strings(keys)
	return strings.Join(keys, "\n")
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func maskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
