// Package cli provides the tdsync command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
	"github.com/custodia-labs/tdsync/internal/logger"
)

var (
	version = "dev"

	syncOrchestrator  driving.SyncOrchestrator
	connectionService driving.ConnectionService
	settingsService   driving.SettingsService
	scheduler         driving.Scheduler
	runLedger         driven.RunLedger
	entityStore       driven.EntityStore
	configWatcher     driven.ConfigWatcher
	schedulerStore    driven.SchedulerStore

	verbose bool
)

// Services holds the core services the commands call into.
type Services struct {
	SyncOrchestrator  driving.SyncOrchestrator
	ConnectionService driving.ConnectionService
	SettingsService   driving.SettingsService
	Scheduler         driving.Scheduler
	RunLedger         driven.RunLedger
	EntityStore       driven.EntityStore
	ConfigWatcher     driven.ConfigWatcher
	SchedulerStore    driven.SchedulerStore
}

var rootCmd = &cobra.Command{
	Use:   "tdsync",
	Short: "Time Doctor sync",
	Long: `tdsync keeps a Time Doctor connection alive and mirrors users, projects,
tasks and worklogs into a local database.

Run 'tdsync connect' once, then 'tdsync sync' on demand or 'tdsync serve'
to refresh the token and sync on a schedule.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// SetServices injects the core services. Called once from main.
func SetServices(s Services) {
	syncOrchestrator = s.SyncOrchestrator
	connectionService = s.ConnectionService
	settingsService = s.SettingsService
	scheduler = s.Scheduler
	runLedger = s.RunLedger
	entityStore = s.EntityStore
	configWatcher = s.ConfigWatcher
	schedulerStore = s.SchedulerStore
}

// SetVersion sets the version printed by 'tdsync version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
