// Command tdsync keeps a Time Doctor connection alive and mirrors its
// records into a local SQLite database.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/tdsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tdsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tdsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/tdsync/internal/connectors/timedoctor"
	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/services"
	"github.com/custodia-labs/tdsync/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	home := os.Getenv("TDSYNC_HOME")
	if home == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return err
		}
		home = dir
	}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		// Keep the CLI usable so 'tdsync settings set' can repair the file.
		logger.Error("%v; using default sync settings", err)
		settings.Sync = domain.DefaultSyncConfig()
	}

	store, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = store.Close() }()

	auth := timedoctor.NewAccountAuthenticator(func() (domain.ProviderSettings, error) {
		current, err := settingsService.Get()
		if current == nil {
			return domain.ProviderSettings{}, err
		}
		return current.Provider, nil
	}, nil)
	tokens := services.NewTokenRefresher(store.CredentialStore(), auth, settings.Sync)
	client := timedoctor.NewClient(timedoctor.ConfigFromSettings(settings.Provider, settings.Sync), tokens)
	entityStore := store.EntityStore()
	ledger := store.RunLedger()
	taskStore := store.SchedulerStore()

	syncOrchestrator := services.NewSyncOrchestrator(client, tokens, entityStore, ledger, settings.Sync)
	scheduler := services.NewScheduler(settings.Scheduler, taskStore, syncOrchestrator, tokens)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		SyncOrchestrator:  syncOrchestrator,
		ConnectionService: tokens,
		SettingsService:   settingsService,
		Scheduler:         scheduler,
		RunLedger:         ledger,
		EntityStore:       entityStore,
		ConfigWatcher:     configStore,
		SchedulerStore:    taskStore,
	})

	return cli.Execute()
}
