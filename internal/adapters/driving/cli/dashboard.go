package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tdsync/internal/adapters/driving/tui"
	"github.com/custodia-labs/tdsync/internal/logger"
)

var dashboardScheduler bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive view of the connection and recent runs",
	Long: `Opens a full-screen view of the Time Doctor connection and the sync
ledger, and lets you start a sync and watch its progress.

Controls:
  s        - Sync every entity type
  S        - Sync, skipping windows that already succeeded
  r        - Reload connection and ledger
  ↑/k, ↓/j - Move through the ledger
  ?        - Toggle help
  q        - Quit`,
	RunE: runDashboard,
}

// startDashboard runs the program. Replaced in tests.
var startDashboard = func(app *tui.App) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("dashboard needs an interactive terminal")
	}
	return app.Run()
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardScheduler, "with-scheduler", false,
		"Run the background scheduler while the dashboard is open")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	app, err := tui.NewApp(&tui.Ports{
		Sync:       syncOrchestrator,
		Connection: connectionService,
		Ledger:     runLedger,
	})
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	app.WithContext(cmd.Context())

	if dashboardScheduler && scheduler != nil {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go func() {
			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("scheduler stopped: %v", err)
			}
		}()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("stopping scheduler: %v", err)
			}
		}()
	}

	if err := startDashboard(app); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
