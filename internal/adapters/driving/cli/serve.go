package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tdsync/internal/logger"
)

var (
	serveLogFile    string
	serveLogMaxSize int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh the token and sync on a schedule",
	Long: `Runs the scheduler in the foreground until interrupted.

Two tasks run on their configured intervals: a token refresh that renews
the Time Doctor token before it expires, and a resumable sync of every
entity type. Intervals are set in the [scheduler] table of config.toml;
edits to that file are picked up without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Write logs to a rotating file instead of stderr")
	serveCmd.Flags().IntVar(&serveLogMaxSize, "log-max-size", 10, "Rotate the log file after this many megabytes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	if serveLogFile != "" {
		closer := logger.SetFileOutput(logger.FileOptions{Path: serveLogFile, MaxSizeMB: serveLogMaxSize})
		defer func() {
			logger.SetOutput(os.Stderr)
			_ = closer.Close()
		}()
		cmd.Printf("Logging to %s\n", serveLogFile)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if configWatcher != nil && settingsService != nil {
		go watchConfig(ctx)
	}

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err := scheduler.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler failed: %w", err)
	}

	if err := scheduler.Stop(); err != nil {
		logger.Warn("stopping scheduler: %v", err)
	}
	cmd.Println("Scheduler stopped.")
	return nil
}

// watchConfig pushes scheduler settings to the running scheduler each time
// the config file changes.
func watchConfig(ctx context.Context) {
	err := configWatcher.Watch(ctx, func() {
		settings, err := settingsService.Get()
		if err != nil {
			logger.Warn("config: keeping current scheduler settings: %v", err)
			return
		}
		if err := scheduler.Reconfigure(ctx, settings.Scheduler); err != nil {
			logger.Warn("config: reconfiguring scheduler: %v", err)
		}
	})
	if err != nil {
		logger.Warn("config: watch stopped: %v", err)
	}
}
