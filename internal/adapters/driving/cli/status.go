package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection and local record counts",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	ctx := cmd.Context()
	status, err := connectionService.ConnectionStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection status: %w", err)
	}

	cmd.Println(titleStyle.Render("Time Doctor"))
	switch {
	case !status.Connected && status.ExpiresAt.IsZero():
		cmd.Printf("  Connection: %s\n", errorStyle.Render("not connected"))
		cmd.Println(mutedStyle.Render("  Run 'tdsync connect' to log in."))
	case !status.Connected:
		cmd.Printf("  Connection: %s\n", errorStyle.Render("expired"))
		cmd.Printf("  Expired:    %s\n", formatTime(status.ExpiresAt))
	default:
		state := successStyle.Render("connected")
		if status.NeedsRefresh {
			state = warningStyle.Render("connected (refresh due)")
		}
		cmd.Printf("  Connection: %s\n", state)
		cmd.Printf("  Issued:     %s\n", formatTime(status.IssuedAt))
		cmd.Printf("  Expires:    %s\n", formatTime(status.ExpiresAt))
	}
	if status.LastRefreshError != "" {
		cmd.Printf("  Last error: %s\n", errorStyle.Render(status.LastRefreshError))
	}

	if entityStore == nil {
		return nil
	}

	cmd.Println()
	cmd.Println(titleStyle.Render("Local records"))
	for _, t := range domain.SyncOrder {
		n, err := entityStore.Count(ctx, t)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", t, err)
		}
		line := fmt.Sprintf("  %-9s %d", t, n)
		if t.HasDateDimension() {
			marker, err := entityStore.LastSyncedMarker(ctx, t)
			if err != nil {
				return fmt.Errorf("failed to read %s marker: %w", t, err)
			}
			if marker != nil {
				line += mutedStyle.Render(" (newest " + formatTime(*marker) + ")")
			}
		}
		cmd.Println(line)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04 MST")
}
