package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
)

var (
	syncEntities []string
	syncFrom     string
	syncTo       string
	syncResume   bool
)

// pollInterval is how often progress is printed during a sync.
var pollInterval = 500 * time.Millisecond

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise records from Time Doctor",
	Long: `Pulls users, projects, tasks and worklogs from Time Doctor into the
local database, always in that order.

Worklogs are fetched in date windows. Without --from and --to the run picks
up from the newest stored worklog. Dates are YYYY-MM-DD in UTC and --to is
inclusive.`,
	RunE: runSync,
}

var syncWindowCmd = &cobra.Command{
	Use:   "window <entity>",
	Short: "Synchronise a single window",
	Long: `Runs exactly one window. Worklogs need --from and --to and the range
may not exceed the configured maximum window size.`,
	Args: cobra.ExactArgs(1),
	RunE: runSyncWindow,
}

func init() {
	syncCmd.Flags().StringSliceVarP(&syncEntities, "entity", "e", nil,
		"Entity types to sync (users, projects, tasks, worklogs)")
	syncCmd.Flags().StringVar(&syncFrom, "from", "", "First day to sync (YYYY-MM-DD)")
	syncCmd.Flags().StringVar(&syncTo, "to", "", "Last day to sync (YYYY-MM-DD)")
	syncCmd.Flags().BoolVar(&syncResume, "resume", false, "Skip windows that already succeeded")

	syncWindowCmd.Flags().StringVar(&syncFrom, "from", "", "First day of the window (YYYY-MM-DD)")
	syncWindowCmd.Flags().StringVar(&syncTo, "to", "", "Last day of the window (YYYY-MM-DD)")

	syncCmd.AddCommand(syncWindowCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	req := domain.SyncRequest{RunID: uuid.NewString(), Resume: syncResume}
	for _, s := range syncEntities {
		t, err := domain.ParseEntityType(s)
		if err != nil {
			return err
		}
		req.EntityTypes = append(req.EntityTypes, t)
	}

	r, err := parseDayRange(syncFrom, syncTo)
	if err != nil {
		return err
	}
	req.Range = r

	cmd.Println("Synchronising from Time Doctor...")
	report, err := syncWithProgress(cmd.Context(), cmd, syncOrchestrator, req)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	printReport(cmd, report)
	if report.State == domain.RunFailed {
		return fmt.Errorf("sync failed: %s", report.ErrorSummary)
	}
	return nil
}

func runSyncWindow(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	t, err := domain.ParseEntityType(args[0])
	if err != nil {
		return err
	}
	window := domain.FullWindow(t)
	if syncFrom != "" || syncTo != "" {
		r, err := parseDayRange(syncFrom, syncTo)
		if err != nil {
			return err
		}
		window.Start, window.End = r.Start, r.End
	}

	res, err := syncOrchestrator.SyncWindow(cmd.Context(), window)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Printf("%s %s: %d records, %d pages\n",
		recordStyle(res.Status).Render(string(res.Status)), res.Window, res.Records, res.Pages)
	for _, e := range res.Errors {
		cmd.Printf("  %s\n", errorStyle.Render(e))
	}
	if res.Status == domain.StatusFailed {
		return fmt.Errorf("window %s failed", res.Window)
	}
	return nil
}

// syncWithProgress runs sync while displaying progress updates.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	req domain.SyncRequest,
) (*domain.RunReport, error) {
	type result struct {
		report *domain.RunReport
		err    error
	}

	// Start sync in goroutine
	done := make(chan result, 1)
	go func() {
		report, err := syncOrch.TriggerSync(ctx, req)
		done <- result{report, err}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastCount := 0
	printed := false
	for {
		select {
		case res := <-done:
			if printed {
				cmd.Println()
			}
			return res.report, res.err
		case <-ticker.C:
			// Check progress (ignore status error - best effort)
			status, statusErr := syncOrch.Status(ctx, req.RunID)
			if statusErr == nil && status != nil && status.Running && status.RecordsProcessed > lastCount {
				cmd.Printf("\rSyncing %s... %d records", status.CurrentEntity, status.RecordsProcessed)
				lastCount = status.RecordsProcessed
				printed = true
			}
		}
	}
}

func printReport(cmd *cobra.Command, report *domain.RunReport) {
	cmd.Printf("Run %s: %s\n", report.RunID, stateStyle(report.State).Render(string(report.State)))
	for _, e := range report.Entities {
		cmd.Printf("  %-9s %d records in %d windows\n", e.EntityType, e.Records(), len(e.Windows))
	}
	if report.ErrorSummary != "" {
		cmd.Printf("  %s\n", errorStyle.Render(report.ErrorSummary))
	}
	for _, e := range report.Errors() {
		cmd.Printf("  %s\n", mutedStyle.Render(e))
	}
}

// parseDayRange turns inclusive YYYY-MM-DD bounds into a half-open UTC range.
// Both empty means no range.
func parseDayRange(from, to string) (domain.DateRange, error) {
	if from == "" && to == "" {
		return domain.DateRange{}, nil
	}
	if from == "" || to == "" {
		return domain.DateRange{}, errors.New("--from and --to must be given together")
	}

	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", from)
	}
	end, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", to)
	}

	r := domain.DateRange{Start: start, End: end.AddDate(0, 0, 1)}
	if err := r.Validate(); err != nil {
		return domain.DateRange{}, err
	}
	return r, nil
}
