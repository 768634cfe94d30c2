package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent sync windows",
	Long:  `Shows the sync ledger, newest first. Each row is one window of one run.`,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of records to show (0 for all)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if runLedger == nil {
		return errors.New("run ledger not configured")
	}

	records, err := runLedger.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(records) == 0 {
		cmd.Println("No sync runs recorded.")
		return nil
	}

	cmd.Println(renderRuns(records))
	return nil
}

func renderRuns(records []domain.SyncRunRecord) string {
	rows := make([][]string, 0, len(records))
	for i := range records {
		rec := &records[i]
		finished := "-"
		if !rec.FinishedAt.IsZero() {
			finished = rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortID(rec.RunID),
			rec.Window().String(),
			formatTime(rec.StartedAt),
			finished,
			string(rec.Status),
			strconv.Itoa(rec.RecordsProcessed),
			rec.ErrorSummary,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("RUN", "WINDOW", "STARTED", "TOOK", "STATUS", "RECORDS", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 4 && row >= 0 && row < len(records) {
				return recordStyle(records[row].Status).Padding(0, 1)
			}
			return cellStyle
		})
	return t.Render()
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
