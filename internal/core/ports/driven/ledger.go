package driven

import (
	"context"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// RunLedger is the append-only record of sync windows.
// It is best-effort: callers log write failures and carry on.
type RunLedger interface {
	// RecordStart appends a running record for the window.
	RecordStart(ctx context.Context, runID string, window domain.SyncWindow) (domain.RunHandle, error)

	// RecordEnd finalises the record. A record can be finalised only once.
	RecordEnd(ctx context.Context, handle domain.RunHandle, status domain.RecordStatus,
		recordsProcessed int, errorSummary string) error

	// ListRuns returns the most recent records first.
	ListRuns(ctx context.Context, limit int) ([]domain.SyncRunRecord, error)

	// HasSucceeded reports whether any record for exactly this window ended in success.
	HasSucceeded(ctx context.Context, window domain.SyncWindow) (bool, error)
}
