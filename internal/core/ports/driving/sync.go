package driving

import (
	"context"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// SyncOrchestrator drives ingestion of Time Doctor records.
// It is the boundary the internal API and the CLI call into.
type SyncOrchestrator interface {
	// TriggerSync runs a sync for the requested entity types and date range.
	// Window failures are reported in the RunReport; the error is reserved
	// for requests rejected before the run starts.
	TriggerSync(ctx context.Context, req domain.SyncRequest) (*domain.RunReport, error)

	// SyncWindow runs a single validated window.
	SyncWindow(ctx context.Context, window domain.SyncWindow) (*domain.WindowResult, error)

	// Status returns progress for an active run.
	Status(ctx context.Context, runID string) (*SyncStatus, error)
}

// SyncStatus represents the current state of a sync run.
type SyncStatus struct {
	// RunID identifies the run.
	RunID string

	// Running indicates if the run is in progress.
	Running bool

	// CurrentEntity is the entity type being synced.
	CurrentEntity domain.EntityType

	// RecordsProcessed is the count of records upserted so far.
	RecordsProcessed int

	// ErrorCount is the number of failed windows or batches.
	ErrorCount int
}
