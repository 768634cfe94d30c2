package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// EntityStore is the local persistence port for remote records.
// Implementations serialise writes for the same external id and keep the
// copy with the newest ModifiedAt (last writer wins by remote marker).
type EntityStore interface {
	// Upsert inserts or updates records keyed by external id.
	// Re-upserting an identical record leaves local state unchanged.
	Upsert(ctx context.Context, entityType domain.EntityType, records []domain.RemoteEntity) (domain.UpsertResult, error)

	// LastSyncedMarker returns the newest ModifiedAt stored for the entity type.
	// Returns nil and no error when nothing has been stored yet.
	LastSyncedMarker(ctx context.Context, entityType domain.EntityType) (*time.Time, error)

	// Count returns how many records of the entity type are stored.
	Count(ctx context.Context, entityType domain.EntityType) (int, error)
}
