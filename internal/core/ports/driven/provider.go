package driven

import (
	"context"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// ProviderClient fetches remote records page by page.
type ProviderClient interface {
	// FetchPage returns one page of records for the window starting at cursor.
	// Page.Next is nil when the provider reports no further pages.
	// Transient failures are retried internally; only exhausted or
	// non-retryable errors are returned.
	FetchPage(ctx context.Context, entityType domain.EntityType, window domain.SyncWindow,
		cursor domain.PageCursor) (*domain.Page, error)
}
