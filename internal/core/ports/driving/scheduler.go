package driving

import (
	"context"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// Scheduler manages background tasks like token refresh and Time Doctor sync.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Reconfigure applies new task intervals and switches while running.
	Reconfigure(ctx context.Context, config domain.SchedulerConfig) error
}
