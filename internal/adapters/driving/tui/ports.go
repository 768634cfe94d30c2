// Package tui provides the tdsync dashboard, an interactive terminal view
// of the connection and the sync ledger.
package tui

import (
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
)

// Ports aggregates the services the dashboard reads from.
type Ports struct {
	// Sync starts runs and reports their progress.
	Sync driving.SyncOrchestrator

	// Connection reports the stored Time Doctor token.
	Connection driving.ConnectionService

	// Ledger lists recent runs. Optional.
	Ledger driven.RunLedger
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p.Sync == nil {
		return ErrMissingSyncOrchestrator
	}
	if p.Connection == nil {
		return ErrMissingConnectionService
	}
	return nil
}
