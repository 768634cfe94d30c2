package mcp

import (
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
)

// Ports aggregates the services the MCP server calls into.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Sync runs and reports sync runs.
	Sync driving.SyncOrchestrator

	// Connection manages the Time Doctor credential.
	Connection driving.ConnectionService

	// Ledger backs the run resources. Optional.
	Ledger driven.RunLedger
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Sync == nil {
		return ErrMissingSyncService
	}
	if p.Connection == nil {
		return ErrMissingConnectionService
	}
	return nil
}
