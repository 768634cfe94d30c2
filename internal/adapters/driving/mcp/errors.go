// Package mcp exposes the sync orchestrator and connection controls over the
// Model Context Protocol, so an internal API or assistant can trigger runs
// and read their outcome without shelling out to the CLI.
package mcp

import "errors"

// ErrMissingSyncService is returned when the sync orchestrator is not provided.
var ErrMissingSyncService = errors.New("mcp: sync service is required")

// ErrMissingConnectionService is returned when the connection service is not provided.
var ErrMissingConnectionService = errors.New("mcp: connection service is required")
