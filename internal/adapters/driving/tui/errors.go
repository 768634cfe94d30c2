package tui

import "errors"

// ErrMissingSyncOrchestrator is returned when the sync orchestrator is not provided.
var ErrMissingSyncOrchestrator = errors.New("tui: sync orchestrator is required")

// ErrMissingConnectionService is returned when the connection service is not provided.
var ErrMissingConnectionService = errors.New("tui: connection service is required")
