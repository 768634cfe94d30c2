// Package messages defines Bubbletea message types for the dashboard.
package messages

import (
	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
)

// ConnectionLoaded carries the stored token status.
type ConnectionLoaded struct {
	Status *domain.ConnectionStatus
	Err    error
}

// RunsLoaded carries the most recent ledger records.
type RunsLoaded struct {
	Records []domain.SyncRunRecord
	Err     error
}

// SyncProgress carries a progress sample for the active run.
type SyncProgress struct {
	Status *driving.SyncStatus
}

// SyncPoll asks for the next progress sample of a run.
type SyncPoll struct {
	RunID string
}

// SyncFinished carries the report of a completed run.
type SyncFinished struct {
	Report *domain.RunReport
	Err    error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
