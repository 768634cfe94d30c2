package domain

import (
	"strings"
	"time"
)

// RunState is the lifecycle of one orchestrator run.
type RunState string

// Run states. A run moves Pending -> Running -> one of the terminal states.
const (
	RunPending         RunState = "pending"
	RunRunning         RunState = "running"
	RunCompleted       RunState = "completed"
	RunPartiallyFailed RunState = "partially_failed"
	RunFailed          RunState = "failed"
)

// IsTerminal returns true for Completed, PartiallyFailed and Failed.
func (s RunState) IsTerminal() bool {
	return s == RunCompleted || s == RunPartiallyFailed || s == RunFailed
}

// String returns the string representation.
func (s RunState) String() string {
	return string(s)
}

// RecordStatus is the outcome stored in a ledger record.
type RecordStatus string

// Ledger record statuses.
const (
	StatusRunning RecordStatus = "running"
	StatusSuccess RecordStatus = "success"
	StatusPartial RecordStatus = "partial"
	StatusFailed  RecordStatus = "failed"
	// StatusSkipped marks a window not attempted (cancelled or resumed).
	StatusSkipped RecordStatus = "skipped"
)

// String returns the string representation.
func (s RecordStatus) String() string {
	return string(s)
}

// RunHandle identifies a ledger record opened by RecordStart.
type RunHandle struct {
	ID     string
	RunID  string
	Window SyncWindow
}

// SyncRunRecord is one append-only ledger entry covering a single window.
type SyncRunRecord struct {
	ID               string
	RunID            string
	EntityType       EntityType
	WindowStart      time.Time
	WindowEnd        time.Time
	StartedAt        time.Time
	FinishedAt       time.Time
	Status           RecordStatus
	RecordsProcessed int
	ErrorSummary     string
}

// Duration returns how long the window took.
func (r *SyncRunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Window returns the window this record covers.
func (r *SyncRunRecord) Window() SyncWindow {
	return SyncWindow{EntityType: r.EntityType, Start: r.WindowStart, End: r.WindowEnd}
}

// SyncRequest is what the internal API asks the orchestrator to do.
type SyncRequest struct {
	// RunID is used for the run when set, so callers can poll Status.
	RunID string

	// EntityTypes limits the run. Empty means all, always in SyncOrder.
	EntityTypes []EntityType

	// Range applies to dated entities. Zero means "since the last synced marker".
	Range DateRange

	// Resume skips windows the ledger already recorded as successful.
	Resume bool
}

// WindowResult is the outcome of one window within a run.
type WindowResult struct {
	Window   SyncWindow
	Status   RecordStatus
	Records  int
	Pages    int
	Upserted UpsertResult
	Errors   []string
}

// EntityReport groups window results for one entity type.
type EntityReport struct {
	EntityType EntityType
	Windows    []WindowResult
}

// Records returns the number of records processed across windows.
func (e *EntityReport) Records() int {
	n := 0
	for i := range e.Windows {
		n += e.Windows[i].Records
	}
	return n
}

// AllFailed returns true when there was at least one window and none succeeded.
func (e *EntityReport) AllFailed() bool {
	if len(e.Windows) == 0 {
		return false
	}
	for i := range e.Windows {
		if e.Windows[i].Status != StatusFailed {
			return false
		}
	}
	return true
}

// RunReport is the result of TriggerSync.
type RunReport struct {
	RunID            string
	State            RunState
	StartedAt        time.Time
	FinishedAt       time.Time
	Entities         []EntityReport
	RecordsProcessed int
	ErrorSummary     string
}

// Entity returns the report for t, or nil when t was not attempted.
func (r *RunReport) Entity(t EntityType) *EntityReport {
	for i := range r.Entities {
		if r.Entities[i].EntityType == t {
			return &r.Entities[i]
		}
	}
	return nil
}

// Errors flattens per-window errors, prefixed by window.
func (r *RunReport) Errors() []string {
	var out []string
	for i := range r.Entities {
		for _, w := range r.Entities[i].Windows {
			for _, e := range w.Errors {
				out = append(out, w.Window.String()+": "+e)
			}
		}
	}
	return out
}

// Summarise builds the human-readable error summary.
func (r *RunReport) Summarise() string {
	errs := r.Errors()
	if len(errs) == 0 {
		return ""
	}
	const maxShown = 5
	if len(errs) > maxShown {
		return strings.Join(errs[:maxShown], "; ") + "; ..."
	}
	return strings.Join(errs, "; ")
}
