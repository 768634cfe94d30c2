package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// Ensure RunLedger implements the interface.
var _ driven.RunLedger = (*RunLedger)(nil)

// RunLedger is an in-memory implementation of driven.RunLedger.
type RunLedger struct {
	mu      sync.RWMutex
	records []domain.SyncRunRecord
	index   map[string]int
	now     func() time.Time
}

// NewRunLedger creates a new in-memory run ledger.
func NewRunLedger() *RunLedger {
	return &RunLedger{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// RecordStart appends a running record for the window.
func (l *RunLedger) RecordStart(_ context.Context, runID string, window domain.SyncWindow) (domain.RunHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := domain.SyncRunRecord{
		ID:          uuid.NewString(),
		RunID:       runID,
		EntityType:  window.EntityType,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		StartedAt:   l.now(),
		Status:      domain.StatusRunning,
	}
	l.index[rec.ID] = len(l.records)
	l.records = append(l.records, rec)

	return domain.RunHandle{ID: rec.ID, RunID: runID, Window: window}, nil
}

// RecordEnd finalises a running record.
func (l *RunLedger) RecordEnd(
	_ context.Context,
	handle domain.RunHandle,
	status domain.RecordStatus,
	recordsProcessed int,
	errorSummary string,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[handle.ID]
	if !ok {
		return fmt.Errorf("ledger record %s: %w", handle.ID, domain.ErrNotFound)
	}
	rec := &l.records[i]
	if rec.Status != domain.StatusRunning {
		return fmt.Errorf("ledger record %s already finalised as %s: %w", handle.ID, rec.Status, domain.ErrInvalidInput)
	}

	rec.Status = status
	rec.FinishedAt = l.now()
	rec.RecordsProcessed = recordsProcessed
	rec.ErrorSummary = errorSummary
	return nil
}

// ListRuns returns the most recent records first.
func (l *RunLedger) ListRuns(_ context.Context, limit int) ([]domain.SyncRunRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.SyncRunRecord, len(l.records))
	for i := range l.records {
		out[len(l.records)-1-i] = l.records[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// HasSucceeded reports whether any record for exactly this window ended in success.
func (l *RunLedger) HasSucceeded(_ context.Context, window domain.SyncWindow) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := range l.records {
		rec := &l.records[i]
		if rec.Status == domain.StatusSuccess &&
			rec.EntityType == window.EntityType &&
			rec.WindowStart.Equal(window.Start) &&
			rec.WindowEnd.Equal(window.End) {
			return true, nil
		}
	}
	return false, nil
}
