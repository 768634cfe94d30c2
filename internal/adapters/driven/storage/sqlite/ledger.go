package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// runLedger implements driven.RunLedger over the sync_runs table.
type runLedger struct {
	store *Store
}

var _ driven.RunLedger = (*runLedger)(nil)

// RecordStart appends a running record for the window.
func (l *runLedger) RecordStart(ctx context.Context, runID string, window domain.SyncWindow) (domain.RunHandle, error) {
	id := uuid.NewString()
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, run_id, entity_type, window_start, window_end, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, runID, string(window.EntityType), unixNano(window.Start), unixNano(window.End),
		unixNano(l.store.now()), string(domain.StatusRunning))
	if err != nil {
		return domain.RunHandle{}, fmt.Errorf("recording run start: %w", err)
	}
	return domain.RunHandle{ID: id, RunID: runID, Window: window}, nil
}

// RecordEnd finalises a running record.
func (l *runLedger) RecordEnd(
	ctx context.Context,
	handle domain.RunHandle,
	status domain.RecordStatus,
	recordsProcessed int,
	errorSummary string,
) error {
	res, err := l.store.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET status = ?, finished_at = ?, records_processed = ?, error_summary = ?
		WHERE id = ? AND status = ?
	`, string(status), unixNano(l.store.now()), recordsProcessed, nullString(errorSummary),
		handle.ID, string(domain.StatusRunning))
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = l.store.db.QueryRowContext(ctx, "SELECT status FROM sync_runs WHERE id = ?", handle.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("ledger record %s: %w", handle.ID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	return fmt.Errorf("ledger record %s already finalised as %s: %w", handle.ID, current, domain.ErrInvalidInput)
}

// ListRuns returns the most recent records first.
func (l *runLedger) ListRuns(ctx context.Context, limit int) ([]domain.SyncRunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, run_id, entity_type, window_start, window_end, started_at,
			finished_at, status, records_processed, error_summary
		FROM sync_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var records []domain.SyncRunRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.SyncRunRecord
		var entityType, status string
		var windowStart, windowEnd, startedAt int64
		var finishedAt sql.NullInt64
		var summary sql.NullString

		if err := rows.Scan(&rec.ID, &rec.RunID, &entityType, &windowStart, &windowEnd, &startedAt,
			&finishedAt, &status, &rec.RecordsProcessed, &summary); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}

		rec.EntityType = domain.EntityType(entityType)
		rec.Status = domain.RecordStatus(status)
		rec.WindowStart = fromUnixNano(windowStart)
		rec.WindowEnd = fromUnixNano(windowEnd)
		rec.StartedAt = fromUnixNano(startedAt)
		if finishedAt.Valid {
			rec.FinishedAt = fromUnixNano(finishedAt.Int64)
		}
		rec.ErrorSummary = summary.String
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}
	return records, nil
}

// HasSucceeded reports whether any record for exactly this window ended in success.
func (l *runLedger) HasSucceeded(ctx context.Context, window domain.SyncWindow) (bool, error) {
	var n int
	err := l.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_runs
		WHERE entity_type = ? AND window_start = ? AND window_end = ? AND status = ?
	`, string(window.EntityType), unixNano(window.Start), unixNano(window.End),
		string(domain.StatusSuccess)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying ledger: %w", err)
	}
	return n > 0, nil
}
