package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore over the scheduled_tasks
// and task_results tables.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const taskColumns = `id, name, interval_seconds, enabled, last_run, next_run,
	last_success, last_error, consecutive_failures`

const resultColumns = `task_id, run_id, started_at, ended_at, success, error, records_processed`

// GetTask returns nil and no error when the task does not exist.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM scheduled_tasks WHERE id = ?", taskID)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

// ListTasks returns all tasks ordered by id.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM scheduled_tasks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask inserts or replaces the task's state.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			enabled = excluded.enabled,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_success = excluded.last_success,
			last_error = excluded.last_error,
			consecutive_failures = excluded.consecutive_failures
	`, task.ID, task.Name, int64(task.Interval/time.Second), boolToInt(task.Enabled),
		unixNano(task.LastRun), unixNano(task.NextRun), unixNano(task.LastSuccess),
		nullString(task.LastError), task.ConsecutiveFailures)
	if err != nil {
		return fmt.Errorf("saving scheduled task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteTask removes a task and its history.
func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleting scheduled task %s: %w", taskID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM task_results WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("deleting history of %s: %w", taskID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM scheduled_tasks WHERE id = ?", taskID); err != nil {
		return fmt.Errorf("deleting scheduled task %s: %w", taskID, err)
	}
	return tx.Commit()
}

// RecordResult appends one entry to the task's history.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx,
		"INSERT INTO task_results ("+resultColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		result.TaskID, nullString(result.RunID), unixNano(result.StartedAt), unixNano(result.EndedAt),
		boolToInt(result.Success), nullString(result.Error), result.RecordsProcessed)
	if err != nil {
		return fmt.Errorf("recording result for %s: %w", result.TaskID, err)
	}
	return nil
}

// GetTaskHistory returns up to limit results, most recent first. A limit of
// zero or less returns the whole history.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+resultColumns+` FROM task_results
		WHERE task_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history of %s: %w", taskID, err)
	}
	defer rows.Close()

	var results []domain.TaskResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			r                  domain.TaskResult
			runID, errMsg      sql.NullString
			startedAt, endedAt int64
			success            int
		)
		if err := rows.Scan(&r.TaskID, &runID, &startedAt, &endedAt, &success, &errMsg, &r.RecordsProcessed); err != nil {
			return nil, fmt.Errorf("scanning task result: %w", err)
		}
		r.RunID = runID.String
		r.StartedAt = fromUnixNano(startedAt)
		r.EndedAt = fromUnixNano(endedAt)
		r.Success = success == 1
		r.Error = errMsg.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history of %s: %w", taskID, err)
	}
	return results, nil
}

// PruneHistory keeps the newest keep results of each task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY task_id ORDER BY started_at DESC, id DESC
				) AS rn
				FROM task_results
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.ScheduledTask, error) {
	var (
		task                          domain.ScheduledTask
		intervalSeconds               int64
		enabled                       int
		lastRun, nextRun, lastSuccess int64
		lastError                     sql.NullString
	)
	err := row.Scan(&task.ID, &task.Name, &intervalSeconds, &enabled,
		&lastRun, &nextRun, &lastSuccess, &lastError, &task.ConsecutiveFailures)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}

	task.Interval = time.Duration(intervalSeconds) * time.Second
	task.Enabled = enabled == 1
	task.LastRun = fromUnixNano(lastRun)
	task.NextRun = fromUnixNano(nextRun)
	task.LastSuccess = fromUnixNano(lastSuccess)
	task.LastError = lastError.String
	return &task, nil
}
