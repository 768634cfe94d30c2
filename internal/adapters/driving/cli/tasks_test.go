package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tdsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tdsync/internal/core/domain"
)

func TestTasksCmd_Empty(t *testing.T) {
	withServices(t, Services{SchedulerStore: memory.NewSchedulerStore()})

	out, err := executeCommand(t, "tasks")

	require.NoError(t, err)
	assert.Contains(t, out, "No scheduled tasks yet")
}

func TestTasksCmd_ListsTasks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSchedulerStore()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	refresh := &domain.ScheduledTask{ID: domain.TaskIDTokenRefresh, Interval: time.Hour, Enabled: true}
	refresh.RecordOutcome(start, start, nil)
	require.NoError(t, store.SaveTask(ctx, refresh))

	syncTask := &domain.ScheduledTask{ID: domain.TaskIDTimeDoctorSync, Interval: 30 * time.Minute, Enabled: true}
	syncTask.RecordOutcome(start, start, assert.AnError)
	syncTask.RecordOutcome(start, start, assert.AnError)
	require.NoError(t, store.SaveTask(ctx, syncTask))

	withServices(t, Services{SchedulerStore: store})

	out, err := executeCommand(t, "tasks")

	require.NoError(t, err)
	assert.Contains(t, out, "token-refresh")
	assert.Contains(t, out, "timedoctor-sync")
	assert.Contains(t, out, "1h0m0s")
	assert.Contains(t, out, "30m0s")
	assert.Contains(t, out, "assert.AnError")
	assert.Contains(t, out, "FAILURES")
}

func TestTasksCmd_History(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSchedulerStore()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
		TaskID:           domain.TaskIDTimeDoctorSync,
		RunID:            "3f2a9c1e-0000-4000-8000-000000000001",
		StartedAt:        start,
		EndedAt:          start.Add(2 * time.Second),
		Success:          true,
		RecordsProcessed: 42,
	}))
	require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
		TaskID:    domain.TaskIDTimeDoctorSync,
		RunID:     "7b1d0e55-0000-4000-8000-000000000002",
		StartedAt: start.Add(time.Hour),
		EndedAt:   start.Add(time.Hour + time.Second),
		Error:     "timedoctor: API error 503",
	}))
	withServices(t, Services{SchedulerStore: store})

	out, err := executeCommand(t, "tasks", "history", domain.TaskIDTimeDoctorSync)

	require.NoError(t, err)
	assert.Contains(t, out, "3f2a9c1e")
	assert.Contains(t, out, "7b1d0e55")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "API error 503")

	out, err = executeCommand(t, "tasks", "history", domain.TaskIDTimeDoctorSync, "-n", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "7b1d0e55")
	assert.NotContains(t, out, "3f2a9c1e")
}

func TestTasksCmd_HistoryEmpty(t *testing.T) {
	withServices(t, Services{SchedulerStore: memory.NewSchedulerStore()})

	out, err := executeCommand(t, "tasks", "history", domain.TaskIDTokenRefresh)

	require.NoError(t, err)
	assert.Contains(t, out, "No executions recorded for token-refresh.")
}

func TestTasksCmd_HistoryRequiresTaskID(t *testing.T) {
	withServices(t, Services{SchedulerStore: memory.NewSchedulerStore()})

	_, err := executeCommand(t, "tasks", "history")

	require.Error(t, err)
}

func TestTasksCmd_NotConfigured(t *testing.T) {
	withServices(t, Services{})

	_, err := executeCommand(t, "tasks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler store not configured")

	_, err = executeCommand(t, "tasks", "history", domain.TaskIDTokenRefresh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler store not configured")
}
