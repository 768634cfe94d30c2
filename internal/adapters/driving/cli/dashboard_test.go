package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tdsync/internal/adapters/driving/tui"
)

func stubDashboard(t *testing.T, err error) *int {
	t.Helper()
	calls := 0
	old := startDashboard
	startDashboard = func(app *tui.App) error {
		calls++
		return err
	}
	t.Cleanup(func() { startDashboard = old })
	return &calls
}

func TestDashboardCmd_Starts(t *testing.T) {
	calls := stubDashboard(t, nil)
	withServices(t, Services{
		SyncOrchestrator:  &mockSyncOrchestrator{},
		ConnectionService: &mockConnectionService{},
	})

	_, err := executeCommand(t, "dashboard")

	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
}

func TestDashboardCmd_NotConfigured(t *testing.T) {
	calls := stubDashboard(t, nil)
	withServices(t, Services{})

	_, err := executeCommand(t, "dashboard")

	require.Error(t, err)
	assert.ErrorIs(t, err, tui.ErrMissingSyncOrchestrator)
	assert.Equal(t, 0, *calls)
}

func TestDashboardCmd_ProgramError(t *testing.T) {
	stubDashboard(t, errors.New("no tty"))
	withServices(t, Services{
		SyncOrchestrator:  &mockSyncOrchestrator{},
		ConnectionService: &mockConnectionService{},
	})

	_, err := executeCommand(t, "dashboard")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tty")
}

func TestDashboardCmd_WithScheduler(t *testing.T) {
	stubDashboard(t, nil)
	sched := &mockScheduler{}
	withServices(t, Services{
		SyncOrchestrator:  &mockSyncOrchestrator{},
		ConnectionService: &mockConnectionService{},
		Scheduler:         sched,
	})

	_, err := executeCommand(t, "dashboard", "--with-scheduler")

	require.NoError(t, err)
	sched.mu.Lock()
	defer sched.mu.Unlock()
	assert.True(t, sched.stopped)
}
