package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
)

// executeCommand runs the root command with args and returns everything it printed.
// Flag variables are reset first since cobra keeps them between runs.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	syncEntities, syncFrom, syncTo, syncResume = nil, "", "", false
	connectEmail, connectCompany, forgetAccount = "", "", false
	runsLimit, taskHistoryLimit = 20, 10
	serveLogFile, serveLogMaxSize = "", 10
	dashboardScheduler = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// withServices swaps the package services for the duration of a test.
func withServices(t *testing.T, s Services) {
	t.Helper()

	old := Services{
		SyncOrchestrator:  syncOrchestrator,
		ConnectionService: connectionService,
		SettingsService:   settingsService,
		Scheduler:         scheduler,
		RunLedger:         runLedger,
		EntityStore:       entityStore,
		ConfigWatcher:     configWatcher,
		SchedulerStore:    schedulerStore,
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(old) })
}

// mockSyncOrchestrator implements driving.SyncOrchestrator for testing.
type mockSyncOrchestrator struct {
	mu       sync.Mutex
	requests []domain.SyncRequest
	windows  []domain.SyncWindow
	report   *domain.RunReport
	window   *domain.WindowResult
	err      error
	delay    time.Duration
	progress int
}

func (m *mockSyncOrchestrator) TriggerSync(_ context.Context, req domain.SyncRequest) (*domain.RunReport, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		r := *m.report
		r.RunID = req.RunID
		return &r, nil
	}
	return &domain.RunReport{RunID: req.RunID, State: domain.RunCompleted}, nil
}

func (m *mockSyncOrchestrator) SyncWindow(_ context.Context, window domain.SyncWindow) (*domain.WindowResult, error) {
	m.mu.Lock()
	m.windows = append(m.windows, window)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.window != nil {
		return m.window, nil
	}
	return &domain.WindowResult{Window: window, Status: domain.StatusSuccess}, nil
}

func (m *mockSyncOrchestrator) Status(_ context.Context, runID string) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{
		RunID:            runID,
		Running:          m.progress > 0,
		CurrentEntity:    domain.EntityWorklogs,
		RecordsProcessed: m.progress,
	}, nil
}

func (m *mockSyncOrchestrator) lastRequest() domain.SyncRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

// mockConnectionService implements driving.ConnectionService for testing.
type mockConnectionService struct {
	cred        *domain.Credential
	status      *domain.ConnectionStatus
	err         error
	connects    int
	disconnects int
}

func (m *mockConnectionService) Connect(_ context.Context) (*domain.Credential, error) {
	m.connects++
	if m.err != nil {
		return nil, m.err
	}
	return m.cred, nil
}

func (m *mockConnectionService) ConnectionStatus(_ context.Context) (*domain.ConnectionStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status == nil {
		return &domain.ConnectionStatus{}, nil
	}
	return m.status, nil
}

func (m *mockConnectionService) Disconnect(_ context.Context) error {
	m.disconnects++
	return m.err
}

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	err      error
	configs  []domain.SchedulerConfig
	awaitCfg chan struct{}
}

// Start blocks until Reconfigure is called when awaitCfg is set.
func (m *mockScheduler) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	wait := m.awaitCfg
	m.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
		}
	}
	return m.err
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockScheduler) Reconfigure(_ context.Context, config domain.SchedulerConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = append(m.configs, config)
	if m.awaitCfg != nil && len(m.configs) == 1 {
		close(m.awaitCfg)
	}
	return nil
}

// fakeConfigWatcher reports a single change as soon as it is watched.
type fakeConfigWatcher struct{}

func (fakeConfigWatcher) Watch(ctx context.Context, onChange func()) error {
	onChange()
	<-ctx.Done()
	return nil
}
