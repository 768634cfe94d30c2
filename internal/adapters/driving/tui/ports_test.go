package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
)

// MockSyncOrchestrator implements driving.SyncOrchestrator for testing.
type MockSyncOrchestrator struct {
	mu       sync.Mutex
	requests []domain.SyncRequest
	report   *domain.RunReport
	err      error
	status   *driving.SyncStatus
}

func (m *MockSyncOrchestrator) TriggerSync(_ context.Context, req domain.SyncRequest) (*domain.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &domain.RunReport{RunID: req.RunID, State: domain.RunCompleted}, nil
}

func (m *MockSyncOrchestrator) SyncWindow(_ context.Context, w domain.SyncWindow) (*domain.WindowResult, error) {
	return &domain.WindowResult{Window: w, Status: domain.StatusSuccess}, nil
}

func (m *MockSyncOrchestrator) Status(_ context.Context, runID string) (*driving.SyncStatus, error) {
	if m.status == nil {
		return nil, errors.New("unknown run")
	}
	st := *m.status
	st.RunID = runID
	return &st, nil
}

// MockConnectionService implements driving.ConnectionService for testing.
type MockConnectionService struct {
	status *domain.ConnectionStatus
	err    error
}

func (m *MockConnectionService) Connect(_ context.Context) (*domain.Credential, error) {
	return nil, m.err
}

func (m *MockConnectionService) ConnectionStatus(_ context.Context) (*domain.ConnectionStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status == nil {
		return &domain.ConnectionStatus{}, nil
	}
	return m.status, nil
}

func (m *MockConnectionService) Disconnect(_ context.Context) error {
	return m.err
}

var _ driving.SyncOrchestrator = (*MockSyncOrchestrator)(nil)
var _ driving.ConnectionService = (*MockConnectionService)(nil)

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports Ports
		want  error
	}{
		{
			name:  "complete",
			ports: Ports{Sync: &MockSyncOrchestrator{}, Connection: &MockConnectionService{}},
		},
		{
			name:  "missing sync",
			ports: Ports{Connection: &MockConnectionService{}},
			want:  ErrMissingSyncOrchestrator,
		},
		{
			name:  "missing connection",
			ports: Ports{Sync: &MockSyncOrchestrator{}},
			want:  ErrMissingConnectionService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
