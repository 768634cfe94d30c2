package mcp

import (
	"context"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
)

// mockSyncService is a mock implementation of driving.SyncOrchestrator.
type mockSyncService struct {
	report  *domain.RunReport
	status  *driving.SyncStatus
	err     error
	lastReq domain.SyncRequest
}

func (m *mockSyncService) TriggerSync(_ context.Context, req domain.SyncRequest) (*domain.RunReport, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &domain.RunReport{RunID: "run-1", State: domain.RunCompleted}, nil
}

func (m *mockSyncService) SyncWindow(_ context.Context, window domain.SyncWindow) (*domain.WindowResult, error) {
	return &domain.WindowResult{Window: window, Status: domain.StatusSuccess}, m.err
}

func (m *mockSyncService) Status(_ context.Context, runID string) (*driving.SyncStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status != nil {
		return m.status, nil
	}
	return &driving.SyncStatus{RunID: runID}, nil
}

// mockConnectionService is a mock implementation of driving.ConnectionService.
type mockConnectionService struct {
	status       *domain.ConnectionStatus
	err          error
	disconnected bool
}

func (m *mockConnectionService) Connect(_ context.Context) (*domain.Credential, error) {
	return nil, m.err
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
	if m.err != nil {
		return m.err
	}
	m.disconnected = true
	return nil
}
