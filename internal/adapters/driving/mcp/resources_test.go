package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tdsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tdsync/internal/core/domain"
)

func TestExtractRunID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid run URI",
			uri:      "tdsync://runs/run-123",
			expected: "run-123",
		},
		{
			name:     "invalid prefix",
			uri:      "file://runs/run-123",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "tdsync://runs/run-123/windows",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractRunID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func seededLedger(t *testing.T) *memory.RunLedger {
	t.Helper()
	ctx := context.Background()
	ledger := memory.NewRunLedger()

	h, err := ledger.RecordStart(ctx, "run-a", domain.FullWindow(domain.EntityUsers))
	require.NoError(t, err)
	require.NoError(t, ledger.RecordEnd(ctx, h, domain.StatusSuccess, 3, ""))

	h, err = ledger.RecordStart(ctx, "run-b", domain.SyncWindow{
		EntityType: domain.EntityWorklogs,
		Start:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, ledger.RecordEnd(ctx, h, domain.StatusFailed, 0, "timedoctor: API error 500: boom"))
	return ledger
}

func TestServer_handleRunsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil ledger returns empty list", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{}, &mockConnectionService{})

		result, err := server.handleRunsResource(ctx, makeReadResourceRequest("tdsync://runs"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns ledger newest first", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Sync:       &mockSyncService{},
			Connection: &mockConnectionService{},
			Ledger:     seededLedger(t),
		}, "test")
		require.NoError(t, err)

		result, err := server.handleRunsResource(ctx, makeReadResourceRequest("tdsync://runs"))

		require.NoError(t, err)
		var records []ledgerRecord
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &records))
		require.Len(t, records, 2)
		assert.Equal(t, "run-b", records[0].RunID)
		assert.Equal(t, "worklogs[2024-03-01..2024-03-08)", records[0].Window)
		assert.Equal(t, "failed", records[0].Status)
		assert.Equal(t, "users", records[1].Window)
		assert.Equal(t, 3, records[1].RecordsProcessed)
	})
}

func TestServer_handleRunResource(t *testing.T) {
	ctx := context.Background()
	server, err := NewServer(&Ports{
		Sync:       &mockSyncService{},
		Connection: &mockConnectionService{},
		Ledger:     seededLedger(t),
	}, "test")
	require.NoError(t, err)

	t.Run("returns one run", func(t *testing.T) {
		result, err := server.handleRunResource(ctx, makeReadResourceRequest("tdsync://runs/run-a"))

		require.NoError(t, err)
		var records []ledgerRecord
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &records))
		require.Len(t, records, 1)
		assert.Equal(t, "success", records[0].Status)
	})

	t.Run("unknown run is not found", func(t *testing.T) {
		_, err := server.handleRunResource(ctx, makeReadResourceRequest("tdsync://runs/missing"))
		assert.Error(t, err)
	})

	t.Run("malformed URI is not found", func(t *testing.T) {
		_, err := server.handleRunResource(ctx, makeReadResourceRequest("tdsync://runs/"))
		assert.Error(t, err)
	})

	t.Run("nil ledger is not found", func(t *testing.T) {
		bare := newTestServer(t, &mockSyncService{}, &mockConnectionService{})
		_, err := bare.handleRunResource(ctx, makeReadResourceRequest("tdsync://runs/run-a"))
		assert.Error(t, err)
	})
}
