package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// TriggerSyncInput is the input schema for the trigger_sync tool.
type TriggerSyncInput struct {
	EntityTypes []string `json:"entity_types,omitempty" jsonschema:"entity types to sync: users, projects, tasks, worklogs (default all)"`
	Start       string   `json:"start,omitempty" jsonschema:"range start as YYYY-MM-DD or RFC 3339 (default: newest stored worklog)"`
	End         string   `json:"end,omitempty" jsonschema:"exclusive range end as YYYY-MM-DD or RFC 3339"`
	Resume      bool     `json:"resume,omitempty" jsonschema:"skip windows that already succeeded"`
}

// RunOutput is the output schema for the trigger_sync tool.
type RunOutput struct {
	RunID            string         `json:"run_id"`
	State            string         `json:"state"`
	StartedAt        string         `json:"started_at"`
	FinishedAt       string         `json:"finished_at,omitempty"`
	RecordsProcessed int            `json:"records_processed"`
	Entities         []EntityOutput `json:"entities"`
	ErrorSummary     string         `json:"error_summary,omitempty"`
	Errors           []string       `json:"errors,omitempty"`
}

// EntityOutput summarises one entity type within a run.
type EntityOutput struct {
	EntityType string `json:"entity_type"`
	Windows    int    `json:"windows"`
	Failed     int    `json:"failed"`
	Records    int    `json:"records"`
}

// RunStatusInput is the input schema for the sync_status tool.
type RunStatusInput struct {
	RunID string `json:"run_id" jsonschema:"the run id returned by trigger_sync"`
}

// RunStatusOutput is the output schema for the sync_status tool.
type RunStatusOutput struct {
	RunID            string `json:"run_id"`
	Running          bool   `json:"running"`
	CurrentEntity    string `json:"current_entity,omitempty"`
	RecordsProcessed int    `json:"records_processed"`
	ErrorCount       int    `json:"error_count"`
}

// NoInput is the input schema for tools without arguments.
type NoInput struct{}

// ConnectionOutput is the output schema for the connection_status tool.
type ConnectionOutput struct {
	Connected        bool   `json:"connected"`
	IssuedAt         string `json:"issued_at,omitempty"`
	ExpiresAt        string `json:"expires_at,omitempty"`
	NeedsRefresh     bool   `json:"needs_refresh"`
	LastRefreshError string `json:"last_refresh_error,omitempty"`
}

// DisconnectOutput is the output schema for the disconnect tool.
type DisconnectOutput struct {
	Disconnected bool `json:"disconnected"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "trigger_sync",
		Description: "Sync Time Doctor records into the local store and return the run report",
	}, s.handleTriggerSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Progress of a sync run that is still in flight",
	}, s.handleSyncStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "connection_status",
		Description: "Whether a usable Time Doctor token is stored and when it expires",
	}, s.handleConnectionStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "disconnect",
		Description: "Delete the stored Time Doctor token",
	}, s.handleDisconnect)
}

// handleTriggerSync runs a sync and waits for it to finish.
func (s *Server) handleTriggerSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TriggerSyncInput,
) (*mcp.CallToolResult, RunOutput, error) {
	req := domain.SyncRequest{Resume: input.Resume}
	for _, raw := range input.EntityTypes {
		t, err := domain.ParseEntityType(raw)
		if err != nil {
			return nil, RunOutput{}, err
		}
		req.EntityTypes = append(req.EntityTypes, t)
	}

	if input.Start != "" || input.End != "" {
		start, err := parseTime(input.Start)
		if err != nil {
			return nil, RunOutput{}, fmt.Errorf("start: %w", err)
		}
		end, err := parseTime(input.End)
		if err != nil {
			return nil, RunOutput{}, fmt.Errorf("end: %w", err)
		}
		req.Range = domain.DateRange{Start: start, End: end}
	}

	report, err := s.ports.Sync.TriggerSync(ctx, req)
	if err != nil {
		return nil, RunOutput{}, err
	}
	return nil, runOutput(report), nil
}

// handleSyncStatus reports progress for a run.
func (s *Server) handleSyncStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunStatusInput,
) (*mcp.CallToolResult, RunStatusOutput, error) {
	status, err := s.ports.Sync.Status(ctx, input.RunID)
	if err != nil {
		return nil, RunStatusOutput{}, err
	}
	return nil, RunStatusOutput{
		RunID:            status.RunID,
		Running:          status.Running,
		CurrentEntity:    string(status.CurrentEntity),
		RecordsProcessed: status.RecordsProcessed,
		ErrorCount:       status.ErrorCount,
	}, nil
}

// handleConnectionStatus reports the stored credential.
func (s *Server) handleConnectionStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ NoInput,
) (*mcp.CallToolResult, ConnectionOutput, error) {
	status, err := s.ports.Connection.ConnectionStatus(ctx)
	if err != nil {
		return nil, ConnectionOutput{}, err
	}
	return nil, ConnectionOutput{
		Connected:        status.Connected,
		IssuedAt:         formatTime(status.IssuedAt),
		ExpiresAt:        formatTime(status.ExpiresAt),
		NeedsRefresh:     status.NeedsRefresh,
		LastRefreshError: status.LastRefreshError,
	}, nil
}

// handleDisconnect deletes the stored credential.
func (s *Server) handleDisconnect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ NoInput,
) (*mcp.CallToolResult, DisconnectOutput, error) {
	if err := s.ports.Connection.Disconnect(ctx); err != nil {
		return nil, DisconnectOutput{}, err
	}
	return nil, DisconnectOutput{Disconnected: true}, nil
}

func runOutput(report *domain.RunReport) RunOutput {
	out := RunOutput{
		RunID:            report.RunID,
		State:            string(report.State),
		StartedAt:        formatTime(report.StartedAt),
		FinishedAt:       formatTime(report.FinishedAt),
		RecordsProcessed: report.RecordsProcessed,
		Entities:         make([]EntityOutput, 0, len(report.Entities)),
		ErrorSummary:     report.ErrorSummary,
		Errors:           report.Errors(),
	}
	for i := range report.Entities {
		e := &report.Entities[i]
		eo := EntityOutput{EntityType: string(e.EntityType), Windows: len(e.Windows), Records: e.Records()}
		for _, w := range e.Windows {
			if w.Status == domain.StatusFailed {
				eo.Failed++
			}
		}
		out.Entities = append(out.Entities, eo)
	}
	return out
}

// parseTime accepts a date or an RFC 3339 timestamp. Dates are UTC midnight.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
