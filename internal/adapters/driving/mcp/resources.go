package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for tdsync resources.
	uriScheme = "tdsync://"

	// recentRuns bounds the runs resource.
	recentRuns = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the recent ledger.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "runs",
		Name:        "runs",
		Description: "Most recent sync ledger records, newest first",
		MIMEType:    "application/json",
	}, s.handleRunsResource)

	// Template for the windows of one run.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "runs/{runId}",
		Name:        "run-windows",
		Description: "Ledger records for every window of a single run",
		MIMEType:    "application/json",
	}, s.handleRunResource)
}

// ledgerRecord is the JSON shape of a ledger row.
type ledgerRecord struct {
	ID               string `json:"id"`
	RunID            string `json:"run_id"`
	Window           string `json:"window"`
	Status           string `json:"status"`
	StartedAt        string `json:"started_at"`
	FinishedAt       string `json:"finished_at,omitempty"`
	RecordsProcessed int    `json:"records_processed"`
	ErrorSummary     string `json:"error_summary,omitempty"`
}

// handleRunsResource returns the most recent ledger records.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ledger == nil {
		return jsonResult(req.Params.URI, []ledgerRecord{})
	}

	records, err := s.ports.Ledger.ListRuns(ctx, recentRuns)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return jsonResult(req.Params.URI, toLedgerRecords(records, ""))
}

// handleRunResource returns the ledger records of one run.
func (s *Server) handleRunResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ledger == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract runId from URI: tdsync://runs/{runId}
	runID := extractRunID(req.Params.URI)
	if runID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	records, err := s.ports.Ledger.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	matching := toLedgerRecords(records, runID)
	if len(matching) == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResult(req.Params.URI, matching)
}

// toLedgerRecords converts records, keeping only runID when it is set.
func toLedgerRecords(records []domain.SyncRunRecord, runID string) []ledgerRecord {
	out := make([]ledgerRecord, 0, len(records))
	for i := range records {
		rec := &records[i]
		if runID != "" && rec.RunID != runID {
			continue
		}
		out = append(out, ledgerRecord{
			ID:               rec.ID,
			RunID:            rec.RunID,
			Window:           rec.Window().String(),
			Status:           string(rec.Status),
			StartedAt:        formatTime(rec.StartedAt),
			FinishedAt:       formatTime(rec.FinishedAt),
			RecordsProcessed: rec.RecordsProcessed,
			ErrorSummary:     rec.ErrorSummary,
		})
	}
	return out
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractRunID extracts the run ID from a URI like tdsync://runs/{runId}.
func extractRunID(uri string) string {
	const prefix = uriScheme + "runs/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
