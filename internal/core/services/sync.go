package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
	"github.com/custodia-labs/tdsync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// errCancelled marks windows that never started because the run was cancelled.
var errCancelled = errors.New("cancelled before start")

// SyncOrchestrator pulls Time Doctor records into local storage.
//
// Entity types run in dependency order (users, projects, tasks, worklogs).
// Windows of one entity type run concurrently; a failed window is recorded
// and the run carries on, except that a run whose users windows all fail
// stops before the dependent types.
type SyncOrchestrator struct {
	provider driven.ProviderClient
	tokens   driven.TokenProvider
	store    driven.EntityStore
	ledger   driven.RunLedger
	config   domain.SyncConfig
	now      func() time.Time

	// Status tracking
	mu          sync.RWMutex
	activeSyncs map[string]*driving.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	provider driven.ProviderClient,
	tokens driven.TokenProvider,
	store driven.EntityStore,
	ledger driven.RunLedger,
	config domain.SyncConfig,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		provider:    provider,
		tokens:      tokens,
		store:       store,
		ledger:      ledger,
		config:      config,
		now:         time.Now,
		activeSyncs: make(map[string]*driving.SyncStatus),
	}
}

// TriggerSync runs one sync over the requested entity types.
//
// The returned error is reserved for requests rejected up front. Everything
// that happens once the run starts is reported in the RunReport.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *SyncOrchestrator) TriggerSync(ctx context.Context, req domain.SyncRequest) (*domain.RunReport, error) {
	// 1. Validate the request
	for _, t := range req.EntityTypes {
		if !t.IsValid() {
			return nil, &domain.ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", t)}
		}
	}
	if !req.Range.IsZero() {
		if err := req.Range.Validate(); err != nil {
			return nil, err
		}
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &domain.RunReport{
		RunID:     runID,
		State:     domain.RunPending,
		StartedAt: o.now(),
	}

	// 2. Initialise status tracking
	status := &driving.SyncStatus{RunID: report.RunID, Running: true}
	o.setStatus(report.RunID, status)
	defer o.clearStatus(report.RunID)

	// 3. Check the connection before any provider call
	if _, err := o.tokens.EnsureValidCredential(ctx); err != nil {
		report.State = domain.RunFailed
		report.ErrorSummary = err.Error()
		report.FinishedAt = o.now()
		logger.Error("sync %s: %v", report.RunID, err)
		return report, nil
	}

	report.State = domain.RunRunning
	logger.Info("sync %s: starting", report.RunID)

	// 4. Entity types in dependency order
	for _, t := range domain.OrderEntityTypes(req.EntityTypes) {
		if ctx.Err() != nil {
			logger.Warn("sync %s: cancelled before %s", report.RunID, t)
			break
		}

		logger.Section(fmt.Sprintf("Sync %s", t))
		o.updateStatus(report.RunID, func(s *driving.SyncStatus) { s.CurrentEntity = t })

		windows, err := o.planWindows(ctx, t, req.Range)
		if err != nil {
			report.Entities = append(report.Entities, domain.EntityReport{
				EntityType: t,
				Windows: []domain.WindowResult{{
					Window: domain.FullWindow(t),
					Status: domain.StatusFailed,
					Errors: []string{err.Error()},
				}},
			})
			continue
		}

		entity := o.runEntity(ctx, report.RunID, t, windows, req.Resume)
		report.Entities = append(report.Entities, entity)

		if t == domain.EntityUsers && entity.AllFailed() {
			report.State = domain.RunFailed
			logger.Error("sync %s: every users window failed, skipping dependent entities", report.RunID)
			break
		}
	}

	// 5. Finalise
	report.FinishedAt = o.now()
	for i := range report.Entities {
		report.RecordsProcessed += report.Entities[i].Records()
	}
	report.ErrorSummary = report.Summarise()
	if report.State != domain.RunFailed {
		report.State = finalState(report, ctx.Err() != nil)
	}

	logger.Info("sync %s: %s, %d records in %s", report.RunID, report.State, report.RecordsProcessed,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return report, nil
}

// SyncWindow runs one window outside a full run.
// Windows longer than max_date_range_days are rejected before any provider call.
func (o *SyncOrchestrator) SyncWindow(ctx context.Context, window domain.SyncWindow) (*domain.WindowResult, error) {
	if err := window.Validate(o.config.MaxDateRangeDays); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	o.setStatus(runID, &driving.SyncStatus{RunID: runID, Running: true, CurrentEntity: window.EntityType})
	defer o.clearStatus(runID)

	res := o.runWindow(ctx, runID, window, false)
	return &res, nil
}

// Status returns progress for a run.
func (o *SyncOrchestrator) Status(_ context.Context, runID string) (*driving.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.activeSyncs[runID]; ok {
		// Return a copy to avoid race conditions
		c := *status
		return &c, nil
	}

	// Not running - return idle status
	return &driving.SyncStatus{
		RunID:   runID,
		Running: false,
	}, nil
}

// planWindows returns the windows for one entity type.
// Worklogs without a requested range resume from the newest stored worklog.
func (o *SyncOrchestrator) planWindows(ctx context.Context, t domain.EntityType, r domain.DateRange) ([]domain.SyncWindow, error) {
	if !t.HasDateDimension() {
		return []domain.SyncWindow{domain.FullWindow(t)}, nil
	}

	if r.IsZero() {
		r = o.defaultRange(ctx, t)
		if !r.End.After(r.Start) {
			logger.Info("%s: nothing new since %s", t, r.Start.Format(time.RFC3339))
			return nil, nil
		}
	}
	return domain.SplitRange(t, r, o.config.MaxDateRangeDays)
}

func (o *SyncOrchestrator) defaultRange(ctx context.Context, t domain.EntityType) domain.DateRange {
	now := o.now().UTC()
	r := domain.DateRange{
		Start: now.AddDate(0, 0, -o.config.MaxDateRangeDays),
		End:   now,
	}

	marker, err := o.store.LastSyncedMarker(ctx, t)
	if err != nil {
		logger.Warn("%s: read last synced marker: %v", t, err)
		return r
	}
	if marker != nil {
		r.Start = marker.UTC()
	}
	return r
}

// runEntity runs the windows of one entity type, at most WindowConcurrency at once.
// Cancellation is checked before each window starts.
func (o *SyncOrchestrator) runEntity(
	ctx context.Context,
	runID string,
	t domain.EntityType,
	windows []domain.SyncWindow,
	resume bool,
) domain.EntityReport {
	results := make([]domain.WindowResult, len(windows))

	var g errgroup.Group
	g.SetLimit(max(o.config.WindowConcurrency, 1))

	for i, w := range windows {
		if ctx.Err() != nil {
			results[i] = domain.WindowResult{Window: w, Status: domain.StatusSkipped, Errors: []string{errCancelled.Error()}}
			continue
		}
		g.Go(func() error {
			results[i] = o.runWindow(ctx, runID, w, resume)
			return nil
		})
	}
	_ = g.Wait()

	return domain.EntityReport{EntityType: t, Windows: results}
}

// runWindow pages through one window and upserts what it fetches.
// Once started, a window finishes even if ctx is cancelled.
func (o *SyncOrchestrator) runWindow(ctx context.Context, runID string, w domain.SyncWindow, resume bool) domain.WindowResult {
	res := domain.WindowResult{Window: w}

	if resume {
		done, err := o.ledger.HasSucceeded(ctx, w)
		if err != nil {
			logger.Warn("%s: ledger lookup: %v", w, err)
		} else if done {
			logger.Info("%s: already synced, skipping", w)
			res.Status = domain.StatusSkipped
			return res
		}
	}

	wctx := context.WithoutCancel(ctx)

	handle, err := o.ledger.RecordStart(wctx, runID, w)
	if err != nil {
		logger.Warn("%s: ledger start: %v", w, err)
	}

	var fetchErr error
	cursor := domain.FirstPage(o.config.PaginationLimit)
	for {
		page, err := o.provider.FetchPage(wctx, w.EntityType, w, cursor)
		if page != nil {
			res.Pages++
			upserted, errs := o.upsertBatches(wctx, w.EntityType, page.Records)
			res.Upserted.Add(upserted)
			res.Records += upserted.Total()
			for _, e := range errs {
				res.Errors = append(res.Errors, e.Error())
			}
			o.updateStatus(runID, func(s *driving.SyncStatus) {
				s.RecordsProcessed += upserted.Total()
				s.ErrorCount += len(errs)
			})
		}

		if err != nil {
			if errors.Is(err, domain.ErrCursorStalled) && page != nil {
				res.Errors = append(res.Errors, err.Error())
				break
			}
			fetchErr = err
			break
		}
		if page == nil || page.Next == nil {
			break
		}
		if page.Next.Offset <= cursor.Offset {
			res.Errors = append(res.Errors, fmt.Sprintf("next offset %d after %d: %v", page.Next.Offset, cursor.Offset, domain.ErrCursorStalled))
			break
		}
		cursor = *page.Next
	}

	switch {
	case fetchErr != nil:
		res.Status = domain.StatusFailed
		res.Errors = append(res.Errors, fetchErr.Error())
		o.updateStatus(runID, func(s *driving.SyncStatus) { s.ErrorCount++ })
		logger.Error("%s: %v", w, fetchErr)
	case len(res.Errors) > 0:
		res.Status = domain.StatusPartial
	default:
		res.Status = domain.StatusSuccess
	}

	if handle.ID != "" {
		summary := ""
		if len(res.Errors) > 0 {
			summary = res.Errors[len(res.Errors)-1]
		}
		if err := o.ledger.RecordEnd(wctx, handle, res.Status, res.Records, summary); err != nil {
			logger.Warn("%s: ledger end: %v", w, err)
		}
	}

	logger.Debug("%s: %s, %d records over %d pages", w, res.Status, res.Records, res.Pages)
	return res
}

// upsertBatches writes records in sync_batch_size chunks.
// A failed chunk is reported and the remaining chunks are still written.
func (o *SyncOrchestrator) upsertBatches(
	ctx context.Context,
	t domain.EntityType,
	records []domain.RemoteEntity,
) (domain.UpsertResult, []error) {
	var total domain.UpsertResult
	var errs []error

	size := max(o.config.SyncBatchSize, 1)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batch := records[start:end]

		res, err := o.store.Upsert(ctx, t, batch)
		if err != nil {
			errs = append(errs, &domain.PersistenceError{EntityType: t, BatchSize: len(batch), Err: err})
			continue
		}
		total.Add(res)
	}
	return total, errs
}

// finalState derives the terminal state of a run that was not aborted.
func finalState(report *domain.RunReport, cancelled bool) domain.RunState {
	if cancelled {
		return domain.RunPartiallyFailed
	}
	for i := range report.Entities {
		for _, w := range report.Entities[i].Windows {
			if w.Status == domain.StatusFailed || w.Status == domain.StatusPartial || len(w.Errors) > 0 {
				return domain.RunPartiallyFailed
			}
		}
	}
	return domain.RunCompleted
}

// setStatus registers an active run.
func (o *SyncOrchestrator) setStatus(runID string, status *driving.SyncStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activeSyncs[runID] = status
}

// updateStatus mutates an active run's status under the lock.
func (o *SyncOrchestrator) updateStatus(runID string, fn func(*driving.SyncStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeSyncs[runID]; ok {
		fn(status)
	}
}

// clearStatus removes the sync status for a run.
func (o *SyncOrchestrator) clearStatus(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeSyncs, runID)
}
