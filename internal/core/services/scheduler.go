package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
	"github.com/custodia-labs/tdsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is how many results are kept per task.
const historyRetention = 100

// Scheduler manages background task execution.
// It keeps the credential fresh and runs the periodic Time Doctor sync.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	syncOrch driving.SyncOrchestrator
	tokens   driven.TokenProvider

	tick time.Duration
	now  func() time.Time

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
	tokens driven.TokenProvider,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		syncOrch: syncOrch,
		tokens:   tokens,
		tick:     time.Minute,
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if !s.currentConfig().Enabled {
		logger.Info("scheduler: disabled, no background tasks will run")
	}

	// Initialise tasks in store
	if err := s.initialiseTasks(ctx); err != nil {
		logger.Error("scheduler: failed to initialise tasks: %v", err)
	}

	// Run the main scheduler loop
	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// Reconfigure applies a new configuration to the stored tasks. A changed
// interval reschedules the task from now.
func (s *Scheduler) Reconfigure(ctx context.Context, config domain.SchedulerConfig) error {
	s.mu.Lock()
	s.config = config
	s.mu.Unlock()

	return s.initialiseTasks(ctx)
}

func (s *Scheduler) currentConfig() domain.SchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// initialiseTasks brings the stored tasks in line with the configuration.
// Tasks turned off in configuration are saved as disabled, and stored tasks
// the scheduler no longer knows are removed.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	cfg := s.currentConfig()
	var errs []error
	for _, id := range domain.TaskIDs() {
		if err := s.ensureTask(ctx, id, domain.TaskName(id), cfg.Effective(id)); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.removeStaleTasks(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ensureTask stores the task under cfg. A task seen for the first time is
// due immediately.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	if task == nil {
		task = &domain.ScheduledTask{ID: id, Interval: cfg.Interval, NextRun: now}
	}
	task.Name = name
	task.Configure(cfg, now)
	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) removeStaleTasks(ctx context.Context) error {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return err
	}

	known := domain.TaskIDs()
	var errs []error
	for i := range tasks {
		if slices.Contains(known, tasks[i].ID) {
			continue
		}
		logger.Info("scheduler: removing unknown task %s", tasks[i].ID)
		if err := s.store.DeleteTask(ctx, tasks[i].ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// run checks for due tasks at start and then on every tick.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks starts every enabled task whose next run has passed.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		if tasks[i].Due(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// runTask executes a single task in the background unless a previous run
// of it is still going.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inFlight[task.ID] {
		s.mu.Unlock()
		logger.Debug("scheduler: %s still running, skipping", task.ID)
		return
	}
	s.inFlight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, task.ID)
			s.mu.Unlock()
		}()

		result, err := s.execute(ctx, task.ID)
		if result == nil {
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}
		s.finish(ctx, task, result, err)
	}()
}

// execute runs the task body and returns its result with timings filled in.
// A nil result means the task id is not one the scheduler can run.
func (s *Scheduler) execute(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	result := &domain.TaskResult{TaskID: taskID, StartedAt: s.now()}

	var err error
	switch taskID {
	case domain.TaskIDTokenRefresh:
		result.RecordsProcessed, err = s.runTokenRefresh(ctx)
	case domain.TaskIDTimeDoctorSync:
		result.RunID = uuid.NewString()
		result.RecordsProcessed, err = s.runTimeDoctorSync(ctx, result.RunID)
	default:
		return nil, nil
	}

	result.EndedAt = s.now()
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}

// finish records the outcome on the task and persists both. Store errors are
// logged; the next tick works from whatever state was saved.
func (s *Scheduler) finish(ctx context.Context, task *domain.ScheduledTask, result *domain.TaskResult, err error) {
	task.RecordOutcome(result.StartedAt, result.EndedAt, err)

	switch {
	case err == nil:
		logger.Debug("scheduler: %s done in %s", task.ID, result.Duration())
	case task.Failing():
		logger.Error("scheduler: %s has failed %d times in a row: %v", task.ID, task.ConsecutiveFailures, err)
	default:
		logger.Warn("scheduler: %s failed: %v", task.ID, err)
	}

	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		logger.Error("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}
	if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
		logger.Error("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}
	if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
		logger.Warn("scheduler: failed to prune history: %v", pruneErr)
	}
}

// runTokenRefresh refreshes the credential if it is inside the expiry buffer.
// A refresh that fails is a task failure even while the old token still works.
func (s *Scheduler) runTokenRefresh(ctx context.Context) (int, error) {
	if s.tokens == nil {
		return 0, nil
	}
	if _, err := s.tokens.RefreshIfDue(ctx); err != nil {
		return 0, err
	}
	return 1, nil
}

// runTimeDoctorSync syncs every entity type under runID. Worklogs continue
// from the newest stored worklog; the other entities are fetched in full.
func (s *Scheduler) runTimeDoctorSync(ctx context.Context, runID string) (int, error) {
	if s.syncOrch == nil {
		return 0, nil
	}

	report, err := s.syncOrch.TriggerSync(ctx, domain.SyncRequest{RunID: runID})
	if err != nil {
		return 0, err
	}
	if report.State != domain.RunCompleted {
		return report.RecordsProcessed, errors.New(report.State.String() + ": " + report.ErrorSummary)
	}
	return report.RecordsProcessed, nil
}
