package domain

import "time"

// Task IDs for the built-in background tasks.
const (
	TaskIDTokenRefresh   = "token-refresh"
	TaskIDTimeDoctorSync = "timedoctor-sync"
)

// FailureAlertThreshold is the number of consecutive failures from which a
// task is reported as failing rather than flaky.
const FailureAlertThreshold = 3

// builtinTasks lists every task the scheduler knows, in run order.
var builtinTasks = []struct{ id, name string }{
	{TaskIDTokenRefresh, "Token Refresh"},
	{TaskIDTimeDoctorSync, "Time Doctor Sync"},
}

// TaskIDs returns the built-in task ids in run order.
func TaskIDs() []string {
	ids := make([]string, len(builtinTasks))
	for i, t := range builtinTasks {
		ids[i] = t.id
	}
	return ids
}

// TaskName returns the display name of a built-in task, or the id itself.
func TaskName(id string) string {
	for _, t := range builtinTasks {
		if t.id == id {
			return t.name
		}
	}
	return id
}

// ScheduledTask is the persisted state of one recurring task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is the error of the most recent run, cleared on success.
	LastError string

	// ConsecutiveFailures counts failed runs since the last success.
	ConsecutiveFailures int
}

// Due reports whether the task should run at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Configure applies cfg to the task. A new interval counts from now; an
// unchanged one keeps the existing schedule.
func (t *ScheduledTask) Configure(cfg TaskConfig, now time.Time) {
	if t.Interval != cfg.Interval {
		t.Interval = cfg.Interval
		t.NextRun = now.Add(cfg.Interval)
	}
	t.Enabled = cfg.Enabled
}

// Failing reports whether the task has reached FailureAlertThreshold
// consecutive failures.
func (t *ScheduledTask) Failing() bool {
	return t.ConsecutiveFailures >= FailureAlertThreshold
}

// RecordOutcome updates the task after a run that started at startedAt and
// ended at endedAt, scheduling the next run one interval later.
func (t *ScheduledTask) RecordOutcome(startedAt, endedAt time.Time, err error) {
	t.LastRun = startedAt
	t.NextRun = endedAt.Add(t.Interval)
	if err != nil {
		t.LastError = err.Error()
		t.ConsecutiveFailures++
		return
	}
	t.LastError = ""
	t.LastSuccess = endedAt
	t.ConsecutiveFailures = 0
}

// TaskResult is one entry of a task's run history.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// RunID links a sync task to its ledger records. Empty for token refreshes.
	RunID string

	// RecordsProcessed is the number of entities upserted, or 1 for a
	// successful token check.
	RecordsProcessed int
}

// Duration returns how long the run took.
func (r TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// Effective returns the task's configuration after the master switch is
// applied. A non-positive interval disables the task.
func (c *SchedulerConfig) Effective(taskID string) TaskConfig {
	tc := c.GetTaskConfig(taskID)
	if !c.Enabled || tc.Interval <= 0 {
		tc.Enabled = false
	}
	return tc
}

// DefaultSchedulerConfig refreshes the token check and the sync hourly.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDTokenRefresh:   {Enabled: true, Interval: time.Hour},
			TaskIDTimeDoctorSync: {Enabled: true, Interval: time.Hour},
		},
	}
}
