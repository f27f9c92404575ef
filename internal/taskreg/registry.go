package taskreg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Common registry errors.
var (
	// ErrTaskNotFound is returned when a lookup misses. Absence is
	// distinct from a failed task, which is found with StatusFailed.
	ErrTaskNotFound = errors.New("task not found")

	// ErrParamsConflict is returned by GetOrCreate alongside the
	// existing task when an active task for the same key was submitted
	// with different parameters. Callers decide the policy; the
	// registry never runs two tasks for one key concurrently.
	ErrParamsConflict = errors.New("active task exists with different parameters")

	// ErrInvalidTransition is returned when a status change would
	// regress the task state machine.
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Config holds registry configuration.
type Config struct {
	// RetentionWindow is how long finished tasks stay queryable before
	// a cleanup sweep removes them.
	RetentionWindow time.Duration

	// CleanupInterval is how often Run sweeps for expired tasks.
	CleanupInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		RetentionWindow: 5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Registry stores task records and the active-task index. All state is
// guarded by a single mutex; no lock is ever held across a blocking
// call, so registry operations cannot deadlock against running units.
type Registry struct {
	mu     sync.Mutex
	tasks  map[string]*Task
	active map[string]string // task_key -> task_id of the non-terminal task

	retention       time.Duration
	cleanupInterval time.Duration
	logger          *slog.Logger

	// now is injectable for deterministic retention tests.
	now func() time.Time
}

// New creates a Registry. Invalid config values are replaced with
// defaults.
func New(cfg Config, logger *slog.Logger) *Registry {
	defaults := DefaultConfig()

	if cfg.RetentionWindow <= 0 {
		logger.Warn("invalid retention window specified, using default",
			"specified", cfg.RetentionWindow,
			"default", defaults.RetentionWindow)
		cfg.RetentionWindow = defaults.RetentionWindow
	}

	if cfg.CleanupInterval <= 0 {
		logger.Warn("invalid cleanup interval specified, using default",
			"specified", cfg.CleanupInterval,
			"default", defaults.CleanupInterval)
		cfg.CleanupInterval = defaults.CleanupInterval
	}

	return &Registry{
		tasks:           make(map[string]*Task),
		active:          make(map[string]string),
		retention:       cfg.RetentionWindow,
		cleanupInterval: cfg.CleanupInterval,
		logger:          logger,
		now:             time.Now,
	}
}

// GetOrCreate returns the active task for key when one exists with a
// matching fingerprint (isNew=false), or atomically creates and
// registers a new pending task (isNew=true). Concurrent callers racing
// on the same key are serialized: exactly one creates the record and
// the rest observe it. An active task with a different fingerprint is
// returned with ErrParamsConflict.
func (r *Registry) GetOrCreate(key string, params map[string]any, totalCount int) (Task, bool, error) {
	fingerprint := Fingerprint(params)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.active[key]; ok {
		if existing, ok := r.tasks[id]; ok && !existing.Status.Terminal() {
			if existing.Fingerprint == fingerprint {
				r.logger.Warn("duplicate task submission detected",
					"task_key", key,
					"existing_task_id", existing.ID,
					"fingerprint", fingerprint)
				return existing.snapshot(), false, nil
			}

			r.logger.Warn("task key has an active task with different parameters",
				"task_key", key,
				"existing_task_id", existing.ID,
				"existing_fingerprint", existing.Fingerprint,
				"submitted_fingerprint", fingerprint)
			return existing.snapshot(), false, ErrParamsConflict
		}
	}

	task := &Task{
		ID:          newTaskID(),
		Key:         key,
		Fingerprint: fingerprint,
		Params:      maps.Clone(params),
		Status:      StatusPending,
		TotalCount:  totalCount,
		CreatedAt:   r.now(),
	}

	r.tasks[task.ID] = task
	r.active[key] = task.ID

	r.logger.Info("task created",
		"task_id", task.ID,
		"task_key", key,
		"fingerprint", fingerprint,
		"total_count", totalCount)

	return task.snapshot(), true, nil
}

// Start transitions a pending task to processing and records the start
// time. Starting a task that is already processing is a no-op.
func (r *Registry) Start(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	switch task.Status {
	case StatusPending:
		now := r.now()
		task.Status = StatusProcessing
		task.StartedAt = &now
		r.logger.Info("task started", "task_id", taskID)
		return nil
	case StatusProcessing:
		return nil
	default:
		return fmt.Errorf("%w: cannot start %s task %s",
			ErrInvalidTransition, task.Status, taskID)
	}
}

// UpdateProgress appends a unit result and bumps the progress counters
// atomically. It never changes the task status; units completing
// concurrently can call it without losing updates.
func (r *Registry) UpdateProgress(taskID string, result UnitResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	if result.RecordedAt.IsZero() {
		result.RecordedAt = r.now()
	}

	task.Results = append(task.Results, result)
	task.CompletedCount++
	if result.Success {
		task.SuccessCount++
	} else {
		task.FailedCount++
	}

	if task.CompletedCount%5 == 0 || task.CompletedCount == task.TotalCount {
		r.logger.Info("task progress",
			"task_id", taskID,
			"completed_count", task.CompletedCount,
			"total_count", task.TotalCount,
			"progress_percentage", task.ProgressPercentage())
	}

	return nil
}

// UpdateStatus moves the task to status. Transitions are monotone:
// a terminal task cannot change and no task can be reset to pending.
// Reaching a terminal state records the completion time, removes the
// key from the active index and opportunistically sweeps expired tasks.
func (r *Registry) UpdateStatus(taskID string, status Status, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	if task.Status.Terminal() {
		return fmt.Errorf("%w: task %s already %s",
			ErrInvalidTransition, taskID, task.Status)
	}

	if status == StatusPending && task.Status != StatusPending {
		return fmt.Errorf("%w: cannot reset %s task %s to pending",
			ErrInvalidTransition, task.Status, taskID)
	}

	task.Status = status
	if errorMessage != "" {
		task.ErrorMessage = errorMessage
	}

	if status.Terminal() {
		now := r.now()
		task.CompletedAt = &now

		if r.active[task.Key] == taskID {
			delete(r.active, task.Key)
		}

		r.logger.Info("task finished",
			"task_id", taskID,
			"status", status,
			"success_count", task.SuccessCount,
			"failed_count", task.FailedCount,
			"elapsed_seconds", task.elapsedAt(now))

		r.cleanupLocked(now)
	}

	return nil
}

// Complete moves the task to its terminal state: completed on success,
// failed otherwise. Completing a pending task is permitted for
// degenerate zero-unit batches.
func (r *Registry) Complete(taskID string, success bool, errorMessage string) error {
	status := StatusCompleted
	if !success {
		status = StatusFailed
	}
	return r.UpdateStatus(taskID, status, errorMessage)
}

// Get returns a snapshot of the task with the given ID.
func (r *Registry) Get(taskID string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return task.snapshot(), nil
}

// GetActive returns a snapshot of the non-terminal task registered for
// key, or ErrTaskNotFound when none is active.
func (r *Registry) GetActive(key string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.active[key]; ok {
		if task, ok := r.tasks[id]; ok && !task.Status.Terminal() {
			return task.snapshot(), nil
		}
	}
	return Task{}, fmt.Errorf("%w: no active task for key %s", ErrTaskNotFound, key)
}

// Cleanup removes every finished task whose completion time precedes
// the retention window and returns how many were removed. It is the
// manual trigger for the sweep that Run performs periodically.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleanupLocked(r.now())
}

func (r *Registry) cleanupLocked(now time.Time) int {
	removed := 0

	for id, task := range r.tasks {
		if !task.Status.Terminal() || task.CompletedAt == nil {
			continue
		}
		if now.Sub(*task.CompletedAt) > r.retention {
			delete(r.tasks, id)
			if r.active[task.Key] == id {
				delete(r.active, task.Key)
			}
			removed++
			r.logger.Debug("removed expired task", "task_id", id)
		}
	}

	if removed > 0 {
		r.logger.Info("cleanup sweep removed expired tasks", "count", removed)
	}

	return removed
}

// Run sweeps for expired tasks at the configured interval until ctx is
// cancelled. The registry owns this loop; start it from the
// composition root alongside the HTTP server.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	r.logger.Info("task cleanup loop started",
		"retention_window", r.retention,
		"cleanup_interval", r.cleanupInterval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("task cleanup loop stopped")
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}
