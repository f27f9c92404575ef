// Package service contains the orchestration layer that drives batch
// survey deployments: it registers tasks, fans respondent units out
// through the bounded batch executor with per-unit retry, feeds every
// outcome back into the task registry, and completes the task.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/cohort-api/internal/batch"
	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/metrics"
	"github.com/phrazzld/cohort-api/internal/retry"
	"github.com/phrazzld/cohort-api/internal/simulation"
	"github.com/phrazzld/cohort-api/internal/taskreg"
)

// TaskTypeSurveyDeployment tags deployment task params so distinct
// kinds of work against the same key never share a fingerprint.
const TaskTypeSurveyDeployment = "survey_deployment"

// DeploymentConfig holds configuration for the deployment service.
type DeploymentConfig struct {
	// DeployTimeout is the coarse overall deadline for one deployment
	// run. Exceeding it is an orchestration-level failure: the task is
	// marked failed as a whole.
	DeployTimeout time.Duration
}

// DefaultDeploymentConfig returns a DeploymentConfig with reasonable defaults.
func DefaultDeploymentConfig() DeploymentConfig {
	return DeploymentConfig{
		DeployTimeout: 30 * time.Minute,
	}
}

// DeploymentService orchestrates batch survey deployments.
type DeploymentService struct {
	registry  *taskreg.Registry
	executor  *batch.Executor
	retrier   *retry.Executor
	responder simulation.Responder

	deployTimeout time.Duration
	logger        *slog.Logger

	// baseCtx bounds the lifetime of background runs; cancelling it
	// abandons in-flight deployments on shutdown.
	baseCtx context.Context

	// wg tracks background deployment runs for clean shutdown.
	wg sync.WaitGroup
}

// NewDeploymentService creates a DeploymentService. The provided ctx
// bounds all background deployment runs.
func NewDeploymentService(
	ctx context.Context,
	registry *taskreg.Registry,
	executor *batch.Executor,
	retrier *retry.Executor,
	responder simulation.Responder,
	cfg DeploymentConfig,
	logger *slog.Logger,
) *DeploymentService {
	if cfg.DeployTimeout <= 0 {
		cfg.DeployTimeout = DefaultDeploymentConfig().DeployTimeout
	}

	retrier.SetRetryHook(func(attempt int, err error) {
		metrics.RetryAttempts.Inc()
	})

	return &DeploymentService{
		registry:      registry,
		executor:      executor,
		retrier:       retrier,
		responder:     responder,
		deployTimeout: cfg.DeployTimeout,
		logger:        logger,
		baseCtx:       ctx,
	}
}

// Deploy registers a deployment task for the survey (or returns the
// already-active one for an equivalent submission) and, for new tasks,
// launches the run in the background. Callers poll the returned task
// ID for progress. A submission for a key with an active task but
// different parameters returns the active task together with
// taskreg.ErrParamsConflict.
func (s *DeploymentService) Deploy(ctx context.Context, survey domain.Survey, audience []domain.Respondent) (taskreg.Task, bool, error) {
	if err := survey.Validate(); err != nil {
		return taskreg.Task{}, false, fmt.Errorf("invalid survey: %w", err)
	}

	for i := range audience {
		if err := audience[i].Validate(); err != nil {
			return taskreg.Task{}, false, fmt.Errorf("invalid respondent: %w", err)
		}
	}

	task, isNew, err := s.registry.GetOrCreate(
		taskKey(survey.ID),
		deploymentParams(survey, audience),
		len(audience),
	)
	if err != nil {
		return task, isNew, err
	}

	if !isNew {
		metrics.TasksDeduplicated.Inc()
		s.logger.Warn("duplicate deployment request, returning existing task",
			"task_id", task.ID,
			"survey_id", survey.ID)
		return task, false, nil
	}

	metrics.TasksCreated.Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		runCtx, cancel := context.WithTimeout(s.baseCtx, s.deployTimeout)
		defer cancel()

		s.run(runCtx, task.ID, survey, audience)
	}()

	return task, true, nil
}

// TaskProgress returns a snapshot of the task with the given ID.
func (s *DeploymentService) TaskProgress(taskID string) (taskreg.Task, error) {
	return s.registry.Get(taskID)
}

// ActiveTask returns the active deployment task for the survey, if any.
func (s *DeploymentService) ActiveTask(surveyID string) (taskreg.Task, error) {
	return s.registry.GetActive(taskKey(surveyID))
}

// Wait blocks until all background deployment runs have finished.
func (s *DeploymentService) Wait() {
	s.wg.Wait()
}

// run executes one deployment: start the task, fan the units out,
// record outcomes, complete the task. Per-unit failures are isolated
// and never fail the task; only orchestration-level errors do.
func (s *DeploymentService) run(ctx context.Context, taskID string, survey domain.Survey, audience []domain.Respondent) {
	logger := s.logger.With("task_id", taskID, "survey_id", survey.ID)

	if err := s.registry.Start(taskID); err != nil {
		logger.Error("failed to start task", "error", err)
		return
	}

	logger.Info("starting survey deployment",
		"audience_size", len(audience),
		"max_concurrency", s.executor.MaxConcurrency())

	units := make([]batch.Unit, 0, len(audience))
	for _, respondent := range audience {
		units = append(units, s.unitFor(taskID, survey, respondent))
	}

	var outcomes []batch.Outcome
	if len(units) > s.executor.BatchSize() {
		outcomes = s.executor.RunChunked(ctx, units)
	} else {
		outcomes = s.executor.RunIsolated(ctx, units)
	}

	if ctx.Err() != nil {
		s.fail(taskID, fmt.Sprintf("deployment aborted: %v", ctx.Err()))
		return
	}

	successCount := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			successCount++
		}
	}

	// Partial success is a normal terminal state; individual failures
	// are visible in the task's results, not in its status.
	if err := s.registry.Complete(taskID, true, ""); err != nil {
		logger.Error("failed to complete task", "error", err)
		return
	}
	metrics.TasksFinished.WithLabelValues(string(taskreg.StatusCompleted)).Inc()

	logger.Info("survey deployment finished",
		"success_count", successCount,
		"failed_count", len(outcomes)-successCount)
}

// unitFor builds the unit of work for one respondent, bound by value
// at construction time. The unit wraps the responder call in the retry
// policy and feeds its outcome into the registry before returning.
func (s *DeploymentService) unitFor(taskID string, survey domain.Survey, respondent domain.Respondent) batch.Unit {
	op := s.retrier.Wrap(func(ctx context.Context) (any, error) {
		return s.responder.Answer(ctx, survey, respondent)
	})

	return func(ctx context.Context) (any, error) {
		metrics.UnitsInFlight.Inc()
		defer metrics.UnitsInFlight.Dec()

		start := time.Now()
		data, err := op(ctx)
		metrics.UnitDuration.Observe(time.Since(start).Seconds())

		result := taskreg.UnitResult{
			UnitID:  respondent.ID,
			Success: err == nil,
		}
		if err != nil {
			result.Error = err.Error()
			metrics.UnitsCompleted.WithLabelValues("failure").Inc()
		} else {
			result.Data = data
			metrics.UnitsCompleted.WithLabelValues("success").Inc()
		}

		if uerr := s.registry.UpdateProgress(taskID, result); uerr != nil {
			s.logger.Error("failed to record unit progress",
				"task_id", taskID,
				"unit_id", respondent.ID,
				"error", uerr)
		}

		return data, err
	}
}

// fail marks the task failed for an orchestration-level error.
func (s *DeploymentService) fail(taskID, message string) {
	if err := s.registry.Complete(taskID, false, message); err != nil {
		s.logger.Error("failed to mark task failed",
			"task_id", taskID,
			"error", err)
		return
	}
	metrics.TasksFinished.WithLabelValues(string(taskreg.StatusFailed)).Inc()
	s.logger.Error("survey deployment failed", "task_id", taskID, "reason", message)
}

// taskKey derives the business key for a survey's deployment tasks.
func taskKey(surveyID string) string {
	return "survey_" + surveyID
}

// deploymentParams builds the fingerprinted parameter set for a
// deployment submission. Audience order does not affect the
// fingerprint.
func deploymentParams(survey domain.Survey, audience []domain.Respondent) map[string]any {
	ids := make([]string, 0, len(audience))
	for _, respondent := range audience {
		ids = append(ids, respondent.ID)
	}

	return map[string]any{
		"survey_id":    survey.ID,
		"audience_ids": ids,
		"task_type":    TaskTypeSurveyDeployment,
	}
}
