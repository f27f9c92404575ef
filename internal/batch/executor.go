// Package batch runs collections of independent units of work with a
// bounded number active at once. It supports a plain mode where the
// first failure aborts the batch, an isolated mode where every unit's
// outcome is captured and no failure escapes, and a chunked mode that
// additionally caps peak resource usage for very large inputs.
package batch

import (
	"context"
	"log/slog"
	"sync"
)

// Preset concurrency profiles. Survey deployments fan out wide; focus
// group batches run fewer, heavier units.
const (
	SurveyMaxConcurrency = 100
	SurveyBatchSize      = 50

	FocusGroupMaxConcurrency = 50
	FocusGroupBatchSize      = 20
)

// Unit is a single zero-argument unit of work. Units must capture
// their per-item arguments by value at construction time.
type Unit func(ctx context.Context) (any, error)

// Outcome is the captured result of one unit in isolated mode.
type Outcome struct {
	Success bool
	Data    any
	Err     error
}

// Config holds executor configuration.
type Config struct {
	// MaxConcurrency is the upper bound on simultaneously active units.
	MaxConcurrency int

	// BatchSize is the chunk size used by RunChunked.
	BatchSize int
}

// DefaultConfig returns the wide survey profile.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: SurveyMaxConcurrency,
		BatchSize:      SurveyBatchSize,
	}
}

// Executor runs batches of units under a concurrency bound.
type Executor struct {
	maxConcurrency int
	batchSize      int
	logger         *slog.Logger
}

// New creates an Executor with the given configuration.
// Invalid config values are replaced with defaults.
func New(cfg Config, logger *slog.Logger) *Executor {
	if cfg.MaxConcurrency <= 0 {
		logger.Warn("invalid max concurrency specified, using default",
			"specified", cfg.MaxConcurrency,
			"default", SurveyMaxConcurrency)
		cfg.MaxConcurrency = SurveyMaxConcurrency
	}

	if cfg.BatchSize <= 0 {
		logger.Warn("invalid batch size specified, using default",
			"specified", cfg.BatchSize,
			"default", SurveyBatchSize)
		cfg.BatchSize = SurveyBatchSize
	}

	return &Executor{
		maxConcurrency: cfg.MaxConcurrency,
		batchSize:      cfg.BatchSize,
		logger:         logger,
	}
}

// ForSurvey creates an Executor with the wide survey profile.
func ForSurvey(logger *slog.Logger) *Executor {
	return New(DefaultConfig(), logger)
}

// ForFocusGroup creates an Executor with the narrower focus group
// profile.
func ForFocusGroup(logger *slog.Logger) *Executor {
	return New(Config{
		MaxConcurrency: FocusGroupMaxConcurrency,
		BatchSize:      FocusGroupBatchSize,
	}, logger)
}

// MaxConcurrency returns the executor's concurrency bound.
func (e *Executor) MaxConcurrency() int { return e.maxConcurrency }

// BatchSize returns the executor's chunk size.
func (e *Executor) BatchSize() int { return e.batchSize }

// Run executes all units with at most MaxConcurrency active at any
// instant and returns their results in input order. The first unit
// error cancels the remaining batch and is returned; use RunIsolated
// when one failure must not abort the rest.
func (e *Executor) Run(ctx context.Context, units []Unit) ([]any, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]any, len(units))
	gate := make(chan struct{}, e.maxConcurrency)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)

	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, unit := range units {
		wg.Add(1)
		go func(i int, unit Unit) {
			defer wg.Done()

			select {
			case gate <- struct{}{}:
			case <-runCtx.Done():
				fail(runCtx.Err())
				return
			}
			defer func() { <-gate }()

			result, err := unit(runCtx)
			if err != nil {
				fail(err)
				return
			}
			results[i] = result
		}(i, unit)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// RunIsolated executes all units under the concurrency bound and
// captures every unit's outcome. The returned slice always has exactly
// one entry per input unit, in input order; no failure escapes.
func (e *Executor) RunIsolated(ctx context.Context, units []Unit) []Outcome {
	e.logger.Info("starting isolated batch execution",
		"total_units", len(units),
		"max_concurrency", e.maxConcurrency)

	outcomes := make([]Outcome, len(units))
	gate := make(chan struct{}, e.maxConcurrency)

	var wg sync.WaitGroup

	for i, unit := range units {
		wg.Add(1)
		go func(i int, unit Unit) {
			defer wg.Done()

			gate <- struct{}{}
			defer func() { <-gate }()

			data, err := unit(ctx)
			if err != nil {
				e.logger.Warn("unit failed",
					"unit_index", i,
					"error", err)
				outcomes[i] = Outcome{Err: err}
				return
			}
			outcomes[i] = Outcome{Success: true, Data: data}
		}(i, unit)
	}

	wg.Wait()

	successCount := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			successCount++
		}
	}

	e.logger.Info("isolated batch execution finished",
		"total_units", len(outcomes),
		"success_count", successCount,
		"failed_count", len(outcomes)-successCount)

	return outcomes
}

// RunChunked partitions units into fixed-size chunks and runs them one
// chunk at a time, each chunk internally bounded by MaxConcurrency.
// This caps peak resource usage for inputs of hundreds of units
// independent of the concurrency bound.
func (e *Executor) RunChunked(ctx context.Context, units []Unit) []Outcome {
	totalChunks := (len(units) + e.batchSize - 1) / e.batchSize

	e.logger.Info("starting chunked batch execution",
		"total_units", len(units),
		"batch_size", e.batchSize,
		"total_chunks", totalChunks)

	outcomes := make([]Outcome, 0, len(units))

	for start := 0; start < len(units); start += e.batchSize {
		end := min(start+e.batchSize, len(units))

		e.logger.Info("running chunk",
			"chunk", start/e.batchSize+1,
			"total_chunks", totalChunks,
			"chunk_units", end-start)

		outcomes = append(outcomes, e.RunIsolated(ctx, units[start:end])...)
	}

	return outcomes
}
