// Package retry provides a resilient execution wrapper for slow,
// failure-prone operations against external services. It retries
// transient failures with configurable backoff, propagates fatal errors
// immediately, and offers a catch-all mode for callers whose control
// flow must never be threatened by a single failing operation.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Operation is a single unit of work. Implementations should honor ctx
// cancellation at their blocking points.
type Operation func(ctx context.Context) (any, error)

// Policy configures how an Executor retries a failing Operation.
type Policy struct {
	// MaxRetries is the total number of attempts made before giving up.
	MaxRetries int

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration

	// ExponentialBackoff doubles the wait after every failed attempt
	// when true; otherwise every wait is BaseDelay.
	ExponentialBackoff bool

	// RetryIf decides whether an error is worth retrying. Errors it
	// rejects propagate immediately without consuming attempts.
	// Nil means IsTransient.
	RetryIf func(error) bool
}

// DefaultPolicy returns a Policy with reasonable defaults: three
// attempts, one second base delay, exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:         3,
		BaseDelay:          time.Second,
		ExponentialBackoff: true,
	}
}

// Executor applies a retry Policy to operations.
type Executor struct {
	policy Policy
	logger *slog.Logger

	// wait suspends between attempts. Injectable so tests can verify
	// backoff without real sleeps. The default respects ctx
	// cancellation and never stalls a thread.
	wait func(ctx context.Context, d time.Duration) error

	// onRetry, when set, is invoked before every retry wait.
	onRetry func(attempt int, err error)
}

// NewExecutor creates an Executor with the given policy.
// Invalid policy values are replaced with defaults.
func NewExecutor(policy Policy, logger *slog.Logger) *Executor {
	if policy.MaxRetries <= 0 {
		logger.Warn("invalid max retries specified, using default",
			"specified", policy.MaxRetries,
			"default", 3)
		policy.MaxRetries = 3
	}

	if policy.BaseDelay <= 0 {
		logger.Warn("invalid base delay specified, using default",
			"specified", policy.BaseDelay,
			"default", time.Second)
		policy.BaseDelay = time.Second
	}

	return &Executor{
		policy: policy,
		logger: logger,
		wait:   waitContext,
	}
}

// SetRetryHook registers a callback invoked before every retry wait,
// for example to count retries in metrics.
func (e *Executor) SetRetryHook(hook func(attempt int, err error)) {
	e.onRetry = hook
}

// Do executes op under the executor's retry policy. Retryable failures
// are retried until MaxRetries attempts have been made; the last error
// is then returned unchanged. Errors outside the retryable set
// propagate immediately. A successful attempt returns at once.
func (e *Executor) Do(ctx context.Context, op Operation) (any, error) {
	retryIf := e.policy.RetryIf
	if retryIf == nil {
		retryIf = IsTransient
	}

	var lastErr error

	for attempt := 0; attempt < e.policy.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				e.logger.Info("operation recovered after retry",
					"attempt", attempt+1)
			}
			return result, nil
		}

		if !retryIf(err) {
			e.logger.Error("operation failed with non-retryable error",
				"attempt", attempt+1,
				"error", err)
			return nil, err
		}

		lastErr = err

		if attempt == e.policy.MaxRetries-1 {
			e.logger.Error("operation retries exhausted",
				"max_retries", e.policy.MaxRetries,
				"error", err)
			break
		}

		delay := e.delay(attempt)
		e.logger.Warn("operation failed, retrying",
			"attempt", attempt+1,
			"max_retries", e.policy.MaxRetries,
			"retry_after", delay,
			"error", err)

		if e.onRetry != nil {
			e.onRetry(attempt+1, err)
		}

		if werr := e.wait(ctx, delay); werr != nil {
			return nil, werr
		}
	}

	return nil, lastErr
}

// Wrap binds op to the executor's policy so the same retry behavior
// applies at every call site without repeating boilerplate.
func (e *Executor) Wrap(op Operation) Operation {
	return func(ctx context.Context) (any, error) {
		return e.Do(ctx, op)
	}
}

// SafeDo executes op and swallows any error, returning defaultValue
// instead. Use where the failure of one operation must never abort the
// caller's control flow.
func (e *Executor) SafeDo(ctx context.Context, op Operation, defaultValue any) any {
	result, err := op(ctx)
	if err != nil {
		e.logger.Error("operation failed, returning default value",
			"error", err)
		return defaultValue
	}
	return result
}

// delay computes the wait before the retry following attempt
// (0-indexed).
func (e *Executor) delay(attempt int) time.Duration {
	if e.policy.ExponentialBackoff {
		return e.policy.BaseDelay << uint(attempt)
	}
	return e.policy.BaseDelay
}

// waitContext suspends for d without blocking other goroutines,
// returning early if ctx is cancelled.
func waitContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
