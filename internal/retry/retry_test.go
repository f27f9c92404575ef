package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// newTestExecutor returns an executor whose waits are recorded instead
// of slept.
func newTestExecutor(policy Policy) (*Executor, *[]time.Duration) {
	executor := NewExecutor(policy, testLogger())

	waits := &[]time.Duration{}
	executor.wait = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return executor, waits
}

func TestNewExecutor(t *testing.T) {
	t.Parallel()

	t.Run("invalid policy falls back to defaults", func(t *testing.T) {
		t.Parallel()

		executor := NewExecutor(Policy{MaxRetries: 0, BaseDelay: -time.Second}, testLogger())
		assert.Equal(t, 3, executor.policy.MaxRetries)
		assert.Equal(t, time.Second, executor.policy.BaseDelay)
	})
}

func TestDo(t *testing.T) {
	t.Parallel()

	t.Run("immediate success makes a single attempt", func(t *testing.T) {
		t.Parallel()

		executor, waits := newTestExecutor(DefaultPolicy())

		attempts := 0
		result, err := executor.Do(context.Background(), func(ctx context.Context) (any, error) {
			attempts++
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 1, attempts)
		assert.Empty(t, *waits)
	})

	t.Run("recovers after transient failures with exponential backoff", func(t *testing.T) {
		t.Parallel()

		executor, waits := newTestExecutor(DefaultPolicy())

		attempts := 0
		result, err := executor.Do(context.Background(), func(ctx context.Context) (any, error) {
			attempts++
			if attempts < 3 {
				return nil, fmt.Errorf("%w: attempt %d", ErrRateLimited, attempts)
			}
			return "recovered", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "recovered", result)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
	})

	t.Run("constant backoff", func(t *testing.T) {
		t.Parallel()

		executor, waits := newTestExecutor(Policy{
			MaxRetries:         3,
			BaseDelay:          500 * time.Millisecond,
			ExponentialBackoff: false,
		})

		_, err := executor.Do(context.Background(), func(ctx context.Context) (any, error) {
			return nil, ErrTransient
		})

		require.ErrorIs(t, err, ErrTransient)
		assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, *waits)
	})

	t.Run("exhaustion returns the last error unchanged", func(t *testing.T) {
		t.Parallel()

		executor, waits := newTestExecutor(DefaultPolicy())

		attempts := 0
		result, err := executor.Do(context.Background(), func(ctx context.Context) (any, error) {
			attempts++
			return nil, fmt.Errorf("%w: attempt %d", ErrRateLimited, attempts)
		})

		assert.Nil(t, result)
		require.ErrorIs(t, err, ErrRateLimited)
		assert.EqualError(t, err, "rate limited: attempt 3")
		assert.Equal(t, 3, attempts, "MaxRetries bounds total attempts, not extra retries")
		assert.Len(t, *waits, 2, "no wait follows the final attempt")
	})

	t.Run("non-retryable error propagates immediately", func(t *testing.T) {
		t.Parallel()

		executor, waits := newTestExecutor(DefaultPolicy())
		fatal := errors.New("invalid request")

		attempts := 0
		_, err := executor.Do(context.Background(), func(ctx context.Context) (any, error) {
			attempts++
			return nil, fatal
		})

		require.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, attempts)
		assert.Empty(t, *waits)
	})

	t.Run("custom RetryIf", func(t *testing.T) {
		t.Parallel()

		marker := errors.New("flaky")
		executor, _ := newTestExecutor(Policy{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			RetryIf:    func(err error) bool { return errors.Is(err, marker) },
		})

		attempts := 0
		_, err := executor.Do(context.Background(), func(ctx context.Context) (any, error) {
			attempts++
			return nil, marker
		})

		require.ErrorIs(t, err, marker)
		assert.Equal(t, 3, attempts)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		t.Parallel()

		executor := NewExecutor(DefaultPolicy(), testLogger())

		ctx, cancel := context.WithCancel(context.Background())

		attempts := 0
		_, err := executor.Do(ctx, func(ctx context.Context) (any, error) {
			attempts++
			cancel()
			return nil, ErrTransient
		})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts, "cancellation during the wait ends the loop")
	})

	t.Run("retry hook observes every retry", func(t *testing.T) {
		t.Parallel()

		executor, _ := newTestExecutor(DefaultPolicy())

		var hookAttempts []int
		executor.SetRetryHook(func(attempt int, err error) {
			hookAttempts = append(hookAttempts, attempt)
		})

		_, err := executor.Do(context.Background(), func(ctx context.Context) (any, error) {
			return nil, ErrRateLimited
		})

		require.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, []int{1, 2}, hookAttempts)
	})
}

func TestWrap(t *testing.T) {
	t.Parallel()

	executor, waits := newTestExecutor(DefaultPolicy())

	attempts := 0
	wrapped := executor.Wrap(func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 2 {
			return nil, ErrTransient
		}
		return "wrapped", nil
	})

	result, err := wrapped(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "wrapped", result)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{time.Second}, *waits)
}

func TestSafeDo(t *testing.T) {
	t.Parallel()

	t.Run("passes through success", func(t *testing.T) {
		t.Parallel()

		executor := NewExecutor(DefaultPolicy(), testLogger())

		result := executor.SafeDo(context.Background(), func(ctx context.Context) (any, error) {
			return 42, nil
		}, -1)

		assert.Equal(t, 42, result)
	})

	t.Run("swallows failure and returns the default", func(t *testing.T) {
		t.Parallel()

		executor := NewExecutor(DefaultPolicy(), testLogger())

		result := executor.SafeDo(context.Background(), func(ctx context.Context) (any, error) {
			return nil, errors.New("boom")
		}, "fallback")

		assert.Equal(t, "fallback", result)
	})

	t.Run("composes with Wrap for retried catch-all execution", func(t *testing.T) {
		t.Parallel()

		executor, _ := newTestExecutor(DefaultPolicy())

		attempts := 0
		result := executor.SafeDo(context.Background(), executor.Wrap(func(ctx context.Context) (any, error) {
			attempts++
			return nil, ErrRateLimited
		}), "fallback")

		assert.Equal(t, "fallback", result)
		assert.Equal(t, 3, attempts)
	})
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", ErrRateLimited, true},
		{"wrapped rate limited", fmt.Errorf("call failed: %w", ErrRateLimited), true},
		{"transient sentinel", ErrTransient, true},
		{"transient marker", Transient(errors.New("socket reset")), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"plain error", errors.New("bad input"), false},
		{"cancelled context", context.Canceled, false},
		{"nil", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestTransient(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := Transient(cause)

	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Transient(nil))
}
