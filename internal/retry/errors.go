package retry

import (
	"context"
	"errors"
)

// Sentinel errors used by the default retryable classification.
var (
	// ErrRateLimited indicates the external service rejected the call
	// because of rate limiting. Always worth retrying with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient marks a temporary failure that might resolve on retry,
	// such as a dropped connection or a 5xx from the external service.
	ErrTransient = errors.New("transient failure")
)

// transientError wraps an arbitrary error so that IsTransient reports
// true for it while the original error chain stays inspectable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

func (e *transientError) Is(target error) bool { return target == ErrTransient }

// Transient marks err as retryable. Returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient is the default retryable-error predicate. It matches the
// package sentinels plus deadline expiry, mirroring the classes of
// failure that a rate-limited or flaky external service produces.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTransient) ||
		errors.Is(err, context.DeadlineExceeded)
}
