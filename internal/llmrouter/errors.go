package llmrouter

import (
	"errors"
	"time"
)

// retryableError marks a provider error as retryable and optionally carries
// a server-provided Retry-After hint. The Router checks for this via
// errors.As rather than hardcoding status-code logic itself, so a provider
// implementation owns its own classification of what's retryable.
type retryableError struct {
	err        error
	retryAfter time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func newRetryableError(err error, retryAfter time.Duration) error {
	return &retryableError{err: err, retryAfter: retryAfter}
}

// asRetryable reports whether err is retryable and, if so, any Retry-After
// hint the provider attached.
func asRetryable(err error) (time.Duration, bool) {
	var re *retryableError
	if errors.As(err, &re) {
		return re.retryAfter, true
	}
	return 0, false
}
