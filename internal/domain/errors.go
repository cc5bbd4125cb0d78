package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrNotFound indicates the entity is absent at the source. Not retried;
	// surfaces as an absent optional field.
	ErrNotFound = errors.New("not found")

	// ErrCacheMiss indicates a cache miss.
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited indicates the source pushed back on request rate.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates a per-attempt deadline elapsed.
	ErrTimeout = errors.New("timeout")
)

// FetchFailedError is the terminal failure of a fetch after the retry budget
// is exhausted. It carries the page reference and the last underlying cause.
type FetchFailedError struct {
	Ref      PageRef
	Attempts int
	Err      error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch failed for %s after %d attempts: %v", e.Ref, e.Attempts, e.Err)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}

// RetryableError marks a transient failure the retry policy may re-attempt.
type RetryableError struct {
	Err        error
	RetryAfter int // seconds to wait before retry, 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %ds): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// ResolutionError indicates malformed or unexpected base data that prevents
// constructing a required entity. It aborts the enclosing branch, and the
// whole request in strict mode.
type ResolutionError struct {
	Kind string
	Key  string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s %q: %v", e.Kind, e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// NewResolutionError creates a ResolutionError.
func NewResolutionError(kind, key string, err error) *ResolutionError {
	return &ResolutionError{Kind: kind, Key: key, Err: err}
}

// IsRetryable checks whether an error should be retried. Cancellation and
// deadline expiry of the caller's context are never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// Warning records a non-fatal branch failure in a completed extraction.
type Warning struct {
	Branch string `json:"branch"`
	Ref    string `json:"ref,omitempty"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	if w.Ref != "" {
		return fmt.Sprintf("%s (%s): %s", w.Branch, w.Ref, w.Reason)
	}
	return fmt.Sprintf("%s: %s", w.Branch, w.Reason)
}
