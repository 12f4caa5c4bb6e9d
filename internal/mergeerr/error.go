// Package mergeerr contains the error types returned by the automerge
// components.
package mergeerr

import (
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is returned when the required checks did not succeed
// within the retry budget.
var ErrRetriesExhausted = errors.New("maximum retries exceeded")

// ConfigurationError is returned for invalid inputs or a missing or
// unsupported triggering context.
type ConfigurationError struct {
	Err error
}

func NewConfigurationError(format string, a ...any) *ConfigurationError {
	return &ConfigurationError{Err: fmt.Errorf(format, a...)}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Err)
}

type TransportError struct {
	// Op is the name of the API operation that failed.
	Op string
	// Err is the wrapped original error
	Err error
	// After is the earliest point in time that the operation could
	// succeed again, it is only set for rate limit errors.
	After time.Time
}

func NewTransportError(op string, originalErr error) *TransportError {
	return &TransportError{
		Op:  op,
		Err: originalErr,
	}
}

func NewRateLimitedTransportError(op string, originalErr error, resetAt time.Time) *TransportError {
	return &TransportError{
		Op:    op,
		Err:   originalErr,
		After: resetAt,
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Error() string {
	if e.After.IsZero() {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Err)
	}

	return fmt.Sprintf("%s failed (rate limited until %s): %s", e.Op, e.After, e.Err)
}

// MergeRejectedError is returned when GitHub refused to merge the pull
// request, e.g. because of a merge conflict, a branch protection rule or
// because the head branch changed.
type MergeRejectedError struct {
	Reason string
	Err    error
}

func (e *MergeRejectedError) Unwrap() error {
	return e.Err
}

func (e *MergeRejectedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("merge rejected: %s", e.Reason)
	}

	return fmt.Sprintf("merge rejected: %s: %s", e.Reason, e.Err)
}
