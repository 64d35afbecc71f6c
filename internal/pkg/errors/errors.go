// Package errors provides domain-specific error types for the roster sync
// engine.
//
// The sync engine distinguishes expected absence (a grade level the catalog
// does not carry, a roster member with no student profile) from genuine
// failure. Lookups return ErrNotFound-wrapped SyncErrors instead of
// suppressing errors wholesale, so callers decide per call site whether a
// miss is a fallback, a warning, or fatal to the record.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrNotFound marks an expected-absence lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrSourceUnavailable marks a transport or API failure of the SIS.
	// Fatal to the current resource sync, never absorbed per record.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrInvalidRecord marks a source record too malformed to upsert.
	ErrInvalidRecord = errors.New("invalid record")
)

// SyncError is a structured sync-engine error with a machine-readable code.
type SyncError struct {
	// Code is a stable machine-readable code (e.g. "GRADE_LEVEL_NOT_FOUND").
	Code string

	// Message is a human-readable description.
	Message string

	// Err is the wrapped underlying error.
	Err error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// New creates a SyncError.
func New(code, message string) *SyncError {
	return &SyncError{Code: code, Message: message}
}

// Wrap wraps an existing error into a SyncError.
func Wrap(err error, code, message string) *SyncError {
	return &SyncError{Code: code, Message: message, Err: err}
}

// NotFound creates a SyncError chained onto ErrNotFound, so callers can
// branch with errors.Is(err, ErrNotFound).
func NotFound(code, message string) *SyncError {
	return &SyncError{Code: code, Message: message, Err: ErrNotFound}
}

// SourceFailure wraps a transport/API error from the SIS client. The result
// satisfies errors.Is(err, ErrSourceUnavailable).
func SourceFailure(err error, message string) *SyncError {
	return &SyncError{
		Code:    CodeSourceUnavailable,
		Message: message,
		Err:     fmt.Errorf("%w: %w", ErrSourceUnavailable, err),
	}
}

// IsNotFound reports whether err represents an expected-absence miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSyncError checks if an error is a SyncError and returns it.
func IsSyncError(err error) (*SyncError, bool) {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr, true
	}
	return nil, false
}
