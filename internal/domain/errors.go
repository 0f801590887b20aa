package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("job not found")
	ErrNotReady      = errors.New("artifact not ready")
	ErrCancelled     = errors.New("job cancelled")
	ErrValidation    = errors.New("invalid input")
	ErrAlreadyExists = errors.New("job already exists")
)

// ValidationError reports a missing or malformed submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ExtractionError wraps a failure of the extractor. The message is opaque
// and is surfaced as-is in the job state.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// EncodingError is a non-zero encoder exit or a failure to run it.
type EncodingError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *EncodingError) Error() string {
	msg := fmt.Sprintf("encoder failed (exit %d)", e.ExitCode)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg = fmt.Sprintf("%s: %s", msg, lastLine(tail))
	}
	return msg
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// IsCancellation reports whether err is the cancellation condition rather
// than a failure. Messages carrying a cancellation marker are treated the
// same way, since a killed child often surfaces as a generic error that
// only mentions it was cancelled.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "cancelled") || strings.Contains(msg, "canceled")
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
