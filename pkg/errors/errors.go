// Package errors provides structured error types for floorsolve.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the solver core
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (fatal before optimization starts)
//   - CONSTRAINT_EVALUATION: A constraint could not be evaluated during a run
//   - *_NOT_FOUND / UNKNOWN_*: Referenced resource does not exist
//   - INTERNAL_*: Unexpected internal errors
//
// Non-fatal solver outcomes (stalled, iteration limit) are statuses, not errors.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidGeometry, "asset %q has width %g", id, w)
//	if errors.Is(err, errors.ErrCodeInvalidGeometry) {
//	    // Reject the scene
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidGeometry   Code = "INVALID_GEOMETRY"
	ErrCodeInvalidConstraint Code = "INVALID_CONSTRAINT"
	ErrCodeInvalidFormat     Code = "INVALID_FORMAT"
	ErrCodeInvalidOptions    Code = "INVALID_OPTIONS"

	// Evaluation errors
	ErrCodeConstraintEvaluation Code = "CONSTRAINT_EVALUATION"

	// Resource not found errors
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeUnknownAsset  Code = "UNKNOWN_ASSET"
	ErrCodeUnknownAnchor Code = "UNKNOWN_ANCHOR"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// EvaluationError identifies the constraint whose cost or gradient could not
// be computed. It unwraps to an *Error with ErrCodeConstraintEvaluation.
type EvaluationError struct {
	ConstraintID string
	Err          *Error
}

// Evaluation creates an EvaluationError for the named constraint.
func Evaluation(constraintID string, format string, args ...any) *EvaluationError {
	return &EvaluationError{
		ConstraintID: constraintID,
		Err:          New(ErrCodeConstraintEvaluation, "constraint %q: %s", constraintID, fmt.Sprintf(format, args...)),
	}
}

// Error implements the error interface.
func (e *EvaluationError) Error() string { return e.Err.Error() }

// Unwrap returns the coded error.
func (e *EvaluationError) Unwrap() error { return e.Err }

// ConstraintOf returns the constraint id carried by err, if any.
func ConstraintOf(err error) (string, bool) {
	var e *EvaluationError
	if errors.As(err, &e) {
		return e.ConstraintID, true
	}
	return "", false
}
