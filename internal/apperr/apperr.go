// Package apperr provides structured domain errors with machine-readable codes.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeNotFound indicates an unknown session, question set, or question index.
	CodeNotFound Code = "NOT_FOUND"
	// CodeInvalidState indicates an operation attempted in the wrong phase
	// or without an active question.
	CodeInvalidState Code = "INVALID_STATE"
	// CodeForbidden indicates a player attempting an action reserved for
	// another role, such as a non-game-master ending a phase.
	CodeForbidden Code = "FORBIDDEN"
	// CodeValidation indicates malformed or conflicting input, such as a
	// duplicate pseudonym.
	CodeValidation Code = "VALIDATION"
)

// Error is the domain error type carrying a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the domain code from err. The second return is false
// when err is not a domain error; transport layers should treat that
// case as internal.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// Sentinel values for errors.Is checks against each code.
var (
	ErrNotFound     = New(CodeNotFound, "not found")
	ErrInvalidState = New(CodeInvalidState, "invalid state")
	ErrForbidden    = New(CodeForbidden, "forbidden")
	ErrValidation   = New(CodeValidation, "validation failed")
)
