// Package domainerrors defines the coded error type returned across service
// boundaries. Stores return sentinel errors; services translate them into
// coded errors; transports map codes onto their own status vocabulary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure so callers can branch without string matching.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInvalidState       Code = "invalid_state"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// Attendance-specific outcomes.
	CodeDuplicateCheckIn  Code = "duplicate_check_in"
	CodeOutOfRange        Code = "out_of_range"
	CodeAlreadyCheckedOut Code = "already_checked_out"
	CodeInvalidToken      Code = "invalid_token"
	CodeAlreadyConverted  Code = "already_converted"
)

// Error is a coded, optionally wrapped error. Details carries a typed payload
// for codes that need more than a message (e.g. geofence distances).
type Error struct {
	Code    Code
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails creates a coded error carrying a typed payload.
func WithDetails(code Code, msg string, details any) error {
	return &Error{Code: code, Message: msg, Details: details}
}

// Wrap attaches a code and message to an underlying error. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost coded error in the chain, or
// CodeInternal when the chain has none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in the chain has code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// DetailsOf returns the typed payload of the outermost coded error.
func DetailsOf[T any](err error) (T, bool) {
	var zero T
	var de *Error
	if !errors.As(err, &de) {
		return zero, false
	}
	d, ok := de.Details.(T)
	return d, ok
}
