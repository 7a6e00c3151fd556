package expr

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors raised while building or evaluating expressions
// and the queries composed from them.
type ErrorCode string

const (
	// ErrCodeDefinitionConflict indicates a named query was defined twice.
	ErrCodeDefinitionConflict ErrorCode = "DEFINITION_CONFLICT"

	// ErrCodeTypeMismatch indicates a substitution or node whose operand types
	// do not line up.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeUnsupportedCapability indicates a test that the selected type
	// cannot support (ordering a struct, null-testing an int, ...).
	ErrCodeUnsupportedCapability ErrorCode = "UNSUPPORTED_CAPABILITY"

	// ErrCodeEvaluationFailure indicates the tree could not be evaluated
	// against a concrete subject.
	ErrCodeEvaluationFailure ErrorCode = "EVALUATION_FAILURE"

	// ErrCodeInvalidDefinition indicates a malformed or missing definition.
	ErrCodeInvalidDefinition ErrorCode = "INVALID_QUERY_DEFINITION"

	// ErrCodeUnboundParameter indicates a parameter used outside of the
	// lambda that declares it.
	ErrCodeUnboundParameter ErrorCode = "UNBOUND_PARAMETER"
)

// Error is the error type returned by this package and by the query packages
// built on top of it.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "Substitute", "EqualTo").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with a formatted message.
func NewError(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error around an underlying error.
func WrapError(code ErrorCode, op, message string, err error) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// HasCode reports whether err, or any error it wraps, is an *Error with code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsTypeMismatch returns true if the error is a type mismatch error.
func IsTypeMismatch(err error) bool {
	return HasCode(err, ErrCodeTypeMismatch)
}

// IsUnsupportedCapability returns true if the error is an unsupported capability error.
func IsUnsupportedCapability(err error) bool {
	return HasCode(err, ErrCodeUnsupportedCapability)
}

// IsEvaluationFailure returns true if the error happened while evaluating a subject.
func IsEvaluationFailure(err error) bool {
	return HasCode(err, ErrCodeEvaluationFailure)
}

// IsDefinitionConflict returns true if the error is a definition conflict.
func IsDefinitionConflict(err error) bool {
	return HasCode(err, ErrCodeDefinitionConflict)
}

// IsInvalidDefinition returns true if the error is an invalid definition error.
func IsInvalidDefinition(err error) bool {
	return HasCode(err, ErrCodeInvalidDefinition)
}
