package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes aggregate failure semantics across the race graph.
type ErrorCode string

const (
	// CodeValidation: malformed or incomplete input, rejected before any write.
	CodeValidation ErrorCode = "validation"
	// CodeNotFound: a referenced race, runner or catalog item does not exist.
	CodeNotFound ErrorCode = "not_found"
	// CodeConflict: a uniqueness invariant would be violated by a non-idempotent path.
	CodeConflict ErrorCode = "conflict"
	// CodePersistence: storage unavailable or the transaction failed and was rolled back.
	CodePersistence ErrorCode = "persistence"
	CodeInternal    ErrorCode = "internal"
)

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	if f := strings.TrimSpace(e.Field); f != "" {
		msg = strings.TrimSpace(f + ": " + msg)
	}
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// NewFieldError builds a validation error naming the offending input field.
func NewFieldError(op, field, message string) error {
	return &Error{
		Code:    CodeValidation,
		Op:      strings.TrimSpace(op),
		Field:   strings.TrimSpace(field),
		Message: strings.TrimSpace(message),
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// FieldOf extracts the offending field of a validation error, if any.
func FieldOf(err error) string {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Field
}

func IsValidation(err error) bool  { return IsCode(err, CodeValidation) }
func IsConflict(err error) bool    { return IsCode(err, CodeConflict) }
func IsPersistence(err error) bool { return IsCode(err, CodePersistence) }
func IsNotFound(err error) bool    { return IsCode(err, CodeNotFound) }
