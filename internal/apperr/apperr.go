// Package apperr defines the error codes shared by the aggregation and
// booking layers.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an application error.
type Code string

const (
	// SourceUnavailable marks a contest source that could not be fetched or parsed.
	SourceUnavailable Code = "SOURCE_UNAVAILABLE"
	NotFound          Code = "NOT_FOUND"
	BookingConflict   Code = "BOOKING_CONFLICT"
	// ExternalFailure marks a rejected calendar call.
	ExternalFailure Code = "EXTERNAL_FAILURE"
	StorageFailure  Code = "STORAGE_FAILURE"
	InvalidInput    Code = "INVALID_INPUT"
)

// AppError carries a code, a message and an optional cause.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps err with a code. A nil err yields nil.
func Wrap(code Code, message string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost AppError in err's chain, or ""
// when there is none.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
