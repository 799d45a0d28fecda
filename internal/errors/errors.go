// Package errors provides error codes shared by the storage, data access and presentation layers.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of failure that callers can branch on.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"
	ErrNotFound ErrorCode = "NOT_FOUND"

	// Storage errors
	ErrDatabase    ErrorCode = "DATABASE_ERROR"
	ErrMigration   ErrorCode = "MIGRATION_FAILED"
	ErrConstraint  ErrorCode = "CONSTRAINT_VIOLATION"
	ErrTransientIO ErrorCode = "TRANSIENT_IO"

	// Note errors
	ErrNoteNotFound ErrorCode = "NOTE_NOT_FOUND"

	// Tag errors
	ErrTagNotFound ErrorCode = "TAG_NOT_FOUND"
	ErrTagInvalid  ErrorCode = "TAG_INVALID"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
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
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// family maps specific codes onto the general kind callers usually test for.
var family = map[ErrorCode]ErrorCode{
	ErrNoteNotFound: ErrNotFound,
	ErrTagNotFound:  ErrNotFound,
	ErrTagInvalid:   ErrInvalid,
}

// Is reports whether any AppError in err's chain carries code.
// A specific code also matches its general kind, so a NOTE_NOT_FOUND error
// satisfies Is(err, ErrNotFound).
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code || family[appErr.Code] == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

// CodeOf returns the code of the outermost AppError in err's chain,
// or ErrInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsRetryable reports whether the caller may retry the failed operation.
// The core never retries on its own.
func IsRetryable(err error) bool {
	return Is(err, ErrTransientIO)
}
