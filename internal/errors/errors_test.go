// Package errors tests for error code definitions and error handling.
package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAppError_Error verifies error message formatting.
func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "error without underlying error",
			appError: &AppError{Code: ErrInternal, Message: "something failed"},
			want:     "[INTERNAL_ERROR] something failed",
		},
		{
			name:     "error with underlying error",
			appError: &AppError{Code: ErrDatabase, Message: "query failed", Err: errors.New("disk I/O")},
			want:     "[DATABASE_ERROR] query failed: disk I/O",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.appError.Error())
		})
	}
}

func TestIs(t *testing.T) {
	notFound := New(ErrNoteNotFound, "note 7 not found")
	wrapped := fmt.Errorf("update note: %w", notFound)

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"exact code", notFound, ErrNoteNotFound, true},
		{"general kind", notFound, ErrNotFound, true},
		{"through fmt wrap", wrapped, ErrNotFound, true},
		{"different code", notFound, ErrConstraint, false},
		{"plain error", errors.New("boom"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
		{"nested app errors", Wrap(ErrDatabase, "tx", New(ErrTransientIO, "busy")), ErrTransientIO, true},
		{"tag invalid is invalid input", New(ErrTagInvalid, "bad color"), ErrInvalid, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.err, tt.code))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrConstraint, CodeOf(fmt.Errorf("x: %w", New(ErrConstraint, "dup"))))
	assert.Equal(t, ErrInternal, CodeOf(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Wrap(ErrTransientIO, "database busy", errors.New("SQLITE_BUSY"))))
	assert.False(t, IsRetryable(New(ErrNotFound, "missing")))
}

func TestUnwrap(t *testing.T) {
	base := errors.New("root cause")
	err := Wrap(ErrDatabase, "failed", base)
	assert.ErrorIs(t, err, base)
}
