package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline errors. Only ErrSourceRead and ErrUnavailable ever reach a caller
// of the pipeline; the others are recovered into diagnostics.
var (
	ErrSourceRead  = errors.New("source document unreadable")
	ErrUnavailable = errors.New("source document temporarily unavailable")
	ErrRender      = errors.New("page render failed")
	ErrRecognition = errors.New("text recognition failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// SourceReadError builds the document-level failure reported to callers.
func SourceReadError(name string, cause error) *AppError {
	return NewAppError("SOURCE_READ", fmt.Sprintf("cannot read %q", name), errors.Join(ErrSourceRead, cause))
}

// StageError tags cause with a pipeline sentinel so errors.Is matches both.
func StageError(sentinel error, message string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", sentinel, message)
	}
	return fmt.Errorf("%w: %s: %w", sentinel, message, cause)
}
