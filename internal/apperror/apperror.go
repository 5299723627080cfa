// Package apperror defines the application's error taxonomy.
//
// Services return these errors; the HTTP layer maps them to status codes
// with errors.Is/errors.As. The sentinels below classify the failure, and
// AppError carries the human-readable message alongside.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrProvider marks a transient generation-provider failure. The
	// assembler absorbs these into placeholder content; they never
	// propagate past it.
	ErrProvider = errors.New("provider error")

	// ErrPublish marks a publish failure. Terminal for the affected post
	// (recorded as FAILED) but never fatal to the dispatch batch.
	ErrPublish = errors.New("publish error")
)

type AppError struct {
	Err     error  // classifying sentinel
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for missing or invalid credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// InvalidTransition reports an illegal state-machine edge, e.g. approving
// a post that is already POSTED.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Err:     ErrInvalidTransition,
		Message: fmt.Sprintf("cannot transition post from %s to %s", from, to),
	}
}

// Provider wraps a generation-provider failure with the provider's name.
func Provider(name string, err error) *AppError {
	return &AppError{
		Err:     ErrProvider,
		Message: fmt.Sprintf("%s: %v", name, err),
	}
}

// Publish wraps a publish failure with its reason.
func Publish(reason string) *AppError {
	return &AppError{
		Err:     ErrPublish,
		Message: reason,
	}
}
