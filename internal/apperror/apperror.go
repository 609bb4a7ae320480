// Package apperror carries the failures the blog reports to its callers.
//
// Repositories and services return an *AppError; the handler layer matches
// the wrapped sentinel with errors.Is and picks the HTTP status:
//
//	ErrValidation   → 400  bad field in a blog, comment or sign-up form
//	ErrUnauthorized → 401  missing session or wrong credentials
//	ErrForbidden    → 403  editing someone else's blog or comment
//	ErrNotFound     → 404  unknown user, blog or comment id
//	ErrConflict     → 409  email already registered
//
// Anything else is an internal error and never reaches the client verbatim.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError is a categorized failure with a message safe to show users.
type AppError struct {
	Err     error  // one of the sentinels above
	Message string // shown to the client
	Field   string // form field at fault, validation only
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing row, e.g. NotFound("blog", id).
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

// ValidationFailed rejects one input field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a unique key already taken, e.g. Conflict("user", email).
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s %s already exists", resource, key),
	}
}

// Forbidden rejects a signed-in caller who neither owns the target nor is an
// admin.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized rejects a request with no valid session or bad credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
