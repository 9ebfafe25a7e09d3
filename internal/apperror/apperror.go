// Package apperror defines the application's error taxonomy.
//
// Services return these instead of raw storage or library errors, so the
// set of failure modes a caller has to handle is enumerable: handlers map
// each sentinel to exactly one HTTP status, and tests assert on kinds with
// errors.Is rather than matching message strings.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidToken    = errors.New("invalid token")
	ErrUpstream        = errors.New("upstream failure")
)

// AppError carries a sentinel kind plus a human-readable message.
// errors.Is(err, ErrXxx) works through Unwrap; errors.As extracts the
// message for the response body.
type AppError struct {
	Err     error  // sentinel kind from the list above
	Message string // human-readable error message
	Field   string // optional: input field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, key),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthenticated signals a missing, invalid, or expired session.
// HTTP handlers map this to 401.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Unauthorized signals an authenticated caller acting on a resource they
// don't own. HTTP handlers map this to 403.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// TokenExpired covers verification and password-reset tokens past their
// TTL. Session expiry is Unauthenticated, not TokenExpired — the two
// lifecycles are deliberately distinct.
func TokenExpired(message string) *AppError {
	return &AppError{
		Err:     ErrTokenExpired,
		Message: message,
	}
}

func InvalidToken(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: message,
	}
}

// Upstream wraps a failure from an external collaborator (media store,
// mail transport) when that call is the operation's sole purpose.
func Upstream(op string, err error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf("%s failed: %v", op, err),
	}
}
