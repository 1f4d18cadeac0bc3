package accounts

import (
	"context"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// ErrNotFound is returned when an email or identifier does not resolve
var ErrNotFound = errors.New("account not found")

// ErrConflict is returned when an email is already registered
var ErrConflict = errors.New("email is already taken")

// ErrInvalidCredentials is returned on unknown email or password mismatch
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrAccountBlocked is returned when a blocked account tries to authenticate
var ErrAccountBlocked = errors.New("account is blocked")

// ErrUnauthorized is returned when a request carries no usable session
var ErrUnauthorized = errors.New("unauthorized")

// ErrValidation wraps malformed input
var ErrValidation = errors.New("validation error")

// ErrInvalidTransition is returned by a strict state machine for a disallowed status change
var ErrInvalidTransition = errors.New("invalid account status transition")

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty")

// ErrTokenMalformed is returned when a token cannot be parsed or verified
var ErrTokenMalformed = errors.New("token is malformed")

// ErrTokenExpired is returned when a token is past its expiration
var ErrTokenExpired = errors.New("token is expired")

// IsNotFound reports whether err is, or wraps, ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is, or wraps, ErrConflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnauthorized reports whether err should be surfaced as 401
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrAccountBlocked) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenExpired)
}

// StatusCodeFromError maps domain errors to HTTP status codes
func StatusCodeFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case IsUnauthorized(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCategory returns the go-errors category for err. Errors that already
// carry a category keep it, domain errors map by sentinel.
func ErrorCategory(err error) goerrors.Category {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category
	}

	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNoEmptyString):
		return goerrors.CategoryValidation
	case IsNotFound(err):
		return goerrors.CategoryNotFound
	case IsConflict(err), errors.Is(err, ErrInvalidTransition):
		return goerrors.CategoryConflict
	case IsUnauthorized(err):
		return goerrors.CategoryAuth
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return goerrors.CategoryOperation
	default:
		return goerrors.CategoryInternal
	}
}
