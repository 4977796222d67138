package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Credential errors are deliberately generic: a wrong password and an
	// unknown email are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Guard rejections
	ErrIPRateLimited    = errors.New("too many attempts from this address")
	ErrEmailRateLimited = errors.New("too many attempts for this account")
	ErrAccountLocked    = errors.New("account is temporarily locked")

	// Second-factor errors
	ErrChallengeNotFound = errors.New("login challenge not found")
	ErrChallengeExpired  = errors.New("login challenge has expired")
	ErrChallengeUsed     = errors.New("login challenge already used")
	ErrTOTPInvalidCode   = errors.New("invalid verification code")
	ErrTOTPNotConfigured = errors.New("second factor is not configured")
)

// RetryAfterError wraps a guard rejection with the remaining cooldown so
// handlers can surface a machine-readable retry hint.
type RetryAfterError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Err, e.RetryAfter)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// RetryableAfter attaches a cooldown to a guard sentinel.
func RetryableAfter(err error, after time.Duration) error {
	return &RetryAfterError{Err: err, RetryAfter: after}
}
