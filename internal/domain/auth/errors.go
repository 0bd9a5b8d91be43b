// internal/domain/auth/errors.go
package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies authentication failures for callers.
type ErrorKind string

const (
	KindValidationFailed    ErrorKind = "validation_failed"
	KindRateLimited         ErrorKind = "rate_limited"
	KindInvalidCredentials  ErrorKind = "invalid_credentials"
	KindNoSession           ErrorKind = "no_session"
	KindInvalidRefreshToken ErrorKind = "invalid_refresh_token"
	KindSystemError         ErrorKind = "system_error"
)

// Error is a structured authentication failure. Unknown user, wrong password
// and inactive account all surface as the same invalid-credentials error so
// responses never reveal account existence.
type Error struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration // set for rate-limited errors only
	Violations []string      // set for validation errors only
	cause      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrRateLimited)
// works against the exported sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is matching.
var (
	ErrValidationFailed    = &Error{Kind: KindValidationFailed, Message: "validation failed"}
	ErrRateLimited         = &Error{Kind: KindRateLimited, Message: "too many login attempts"}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials, Message: "invalid username or password"}
	ErrNoSession           = &Error{Kind: KindNoSession, Message: "no active session"}
	ErrInvalidRefreshToken = &Error{Kind: KindInvalidRefreshToken, Message: "invalid refresh token"}
	ErrSystem              = &Error{Kind: KindSystemError, Message: "internal error"}
)

// NewValidationError reports the violated rules. Validation failures still
// count toward the attempt limiter.
func NewValidationError(violations []string) *Error {
	return &Error{
		Kind:       KindValidationFailed,
		Message:    "validation failed",
		Violations: violations,
	}
}

// NewRateLimitedError reports the remaining lockout wait.
func NewRateLimitedError(retryAfter time.Duration) *Error {
	wait := retryAfter.Round(time.Second)
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("too many login attempts, try again in %s", wait),
		RetryAfter: retryAfter,
	}
}

// NewSystemError wraps an unexpected backend failure.
func NewSystemError(cause error) *Error {
	return &Error{
		Kind:    KindSystemError,
		Message: "internal error",
		cause:   cause,
	}
}

// KindOf extracts the error kind, defaulting to system error for
// unclassified failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystemError
}
