package models

import (
	"errors"
	"fmt"
)

// AuthErrorKind distinguishes why a credential was rejected.
type AuthErrorKind string

const (
	// Authentication failures: the credential itself is unusable.
	// These are recoverable via fallback to another method.
	AuthMissingCredential AuthErrorKind = "missing_credential"
	AuthInvalidCredential AuthErrorKind = "invalid_credential"
	AuthExpiredCredential AuthErrorKind = "expired_credential"

	// Authorization failure: the credential is valid but the caller is not
	// permitted. Fallback never advances past this.
	AuthForbidden AuthErrorKind = "forbidden"
)

// AuthError is returned by credential validators.
type AuthError struct {
	Kind   AuthErrorKind
	Method Method
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s auth: %s: %v", e.Method, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s auth: %s", e.Method, e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthentication returns true if the failure is a credential problem,
// i.e. the fallback chain may try the next method.
func (e *AuthError) IsAuthentication() bool {
	return e.Kind != AuthForbidden
}

// NewAuthError builds an AuthError for the given method and kind.
func NewAuthError(method Method, kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Method: method, Err: err}
}

// ErrFallbackExhausted is the terminal failure after every method in the
// decision has been attempted. The message is deliberately generic so the
// response does not leak which credential types were tried.
var ErrFallbackExhausted = errors.New("authentication failed")

// ErrRateLimited is returned when the security monitor denies a source IP.
var ErrRateLimited = errors.New("rate limit exceeded")

// ConfigError reports an invalid engine configuration. Fatal at startup,
// never produced mid-request.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// DependencyTimeout wraps a backing-store call that exceeded its latency
// budget. Treated as a cache miss / fail-open, logged as a warning.
type DependencyTimeout struct {
	Op  string
	Err error
}

func (e *DependencyTimeout) Error() string {
	return fmt.Sprintf("dependency timeout during %s: %v", e.Op, e.Err)
}

func (e *DependencyTimeout) Unwrap() error { return e.Err }
