package google

import (
	"errors"
	"fmt"
)

// AuthError codes.
const (
	CodeClientNotInitialized     = "client_not_initialized"
	CodeAccessDenied             = "access_denied"
	CodeExchangeFailed           = "exchange_failed"
	CodeReauthenticationRequired = "reauthentication_required"
	CodeInvalidResponse          = "invalid_response"
)

// Sentinel errors for flow bookkeeping. They are wrapped in an AuthError
// and can be matched with errors.Is.
var (
	// ErrNoVerifier means the callback arrived for a redirect flow that was
	// never started, was already consumed, or was superseded by a newer one.
	ErrNoVerifier = errors.New("no verifier found")

	// ErrVerifierExpired means the pending redirect flow outlived its TTL.
	ErrVerifierExpired = errors.New("verifier expired")

	// ErrFlowResolved is returned by a second Resolve on an ImplicitFlow.
	ErrFlowResolved = errors.New("flow already resolved")

	// ErrStateMismatch means the callback's state does not belong to the flow.
	ErrStateMismatch = errors.New("state mismatch")
)

// AuthError is returned for every authentication failure: missing client
// configuration, denied consent, rejected code exchange, and refresh
// failures that require a new interactive login.
type AuthError struct {
	// Code is a short machine-readable reason, either one of the Code*
	// constants or the provider's own error code (e.g. "access_denied").
	Code string

	// Description is a human-readable reason. It carries the provider's
	// error_description when one was given.
	Description string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an AuthError.
func NewAuthError(code, description string, err error) *AuthError {
	return &AuthError{Code: code, Description: description, Err: err}
}

// IsReauthenticationRequired reports whether err means the user has to log
// in again.
func IsReauthenticationRequired(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == CodeReauthenticationRequired
}

// providerError builds an AuthError from the error/error_description pair a
// provider reports. A missing description falls back to a generic label.
func providerError(code, description string) *AuthError {
	if code == "" {
		code = CodeAccessDenied
	}
	if description == "" {
		description = "authorization was not granted"
	}
	return &AuthError{Code: code, Description: description}
}
