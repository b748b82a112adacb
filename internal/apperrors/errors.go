package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an order or listing does not exist.
var ErrNotFound = errors.New("not found")

// ErrRateLimited is returned when a caller exceeds the request budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// ValidationError maps to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthError maps to HTTP 401, or 403 when Forbidden is set (authenticated
// caller acting on a resource it does not own).
type AuthError struct {
	Message   string
	Forbidden bool
}

func (e *AuthError) Error() string { return e.Message }

func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}

func NewForbiddenError(message string) *AuthError {
	return &AuthError{Message: message, Forbidden: true}
}

// ConflictError maps to HTTP 409: a transition not defined out of the
// order's current status.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// ProviderError wraps an upstream payment-provider failure. The detail is
// logged server-side; clients only ever see a generic message.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

// SignatureError maps to HTTP 400 and is a hard reject: webhook processing
// never proceeds past it.
type SignatureError struct {
	Provider string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid %s signature", e.Provider)
}

func NewSignatureError(provider string) *SignatureError {
	return &SignatureError{Provider: provider}
}
