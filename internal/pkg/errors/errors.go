package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Provider   string      `json:"provider,omitempty"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Error codes. The provider-facing subset (NotConfigured through Empty)
// mirrors the fetch outcome kinds a ProviderAdapter can report.
const (
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeNotConfigured    = "PROVIDER_NOT_CONFIGURED"
	ErrCodeAuthFailed       = "PROVIDER_AUTH_FAILED"
	ErrCodeTimeout          = "PROVIDER_TIMEOUT"
	ErrCodeRateLimited      = "PROVIDER_RATE_LIMITED"
	ErrCodeEmpty            = "PROVIDER_EMPTY"
	ErrCodeDataIntegrity    = "DATA_INTEGRITY"
	ErrCodeTotalFailure     = "TOTAL_FAILURE"
	ErrCodeDuplicateName    = "DUPLICATE_NAME"
	ErrCodeSnapshotStore    = "SNAPSHOT_STORE"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// NotFound creates a not found error
func NotFound(what string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", what), http.StatusNotFound)
}

// NotConfigured reports a provider that is not set up or authenticated.
// The message tells the caller what to fix; it is never retried.
func NotConfigured(provider, hint string) *AppError {
	e := New(ErrCodeNotConfigured,
		fmt.Sprintf("provider %s is not configured: %s", provider, hint),
		http.StatusPreconditionFailed)
	e.Provider = provider
	return e
}

// AuthFailed reports a failed provider authentication.
func AuthFailed(provider string, err error) *AppError {
	e := Wrap(err, ErrCodeAuthFailed,
		fmt.Sprintf("authentication with %s failed", provider),
		http.StatusUnauthorized)
	e.Provider = provider
	return e
}

// Timeout reports a provider fetch that exceeded its deadline. Eligible for
// a bounded retry by the fetch layer.
func Timeout(provider string, err error) *AppError {
	e := Wrap(err, ErrCodeTimeout,
		fmt.Sprintf("fetch from %s timed out", provider),
		http.StatusGatewayTimeout)
	e.Provider = provider
	return e
}

// RateLimited reports a provider rate limit. Eligible for a bounded retry.
func RateLimited(provider string, err error) *AppError {
	e := Wrap(err, ErrCodeRateLimited,
		fmt.Sprintf("%s rate limited the request", provider),
		http.StatusTooManyRequests)
	e.Provider = provider
	return e
}

// Empty reports a provider that returned no billing data for the window.
func Empty(provider string) *AppError {
	e := New(ErrCodeEmpty,
		fmt.Sprintf("%s returned no billing data for the requested window", provider),
		http.StatusNotFound)
	e.Provider = provider
	return e
}

// DataIntegrity reports a malformed upstream record. Handled locally by the
// normalizer; never fatal to a run.
func DataIntegrity(detail string) *AppError {
	return New(ErrCodeDataIntegrity, detail, http.StatusUnprocessableEntity)
}

// TotalFailure reports that every requested provider failed.
func TotalFailure(err error) *AppError {
	return Wrap(err, ErrCodeTotalFailure, "all requested providers failed", http.StatusBadGateway)
}

// DuplicateName reports a snapshot save that would overwrite an existing
// name without overwrite being requested.
func DuplicateName(name string) *AppError {
	return New(ErrCodeDuplicateName,
		fmt.Sprintf("snapshot %q already exists (use overwrite to replace it)", name),
		http.StatusConflict)
}

// SnapshotStore wraps a snapshot persistence failure.
func SnapshotStore(message string, err error) *AppError {
	return Wrap(err, ErrCodeSnapshotStore, message, http.StatusInternalServerError)
}

// Code extracts the AppError code from err, or ErrCodeInternal for plain errors.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsTransient reports whether err is a provider failure worth a bounded retry.
func IsTransient(err error) bool {
	switch Code(err) {
	case ErrCodeTimeout, ErrCodeRateLimited:
		return true
	}
	return false
}
