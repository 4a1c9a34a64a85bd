// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal          = "INTERNAL_ERROR"
	CodeQueryFailure      = "QUERY_FAILURE"
	CodeCacheWriteFailure = "CACHE_WRITE_FAILED"
	CodeTimeout           = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Not found (404)
	CodeNotFound     = "NOT_FOUND"
	CodeNotGenerated = "REPORT_NOT_GENERATED"
)

// AppError is the standard error type for the service.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, cache keys, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewNotGenerated signals that a cached report has not been computed yet.
// Callers are expected to trigger a refresh.
func NewNotGenerated(report, key string) *AppError {
	return &AppError{
		Code:       CodeNotGenerated,
		Message:    fmt.Sprintf("%s has not been generated yet, trigger a refresh", report),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"report": report, "cache_key": key},
	}
}

// NewQueryFailure wraps a ledger read failure (500). A query cut short by
// a context deadline, such as the snapshot statement timeout, maps to 504.
func NewQueryFailure(op string, err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:       CodeTimeout,
			Message:    "Ledger query timed out",
			HTTPStatus: http.StatusGatewayTimeout,
			Details:    map[string]any{"operation": op},
			Err:        err,
		}
	}
	return &AppError{
		Code:       CodeQueryFailure,
		Message:    "Ledger query failed",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"operation": op},
		Err:        err,
	}
}

// NewCacheWriteFailure reports that a computed result could not be persisted.
func NewCacheWriteFailure(namespace string, err error) *AppError {
	return &AppError{
		Code:       CodeCacheWriteFailure,
		Message:    "Result computed but could not be cached",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"namespace": namespace},
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotGenerated reports whether err signals a missing cached report.
func IsNotGenerated(err error) bool {
	return hasCode(err, CodeNotGenerated)
}

// IsCacheWriteFailure reports whether err is a cache persistence failure.
func IsCacheWriteFailure(err error) bool {
	return hasCode(err, CodeCacheWriteFailure)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
