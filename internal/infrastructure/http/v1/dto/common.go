// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// SuccessResponse represents a generic success response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse mirrors the body written by middleware.ErrorHandler.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// RefreshResponse wraps a freshly computed report.
// Cached is false when the result could not be persisted.
type RefreshResponse struct {
	Success bool   `json:"success"`
	Cached  bool   `json:"cached"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}
