package dto

import "time"

// Error codes returned by the API
const (
	ErrorCodeValidationFailed   = "VALIDATION_FAILED"
	ErrorCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrorCodeUnauthorized       = "UNAUTHORIZED"
	ErrorCodeForbidden          = "FORBIDDEN"
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeConflict           = "CONFLICT"
	ErrorCodeInternalError      = "INTERNAL_ERROR"
)

// APIResponse is the standard success envelope
type APIResponse struct {
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorDetail describes a single API error
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewErrorDetail creates an error detail
func NewErrorDetail(code, message string) ErrorDetail {
	return ErrorDetail{Code: code, Message: message}
}

// WithDetails attaches extra context to an error detail
func (e ErrorDetail) WithDetails(details string) ErrorDetail {
	e.Details = details
	return e
}

// NewErrorResponse wraps an error detail in the standard envelope
func NewErrorResponse(detail ErrorDetail) ErrorResponse {
	return ErrorResponse{Error: detail, Timestamp: time.Now()}
}
