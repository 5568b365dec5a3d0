package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrAccountDisabled    = errors.New("account is disabled")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Directory and user errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// Section errors
var (
	ErrSectionNotFound         = errors.New("section not found")
	ErrSectionAlreadyRequested = errors.New("section already has a request")
)

// Request errors
var (
	ErrRequestNotFound     = errors.New("request not found")
	ErrStatusNotEditable   = errors.New("status cannot be set through the admin interface")
	ErrInvalidStatus       = errors.New("invalid request status")
	ErrInvalidRole         = errors.New("invalid enrollment role")
	ErrAutoAddNotFound     = errors.New("auto-add rule not found")
	ErrAutoAddAlreadyAdded = errors.New("auto-add rule already exists")
)

// School and subject errors
var (
	ErrSchoolNotFound  = errors.New("school not found")
	ErrSubjectNotFound = errors.New("subject not found")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}
