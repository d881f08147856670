package errors

import (
	"errors"
	"fmt"
	"net/http"

	"pdf-workbench/internal/domain"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeProcessing   ErrorType = "processing"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeCancelled    ErrorType = "cancelled"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeLocked       ErrorType = "locked"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Details:    detail,
		StatusCode: http.StatusBadRequest,
	}
}

// NewProcessingError creates a new processing error
func NewProcessingError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeProcessing,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewCancelledError is returned when the user dismissed a prompt.
func NewCancelledError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeCancelled,
		Message:    message,
		StatusCode: http.StatusConflict,
		Cause:      cause,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
		Cause:      cause,
	}
}

// NewLockedError reports a document that still needs its password.
func NewLockedError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeLocked,
		Message:    message,
		StatusCode: http.StatusLocked,
		Cause:      cause,
	}
}

// FromDomain maps domain errors to application errors. Errors that already
// are AppErrors are returned as is; anything unknown becomes internal.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		e := NewValidationError(verr.Message, verr.Field)
		e.Cause = err
		return e
	}

	switch {
	case errors.Is(err, domain.ErrKeyNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrNoActiveDocument),
		errors.Is(err, domain.ErrPublicKeyNotFound):
		e := NewNotFoundError(err.Error())
		e.Cause = err
		return e
	case errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrInvalidSession),
		errors.Is(err, domain.ErrInvalidKey):
		e := NewValidationError(err.Error())
		e.Cause = err
		return e
	case errors.Is(err, domain.ErrWrongPassword):
		e := NewUnauthorizedError(err.Error())
		e.Cause = err
		return e
	case errors.Is(err, domain.ErrCancelled):
		return NewCancelledError(err.Error(), err)
	case errors.Is(err, domain.ErrUnsavedChanges):
		return NewConflictError(err.Error(), err)
	case errors.Is(err, domain.ErrDocumentLocked):
		return NewLockedError(err.Error(), err)
	}
	return NewInternalError("internal error", err)
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
