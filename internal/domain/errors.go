package domain

import "errors"

// Domain errors
var (
	ErrKeyNotFound       = errors.New("document key not found")
	ErrSessionNotFound   = errors.New("document session not found")
	ErrInvalidSession    = errors.New("registry accepts document sessions only")
	ErrIndexOutOfRange   = errors.New("page index out of range")
	ErrCancelled         = errors.New("operation cancelled by user")
	ErrWrongPassword     = errors.New("wrong document password")
	ErrDocumentLocked    = errors.New("document is encrypted and not authenticated")
	ErrUnsavedChanges    = errors.New("document has unsaved changes")
	ErrNoActiveDocument  = errors.New("no active document")
	ErrInvalidKey        = errors.New("invalid key material")
	ErrPublicKeyNotFound = errors.New("public key not found")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsStale reports whether err signals that a background render raced with a
// document change and should be dropped.
func IsStale(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange) || errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrSessionNotFound)
}
