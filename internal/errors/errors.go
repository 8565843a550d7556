package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors
type ErrorType string

const (
	// ErrTypeValidation covers invalid parameters: non-positive windows,
	// unknown frequencies, datasets, or columns. Raised before any work.
	ErrTypeValidation ErrorType = "VALIDATION"
	// ErrTypeConflict covers naming conflicts when a computed column would
	// overwrite an existing one.
	ErrTypeConflict ErrorType = "CONFLICT"
	// ErrTypeStorage covers cache and data-directory I/O failures. Cache
	// write failures are reported through this type but never abort the
	// computation that produced the value.
	ErrTypeStorage ErrorType = "STORAGE"
	// ErrTypeNetwork covers transport-level download failures.
	ErrTypeNetwork ErrorType = "NETWORK"
	// ErrTypeParsing covers malformed CSV payloads and unknown headers.
	ErrTypeParsing ErrorType = "PARSING"
	// ErrTypeServer covers error responses reported by the vendor API.
	ErrTypeServer ErrorType = "SERVER"
	// ErrTypeConfig covers invalid configuration.
	ErrTypeConfig ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err or anything it wraps is an AppError of type t.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// Helper functions for common error types

// NewValidationError creates an invalid-parameter error
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

// NewConflictError creates a naming-conflict error
func NewConflictError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConflict, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// ServerError is an error response reported by the vendor API, carrying the
// HTTP status and the vendor's own message so callers can show it verbatim.
type ServerError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *ServerError) Error() string {
	return fmt.Sprintf("server reported %d: %s", e.StatusCode, e.Message)
}

// NewServerError wraps a vendor-reported failure in an AppError
func NewServerError(statusCode int, message string) *AppError {
	return NewAppError(ErrTypeServer, "vendor request rejected",
		&ServerError{StatusCode: statusCode, Message: message})
}
