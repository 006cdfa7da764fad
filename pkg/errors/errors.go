package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized  ErrorType = "UNAUTHORIZED"
	ErrorTypeRateLimit     ErrorType = "RATE_LIMIT"
	ErrorTypeDatabase      ErrorType = "DATABASE"
	ErrorTypeSchemaMissing ErrorType = "SCHEMA_MISSING"
	ErrorTypeInternal      ErrorType = "INTERNAL"
)

// SchemaMissingHint is returned to callers when the link table does not exist.
const SchemaMissingHint = "Run the knowledge_links migration first"

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Hint    string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code is the machine readable code exposed in API responses.
func (e *AppError) Code() string {
	return string(e.Type)
}

// HTTPStatus maps the error type to a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail attaches a key/value pair to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewUnauthorized creates an authentication error
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewRateLimit creates a rate limit error
func NewRateLimit(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeRateLimit,
		Message: message,
	}
}

// NewDatabase creates a storage error. Database errors are retryable.
func NewDatabase(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeDatabase,
		Message: message,
		Err:     err,
	}
}

// NewSchemaMissing creates the fatal error raised when a required table is absent.
func NewSchemaMissing(table string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeSchemaMissing,
		Message: fmt.Sprintf("table %q does not exist", table),
		Hint:    SchemaMissingHint,
		Details: map[string]interface{}{"table": table},
		Err:     err,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	if appErr, ok := As(err); ok {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Hint:    appErr.Hint,
			Details: appErr.Details,
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// As returns the first AppError in the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsUnauthorized checks if an error is an authentication error
func IsUnauthorized(err error) bool { return isType(err, ErrorTypeUnauthorized) }

// IsSchemaMissing checks if an error reports a missing table
func IsSchemaMissing(err error) bool { return isType(err, ErrorTypeSchemaMissing) }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return isType(err, ErrorTypeInternal) }

// IsRetryable reports whether repeating the operation may succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	appErr, ok := As(err)
	if !ok {
		return true
	}
	return appErr.Type == ErrorTypeDatabase || appErr.Type == ErrorTypeInternal
}
