package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceError represents a standardized error response returned by the API
// and MCP surfaces.
type ServiceError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMalformedSource = "MALFORMED_SOURCE"
	ErrInvalidSchema   = "INVALID_SCHEMA"
	ErrNotLoaded       = "KNOWLEDGE_NOT_LOADED"
	ErrNotFoundCode    = "NOT_FOUND"
	ErrRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer  = "INTERNAL_SERVER_ERROR"
	ErrValidation      = "VALIDATION_ERROR"
)

// ErrNotFound is returned by service operations whose target id or symptom
// does not exist. Store-level lookups report absence with a boolean instead.
var ErrNotFound = errors.New("not found")

// ErrReadOnlySource is returned when persisting to a source that cannot be written.
var ErrReadOnlySource = errors.New("knowledge source is read-only")

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// MalformedSourceError means the knowledge document could not be read or
// parsed. Loading aborts and any previously cached snapshot is left in place.
type MalformedSourceError struct {
	Source string
	Err    error
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed knowledge source %s: %v", e.Source, e.Err)
}

func (e *MalformedSourceError) Unwrap() error {
	return e.Err
}

// SchemaError carries the complete, ordered list of structural defects found
// in a knowledge document.
type SchemaError struct {
	Errors []string
}

func (e *SchemaError) Error() string {
	const shown = 5
	msgs := e.Errors
	if len(msgs) > shown {
		msgs = append(msgs[:shown:shown], fmt.Sprintf("and %d more", len(e.Errors)-shown))
	}
	return "knowledge base schema invalid: " + strings.Join(msgs, "; ")
}

// NewServiceError creates a new ServiceError with timestamp
func NewServiceError(code, message, details, requestID string) *ServiceError {
	return &ServiceError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
