// Package apperrors provides structured client errors with sentinel classification.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrMalformedResponse    = errors.New("malformed response")
	ErrServer               = errors.New("server error")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrNotFound             = errors.New("not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrAuthentication       = errors.New("authentication error")
	ErrHTTP                 = errors.New("http error")
)

// EnvelopeView is the subset of the response envelope a ServerError exposes
// for programmatic inspection of the failure body.
type EnvelopeView interface {
	Body() string
	Message() string
	APIVersion() int
}

// Error provides a structured error with context.
type Error struct {
	Sentinel   error        // Wrapped sentinel for errors.Is() classification
	Message    string       // Human-readable message
	Field      string       // For invalid-argument errors (e.g., "format", "dupeOption")
	Resource   string       // For not found (e.g., "job", "project")
	Op         string       // Operation that failed (e.g., "connection.call")
	StatusCode int          // For HTTP errors in strict mode
	Envelope   EnvelopeView // For server errors, the originating response
	Cause      error        // Underlying error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// MalformedResponse creates an error for a response body that could not be parsed.
func MalformedResponse(op string, cause error) error {
	return &Error{
		Sentinel: ErrMalformedResponse,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}

// Server creates an error for a reply whose envelope reports failure.
// The envelope is retained so callers can inspect the failure body.
func Server(message string, envelope EnvelopeView) error {
	return &Error{
		Sentinel: ErrServer,
		Message:  message,
		Envelope: envelope,
	}
}

// UnsupportedOperation creates an error for a call gated behind a newer API version.
func UnsupportedOperation(op string, required, actual int) error {
	return &Error{
		Sentinel: ErrUnsupportedOperation,
		Message:  fmt.Sprintf("%s requires API version %d or higher (have %d)", op, required, actual),
		Op:       op,
	}
}

// NotFound creates a not found error for a resource.
func NotFound(resource, id string) error {
	return &Error{
		Sentinel: ErrNotFound,
		Message:  fmt.Sprintf("%s %s not found", resource, id),
		Resource: resource,
	}
}

// InvalidArgument creates an error for malformed caller input.
func InvalidArgument(field, message string) error {
	return &Error{
		Sentinel: ErrInvalidArgument,
		Message:  message,
		Field:    field,
	}
}

// Authentication creates an error for failed or missing credentials.
func Authentication(message string) error {
	return &Error{
		Sentinel: ErrAuthentication,
		Message:  message,
	}
}

// HTTPStatus creates an error for a non-2xx status surfaced in strict mode.
func HTTPStatus(code int) error {
	return &Error{
		Sentinel:   ErrHTTP,
		Message:    fmt.Sprintf("HTTP %d", code),
		StatusCode: code,
	}
}
