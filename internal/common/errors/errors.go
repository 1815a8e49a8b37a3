// Package errors provides custom error types for the amuxd application.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes as constants
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeValidationError    = "VALIDATION_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// ACP session-plane error codes.
	ErrCodeSpawnFailed       = "SPAWN_FAILED"
	ErrCodeProtocolParse     = "PROTOCOL_PARSE_ERROR"
	ErrCodeUpdateParse       = "UPDATE_PARSE_ERROR"
	ErrCodeUnknownRequest    = "UNKNOWN_REQUEST"
	ErrCodeReverseRPCFailure = "REVERSE_RPC_FAILURE"
	ErrCodeDisconnected      = "DISCONNECTED"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
)

// AppError represents an application-specific error with additional context.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"http_status"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a new not found error for a resource.
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s with id '%s' not found", resource, id),
		HTTPStatus: http.StatusNotFound,
	}
}

// BadRequest creates a new bad request error.
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Unauthorized creates a new unauthorized error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a new forbidden error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:       ErrCodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// InternalError creates a new internal server error with a wrapped underlying error.
func InternalError(message string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeInternalError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Conflict creates a new conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:       ErrCodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a new validation error for a specific field.
func ValidationError(field string, message string) *AppError {
	return &AppError{
		Code:       ErrCodeValidationError,
		Message:    fmt.Sprintf("validation failed for field '%s': %s", field, message),
		HTTPStatus: http.StatusBadRequest,
	}
}

// ServiceUnavailable creates a new service unavailable error.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code:       ErrCodeServiceUnavailable,
		Message:    fmt.Sprintf("service '%s' is currently unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// SpawnFailed creates an error for a child agent process that could not be started.
func SpawnFailed(agentKind string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeSpawnFailed,
		Message:    fmt.Sprintf("failed to spawn agent %q", agentKind),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ProtocolParseError creates an error for an inbound line that is not a valid ACP envelope.
func ProtocolParseError(line string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeProtocolParse,
		Message:    fmt.Sprintf("malformed ACP frame: %s", truncate(line, 200)),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// UpdateParseError creates an error for a session/update payload that fails to deserialize.
func UpdateParseError(discriminator string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeUpdateParse,
		Message:    fmt.Sprintf("malformed session update %q", discriminator),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// UnknownRequest creates an error for an inbound reverse-RPC method with no handler.
func UnknownRequest(method string) *AppError {
	return &AppError{
		Code:       ErrCodeUnknownRequest,
		Message:    fmt.Sprintf("unknown request method %q", method),
		HTTPStatus: http.StatusNotImplemented,
	}
}

// ReverseRPCFailure creates an error for a failed fs/terminal reverse-RPC operation.
func ReverseRPCFailure(method string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeReverseRPCFailure,
		Message:    fmt.Sprintf("reverse call %q failed", method),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Disconnected creates an error marking a connection as terminated.
func Disconnected(localID string) *AppError {
	return &AppError{
		Code:       ErrCodeDisconnected,
		Message:    fmt.Sprintf("session %q disconnected", localID),
		HTTPStatus: http.StatusGone,
	}
}

// InvalidTransition creates a diagnostic error for an illegal state machine edge.
// It is never surfaced to the user; callers log it and apply the transition anyway.
func InvalidTransition(from, to, trigger string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidTransition,
		Message:    fmt.Sprintf("illegal transition %s -> %s on %s", from, to, trigger),
		HTTPStatus: http.StatusInternalServerError,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Wrap wraps an existing error with additional context, returning an AppError.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	// If the error is already an AppError, preserve its code and status
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:       appErr.Code,
			Message:    fmt.Sprintf("%s: %s", message, appErr.Message),
			HTTPStatus: appErr.HTTPStatus,
			Err:        err,
		}
	}

	// Otherwise, wrap as an internal error
	return &AppError{
		Code:       ErrCodeInternalError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeNotFound
	}
	return false
}

// IsBadRequest checks if the error is a bad request error.
func IsBadRequest(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeBadRequest || appErr.Code == ErrCodeValidationError
	}
	return false
}

// GetHTTPStatus returns the HTTP status code for an error.
// Returns 500 Internal Server Error if the error is not an AppError.
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

