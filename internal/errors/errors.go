// Package errors provides typed error definitions for boxrun.
// Each code maps to one class of failure in a run, so callers can decide
// whether a failure aborts the run, is only logged, or is the user's own result.
package errors

import (
	"fmt"
)

// ErrorCode represents a unique identifier for different error types
type ErrorCode string

const (
	// Configuration errors
	ErrConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrConfigParse      ErrorCode = "CONFIG_PARSE"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Run phase errors
	ErrConfigurationWarning   ErrorCode = "CONFIGURATION_WARNING"
	ErrDriverInvocation       ErrorCode = "DRIVER_INVOCATION"
	ErrRunCommandFailure      ErrorCode = "RUN_COMMAND_FAILURE"
	ErrCleanupFailure         ErrorCode = "CLEANUP_FAILURE"
	ErrSignalForwardingFailed ErrorCode = "SIGNAL_FORWARDING_FAILURE"

	// Compose errors
	ErrComposeFileNotFound ErrorCode = "COMPOSE_FILE_NOT_FOUND"
	ErrComposeFileInvalid  ErrorCode = "COMPOSE_FILE_INVALID"

	// Validation errors
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrInvalidPath      ErrorCode = "INVALID_PATH"
	ErrContainerInvalid ErrorCode = "CONTAINER_INVALID_NAME"

	// File/IO errors
	ErrFileWrite ErrorCode = "FILE_WRITE"
	ErrFileRead  ErrorCode = "FILE_READ"

	// Internal errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// BoxrunError represents a structured error with additional context
type BoxrunError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BoxrunError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *BoxrunError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BoxrunError) WithContext(key string, value interface{}) *BoxrunError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause adds the underlying cause error
func (e *BoxrunError) WithCause(cause error) *BoxrunError {
	e.Cause = cause
	return e
}

// IsFatal reports whether the error must abort the run before the command starts.
// Warnings, command failures, cleanup and signal failures never abort.
func (e *BoxrunError) IsFatal() bool {
	switch e.Code {
	case ErrConfigurationWarning, ErrRunCommandFailure, ErrCleanupFailure, ErrSignalForwardingFailed:
		return false
	default:
		return true
	}
}

// New creates a new BoxrunError
func New(code ErrorCode, message string) *BoxrunError {
	return &BoxrunError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates a new BoxrunError with details
func NewWithDetails(code ErrorCode, message, details string) *BoxrunError {
	return &BoxrunError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap creates a new BoxrunError that wraps an existing error
func Wrap(code ErrorCode, message string, cause error) *BoxrunError {
	return &BoxrunError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetails creates a new BoxrunError with details that wraps an existing error
func WrapWithDetails(code ErrorCode, message, details string, cause error) *BoxrunError {
	return &BoxrunError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// IsBoxrunError checks if an error is a BoxrunError
func IsBoxrunError(err error) bool {
	_, ok := err.(*BoxrunError)
	return ok
}

// GetCode extracts the error code from an error, if it's a BoxrunError
func GetCode(err error) ErrorCode {
	if be, ok := err.(*BoxrunError); ok {
		return be.Code
	}
	return ""
}

// HasCode checks if an error has a specific error code
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
