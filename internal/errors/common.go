package errors

import "fmt"

// Configuration Errors
func ConfigInvalid(reason string) *BoxrunError {
	return NewWithDetails(ErrConfigInvalid, "Invalid configuration", reason)
}

func ConfigParseError(path string, cause error) *BoxrunError {
	return WrapWithDetails(ErrConfigParse, "Failed to parse configuration", fmt.Sprintf("Path: %s", path), cause)
}

func ConfigValidationError(field, reason string) *BoxrunError {
	return NewWithDetails(ErrConfigValidation, "Configuration validation failed",
		fmt.Sprintf("Field: %s, Reason: %s", field, reason))
}

// Run phase errors
func ConfigurationWarning(reason string) *BoxrunError {
	return NewWithDetails(ErrConfigurationWarning, "Configuration warning", reason)
}

func DriverInvocationFailed(phase string, cause error) *BoxrunError {
	return WrapWithDetails(ErrDriverInvocation, "Container tool invocation failed",
		fmt.Sprintf("Phase: %s", phase), cause)
}

func RunCommandFailed(exitCode int) *BoxrunError {
	return NewWithDetails(ErrRunCommandFailure, "Run command failed",
		fmt.Sprintf("Exit code: %d", exitCode))
}

func CleanupFailed(runID string, cause error) *BoxrunError {
	return WrapWithDetails(ErrCleanupFailure, "Cleanup failed",
		fmt.Sprintf("Run ID: %s", runID), cause)
}

func SignalForwardingFailed(signal string, cause error) *BoxrunError {
	return WrapWithDetails(ErrSignalForwardingFailed, "Failed to forward signal",
		fmt.Sprintf("Signal: %s", signal), cause)
}

// Compose Errors
func ComposeFileNotFound(path string) *BoxrunError {
	return NewWithDetails(ErrComposeFileNotFound, "Compose file not found", fmt.Sprintf("Path: %s", path))
}

func ComposeFileInvalid(path, reason string) *BoxrunError {
	return NewWithDetails(ErrComposeFileInvalid, "Invalid compose file",
		fmt.Sprintf("Path: %s, Reason: %s", path, reason))
}

// Validation Errors
func ValidationFailed(field, value, reason string) *BoxrunError {
	return NewWithDetails(ErrValidationFailed, "Validation failed",
		fmt.Sprintf("Field: %s, Value: %s, Reason: %s", field, value, reason))
}

func InvalidPath(path, reason string) *BoxrunError {
	return NewWithDetails(ErrInvalidPath, "Invalid path",
		fmt.Sprintf("Path: %s, Reason: %s", path, reason))
}

func ContainerInvalidName(name string) *BoxrunError {
	return NewWithDetails(ErrContainerInvalid, "Invalid container name",
		fmt.Sprintf("Name: %s", name))
}

// File Errors
func FileWriteFailed(path string, cause error) *BoxrunError {
	return WrapWithDetails(ErrFileWrite, "Failed to write file", fmt.Sprintf("Path: %s", path), cause)
}

func FileReadFailed(path string, cause error) *BoxrunError {
	return WrapWithDetails(ErrFileRead, "Failed to read file", fmt.Sprintf("Path: %s", path), cause)
}

// Internal Errors
func InternalError(details string, cause error) *BoxrunError {
	if cause != nil {
		return WrapWithDetails(ErrInternal, "Internal error", details, cause)
	}
	return NewWithDetails(ErrInternal, "Internal error", details)
}
