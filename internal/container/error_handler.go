package container

import (
	"errors"
	"strings"

	"boxrun/internal/constants"
)

// ErrorHandler provides user-friendly error messages and recovery suggestions
type ErrorHandler struct{}

// NewErrorHandler creates a new error handler
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{}
}

// GetUserMessage returns a user-friendly error message with recovery suggestions.
// The container error is found anywhere in the cause chain.
func (h *ErrorHandler) GetUserMessage(err error) string {
	var containerErr *ContainerError
	if !errors.As(err, &containerErr) {
		return err.Error()
	}

	var message strings.Builder
	message.WriteString(err.Error())

	switch containerErr.Type {
	case ErrorTypeRuntimeNotFound:
		message.WriteString("\n\nPossible solutions:")
		message.WriteString("\n• Ensure Docker is installed: https://docs.docker.com/get-docker/")
		message.WriteString("\n• Check if Docker daemon is running: 'docker ps'")
		message.WriteString("\n• For the compose driver, install the compose plugin or docker-compose")

	case ErrorTypeImageNotFound:
		message.WriteString("\n\nImage not found. Possible solutions:")
		message.WriteString("\n• Check if the image name is correct")
		message.WriteString("\n• Try pulling the image manually: 'docker pull <image>'")
		message.WriteString("\n• Verify you are logged in to the registry")

	case ErrorTypePermissionDenied:
		message.WriteString("\n\nPossible solutions:")
		message.WriteString("\n• Add your user to the docker group: 'sudo usermod -aG docker $USER'")
		message.WriteString("\n• Log out and back in for group changes to take effect")

	case ErrorTypeExecError:
		message.WriteString("\n\nThe command could not be executed in the container:")
		message.WriteString("\n• executable file not found, check the command and the image's PATH")

	case ErrorTypeNetworkError:
		if strings.Contains(containerErr.Output, "port is already allocated") {
			message.WriteString("\n\nPort conflict detected. Possible solutions:")
			message.WriteString("\n• Stop the container using the port: 'docker ps' to find it")
			message.WriteString("\n• Use a different port in your docker options")
		} else {
			message.WriteString("\n\nNetwork issue detected. Possible solutions:")
			message.WriteString("\n• Check your network connectivity")
			message.WriteString("\n• Remove networks left by an earlier run: 'docker network prune'")
		}

	case ErrorTypeVolumeError:
		message.WriteString("\n\nVolume issue detected. Possible solutions:")
		message.WriteString("\n• Check if the work and identity directories exist")
		message.WriteString("\n• Verify file permissions on the host path")

	case ErrorTypeConfigError:
		message.WriteString("\n\nCheck the boxrun configuration file and flags")

	case ErrorTypeContainerNotFound:
		message.WriteString("\n\nContainer not found. Possible solutions:")
		message.WriteString("\n• The container may have been removed already")
		message.WriteString("\n• List all containers: 'docker ps -a'")
	}

	if containerErr.Output != "" && containerErr.Type != ErrorTypeUnknown {
		cleaned := strings.TrimSpace(containerErr.Output)
		if len(cleaned) > 0 && len(cleaned) < constants.MaxErrorMessageLength {
			message.WriteString("\n\nDocker output:\n")
			message.WriteString(cleaned)
		}
	}

	return message.String()
}

// IsRecoverable returns true if the error might be resolved by user action
func (h *ErrorHandler) IsRecoverable(err error) bool {
	var containerErr *ContainerError
	if !errors.As(err, &containerErr) {
		return false
	}

	switch containerErr.Type {
	case ErrorTypeRuntimeNotFound, ErrorTypeImageNotFound,
		ErrorTypePermissionDenied, ErrorTypeNetworkError,
		ErrorTypeVolumeError, ErrorTypeConfigError:
		return true
	default:
		return false
	}
}
