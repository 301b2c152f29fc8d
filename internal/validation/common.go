package validation

import (
	"path/filepath"
	"regexp"
	"strings"

	"boxrun/internal/errors"
)

var (
	// containerNameRegex validates container names and run identifiers
	containerNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

	// imageRefRegex validates image references such as registry:5000/ns/name:tag@sha256:...
	// Path components are separated by ".", "_", "__" or any run of "-", as docker accepts.
	imageRefRegex = regexp.MustCompile(`^[a-z0-9]+((\.|_|__|-+)[a-z0-9]+)*(:[0-9]+)?(/[a-z0-9]+((\.|_|__|-+)[a-z0-9]+)*)*(:[A-Za-z0-9_][A-Za-z0-9_.-]{0,127})?(@sha256:[a-f0-9]{64})?$`)

	// envVarKeyRegex validates environment variable keys
	envVarKeyRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	// safeStringRegex matches strings that are safe for shell use without escaping
	safeStringRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-./=]+$`)
)

// ContainerName validates a container name to prevent injection
func ContainerName(name string) error {
	if name == "" {
		return errors.ValidationFailed("container_name", name, "cannot be empty")
	}

	if len(name) > 255 {
		return errors.ValidationFailed("container_name", name, "too long (max 255 characters)")
	}

	if !containerNameRegex.MatchString(name) {
		return errors.ContainerInvalidName(name)
	}

	return nil
}

// ImageReference validates a docker image reference
func ImageReference(image string) error {
	if strings.TrimSpace(image) == "" {
		return errors.ValidationFailed("image", image, "cannot be empty")
	}

	if !imageRefRegex.MatchString(image) {
		return errors.ValidationFailed("image", image, "not a valid image reference")
	}

	return nil
}

// EnvironmentKey validates that a variable name can be assigned by a POSIX shell
func EnvironmentKey(key string) error {
	if key == "" {
		return errors.ValidationFailed("environment_variable", key, "key cannot be empty")
	}

	if !envVarKeyRegex.MatchString(key) {
		return errors.ValidationFailed("environment_variable_key", key, "must contain only letters, numbers, and underscores")
	}

	return nil
}

// IsShellAssignable reports whether key can appear on the left of an assignment
func IsShellAssignable(key string) bool {
	return envVarKeyRegex.MatchString(key)
}

// Path validates and cleans a file path
func Path(path string) (string, error) {
	if path == "" {
		return "", errors.InvalidPath(path, "cannot be empty")
	}

	return filepath.Clean(path), nil
}

// OneOf validates that value is one of the allowed values
func OneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.ConfigValidationError(field,
		"must be one of: "+strings.Join(allowed, ", ")+"; got: "+value)
}

// NonEmptyString validates that a string is not empty or only whitespace
func NonEmptyString(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.ValidationFailed("string", s, "cannot be empty or only whitespace")
	}
	return nil
}

// ShellEscape quotes s for a POSIX shell. Every byte, including newlines,
// survives evaluation unchanged.
func ShellEscape(s string) string {
	if safeStringRegex.MatchString(s) {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}
