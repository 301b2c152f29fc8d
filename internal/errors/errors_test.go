package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxrunError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BoxrunError
		expected string
	}{
		{
			name:     "message only",
			err:      New(ErrInternal, "boom"),
			expected: "[INTERNAL_ERROR] boom",
		},
		{
			name:     "with details",
			err:      ConfigInvalid("image is empty"),
			expected: "[CONFIG_INVALID] Invalid configuration: image is empty",
		},
		{
			name:     "with cause",
			err:      DriverInvocationFailed("create", fmt.Errorf("exit status 125")),
			expected: "[DRIVER_INVOCATION] Container tool invocation failed: Phase: create: exit status 125",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestBoxrunError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("no such container")
	err := CleanupFailed("run-1", cause)

	assert.True(t, stderrors.Is(err, cause))

	var be *BoxrunError
	wrapped := fmt.Errorf("outer: %w", err)
	require.True(t, stderrors.As(wrapped, &be))
	assert.Equal(t, ErrCleanupFailure, be.Code)
}

func TestBoxrunError_IsFatal(t *testing.T) {
	assert.False(t, ConfigurationWarning("missing dir").IsFatal())
	assert.False(t, RunCommandFailed(3).IsFatal())
	assert.False(t, CleanupFailed("x", nil).IsFatal())
	assert.False(t, SignalForwardingFailed("SIGINT", nil).IsFatal())
	assert.True(t, DriverInvocationFailed("pull", nil).IsFatal())
	assert.True(t, ConfigValidationError("driver", "unknown").IsFatal())
}

func TestGetCodeAndHasCode(t *testing.T) {
	err := ComposeFileNotFound("docker-compose.yml")
	assert.Equal(t, ErrComposeFileNotFound, GetCode(err))
	assert.True(t, HasCode(err, ErrComposeFileNotFound))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrComposeFileNotFound))
	assert.True(t, IsBoxrunError(err))

	withCtx := New(ErrInternal, "x").WithContext("run_id", "abc")
	assert.Equal(t, "abc", withCtx.Context["run_id"])
}
