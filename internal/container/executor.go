package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
)

// CommandExecutor interface for executing commands (allows mocking in tests)
type CommandExecutor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// DefaultCommandExecutor implements CommandExecutor using standard exec
type DefaultCommandExecutor struct{}

func (e *DefaultCommandExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// commandResult is the captured outcome of a short-lived docker command
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// runCommand runs name with args to completion, capturing both streams.
// A non-zero exit is returned as a *ContainerError together with the result.
func runCommand(ctx context.Context, executor CommandExecutor, operation, name string, args ...string) (commandResult, error) {
	var stdout, stderr bytes.Buffer
	cmd := executor.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	res.ExitCode, err = exitStatus(err)
	var ce *ContainerError
	if errors.As(err, &ce) {
		return res, ce
	}
	if err != nil {
		return res, &ContainerError{
			Type:       parseDockerError(res.Stderr+res.Stdout, err),
			Operation:  operation,
			Message:    "docker command failed: " + name,
			Underlying: err,
			Output:     res.Stderr,
		}
	}
	return res, nil
}

// runStreaming runs a command whose output belongs to the user, such as a pull.
// stderr is also kept so a failure can be classified.
func runStreaming(ctx context.Context, executor CommandExecutor, operation string, out io.Writer, name string, args ...string) (int, error) {
	var captured bytes.Buffer
	cmd := executor.CommandContext(ctx, name, args...)
	cmd.Stdout = io.MultiWriter(out, &captured)
	cmd.Stderr = io.MultiWriter(out, &captured)

	code, err := exitStatus(cmd.Run())
	var ce *ContainerError
	if errors.As(err, &ce) {
		return code, ce
	}
	if err != nil {
		return code, &ContainerError{
			Type:       parseDockerError(captured.String(), err),
			Operation:  operation,
			Message:    "docker command failed: " + name,
			Underlying: err,
			Output:     captured.String(),
		}
	}
	return code, nil
}

// exitStatus converts the error of a finished command into its exit code.
// A process killed by a signal reports 128+signal like a shell does.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), err
		}
		return exitErr.ExitCode(), err
	}

	if errors.Is(err, exec.ErrNotFound) {
		return 127, &ContainerError{
			Type:       ErrorTypeRuntimeNotFound,
			Operation:  "exec",
			Message:    "container runtime executable not found",
			Underlying: err,
		}
	}

	return 1, err
}
