package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

const inspectFormat = "{{.Id}} {{.Name}} {{.State.Status}} {{.State.ExitCode}}"

// dockerCLI holds the plain docker commands both drivers share
type dockerCLI struct {
	executor CommandExecutor
}

func (d dockerCLI) run(ctx context.Context, operation string, args ...string) (commandResult, error) {
	return runCommand(ctx, d.executor, operation, "docker", args...)
}

// inspect reports the state of a container. A missing container is not an error.
func (d dockerCLI) inspect(ctx context.Context, nameOrID string) (Status, error) {
	res, err := d.run(ctx, "inspect", "inspect", "--format", inspectFormat, nameOrID)
	if err != nil {
		combined := strings.ToLower(res.Stdout + res.Stderr)
		if strings.Contains(combined, "no such object") || strings.Contains(combined, "no such container") {
			return Status{Name: nameOrID, Exists: false}, nil
		}
		return Status{}, err
	}
	return parseInspect(res.Stdout)
}

func parseInspect(out string) (Status, error) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 4 {
		return Status{}, NewContainerError(ErrorTypeUnknown, "inspect",
			fmt.Sprintf("unexpected docker inspect output: %q", out), nil)
	}
	code, err := strconv.Atoi(fields[3])
	if err != nil {
		return Status{}, NewContainerError(ErrorTypeUnknown, "inspect",
			fmt.Sprintf("unexpected exit code in docker inspect output: %q", out), err)
	}
	return Status{
		ID:       fields[0],
		Name:     strings.TrimPrefix(fields[1], "/"),
		State:    fields[2],
		ExitCode: code,
		Exists:   true,
	}, nil
}

// logs returns the stdout and stderr of a container separately
func (d dockerCLI) logs(ctx context.Context, name string) (string, string, error) {
	res, err := d.run(ctx, "logs", "logs", name)
	if err != nil {
		var ce *ContainerError
		if errors.As(err, &ce) {
			ce.ContainerID = name
		}
		return res.Stdout, res.Stderr, err
	}
	return res.Stdout, res.Stderr, nil
}

// signal sends sig to a container, returning docker's exit code
func (d dockerCLI) signal(ctx context.Context, nameOrID string, sig os.Signal) (int, error) {
	res, err := d.run(ctx, "signal", "kill", "--signal="+signalName(sig), nameOrID)
	return res.ExitCode, err
}

func (d dockerCLI) kill(ctx context.Context, nameOrID string) (int, error) {
	res, err := d.run(ctx, "kill", "kill", nameOrID)
	return res.ExitCode, err
}

func (d dockerCLI) start(ctx context.Context, nameOrID string) error {
	_, err := d.run(ctx, "start", "start", nameOrID)
	return err
}

func (d dockerCLI) remove(ctx context.Context, nameOrID string) (int, error) {
	res, err := d.run(ctx, "remove", "rm", "-f", nameOrID)
	return res.ExitCode, err
}

var signalNames = map[syscall.Signal]string{
	syscall.SIGHUP:  "SIGHUP",
	syscall.SIGINT:  "SIGINT",
	syscall.SIGQUIT: "SIGQUIT",
	syscall.SIGKILL: "SIGKILL",
	syscall.SIGTERM: "SIGTERM",
	syscall.SIGUSR1: "SIGUSR1",
	syscall.SIGUSR2: "SIGUSR2",
}

// signalName renders sig the way `docker kill --signal` expects it
func signalName(sig os.Signal) string {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return "SIGTERM"
	}
	if name, ok := signalNames[s]; ok {
		return name
	}
	return strconv.Itoa(int(s))
}

func isDefaultContainerName(name string) bool {
	return strings.Contains(name, "_default_") || strings.Contains(name, "-default-")
}
