// Package container drives the docker CLI for one run: a plain `docker run`
// or a compose project namespaced by the run id.
package container

import (
	"context"
	"fmt"
	"io"
	"os"

	"boxrun/internal/config"
	"boxrun/internal/environment"

	"github.com/spf13/afero"
	"golang.org/x/term"
)

// Role tells the default container from the ones it depends on
type Role int

const (
	RoleDefault Role = iota
	RoleNonDefault
)

// Handle identifies one container of a run
type Handle struct {
	Name    string
	Service string
	Role    Role
}

// IsDefault reports whether h runs the user command
func (h *Handle) IsDefault() bool {
	return h.Role == RoleDefault
}

// Status is the state of a container at the time it was inspected
type Status struct {
	ID       string
	Name     string
	State    string
	ExitCode int
	Exists   bool
}

// Running reports whether the container is up
func (s Status) Running() bool {
	return s.Exists && s.State == "running"
}

// Driver runs the lifecycle of one run on a container backend
type Driver interface {
	// Pull fetches the images without running anything
	Pull(ctx context.Context) (int, error)
	// Create prepares the containers of the run. files are already written.
	Create(ctx context.Context, files environment.Files) ([]*Handle, error)
	// Start launches the primary process in the background
	Start(ctx context.Context, handles []*Handle) (*Handle, error)
	// Wait blocks until the primary process exits
	Wait(ctx context.Context, primary *Handle) (int, error)
	ListNonDefault(ctx context.Context, handles []*Handle) ([]*Handle, error)
	ContainerStatus(ctx context.Context, h *Handle) (Status, error)
	FetchLogs(ctx context.Context, h *Handle) (stdout, stderr string, err error)
	// Cleanup stops and removes whatever the run left behind
	Cleanup(ctx context.Context, handles []*Handle) (int, error)
	ForwardSignal(ctx context.Context, primary *Handle, sig os.Signal) (int, error)
	Kill(ctx context.Context, primary *Handle) (int, error)
	Restart(ctx context.Context, h *Handle) error
}

// Stdio are the streams the primary process is attached to
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Options configures a driver for one run
type Options struct {
	Config     *config.RunConfig
	RunID      string
	CurrentDir string
	Mounts     Mounts
	// Env is the host environment, used to decide on the X11 mount
	Env       *environment.Snapshot
	Executor  CommandExecutor
	Fs        afero.Fs
	Marshaler *environment.Marshaler
	Stdio     Stdio
	// IsTerminal decides interactive=auto; defaults to checking stdin
	IsTerminal func() bool
	// ComposeTool skips detection of the compose binary when set
	ComposeTool *ComposeTool
}

func (o *Options) setDefaults() {
	if o.Executor == nil {
		o.Executor = &DefaultCommandExecutor{}
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Marshaler == nil {
		o.Marshaler = environment.NewMarshaler(o.Fs, "", o.Config.Test)
	}
	if o.Env == nil {
		o.Env = environment.Capture(nil)
	}
	if o.Stdio.Stdin == nil {
		o.Stdio.Stdin = os.Stdin
	}
	if o.Stdio.Stdout == nil {
		o.Stdio.Stdout = os.Stdout
	}
	if o.Stdio.Stderr == nil {
		o.Stdio.Stderr = os.Stderr
	}
	if o.IsTerminal == nil {
		o.IsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	}
	if o.Mounts.WorkDirOuter == "" {
		o.Mounts.WorkDirOuter = o.Config.WorkDirOuter
	}
	if o.Mounts.IdentityDirOuter == "" {
		o.Mounts.IdentityDirOuter = o.Config.IdentityDirOuter
	}
}

// interactive resolves the interactive setting, consulting the terminal for auto
func (o *Options) interactive() bool {
	switch o.Config.Interactive {
	case config.InteractiveTrue:
		return true
	case config.InteractiveFalse:
		return false
	default:
		return o.IsTerminal()
	}
}

func (o *Options) x11() bool {
	display, ok := o.Env.Lookup("DISPLAY")
	return ok && display != ""
}

// PullExitCodes maps a pull tool's exit code to the code boxrun reports.
// Codes missing from the table are reported unchanged.
var PullExitCodes = map[int]int{}

func mapPullExitCode(code int) int {
	if mapped, ok := PullExitCodes[code]; ok {
		return mapped
	}
	return code
}

// NewDriver creates the driver selected by the run configuration
func NewDriver(ctx context.Context, opts Options) (Driver, error) {
	if opts.Config == nil {
		return nil, NewContainerError(ErrorTypeConfigError, "init", "run configuration is required", nil)
	}
	opts.setDefaults()

	switch opts.Config.Driver {
	case config.DriverDocker:
		return NewDockerDriver(opts), nil
	case config.DriverCompose:
		return NewComposeDriver(ctx, opts)
	default:
		return nil, NewContainerError(ErrorTypeConfigError, "init",
			fmt.Sprintf("unsupported driver: %s (supported: docker, compose)", opts.Config.Driver), nil)
	}
}
