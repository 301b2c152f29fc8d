package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"boxrun/internal/constants"
	"boxrun/internal/environment"
	"boxrun/internal/logger"
	"boxrun/internal/validation"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/shell"
)

const (
	rcFileName    = constants.ProjectName + "rc"
	rcTxtFileName = constants.ProjectName + "rc.txt"
)

// DockerDriver runs the command in a single `docker run` container named
// after the run id
type DockerDriver struct {
	dockerCLI
	opts Options

	mu    sync.Mutex
	files environment.Files
	proc  *process
}

// NewDockerDriver creates a single-container driver
func NewDockerDriver(opts Options) *DockerDriver {
	opts.setDefaults()
	return &DockerDriver{
		dockerCLI: dockerCLI{executor: opts.Executor},
		opts:      opts,
	}
}

// Pull runs `docker pull`. Its output goes to stderr so that stdout stays empty.
func (d *DockerDriver) Pull(ctx context.Context) (int, error) {
	args := []string{"pull", d.opts.Config.Image}
	echoCommand("docker pull", "docker", args)
	code, err := runStreaming(ctx, d.executor, "pull", d.opts.Stdio.Stderr, "docker", args...)
	return mapPullExitCode(code), err
}

// Create validates the names used by the run. With remove-containers off it
// leaves rc files naming the container in the current directory.
func (d *DockerDriver) Create(ctx context.Context, files environment.Files) ([]*Handle, error) {
	if err := validation.ContainerName(d.opts.RunID); err != nil {
		return nil, err
	}
	if err := validation.ImageReference(d.opts.Config.Image); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.files = files
	d.mu.Unlock()

	if !d.opts.Config.RemoveContainers {
		if err := d.writeRCFiles(); err != nil {
			return nil, err
		}
	}

	return []*Handle{{Name: d.opts.RunID, Service: constants.DefaultComposeService, Role: RoleDefault}}, nil
}

func (d *DockerDriver) writeRCFiles() error {
	rc := map[string]string{
		filepath.Join(d.opts.CurrentDir, rcTxtFileName): d.opts.RunID,
		filepath.Join(d.opts.CurrentDir, rcFileName):    fmt.Sprintf("%sRUN_ID=%s", constants.EnvPrefix, d.opts.RunID),
	}
	for path, contents := range rc {
		if err := afero.WriteFile(d.opts.Fs, path, []byte(contents), constants.FilePermissions); err != nil {
			return err
		}
		logger.WithField("path", path).Info("Saved container name, containers are not removed after the run")
	}
	return nil
}

// RunArgs builds the arguments of `docker run` for the default container
func (d *DockerDriver) RunArgs() ([]string, error) {
	cfg := d.opts.Config
	d.mu.Lock()
	files := d.files
	d.mu.Unlock()

	args := []string{"run"}
	if cfg.RemoveContainers {
		args = append(args, "--rm")
	}
	args = append(args,
		"-v", d.opts.Mounts.WorkDirOuter+":"+cfg.WorkDirInner,
		"-v", d.opts.Mounts.IdentityDirOuter+":"+constants.IdentityDirInner+":ro",
		"-v", files.MultilineScript+":"+constants.MultilineScriptInner,
		"-v", files.BashFunctionsScript+":"+constants.BashFunctionsScriptInner,
		"--env-file="+files.EnvFile,
	)
	if d.opts.x11() {
		args = append(args, "-v", constants.X11SocketDir+":"+constants.X11SocketDir)
	}
	if cfg.DockerOptions != "" {
		opts, err := shell.Fields(cfg.DockerOptions, nil)
		if err != nil {
			return nil, NewContainerError(ErrorTypeConfigError, "run",
				fmt.Sprintf("cannot parse docker options: %s", cfg.DockerOptions), err)
		}
		args = append(args, opts...)
	}
	if d.opts.interactive() {
		args = append(args, "-ti")
	}
	args = append(args, "--name="+d.opts.RunID, cfg.Image)
	args = append(args, cfg.Command...)
	return args, nil
}

// Start launches `docker run` in the background
func (d *DockerDriver) Start(ctx context.Context, handles []*Handle) (*Handle, error) {
	args, err := d.RunArgs()
	if err != nil {
		return nil, err
	}
	echoCommand("docker", "docker", args)

	interactive := d.opts.interactive()
	proc, err := startProcess(d.executor.CommandContext(ctx, "docker", args...), d.opts.Stdio, interactive)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.proc = proc
	d.mu.Unlock()

	return primaryHandle(handles, d.opts.RunID), nil
}

// Wait returns the exit code of `docker run`, which is the command's own
// code or 125/126/127 when docker could not run it
func (d *DockerDriver) Wait(ctx context.Context, primary *Handle) (int, error) {
	d.mu.Lock()
	proc := d.proc
	d.mu.Unlock()
	if proc == nil {
		return 1, NewContainerError(ErrorTypeExecError, "wait", "the run command was not started", nil)
	}
	return proc.wait(ctx)
}

// ListNonDefault is always empty: a docker run has only the default container
func (d *DockerDriver) ListNonDefault(ctx context.Context, handles []*Handle) ([]*Handle, error) {
	return nil, nil
}

func (d *DockerDriver) ContainerStatus(ctx context.Context, h *Handle) (Status, error) {
	return d.inspect(ctx, h.Name)
}

func (d *DockerDriver) FetchLogs(ctx context.Context, h *Handle) (string, string, error) {
	return d.logs(ctx, h.Name)
}

// ForwardSignal signals the container. While it does not exist yet, docker
// may still be pulling, so the docker run process is interrupted instead.
func (d *DockerDriver) ForwardSignal(ctx context.Context, primary *Handle, sig os.Signal) (int, error) {
	status, err := d.inspect(ctx, d.opts.RunID)
	if err != nil {
		return 1, err
	}
	if !status.Exists {
		logger.Info("Container already removed or not created at all")
		d.mu.Lock()
		proc := d.proc
		d.mu.Unlock()
		if proc != nil {
			logger.Info("Interrupting the docker run process")
			if err := proc.interrupt(); err != nil {
				return 1, err
			}
		}
		return 0, nil
	}

	logger.WithField("signal", signalName(sig)).Infof("Forwarding signal to container %s", d.opts.RunID)
	return d.signal(ctx, d.opts.RunID, sig)
}

// Kill kills the container if it still exists
func (d *DockerDriver) Kill(ctx context.Context, primary *Handle) (int, error) {
	status, err := d.inspect(ctx, d.opts.RunID)
	if err != nil {
		return 1, err
	}
	if !status.Exists {
		logger.Info("Container already removed or not created at all, nothing to kill")
		return 0, nil
	}
	return d.kill(ctx, d.opts.RunID)
}

// Cleanup removes the environment files and, with remove-containers on, any
// container `docker run --rm` did not remove itself
func (d *DockerDriver) Cleanup(ctx context.Context, handles []*Handle) (int, error) {
	var result *multierror.Error
	code := 0

	if d.opts.Config.RemoveContainers {
		status, err := d.inspect(ctx, d.opts.RunID)
		switch {
		case err != nil:
			result = multierror.Append(result, err)
			code = 1
		case status.Exists:
			logger.WithField("container", d.opts.RunID).Info("Removing container")
			c, err := d.remove(ctx, d.opts.RunID)
			if err != nil {
				result = multierror.Append(result, err)
			}
			code = c
		}
	} else {
		logger.Debug("Not removing the container, because remove_containers is false")
	}

	d.mu.Lock()
	files := d.files
	d.mu.Unlock()
	if err := d.opts.Marshaler.Remove(files); err != nil {
		result = multierror.Append(result, err)
		if code == 0 {
			code = 1
		}
	}

	return code, result.ErrorOrNil()
}

func (d *DockerDriver) Restart(ctx context.Context, h *Handle) error {
	return d.start(ctx, h.Name)
}

// primaryHandle returns the default handle, naming it when it has no name yet
func primaryHandle(handles []*Handle, name string) *Handle {
	for _, h := range handles {
		if h.IsDefault() {
			if h.Name == "" {
				h.Name = name
			}
			return h
		}
	}
	return &Handle{Name: name, Service: constants.DefaultComposeService, Role: RoleDefault}
}
