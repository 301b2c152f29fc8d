package container

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"boxrun/internal/constants"
	"boxrun/internal/environment"
	"boxrun/internal/logger"
	"boxrun/internal/runid"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-version"
	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/shell"
)

var composeV2 = version.Must(version.NewVersion("2.0.0"))

// ComposeTool is the compose binary found on the host
type ComposeTool struct {
	Binary  string
	Prefix  []string
	Version *version.Version
}

// IsV2 reports whether ps can print json; v1 only prints a table
func (t *ComposeTool) IsV2() bool {
	return t.Version != nil && t.Version.GreaterThanOrEqual(composeV2)
}

func (t *ComposeTool) String() string {
	return strings.Join(append([]string{t.Binary}, t.Prefix...), " ")
}

// DetectComposeTool prefers the docker compose plugin and falls back to the
// standalone docker-compose
func DetectComposeTool(ctx context.Context, executor CommandExecutor) (*ComposeTool, error) {
	candidates := []*ComposeTool{
		{Binary: "docker", Prefix: []string{"compose"}},
		{Binary: "docker-compose"},
	}

	var result *multierror.Error
	for _, tool := range candidates {
		args := append(append([]string{}, tool.Prefix...), "version", "--short")
		res, err := runCommand(ctx, executor, "version", tool.Binary, args...)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		v, err := version.NewVersion(strings.TrimSpace(res.Stdout))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s printed an unexpected version %q: %w", tool, res.Stdout, err))
			continue
		}
		tool.Version = v
		logger.WithFields(logger.Fields{
			"tool":    tool.String(),
			"version": v.String(),
		}).Debug("Found compose")
		return tool, nil
	}

	return nil, &ContainerError{
		Type:       ErrorTypeRuntimeNotFound,
		Operation:  "version",
		Message:    "neither docker compose nor docker-compose is available",
		Underlying: result.ErrorOrNil(),
	}
}

// ComposeDriver runs the command in the default service of a compose project
// named after the run id
type ComposeDriver struct {
	dockerCLI
	opts    Options
	tool    *ComposeTool
	derived string

	mu       sync.Mutex
	files    environment.Files
	version  string
	services []string
	proc     *process
}

// NewComposeDriver creates a compose driver, detecting the compose binary
// unless opts carries one
func NewComposeDriver(ctx context.Context, opts Options) (*ComposeDriver, error) {
	opts.setDefaults()
	tool := opts.ComposeTool
	if tool == nil {
		var err error
		if tool, err = DetectComposeTool(ctx, opts.Executor); err != nil {
			return nil, err
		}
	}
	return &ComposeDriver{
		dockerCLI: dockerCLI{executor: opts.Executor},
		opts:      opts,
		tool:      tool,
		derived:   DerivedPath(opts.Config.ComposeFile),
	}, nil
}

// DerivedFile is the path of the generated override file
func (d *ComposeDriver) DerivedFile() string {
	return d.derived
}

func (d *ComposeDriver) baseArgs() []string {
	args := append([]string{}, d.tool.Prefix...)
	return append(args, "-f", d.opts.Config.ComposeFile, "-f", d.derived, "-p", d.opts.RunID)
}

func (d *ComposeDriver) compose(ctx context.Context, operation string, args ...string) (commandResult, error) {
	return runCommand(ctx, d.executor, operation, d.tool.Binary, append(d.baseArgs(), args...)...)
}

func (d *ComposeDriver) input() derivedInput {
	d.mu.Lock()
	defer d.mu.Unlock()
	return derivedInput{
		Config:   d.opts.Config,
		Version:  d.version,
		Mounts:   d.opts.Mounts,
		Files:    d.files,
		Services: d.services,
		X11:      d.opts.x11(),
	}
}

func (d *ComposeDriver) writeDerived(render func(derivedInput) ([]byte, error)) error {
	data, err := render(d.input())
	if err != nil {
		return NewContainerError(ErrorTypeConfigError, "create", "cannot render the derived compose file", err)
	}
	if err := afero.WriteFile(d.opts.Fs, d.derived, data, constants.FilePermissions); err != nil {
		return err
	}
	logger.WithField("path", d.derived).Debug("Written derived compose file")
	return nil
}

// prepare verifies the user's compose file and writes the minimal derived file
func (d *ComposeDriver) prepare() error {
	compose, err := ReadComposeFile(d.opts.Fs, d.opts.Config.ComposeFile)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.version = compose.VersionString()
	d.services = compose.ServiceNames()
	d.mu.Unlock()
	return d.writeDerived(initialDerived)
}

// Pull runs compose pull with a minimal derived file, removed afterwards
func (d *ComposeDriver) Pull(ctx context.Context) (int, error) {
	if err := d.prepare(); err != nil {
		return 1, err
	}
	defer d.removeDerived()

	args := append(d.baseArgs(), "pull")
	echoCommand(d.tool.String()+" pull", d.tool.Binary, args)
	code, err := runStreaming(ctx, d.executor, "pull", d.opts.Stdio.Stderr, d.tool.Binary, args...)
	return mapPullExitCode(code), err
}

// Create writes the derived compose file and returns one handle per service
func (d *ComposeDriver) Create(ctx context.Context, files environment.Files) ([]*Handle, error) {
	d.mu.Lock()
	d.files = files
	d.mu.Unlock()

	if err := d.prepare(); err != nil {
		return nil, err
	}

	if services, err := d.listServices(ctx); err != nil {
		LogContainerWarning(err, "config")
		logger.Warn("Using the services declared in the compose file")
	} else {
		d.mu.Lock()
		d.services = services
		d.mu.Unlock()
	}

	if err := d.writeDerived(fullDerived); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	handles := make([]*Handle, 0, len(d.services))
	for _, s := range d.services {
		h := &Handle{Service: s, Role: RoleNonDefault}
		if s == constants.DefaultComposeService {
			h.Role = RoleDefault
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (d *ComposeDriver) listServices(ctx context.Context) ([]string, error) {
	res, err := d.compose(ctx, "config", "config", "--services")
	if err != nil {
		return nil, err
	}
	var services []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			services = append(services, line)
		}
	}
	return services, nil
}

// RunArgs builds the compose run arguments for the default service
func (d *ComposeDriver) RunArgs() ([]string, error) {
	cfg := d.opts.Config
	if len(cfg.Command) == 0 && !d.opts.IsTerminal() {
		return nil, NewContainerError(ErrorTypeConfigError, "run",
			"the compose driver needs a command when the shell is not interactive", nil)
	}

	args := append(d.baseArgs(), "run", "--rm")
	if !d.opts.interactive() {
		args = append(args, "-T")
	}
	if cfg.ComposeOptions != "" {
		opts, err := shell.Fields(cfg.ComposeOptions, nil)
		if err != nil {
			return nil, NewContainerError(ErrorTypeConfigError, "run",
				fmt.Sprintf("cannot parse docker compose options: %s", cfg.ComposeOptions), err)
		}
		args = append(args, opts...)
	}
	args = append(args, constants.DefaultComposeService)
	return append(args, cfg.Command...), nil
}

// Start launches compose run in the background
func (d *ComposeDriver) Start(ctx context.Context, handles []*Handle) (*Handle, error) {
	args, err := d.RunArgs()
	if err != nil {
		return nil, err
	}
	echoCommand(d.tool.String()+" run", d.tool.Binary, args)

	proc, err := startProcess(d.executor.CommandContext(ctx, d.tool.Binary, args...), d.opts.Stdio, d.opts.interactive())
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.proc = proc
	d.mu.Unlock()

	return primaryHandle(handles, ""), nil
}

func (d *ComposeDriver) Wait(ctx context.Context, primary *Handle) (int, error) {
	d.mu.Lock()
	proc := d.proc
	d.mu.Unlock()
	if proc == nil {
		return 1, NewContainerError(ErrorTypeExecError, "wait", "the run command was not started", nil)
	}
	return proc.wait(ctx)
}

// ps lists the containers of this run. A "No such container" race inside
// compose is logged and treated as an empty project.
func (d *ComposeDriver) ps(ctx context.Context) ([]psEntry, error) {
	args := []string{"ps"}
	if d.tool.IsV2() {
		// --all includes the default container
		args = append(args, "--format", "json", "--all")
	}

	res, err := d.compose(ctx, "ps", args...)
	if err != nil {
		if strings.Contains(res.Stderr, "No such container") {
			LogContainerError(err, "ps")
			return nil, nil
		}
		return nil, err
	}

	var entries []psEntry
	if d.tool.IsV2() {
		if entries, err = parsePSJSON(res.Stdout); err != nil {
			return nil, NewContainerError(ErrorTypeUnknown, "ps", "unexpected compose ps output", err)
		}
	} else {
		entries = parsePSTable(res.Stdout)
	}

	// compose v1 drops the dashes of the project name
	compact := runid.Compact(d.opts.RunID)
	out := entries[:0]
	for _, e := range entries {
		if strings.Contains(e.Name, d.opts.RunID) || strings.Contains(e.Name, compact) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListNonDefault returns the service containers started for this run
func (d *ComposeDriver) ListNonDefault(ctx context.Context, handles []*Handle) ([]*Handle, error) {
	entries, err := d.ps(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Handle
	for _, e := range entries {
		if isDefaultContainerName(e.Name) {
			continue
		}
		out = append(out, &Handle{Name: e.Name, Service: e.Service, Role: RoleNonDefault})
	}
	return out, nil
}

// defaultContainerID returns "" when the default container is already gone
func (d *ComposeDriver) defaultContainerID(ctx context.Context) (string, error) {
	entries, err := d.ps(ctx)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !isDefaultContainerName(e.Name) {
			continue
		}
		status, err := d.inspect(ctx, e.Name)
		if err != nil {
			return "", err
		}
		if !status.Exists {
			return "", nil
		}
		logger.WithField("id", status.ID).Debug("Found default container")
		return status.ID, nil
	}
	return "", nil
}

func (d *ComposeDriver) ContainerStatus(ctx context.Context, h *Handle) (Status, error) {
	return d.inspect(ctx, h.Name)
}

func (d *ComposeDriver) FetchLogs(ctx context.Context, h *Handle) (string, string, error) {
	return d.logs(ctx, h.Name)
}

// ForwardSignal signals the default container and stops the others. compose
// stop leaves out the one-off default container, so it is signalled itself.
func (d *ComposeDriver) ForwardSignal(ctx context.Context, primary *Handle, sig os.Signal) (int, error) {
	var result *multierror.Error

	id, err := d.defaultContainerID(ctx)
	if err != nil {
		result = multierror.Append(result, err)
	}
	if id != "" {
		logger.WithField("signal", signalName(sig)).Infof("Forwarding signal to default container %s", id)
		if _, err := d.signal(ctx, id, sig); err != nil {
			result = multierror.Append(result, err)
		}
	} else {
		d.mu.Lock()
		proc := d.proc
		d.mu.Unlock()
		if proc != nil {
			logger.Info("Default container not running, interrupting the compose run process")
			if err := proc.interrupt(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	res, err := d.compose(ctx, "stop", "stop")
	if err != nil {
		result = multierror.Append(result, err)
	}
	logger.Debugf("Exit status from stop command: %d", res.ExitCode)
	return res.ExitCode, result.ErrorOrNil()
}

// Kill kills the default container and the rest of the project
func (d *ComposeDriver) Kill(ctx context.Context, primary *Handle) (int, error) {
	var result *multierror.Error

	id, err := d.defaultContainerID(ctx)
	if err != nil {
		result = multierror.Append(result, err)
	}
	if id != "" {
		if _, err := d.kill(ctx, id); err != nil {
			result = multierror.Append(result, err)
		}
	}

	res, err := d.compose(ctx, "kill", "kill")
	if err != nil {
		result = multierror.Append(result, err)
	}
	return res.ExitCode, result.ErrorOrNil()
}

// Cleanup stops the project and, with remove-containers on, brings it down,
// which also removes its network. The derived file is removed in every case.
func (d *ComposeDriver) Cleanup(ctx context.Context, handles []*Handle) (code int, err error) {
	var result *multierror.Error
	defer func() {
		if rmErr := d.removeDerived(); rmErr != nil {
			result = multierror.Append(result, rmErr)
			if code == 0 {
				code = 1
			}
		}
		err = result.ErrorOrNil()
	}()

	res, stopErr := d.compose(ctx, "stop", "stop")
	if stopErr != nil {
		result = multierror.Append(result, stopErr)
	}
	code = res.ExitCode

	if d.opts.Config.RemoveContainers {
		args := append(d.baseArgs(), "down")
		logger.Infof("Removing containers with command: %s %s", d.tool.Binary, strings.Join(args, " "))
		res, downErr := d.compose(ctx, "down", "down")
		if downErr != nil {
			result = multierror.Append(result, downErr)
		}
		if res.ExitCode != 0 {
			code = res.ExitCode
		}
	} else {
		logger.Debug("Not removing containers, because remove_containers is false")
	}

	d.mu.Lock()
	files := d.files
	d.mu.Unlock()
	if rmErr := d.opts.Marshaler.Remove(files); rmErr != nil {
		result = multierror.Append(result, rmErr)
	}

	return code, nil
}

func (d *ComposeDriver) removeDerived() error {
	if err := d.opts.Fs.Remove(d.derived); err != nil && !os.IsNotExist(err) {
		return err
	}
	logger.WithField("path", d.derived).Debug("Removed derived compose file")
	return nil
}

// Restart starts a service container that stopped by itself
func (d *ComposeDriver) Restart(ctx context.Context, h *Handle) error {
	logger.WithField("container", h.Name).Info("Container stopped by itself, starting it again")
	return d.start(ctx, h.Name)
}
