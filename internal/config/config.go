package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"boxrun/internal/constants"
	"boxrun/internal/errors"
	"boxrun/internal/logger"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// Actions
const (
	ActionRun  = "run"
	ActionPull = "pull"
)

// Drivers
const (
	DriverDocker  = "docker"
	DriverCompose = "compose"
)

// Interactive modes
const (
	InteractiveAuto  = "auto"
	InteractiveTrue  = "true"
	InteractiveFalse = "false"
)

// Print-logs policies
const (
	PrintLogsAlways  = "always"
	PrintLogsFailure = "failure"
	PrintLogsNever   = "never"
)

// Print-logs targets
const (
	PrintLogsTargetStream = "stream"
	PrintLogsTargetFile   = "file"
)

// Exit behaviors for non-default compose containers
const (
	ExitBehaviorAbort   = "abort"
	ExitBehaviorIgnore  = "ignore"
	ExitBehaviorRestart = "restart"
)

// RunConfig is the fully resolved configuration of one invocation.
// It is not modified after Resolve returns it.
type RunConfig struct {
	Action           string
	Driver           string
	Image            string
	ComposeFile      string
	ComposeOptions   string
	DockerOptions    string
	WorkDirOuter     string
	WorkDirInner     string
	IdentityDirOuter string
	Command          []string
	Interactive      string
	RemoveContainers bool
	Test             bool
	PrintLogs        string
	PrintLogsTarget  string
	Debug            bool
	Blacklist        string
	PreserveEnvToAll bool
	ExitBehavior     string
	ConfigFile       string
}

// Settings is one configuration layer. Empty strings and nil pointers are unset
// and let a lower layer decide.
type Settings struct {
	Action           string `toml:"action"`
	Driver           string `toml:"driver"`
	Image            string `toml:"image"`
	ComposeFile      string `toml:"docker_compose_file"`
	ComposeOptions   string `toml:"docker_compose_options"`
	DockerOptions    string `toml:"docker_options"`
	WorkDirOuter     string `toml:"work_dir_outer"`
	WorkDirInner     string `toml:"work_dir_inner"`
	IdentityDirOuter string `toml:"identity_dir_outer"`
	Interactive      string `toml:"interactive"`
	RemoveContainers *bool  `toml:"remove_containers"`
	Test             *bool  `toml:"test"`
	PrintLogs        string `toml:"print_logs"`
	PrintLogsTarget  string `toml:"print_logs_target"`
	Debug            *bool  `toml:"debug"`
	Blacklist        string `toml:"blacklist_variables"`
	PreserveEnvToAll *bool  `toml:"preserve_env_to_all_containers"`
	ExitBehavior     string `toml:"exit_behavior"`
}

// Bool returns a pointer to b, for building Settings literals
func Bool(b bool) *bool {
	return &b
}

// DefaultSettings returns the built-in defaults for a run started in currentDir
func DefaultSettings(currentDir, homeDir string) Settings {
	return Settings{
		Action:           ActionRun,
		Driver:           DriverDocker,
		ComposeFile:      constants.DefaultComposeFile,
		WorkDirOuter:     currentDir,
		WorkDirInner:     constants.DefaultWorkDirInner,
		IdentityDirOuter: homeDir,
		Interactive:      InteractiveAuto,
		RemoveContainers: Bool(true),
		Test:             Bool(false),
		PrintLogs:        PrintLogsFailure,
		PrintLogsTarget:  PrintLogsTargetStream,
		Debug:            Bool(false),
		Blacklist:        constants.DefaultBlacklist,
		PreserveEnvToAll: Bool(true),
		ExitBehavior:     ExitBehaviorAbort,
	}
}

// Merge combines layers, the first layer having the highest priority
func Merge(layers ...Settings) Settings {
	var out Settings
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		setString(&out.Action, l.Action)
		setString(&out.Driver, l.Driver)
		setString(&out.Image, l.Image)
		setString(&out.ComposeFile, l.ComposeFile)
		setString(&out.ComposeOptions, l.ComposeOptions)
		setString(&out.DockerOptions, l.DockerOptions)
		setString(&out.WorkDirOuter, l.WorkDirOuter)
		setString(&out.WorkDirInner, l.WorkDirInner)
		setString(&out.IdentityDirOuter, l.IdentityDirOuter)
		setString(&out.Interactive, l.Interactive)
		setString(&out.PrintLogs, l.PrintLogs)
		setString(&out.PrintLogsTarget, l.PrintLogsTarget)
		setString(&out.Blacklist, l.Blacklist)
		setString(&out.ExitBehavior, l.ExitBehavior)
		setBool(&out.RemoveContainers, l.RemoveContainers)
		setBool(&out.Test, l.Test)
		setBool(&out.Debug, l.Debug)
		setBool(&out.PreserveEnvToAll, l.PreserveEnvToAll)
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst **bool, v *bool) {
	if v != nil {
		*dst = v
	}
}

// Manager handles configuration loading and validation
type Manager struct {
	fs         afero.Fs
	Global     *GlobalConfig
	Project    *Settings
	currentDir string
	homeDir    string
}

// New creates a configuration manager backed by the OS filesystem
func New() *Manager {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs creates a configuration manager backed by fs
func NewWithFs(fs afero.Fs) *Manager {
	return &Manager{
		fs:      fs,
		Global:  &GlobalConfig{},
		Project: &Settings{},
	}
}

// SetDirs overrides the current and home directories used for defaults
func (m *Manager) SetDirs(currentDir, homeDir string) {
	m.currentDir = currentDir
	m.homeDir = homeDir
}

// CurrentDir returns the directory the run was started in
func (m *Manager) CurrentDir() string {
	return m.currentDir
}

// Load reads the global file and the project file at configPath.
// A missing file is not an error; the layer is then empty.
func (m *Manager) Load(configPath string) error {
	if err := m.ensureDirs(); err != nil {
		return err
	}

	global, err := LoadGlobalConfig(m.fs)
	if err != nil {
		return err
	}
	m.Global = global

	if configPath == "" {
		configPath = constants.DefaultConfigFile
	}
	project, err := m.loadProjectFile(m.abs(configPath))
	if err != nil {
		return err
	}
	m.Project = project

	return nil
}

func (m *Manager) ensureDirs() error {
	if m.currentDir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return errors.InternalError("failed to get current directory", err)
		}
		m.currentDir = dir
	}
	if m.homeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.InternalError("failed to get home directory", err)
		}
		m.homeDir = home
	}
	return nil
}

func (m *Manager) loadProjectFile(path string) (*Settings, error) {
	exists, err := afero.Exists(m.fs, path)
	if err != nil {
		return nil, errors.FileReadFailed(path, err)
	}
	if !exists {
		logger.WithField("path", path).Debug("Config file does not exist")
		return &Settings{}, nil
	}

	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return nil, errors.FileReadFailed(path, err)
	}

	if strings.HasSuffix(path, ".toml") {
		var s Settings
		if err := toml.Unmarshal(data, &s); err != nil {
			return nil, errors.ConfigParseError(path, err)
		}
		return &s, nil
	}

	s, err := ParseLegacy(data)
	if err != nil {
		return nil, errors.ConfigParseError(path, err)
	}
	return s, nil
}

// Resolve merges cli over the project file, the global file and the defaults,
// then verifies the result.
func (m *Manager) Resolve(cli Settings, command []string, configPath string) (*RunConfig, error) {
	if err := m.ensureDirs(); err != nil {
		return nil, err
	}

	merged := Merge(cli, *m.Project, m.Global.Defaults, DefaultSettings(m.currentDir, m.homeDir))

	cfg := &RunConfig{
		Action:           merged.Action,
		Driver:           normalizeDriver(merged.Driver),
		Image:            merged.Image,
		ComposeFile:      m.abs(merged.ComposeFile),
		ComposeOptions:   merged.ComposeOptions,
		DockerOptions:    merged.DockerOptions,
		WorkDirOuter:     m.abs(merged.WorkDirOuter),
		WorkDirInner:     merged.WorkDirInner,
		IdentityDirOuter: m.abs(merged.IdentityDirOuter),
		Command:          append([]string(nil), command...),
		Interactive:      normalizeInteractive(merged.Interactive),
		RemoveContainers: *merged.RemoveContainers,
		Test:             *merged.Test,
		PrintLogs:        normalizePrintLogs(merged.PrintLogs),
		PrintLogsTarget:  normalizePrintLogsTarget(merged.PrintLogsTarget),
		Debug:            *merged.Debug,
		Blacklist:        merged.Blacklist,
		PreserveEnvToAll: *merged.PreserveEnvToAll,
		ExitBehavior:     merged.ExitBehavior,
		ConfigFile:       m.abs(configPath),
	}

	if err := Verify(m.fs, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (m *Manager) abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.currentDir, path)
}

func normalizeDriver(d string) string {
	switch d {
	case "dc", "docker-compose":
		return DriverCompose
	}
	return d
}

func normalizeInteractive(i string) string {
	if i == "" {
		return InteractiveAuto
	}
	return i
}

func normalizePrintLogs(p string) string {
	if p == "" {
		return PrintLogsFailure
	}
	return p
}

func normalizePrintLogsTarget(t string) string {
	if t == "console" {
		return PrintLogsTargetStream
	}
	return t
}

// String renders the configuration for debug logs
func (c *RunConfig) String() string {
	return fmt.Sprintf("{Action=%s Driver=%s Image=%s ComposeFile=%s WorkDirOuter=%s WorkDirInner=%s IdentityDirOuter=%s Command=%q Interactive=%s RemoveContainers=%t Test=%t PrintLogs=%s PrintLogsTarget=%s ExitBehavior=%s}",
		c.Action, c.Driver, c.Image, c.ComposeFile, c.WorkDirOuter, c.WorkDirInner, c.IdentityDirOuter,
		c.Command, c.Interactive, c.RemoveContainers, c.Test, c.PrintLogs, c.PrintLogsTarget, c.ExitBehavior)
}
