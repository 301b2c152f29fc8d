package config

import (
	"testing"

	"boxrun/internal/constants"
	"boxrun/internal/errors"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, afero.Fs) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	fs := afero.NewMemMapFs()
	m := NewWithFs(fs)
	m.SetDirs("/work/project", "/home/me")
	return m, fs
}

func writeFile(t *testing.T, fs afero.Fs, path, contents string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0644))
}

func TestMerge_Priority(t *testing.T) {
	cli := Settings{Image: "cli:1"}
	project := Settings{Image: "project:1", Driver: DriverCompose, RemoveContainers: Bool(false)}
	global := Settings{Image: "global:1", Driver: DriverDocker, ExitBehavior: ExitBehaviorIgnore, RemoveContainers: Bool(true)}

	merged := Merge(cli, project, global, DefaultSettings("/cwd", "/home"))

	assert.Equal(t, "cli:1", merged.Image)
	assert.Equal(t, DriverCompose, merged.Driver)
	assert.Equal(t, ExitBehaviorIgnore, merged.ExitBehavior)
	require.NotNil(t, merged.RemoveContainers)
	assert.False(t, *merged.RemoveContainers)
	assert.Equal(t, "/cwd", merged.WorkDirOuter)
	assert.Equal(t, constants.DefaultBlacklist, merged.Blacklist)
}

func TestResolve_Defaults(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Load(""))

	cfg, err := m.Resolve(Settings{Image: "alpine:3.19"}, []string{"echo", "hi"}, "")
	require.NoError(t, err)

	assert.Equal(t, ActionRun, cfg.Action)
	assert.Equal(t, DriverDocker, cfg.Driver)
	assert.Equal(t, "/work/project", cfg.WorkDirOuter)
	assert.Equal(t, constants.DefaultWorkDirInner, cfg.WorkDirInner)
	assert.Equal(t, "/home/me", cfg.IdentityDirOuter)
	assert.Equal(t, "/work/project/docker-compose.yml", cfg.ComposeFile)
	assert.Equal(t, InteractiveAuto, cfg.Interactive)
	assert.Equal(t, PrintLogsFailure, cfg.PrintLogs)
	assert.Equal(t, PrintLogsTargetStream, cfg.PrintLogsTarget)
	assert.Equal(t, ExitBehaviorAbort, cfg.ExitBehavior)
	assert.True(t, cfg.RemoveContainers)
	assert.True(t, cfg.PreserveEnvToAll)
	assert.False(t, cfg.Test)
	assert.Equal(t, []string{"echo", "hi"}, cfg.Command)
}

func TestLoad_LegacyProjectFile(t *testing.T) {
	m, fs := newTestManager(t)
	writeFile(t, fs, "/work/project/Boxrunfile", `# project settings
BOXRUN_DOCKER_IMAGE="alpine:3.19"
BOXRUN_DRIVER=dc
BOXRUN_WORK_OUTER=src
BOXRUN_EXIT_BEHAVIOR="restart"
BOXRUN_PRESERVE_ENV_TO_ALL_CONTAINERS=false
BOXRUN_LOG_LEVEL=debug
BOXRUN_SOMETHING_ELSE=1
`)
	writeFile(t, fs, "/work/project/docker-compose.yml", "services:\n  default:\n    image: alpine\n")

	require.NoError(t, m.Load(""))
	cfg, err := m.Resolve(Settings{}, nil, constants.DefaultConfigFile)
	require.NoError(t, err)

	assert.Equal(t, "alpine:3.19", cfg.Image)
	assert.Equal(t, DriverCompose, cfg.Driver)
	assert.Equal(t, "/work/project/src", cfg.WorkDirOuter)
	assert.Equal(t, ExitBehaviorRestart, cfg.ExitBehavior)
	assert.False(t, cfg.PreserveEnvToAll)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/work/project/Boxrunfile", cfg.ConfigFile)
}

func TestLoad_TOMLProjectFile(t *testing.T) {
	m, fs := newTestManager(t)
	writeFile(t, fs, "/work/project/boxrun.toml", `
image = "debian:12"
print_logs = "always"
print_logs_target = "file"
remove_containers = false
`)

	require.NoError(t, m.Load("boxrun.toml"))
	cfg, err := m.Resolve(Settings{}, nil, "boxrun.toml")
	require.NoError(t, err)

	assert.Equal(t, "debian:12", cfg.Image)
	assert.Equal(t, PrintLogsAlways, cfg.PrintLogs)
	assert.Equal(t, PrintLogsTargetFile, cfg.PrintLogsTarget)
	assert.False(t, cfg.RemoveContainers)
}

func TestLoad_GlobalFileBelowProject(t *testing.T) {
	m, fs := newTestManager(t)
	writeFile(t, fs, "/xdg/boxrun/config.toml", `
[defaults]
image = "global:1"
exit_behavior = "ignore"
`)
	writeFile(t, fs, "/work/project/Boxrunfile", "BOXRUN_DOCKER_IMAGE=project:1\n")

	require.NoError(t, m.Load(""))
	cfg, err := m.Resolve(Settings{}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, "project:1", cfg.Image)
	assert.Equal(t, ExitBehaviorIgnore, cfg.ExitBehavior)
}

func TestLoad_ParseErrors(t *testing.T) {
	t.Run("bad toml", func(t *testing.T) {
		m, fs := newTestManager(t)
		writeFile(t, fs, "/work/project/boxrun.toml", "image = \n")
		err := m.Load("boxrun.toml")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrConfigParse))
	})

	t.Run("bad boolean", func(t *testing.T) {
		m, fs := newTestManager(t)
		writeFile(t, fs, "/work/project/Boxrunfile", "BOXRUN_RM=maybe\n")
		err := m.Load("")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrConfigParse))
	})
}

func TestResolve_CLIOverridesFile(t *testing.T) {
	m, fs := newTestManager(t)
	writeFile(t, fs, "/work/project/Boxrunfile", "BOXRUN_DOCKER_IMAGE=project:1\nBOXRUN_RM=false\n")
	require.NoError(t, m.Load(""))

	cfg, err := m.Resolve(Settings{Image: "cli:2", RemoveContainers: Bool(true), Action: ActionPull}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, "cli:2", cfg.Image)
	assert.True(t, cfg.RemoveContainers)
	assert.Equal(t, ActionPull, cfg.Action)
}

func TestVerify(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/p/docker-compose.yml", "services: {}\n")

	valid := func() *RunConfig {
		return &RunConfig{
			Action:          ActionRun,
			Driver:          DriverDocker,
			Image:           "alpine:3.19",
			ComposeFile:     "/p/docker-compose.yml",
			WorkDirInner:    constants.DefaultWorkDirInner,
			Interactive:     InteractiveAuto,
			PrintLogs:       PrintLogsFailure,
			PrintLogsTarget: PrintLogsTargetStream,
			ExitBehavior:    ExitBehaviorAbort,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *RunConfig)
		wantErr errors.ErrorCode
	}{
		{"valid docker", func(c *RunConfig) {}, ""},
		{"valid compose", func(c *RunConfig) { c.Driver = DriverCompose }, ""},
		{"bad action", func(c *RunConfig) { c.Action = "build" }, errors.ErrConfigValidation},
		{"bad driver", func(c *RunConfig) { c.Driver = "podman" }, errors.ErrConfigValidation},
		{"bad interactive", func(c *RunConfig) { c.Interactive = "sometimes" }, errors.ErrConfigValidation},
		{"bad print logs", func(c *RunConfig) { c.PrintLogs = "maybe" }, errors.ErrConfigValidation},
		{"bad target", func(c *RunConfig) { c.PrintLogsTarget = "syslog" }, errors.ErrConfigValidation},
		{"bad exit behavior", func(c *RunConfig) { c.ExitBehavior = "panic" }, errors.ErrConfigValidation},
		{"empty image", func(c *RunConfig) { c.Image = "" }, errors.ErrValidationFailed},
		{"compose options with docker", func(c *RunConfig) { c.ComposeOptions = "--no-deps" }, errors.ErrConfigInvalid},
		{"docker options with compose", func(c *RunConfig) {
			c.Driver = DriverCompose
			c.DockerOptions = "--init"
		}, errors.ErrConfigInvalid},
		{"missing compose file", func(c *RunConfig) {
			c.Driver = DriverCompose
			c.ComposeFile = "/p/missing.yml"
		}, errors.ErrComposeFileNotFound},
		{"compose keeps containers", func(c *RunConfig) {
			c.Driver = DriverCompose
			c.RemoveContainers = false
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := Verify(fs, c)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, errors.GetCode(err))
		})
	}
}

func TestGlobalConfig_SaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	fs := afero.NewMemMapFs()

	g := &GlobalConfig{Defaults: Settings{Image: "alpine:3.19", Debug: Bool(true)}}
	require.NoError(t, g.Save(fs, "/xdg/boxrun/config.toml"))

	loaded, err := LoadGlobalConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, "alpine:3.19", loaded.Defaults.Image)
	require.NotNil(t, loaded.Defaults.Debug)
	assert.True(t, *loaded.Defaults.Debug)
}

func TestLoadGlobalConfig_Missing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/nowhere")
	g, err := LoadGlobalConfig(afero.NewMemMapFs())
	require.NoError(t, err)
	assert.Equal(t, Settings{}, g.Defaults)
}
