package container

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"testing"

	"boxrun/internal/config"
	"boxrun/internal/environment"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testRunID = "boxrun-project-2026-10-14_10-00-00-cs1abc"

// MockCommand answers every command line containing match
type MockCommand struct {
	match  string
	stdout string
	stderr string
	exit   int
}

// MockCommandExecutor records command lines and plays back canned results.
// The first matching command wins; anything else succeeds silently.
type MockCommandExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	calls    []string
}

func (m *MockCommandExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	line := strings.Join(append([]string{name}, args...), " ")

	m.mu.Lock()
	m.calls = append(m.calls, line)
	commands := m.commands
	m.mu.Unlock()

	for _, c := range commands {
		if strings.Contains(line, c.match) {
			return exec.CommandContext(ctx, "sh", "-c", `printf '%s' "$1"; printf '%s' "$2" >&2; exit "$3"`,
				"sh", c.stdout, c.stderr, strconv.Itoa(c.exit))
		}
	}
	return exec.CommandContext(ctx, "true")
}

func (m *MockCommandExecutor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.calls...)
}

// Called returns the recorded lines containing substr
func (m *MockCommandExecutor) Called(substr string) []string {
	var out []string
	for _, c := range m.Calls() {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

func testRunConfig(driver string) *config.RunConfig {
	return &config.RunConfig{
		Action:           config.ActionRun,
		Driver:           driver,
		Image:            "alpine:3.19",
		ComposeFile:      "/work/project/docker-compose.yml",
		WorkDirOuter:     "/work/project",
		WorkDirInner:     "/boxrun/work",
		IdentityDirOuter: "/home/me",
		Command:          []string{"whoami"},
		Interactive:      config.InteractiveFalse,
		RemoveContainers: true,
		PrintLogs:        config.PrintLogsFailure,
		PrintLogsTarget:  config.PrintLogsTargetStream,
		ExitBehavior:     config.ExitBehaviorAbort,
	}
}

type testSetup struct {
	fs       afero.Fs
	executor *MockCommandExecutor
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	opts     Options
}

func newTestSetup(t *testing.T, cfg *config.RunConfig, commands ...MockCommand) *testSetup {
	t.Helper()
	s := &testSetup{
		fs:       afero.NewMemMapFs(),
		executor: &MockCommandExecutor{commands: commands},
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
	}
	require.NoError(t, s.fs.MkdirAll("/work/project", 0755))
	s.opts = Options{
		Config:     cfg,
		RunID:      testRunID,
		CurrentDir: "/work/project",
		Env:        environment.FromMap(map[string]string{"FOO": "bar"}),
		Executor:   s.executor,
		Fs:         s.fs,
		Marshaler:  environment.NewMarshaler(s.fs, "/tmp", false),
		Stdio:      Stdio{Stdin: strings.NewReader(""), Stdout: s.stdout, Stderr: s.stderr},
		IsTerminal: func() bool { return false },
	}
	return s
}

func (s *testSetup) writeFiles(t *testing.T) environment.Files {
	t.Helper()
	files, err := s.opts.Marshaler.Write(testRunID, s.opts.Env)
	require.NoError(t, err)
	return files
}
