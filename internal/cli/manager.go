package cli

import (
	"context"
	"io"

	"boxrun/internal/config"

	"github.com/spf13/cobra"
)

// Manager handles CLI operations
type Manager struct {
	config   *config.Manager
	runFn    RunFunc
	rootCmd  *cobra.Command
	exitCode int
}

// New creates a new CLI manager that hands resolved runs to run
func New(cfg *config.Manager, run RunFunc) *Manager {
	m := &Manager{
		config: cfg,
		runFn:  run,
	}
	m.rootCmd = createRootCommand(m)
	return m
}

// SetOutput redirects help and version output
func (m *Manager) SetOutput(w io.Writer) {
	m.rootCmd.SetOut(w)
	m.rootCmd.SetErr(w)
}

// Execute executes the CLI with the given arguments
func (m *Manager) Execute(args []string) (int, error) {
	return m.ExecuteWithContext(context.Background(), args)
}

// ExecuteWithContext parses args, runs the command and returns its exit code.
// An error means nothing was run; the code is then 1.
func (m *Manager) ExecuteWithContext(ctx context.Context, args []string) (int, error) {
	m.exitCode = 0
	m.rootCmd.SetArgs(args)
	if err := m.rootCmd.ExecuteContext(ctx); err != nil {
		return 1, err
	}
	return m.exitCode, nil
}
