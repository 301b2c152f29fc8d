package app

import (
	"context"
	"os"

	"boxrun/internal/cli"
	"boxrun/internal/config"
	"boxrun/internal/environment"
	"boxrun/internal/runner"

	"github.com/spf13/afero"
)

// App represents the main application
type App struct {
	Fs     afero.Fs
	Config *config.Manager
	CLI    *cli.Manager

	// NewDriver overrides how drivers are built, for tests
	NewDriver runner.DriverFactory
	// Environ is the host environment, defaulting to os.Environ
	Environ func() []string
}

// New creates a new application instance
func New() *App {
	return &App{
		Fs:      afero.NewOsFs(),
		Environ: os.Environ,
	}
}

// Run parses args and executes the run, returning the process exit code
func (a *App) Run(args []string) (int, error) {
	return a.RunWithContext(context.Background(), args)
}

// RunWithContext runs the application with a context for cancellation
func (a *App) RunWithContext(ctx context.Context, args []string) (int, error) {
	if a.Config == nil {
		a.Config = config.NewWithFs(a.Fs)
	}
	a.CLI = cli.New(a.Config, a.runOnce)
	return a.CLI.ExecuteWithContext(ctx, args)
}

func (a *App) runOnce(ctx context.Context, cfg *config.RunConfig) int {
	r := runner.New(runner.Options{
		Config:     cfg,
		CurrentDir: a.Config.CurrentDir(),
		Env:        environment.Capture(a.Environ()),
		Fs:         a.Fs,
		NewDriver:  a.NewDriver,
	})
	return r.Run(ctx)
}
