package cli

import (
	"context"

	"boxrun/internal/config"
	"boxrun/internal/constants"
	"boxrun/internal/logger"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X boxrun/internal/cli.Version=..."
var Version = "dev"

// RunFunc executes one resolved run and returns the exit code
type RunFunc func(ctx context.Context, cfg *config.RunConfig) int

// flags holds the raw values of the command-line flags
type flags struct {
	action           string
	configFile       string
	driver           string
	debug            bool
	image            string
	interactive      string
	removeContainers bool
	workDirOuter     string
	workDirInner     string
	identityDirOuter string
	blacklist        string
	dockerOptions    string
	composeFile      string
	composeOptions   string
	exitBehavior     string
	printLogs        string
	printLogsTarget  string
	preserveEnvToAll bool
	test             bool
}

// createRootCommand creates the root command. Everything after the first
// positional argument, or after --, is the command to run.
func createRootCommand(m *Manager) *cobra.Command {
	f := &flags{}
	rootCmd := &cobra.Command{
		Use:   "boxrun [flags] [--] [command...]",
		Short: "Run a command in a container that mirrors the host environment",
		Long: `boxrun runs a command inside a docker container, or inside the default
service of a docker compose project, with the current directory, the identity
directory and the host environment mounted in. Every container, network and
temporary file is named after a unique run id, and everything is cleaned up
when the command exits.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.run(cmd, f, args)
		},
	}
	rootCmd.Flags().SetInterspersed(false)

	fl := rootCmd.Flags()
	fl.StringVarP(&f.action, "action", "a", "", "Action: run or pull")
	fl.StringVarP(&f.configFile, "config", "c", constants.DefaultConfigFile, "Project config file, KEY=VALUE or .toml")
	fl.StringVarP(&f.driver, "driver", "d", "", "Driver: docker or compose")
	fl.BoolVar(&f.debug, "debug", false, "Log at debug level")
	fl.StringVar(&f.image, "image", "", "Docker image")
	fl.StringVarP(&f.interactive, "interactive", "i", "", "Allocate a TTY: auto, true or false")
	fl.BoolVar(&f.removeContainers, "rm", true, "Remove containers after the run")
	fl.StringVarP(&f.workDirOuter, "work-dir-outer", "w", "", "Host directory mounted as the work directory (default: current directory)")
	fl.StringVar(&f.workDirInner, "work-dir-inner", "", "Work directory inside the container (default "+constants.DefaultWorkDirInner+")")
	fl.StringVar(&f.identityDirOuter, "identity-dir-outer", "", "Host directory mounted read-only at "+constants.IdentityDirInner+" (default: $HOME)")
	fl.StringVar(&f.blacklist, "blacklist", "", "Comma separated variables not passed verbatim, * globs allowed")
	fl.StringVar(&f.dockerOptions, "docker-options", "", "Extra docker run options")
	fl.StringVar(&f.composeFile, "docker-compose-file", "", "Compose file (default "+constants.DefaultComposeFile+")")
	fl.StringVar(&f.composeOptions, "docker-compose-options", "", "Extra compose run options")
	fl.StringVar(&f.exitBehavior, "exit-behavior", "", "When a service container stops: abort, ignore or restart")
	fl.StringVar(&f.printLogs, "print-logs", "", "Print service container logs: always, failure or never")
	fl.StringVar(&f.printLogsTarget, "print-logs-target", "", "Where logs go: stream or file")
	fl.BoolVar(&f.preserveEnvToAll, "preserve-env-to-all", true, "Pass the environment to every compose service")
	fl.BoolVar(&f.test, "test", false, "Use a fixed run id and test- file names")

	return rootCmd
}

// settings converts the flags the user set into a configuration layer
func (f *flags) settings(cmd *cobra.Command) config.Settings {
	s := config.Settings{
		Action:           f.action,
		Driver:           f.driver,
		Image:            f.image,
		ComposeFile:      f.composeFile,
		ComposeOptions:   f.composeOptions,
		DockerOptions:    f.dockerOptions,
		WorkDirOuter:     f.workDirOuter,
		WorkDirInner:     f.workDirInner,
		IdentityDirOuter: f.identityDirOuter,
		Interactive:      f.interactive,
		PrintLogs:        f.printLogs,
		PrintLogsTarget:  f.printLogsTarget,
		Blacklist:        f.blacklist,
		ExitBehavior:     f.exitBehavior,
	}

	changed := cmd.Flags().Changed
	if changed("rm") {
		s.RemoveContainers = config.Bool(f.removeContainers)
	}
	if changed("debug") {
		s.Debug = config.Bool(f.debug)
	}
	if changed("preserve-env-to-all") {
		s.PreserveEnvToAll = config.Bool(f.preserveEnvToAll)
	}
	if changed("test") {
		s.Test = config.Bool(f.test)
	}
	return s
}

func (m *Manager) run(cmd *cobra.Command, f *flags, args []string) error {
	if f.debug {
		logger.SetLevel("debug")
	}

	if err := m.config.Load(f.configFile); err != nil {
		return err
	}
	cfg, err := m.config.Resolve(f.settings(cmd), args, f.configFile)
	if err != nil {
		return err
	}
	if cfg.Debug {
		logger.SetLevel("debug")
	}
	logger.Debugf("Resolved configuration: %s", cfg)

	m.exitCode = m.runFn(cmd.Context(), cfg)
	return nil
}
