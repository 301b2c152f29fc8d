package config

import (
	"boxrun/internal/errors"
	"boxrun/internal/logger"
	"boxrun/internal/validation"

	"github.com/spf13/afero"
)

// Verify rejects contradictory or unusable configurations.
// Harmless oddities are logged as warnings.
func Verify(fs afero.Fs, c *RunConfig) error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"action", c.Action, []string{ActionRun, ActionPull}},
		{"driver", c.Driver, []string{DriverDocker, DriverCompose}},
		{"interactive", c.Interactive, []string{InteractiveAuto, InteractiveTrue, InteractiveFalse}},
		{"print_logs", c.PrintLogs, []string{PrintLogsAlways, PrintLogsFailure, PrintLogsNever}},
		{"print_logs_target", c.PrintLogsTarget, []string{PrintLogsTargetStream, PrintLogsTargetFile}},
		{"exit_behavior", c.ExitBehavior, []string{ExitBehaviorAbort, ExitBehaviorIgnore, ExitBehaviorRestart}},
	}
	for _, chk := range checks {
		if err := validation.OneOf(chk.field, chk.value, chk.allowed...); err != nil {
			return err
		}
	}

	if c.WorkDirInner == "" {
		return errors.ConfigValidationError("work_dir_inner", "cannot be empty")
	}

	// compose uses the image for its default service
	if err := validation.ImageReference(c.Image); err != nil {
		return err
	}

	switch c.Driver {
	case DriverDocker:
		if c.ComposeOptions != "" {
			return errors.ConfigInvalid("docker compose options are set but the driver is docker")
		}
	case DriverCompose:
		if c.DockerOptions != "" {
			return errors.ConfigInvalid("docker options are set but the driver is compose")
		}
		if !c.RemoveContainers {
			logger.Warn("remove_containers=false with the compose driver leaves stopped containers and networks behind")
		}
		exists, err := afero.Exists(fs, c.ComposeFile)
		if err != nil {
			return errors.FileReadFailed(c.ComposeFile, err)
		}
		if !exists {
			return errors.ComposeFileNotFound(c.ComposeFile)
		}
	}

	if c.Action == ActionRun && c.Driver == DriverDocker && len(c.Command) == 0 {
		logger.Debug("No command given, the image's default command will run")
	}

	return nil
}
