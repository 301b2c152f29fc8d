package cli

import (
	"errors"
	"fmt"
	"strings"

	"boxrun/internal/container"
	boxerrors "boxrun/internal/errors"
	"boxrun/internal/logger"
)

// HandleError processes errors and provides user-friendly output
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	var containerErr *container.ContainerError
	if errors.As(err, &containerErr) {
		logger.WithError(err).Debug("Container operation failed")
		return fmt.Errorf("%s", container.NewErrorHandler().GetUserMessage(err))
	}

	switch boxerrors.GetCode(err) {
	case boxerrors.ErrConfigParse:
		return fmt.Errorf("%v\n\nTip: KEY=VALUE files use BOXRUN_* keys, files ending in .toml use TOML.", err)
	case boxerrors.ErrConfigValidation, boxerrors.ErrConfigInvalid, boxerrors.ErrValidationFailed:
		return fmt.Errorf("%v\n\nTip: Run 'boxrun --help' to see the accepted values.", err)
	case boxerrors.ErrComposeFileNotFound:
		return fmt.Errorf("%v\n\nTip: Set the compose file with --docker-compose-file.", err)
	}

	if strings.Contains(err.Error(), "permission denied") {
		return fmt.Errorf("%v\n\nTip: Check file permissions.", err)
	}
	return err
}
