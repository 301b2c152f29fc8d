package config

import (
	"bytes"
	"strconv"
	"strings"

	"boxrun/internal/constants"
	"boxrun/internal/errors"
	"boxrun/internal/logger"

	"github.com/hashicorp/go-envparse"
)

// Legacy project file keys
const (
	KeyDriver           = constants.EnvPrefix + "DRIVER"
	KeyImage            = constants.EnvPrefix + "DOCKER_IMAGE"
	KeyDockerOptions    = constants.EnvPrefix + "DOCKER_OPTIONS"
	KeyComposeFile      = constants.EnvPrefix + "DOCKER_COMPOSE_FILE"
	KeyComposeOptions   = constants.EnvPrefix + "DOCKER_COMPOSE_OPTIONS"
	KeyPreserveEnvToAll = constants.EnvPrefix + "PRESERVE_ENV_TO_ALL_CONTAINERS"
	KeyWorkOuter        = constants.EnvPrefix + "WORK_OUTER"
	KeyWorkInner        = constants.EnvPrefix + "WORK_INNER"
	KeyIdentityOuter    = constants.EnvPrefix + "IDENTITY_OUTER"
	KeyExitBehavior     = constants.EnvPrefix + "EXIT_BEHAVIOR"
	KeyBlacklist        = constants.EnvPrefix + "BLACKLIST_VARIABLES"
	KeyPrintLogs        = constants.EnvPrefix + "PRINT_LOGS"
	KeyPrintLogsTarget  = constants.EnvPrefix + "PRINT_LOGS_TARGET"
	KeyRemoveContainers = constants.EnvPrefix + "RM"
	KeyLogLevel         = constants.EnvPrefix + "LOG_LEVEL"
)

// ParseLegacy reads a KEY=VALUE project file. Quoting and comments
// follow shell rules. Unknown keys are logged and ignored.
func ParseLegacy(data []byte) (*Settings, error) {
	values, err := envparse.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	s := &Settings{}
	for key, value := range values {
		switch key {
		case KeyDriver:
			s.Driver = value
		case KeyImage:
			s.Image = value
		case KeyDockerOptions:
			s.DockerOptions = value
		case KeyComposeFile:
			s.ComposeFile = value
		case KeyComposeOptions:
			s.ComposeOptions = value
		case KeyWorkOuter:
			s.WorkDirOuter = value
		case KeyWorkInner:
			s.WorkDirInner = value
		case KeyIdentityOuter:
			s.IdentityDirOuter = value
		case KeyExitBehavior:
			s.ExitBehavior = value
		case KeyBlacklist:
			s.Blacklist = value
		case KeyPrintLogs:
			s.PrintLogs = value
		case KeyPrintLogsTarget:
			s.PrintLogsTarget = value
		case KeyPreserveEnvToAll:
			b, err := parseBool(key, value)
			if err != nil {
				return nil, err
			}
			s.PreserveEnvToAll = b
		case KeyRemoveContainers:
			b, err := parseBool(key, value)
			if err != nil {
				return nil, err
			}
			s.RemoveContainers = b
		case KeyLogLevel:
			s.Debug = Bool(strings.EqualFold(value, "debug"))
		default:
			logger.WithField("key", key).Debug("Ignoring unknown config key")
		}
	}

	return s, nil
}

func parseBool(key, value string) (*bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, errors.ConfigValidationError(key, "must be true or false; got: "+value)
	}
	return &b, nil
}
