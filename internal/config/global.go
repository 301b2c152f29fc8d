package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"boxrun/internal/constants"
	"boxrun/internal/errors"
	"boxrun/internal/logger"
	"boxrun/internal/xdg"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// GlobalConfig represents the user-wide boxrun configuration
type GlobalConfig struct {
	Defaults Settings `toml:"defaults"`
}

// GetConfigDir returns the XDG config directory for boxrun
func GetConfigDir() (string, error) {
	return xdg.ConfigDir()
}

// LoadGlobalConfig loads the global configuration from the XDG config directory.
// A missing file yields an empty configuration.
func LoadGlobalConfig(fs afero.Fs) (*GlobalConfig, error) {
	configPath, err := xdg.GlobalConfigFile()
	if err != nil {
		return nil, errors.InternalError("failed to locate global config", err)
	}

	exists, err := afero.Exists(fs, configPath)
	if err != nil {
		return nil, errors.FileReadFailed(configPath, err)
	}
	if !exists {
		logger.WithField("path", configPath).Debug("Global config does not exist")
		return &GlobalConfig{}, nil
	}

	data, err := afero.ReadFile(fs, configPath)
	if err != nil {
		return nil, errors.FileReadFailed(configPath, err)
	}

	var config GlobalConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.ConfigParseError(configPath, err)
	}

	if err := expandPaths(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Save writes the global configuration to path
func (g *GlobalConfig) Save(fs afero.Fs, path string) error {
	data, err := toml.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return afero.WriteFile(fs, path, data, constants.FilePermissions)
}

// expandPaths expands tilde paths in the defaults
func expandPaths(config *GlobalConfig) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, p := range []*string{
		&config.Defaults.WorkDirOuter,
		&config.Defaults.IdentityDirOuter,
		&config.Defaults.ComposeFile,
	} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(homeDir, (*p)[2:])
		}
	}

	return nil
}
