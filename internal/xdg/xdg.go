// Package xdg provides XDG Base Directory Specification compliant paths
package xdg

import (
	"os"
	"path/filepath"

	"boxrun/internal/constants"
)

// ConfigDir returns the XDG config directory for boxrun
// Priority: XDG_CONFIG_HOME > ~/.config/boxrun
func ConfigDir() (string, error) {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, constants.ProjectName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", constants.ProjectName), nil
}

// GlobalConfigFile returns the path of the user-wide configuration file
func GlobalConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
