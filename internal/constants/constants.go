// Package constants defines application-wide constants to avoid magic numbers
package constants

import "time"

// Project naming
const (
	// ProjectName is used in generated file names and container paths
	ProjectName = "boxrun"

	// EnvPrefix is prepended to blacklisted host variables and config file keys
	EnvPrefix = "BOXRUN_"

	// TestRunID is the fixed run identifier used in test mode
	TestRunID = "testboxrunid"

	// DerivedComposeSuffix is appended to the compose file path for the generated file
	DerivedComposeSuffix = ".boxrun"
)

// Container paths
const (
	// DefaultWorkDirInner is where the working directory is mounted inside the container
	DefaultWorkDirInner = "/boxrun/work"

	// IdentityDirInner is where the identity directory is mounted (read-only)
	IdentityDirInner = "/boxrun/identity"

	// VariablesDirInner holds the scripts sourced before the user command
	VariablesDirInner = "/etc/boxrun.d/variables"

	// MultilineScriptInner is sourced first and restores multiline variables
	MultilineScriptInner = VariablesDirInner + "/00-multiline-vars.sh"

	// BashFunctionsScriptInner is sourced second and restores exported bash functions
	BashFunctionsScriptInner = VariablesDirInner + "/01-bash-functions.sh"

	// X11SocketDir is mounted when DISPLAY is set on the host
	X11SocketDir = "/tmp/.X11-unix"
)

// Defaults
const (
	// DefaultConfigFile is the project configuration file looked up in the current directory
	DefaultConfigFile = "Boxrunfile"

	// DefaultComposeFile is the compose file used by the compose driver
	DefaultComposeFile = "docker-compose.yml"

	// DefaultComposeService is the service that runs the user command
	DefaultComposeService = "default"

	// DefaultBlacklist lists host variables that are not passed verbatim
	DefaultBlacklist = "BASH*,HOME,USERNAME,USER,LOGNAME,PATH,TERM,SHELL,MAIL,SUDO_*,WINDOWID,SSH_*,SESSION_*,GEM_HOME,GEM_PATH,GEM_ROOT,HOSTNAME,HOSTTYPE,IFS,PPID,PWD,OLDPWD,LC*,TMPDIR"

	// DisplayInContainer replaces the host DISPLAY value
	DisplayInContainer = "unix:0.0"
)

// File System Permissions
const (
	// DirPermissions is the standard directory permissions for boxrun directories
	DirPermissions = 0755

	// FilePermissions is the standard file permissions for generated files
	FilePermissions = 0644
)

// Timing
const (
	// DefaultWatchInterval bounds how long teardown may wait on the container watcher
	DefaultWatchInterval = 1 * time.Second
)

// Output limits
const (
	// MaxErrorMessageLength is the maximum length for error messages before truncation
	MaxErrorMessageLength = 500

	// MaxOutputLength is the maximum length for command output before truncation
	MaxOutputLength = 200
)
