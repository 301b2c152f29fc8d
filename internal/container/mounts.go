package container

import (
	"fmt"
	"os"
	"syscall"

	"boxrun/internal/config"
	"boxrun/internal/errors"

	"github.com/spf13/afero"
)

// Mounts are the host directories bound into the default container
type Mounts struct {
	WorkDirOuter     string
	IdentityDirOuter string
}

var currentUID = os.Geteuid

// ResolveMounts checks the host side of the bind mounts. Problems are returned
// as configuration warnings; none of them stops the run. A missing work
// directory falls back to currentDir.
func ResolveMounts(fs afero.Fs, cfg *config.RunConfig, currentDir string) (Mounts, []error) {
	m := Mounts{
		WorkDirOuter:     cfg.WorkDirOuter,
		IdentityDirOuter: cfg.IdentityDirOuter,
	}
	var warnings []error

	if info, err := fs.Stat(cfg.WorkDirOuter); err != nil {
		warnings = append(warnings, errors.ConfigurationWarning(fmt.Sprintf(
			"work_dir_outer: %s does not exist, mounting %s instead", cfg.WorkDirOuter, currentDir)))
		m.WorkDirOuter = currentDir
	} else if ownedByRoot(info) {
		warnings = append(warnings, errors.ConfigurationWarning(fmt.Sprintf(
			"work_dir_outer: %s is owned by root, which is not recommended", cfg.WorkDirOuter)))
	}

	if _, err := fs.Stat(cfg.IdentityDirOuter); err != nil {
		warnings = append(warnings, errors.ConfigurationWarning(fmt.Sprintf(
			"identity_dir_outer: %s does not exist", cfg.IdentityDirOuter)))
	}

	if currentUID() == 0 {
		warnings = append(warnings, errors.ConfigurationWarning("current user is root, which is not recommended"))
	}

	return m, warnings
}

func ownedByRoot(info os.FileInfo) bool {
	st, ok := info.Sys().(*syscall.Stat_t)
	return ok && st.Uid == 0
}
