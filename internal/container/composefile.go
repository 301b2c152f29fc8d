package container

import (
	"fmt"
	"sort"

	"boxrun/internal/config"
	"boxrun/internal/constants"
	"boxrun/internal/environment"
	"boxrun/internal/errors"

	"github.com/hashicorp/go-version"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// composeFileVersions are the compose file format versions that can be extended
var composeFileVersions = version.MustConstraints(version.NewConstraint(">= 2, < 3"))

// ComposeService is the part of a compose service boxrun looks at
type ComposeService struct {
	Image string `yaml:"image"`
}

// ComposeFile represents the user's compose file
type ComposeFile struct {
	// Version is kept as a node so 2, 2.2 and "2.2" all read the same way
	Version  yaml.Node                 `yaml:"version"`
	Services map[string]ComposeService `yaml:"services"`
}

// VersionString returns the declared format version, or "" when absent
func (c *ComposeFile) VersionString() string {
	return c.Version.Value
}

// ServiceNames returns the services in name order
func (c *ComposeFile) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for n := range c.Services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ReadComposeFile reads and verifies a compose file. It must define a default
// service and, when it declares a version, one in [2, 3).
func ReadComposeFile(fs afero.Fs, path string) (*ComposeFile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.ComposeFileNotFound(path).WithCause(err)
	}

	var compose ComposeFile
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return nil, errors.ComposeFileInvalid(path, err.Error()).WithCause(err)
	}

	if v := compose.VersionString(); v != "" {
		parsed, err := version.NewVersion(v)
		if err != nil {
			return nil, errors.ComposeFileInvalid(path, fmt.Sprintf("cannot parse version %q", v)).WithCause(err)
		}
		if !composeFileVersions.Check(parsed) {
			return nil, errors.ComposeFileInvalid(path,
				fmt.Sprintf("version should be >=2 and <3, current version: %s", v))
		}
	}

	if _, ok := compose.Services[constants.DefaultComposeService]; !ok {
		return nil, errors.ComposeFileInvalid(path, "no default service, please add one")
	}

	return &compose, nil
}

// DerivedPath is where the generated override of composePath is written
func DerivedPath(composePath string) string {
	return composePath + constants.DerivedComposeSuffix
}

type derivedService struct {
	Image   string   `yaml:"image,omitempty"`
	Volumes []string `yaml:"volumes,omitempty"`
	EnvFile []string `yaml:"env_file,omitempty"`
}

type derivedFile struct {
	Version  string                    `yaml:"version,omitempty"`
	Services map[string]derivedService `yaml:"services"`
}

// derivedInput collects what goes into the generated override file
type derivedInput struct {
	Config   *config.RunConfig
	Version  string
	Mounts   Mounts
	Files    environment.Files
	Services []string
	X11      bool
}

// initialDerived only sets the image of the default service. It is enough
// for `config --services` and for pulling.
func initialDerived(in derivedInput) ([]byte, error) {
	return yaml.Marshal(derivedFile{
		Version: in.Version,
		Services: map[string]derivedService{
			constants.DefaultComposeService: {Image: in.Config.Image},
		},
	})
}

// fullDerived mounts the work and identity directories and the environment
// into the default service; with preserve-env-to-all the environment also
// goes to every other service
func fullDerived(in derivedInput) ([]byte, error) {
	scripts := []string{
		in.Files.MultilineScript + ":" + constants.MultilineScriptInner,
		in.Files.BashFunctionsScript + ":" + constants.BashFunctionsScriptInner,
	}

	volumes := []string{
		in.Mounts.IdentityDirOuter + ":" + constants.IdentityDirInner + ":ro",
		in.Mounts.WorkDirOuter + ":" + in.Config.WorkDirInner,
	}
	volumes = append(volumes, scripts...)
	if in.X11 {
		volumes = append(volumes, constants.X11SocketDir+":"+constants.X11SocketDir)
	}

	out := derivedFile{
		Version: in.Version,
		Services: map[string]derivedService{
			constants.DefaultComposeService: {
				Image:   in.Config.Image,
				Volumes: volumes,
				EnvFile: []string{in.Files.EnvFile},
			},
		},
	}

	if in.Config.PreserveEnvToAll {
		for _, name := range in.Services {
			if name == constants.DefaultComposeService {
				continue
			}
			out.Services[name] = derivedService{
				Volumes: scripts,
				EnvFile: []string{in.Files.EnvFile},
			}
		}
	}

	return yaml.Marshal(out)
}
