package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"boxrun/internal/constants"
	"boxrun/internal/errors"
	"boxrun/internal/logger"
	"boxrun/internal/validation"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/syntax"
)

// Files are the host paths written for one run
type Files struct {
	EnvFile             string
	MultilineScript     string
	BashFunctionsScript string
}

// All returns every path in write order
func (f Files) All() []string {
	return []string{f.EnvFile, f.MultilineScript, f.BashFunctionsScript}
}

// Marshaler writes a snapshot to disk for a container to load
type Marshaler struct {
	fs   afero.Fs
	dir  string
	test bool
}

// NewMarshaler creates a marshaler writing into dir on fs.
// In test mode file names carry a test- prefix.
func NewMarshaler(fs afero.Fs, dir string, test bool) *Marshaler {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dir == "" {
		dir = "/tmp"
	}
	return &Marshaler{fs: fs, dir: dir, test: test}
}

// Paths returns the file locations for runID without writing anything
func (m *Marshaler) Paths(runID string) Files {
	prefix := constants.ProjectName + "-environment"
	if m.test {
		prefix = "test-" + prefix
	}
	return Files{
		EnvFile:             filepath.Join(m.dir, fmt.Sprintf("%s-%s", prefix, runID)),
		MultilineScript:     filepath.Join(m.dir, fmt.Sprintf("%s-multiline-%s", prefix, runID)),
		BashFunctionsScript: filepath.Join(m.dir, fmt.Sprintf("%s-bash-functions-%s", prefix, runID)),
	}
}

// Write serializes s for runID. Both scripts are parsed before anything is
// saved, and all three files are complete when Write returns.
func (m *Marshaler) Write(runID string, s *Snapshot) (Files, error) {
	files := m.Paths(runID)

	contents := map[string]string{
		files.EnvFile:             EnvFileContents(s),
		files.MultilineScript:     MultilineScript(s),
		files.BashFunctionsScript: BashFunctionsScript(s),
	}

	for _, path := range []string{files.MultilineScript, files.BashFunctionsScript} {
		if err := verifyScript(path, contents[path]); err != nil {
			return files, err
		}
	}

	if err := m.fs.MkdirAll(m.dir, constants.DirPermissions); err != nil {
		return files, errors.FileWriteFailed(m.dir, err)
	}

	for _, path := range files.All() {
		if err := afero.WriteFile(m.fs, path, []byte(contents[path]), constants.FilePermissions); err != nil {
			return files, errors.FileWriteFailed(path, err)
		}
		logger.WithFields(logger.Fields{
			"path":  path,
			"bytes": len(contents[path]),
		}).Debug("Written environment file")
	}

	return files, nil
}

// Remove deletes the files of a run. Missing files are not an error.
func (m *Marshaler) Remove(files Files) error {
	var result *multierror.Error
	for _, path := range files.All() {
		if path == "" {
			continue
		}
		if err := m.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, errors.FileWriteFailed(path, err))
			continue
		}
		logger.WithField("path", path).Debug("Removed environment file")
	}
	return result.ErrorOrNil()
}

// EnvFileContents renders single-line variables in docker's env-file format
func EnvFileContents(s *Snapshot) string {
	var b strings.Builder
	for _, e := range s.Entries() {
		if e.Class != Oneline {
			continue
		}
		b.WriteString(e.Name)
		b.WriteString("=")
		b.WriteString(e.Value)
		b.WriteString("\n")
	}
	return b.String()
}

// MultilineScript renders multiline variables as quoted shell assignments
func MultilineScript(s *Snapshot) string {
	var b strings.Builder
	for _, e := range s.Entries() {
		if e.Class != Multiline {
			continue
		}
		if !validation.IsShellAssignable(e.Name) {
			logger.WithField("variable", e.Name).Warn("Skipping multiline variable: name cannot be assigned in a shell")
			continue
		}
		fmt.Fprintf(&b, "export %s=%s\n", e.Name, validation.ShellEscape(e.Value))
	}
	return b.String()
}

// BashFunctionsScript re-declares and re-exports every exported function.
// A function whose body does not parse is skipped so it cannot break the script.
func BashFunctionsScript(s *Snapshot) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	for _, e := range s.Entries() {
		if e.Class != BashFunction {
			continue
		}
		name := FunctionName(e.Name)
		decl := fmt.Sprintf("%s%s\nexport -f %s\n", name, e.Value, name)
		if err := checkBash(decl); err != nil {
			logger.WithFields(logger.Fields{
				"function": name,
			}).WithError(err).Warn("Skipping bash function that does not parse")
			continue
		}
		b.WriteString(decl)
	}
	return b.String()
}

// verifyScript rejects a generated script bash could not source
func verifyScript(path, src string) error {
	if err := checkBash(src); err != nil {
		return errors.InternalError(fmt.Sprintf("generated script %s does not parse", filepath.Base(path)), err)
	}
	return nil
}

func checkBash(src string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	_, err := parser.Parse(strings.NewReader(src), "")
	return err
}
