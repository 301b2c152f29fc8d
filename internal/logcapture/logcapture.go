// Package logcapture collects the logs of the service containers of a run
// before cleanup removes them.
package logcapture

import (
	"context"
	"fmt"
	"path/filepath"

	"boxrun/internal/config"
	"boxrun/internal/constants"
	"boxrun/internal/container"
	"boxrun/internal/errors"
	"boxrun/internal/logger"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// Source is the part of a driver logs are captured from
type Source interface {
	ListNonDefault(ctx context.Context, handles []*container.Handle) ([]*container.Handle, error)
	ContainerStatus(ctx context.Context, h *container.Handle) (container.Status, error)
	FetchLogs(ctx context.Context, h *container.Handle) (stdout, stderr string, err error)
}

// Record is one container's logs as captured after the run
type Record struct {
	Handle    *container.Handle
	Iteration int
	Stdout    string
	Stderr    string
	Status    container.Status
	// Path is set when the logs went to a file
	Path string
}

// Failed reports whether the container did not end cleanly
func (r Record) Failed() bool {
	return r.Status.ExitCode != 0
}

// Aggregator decides which logs to show and where
type Aggregator struct {
	policy string
	target string
	fs     afero.Fs
	dir    string
	runID  string
}

// New creates an aggregator for the run. Log files are written to dir.
func New(fs afero.Fs, cfg *config.RunConfig, dir, runID string) *Aggregator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Aggregator{
		policy: cfg.PrintLogs,
		target: cfg.PrintLogsTarget,
		fs:     fs,
		dir:    dir,
		runID:  runID,
	}
}

// Describe renders a container status for the log header
func Describe(s container.Status) string {
	switch s.State {
	case "running":
		return "which status is: running"
	case "exited":
		return fmt.Sprintf("which exited with exitcode: %d", s.ExitCode)
	default:
		return fmt.Sprintf("which status is: %s, exitcode: %d", s.State, s.ExitCode)
	}
}

// FileName is where a container's logs are saved with the file target
func FileName(containerName, runID string) string {
	return fmt.Sprintf("%s-logs-%s-%s.txt", constants.ProjectName, containerName, runID)
}

// Capture inspects every service container of the run and emits its logs
// subject to the print-logs policy. defaultFailed tells whether the user
// command exited non-zero. The emitted records are returned; a container that
// cannot be inspected is skipped and reported in the error.
func (a *Aggregator) Capture(ctx context.Context, src Source, handles []*container.Handle, defaultFailed bool) ([]Record, error) {
	if a.policy == config.PrintLogsNever {
		logger.Debug("Not printing logs, because print_logs is never")
		return nil, nil
	}

	logger.Debug("Collecting information from non default containers")
	containers, err := src.ListNonDefault(ctx, handles)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDriverInvocation, "Cannot list containers", err)
	}

	var result *multierror.Error
	records := make([]Record, 0, len(containers))
	for i, h := range containers {
		status, err := src.ContainerStatus(ctx, h)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		records = append(records, Record{Handle: h, Iteration: i + 1, Status: status})
	}

	failed := defaultFailed
	for _, r := range records {
		if r.Failed() {
			failed = true
		}
	}

	if a.policy != config.PrintLogsAlways && !failed {
		logger.Debug("Not printing logs, the run succeeded")
		return nil, result.ErrorOrNil()
	}

	logger.Debug("Getting non default containers logs")
	for i := range records {
		r := &records[i]
		stdout, stderr, err := src.FetchLogs(ctx, r.Handle)
		if err != nil {
			logger.WithError(err).Debugf("Problem with getting logs from: %s", r.Handle.Name)
		}
		r.Stdout, r.Stderr = stdout, stderr

		if err := a.emit(r); err != nil {
			result = multierror.Append(result, err)
		}
	}
	logger.Debugf("Got logs from %d containers", len(records))

	return records, result.ErrorOrNil()
}

func (a *Aggregator) emit(r *Record) error {
	msg := Describe(r.Status)
	if a.target == config.PrintLogsTargetFile {
		path := filepath.Join(a.dir, FileName(r.Handle.Name, a.runID))
		if err := afero.WriteFile(a.fs, path, []byte(r.Stdout+r.Stderr), constants.FilePermissions); err != nil {
			return errors.FileWriteFailed(path, err)
		}
		r.Path = path
		logger.Infof("The logs of container: %s, %s, were saved to file: %s", r.Handle.Name, msg, path)
		return nil
	}

	logger.Infof("Here are logs of container: %s, %s:\n%s%s", r.Handle.Name, msg, r.Stdout, r.Stderr)
	return nil
}
