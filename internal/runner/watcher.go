package runner

import (
	"context"
	"syscall"
	"time"

	"boxrun/internal/config"
	"boxrun/internal/container"
	"boxrun/internal/logger"
)

// watcher polls the service containers while the default one runs and
// applies the exit behavior to any that stop by themselves
type watcher struct {
	driver   container.Driver
	handles  []*container.Handle
	primary  *container.Handle
	behavior string
	interval time.Duration

	// reported holds the containers already logged under ignore
	reported map[string]bool
}

func newWatcher(d container.Driver, handles []*container.Handle, primary *container.Handle, behavior string, interval time.Duration) *watcher {
	return &watcher{
		driver:   d,
		handles:  handles,
		primary:  primary,
		behavior: behavior,
		interval: interval,
		reported: make(map[string]bool),
	}
}

// run returns when ctx is done or once abort has stopped the default container
func (w *watcher) run(ctx context.Context) error {
	logger.Debugf("Start watching containers, exit behavior is: %s", w.behavior)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Stop watching containers")
			return nil
		case <-ticker.C:
			if w.poll(ctx) {
				return nil
			}
		}
	}
}

// poll checks every service container once; true means stop watching
func (w *watcher) poll(ctx context.Context) bool {
	containers, err := w.driver.ListNonDefault(ctx, w.handles)
	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err).Debug("Cannot list containers")
		}
		return false
	}

	for _, h := range containers {
		if ctx.Err() != nil {
			return true
		}
		status, err := w.driver.ContainerStatus(ctx, h)
		if err != nil || !stoppedByItself(status) {
			continue
		}

		switch w.behavior {
		case config.ExitBehaviorRestart:
			if err := w.driver.Restart(ctx, h); err != nil {
				logger.WithError(err).Warnf("Cannot start container: %s", h.Name)
			}
		case config.ExitBehaviorIgnore:
			if !w.reported[h.Name] {
				w.reported[h.Name] = true
				logger.Infof("Container: %s stopped by itself with exitcode: %d, ignoring", h.Name, status.ExitCode)
			}
		default:
			logger.Infof("Container: %s stopped by itself. Stopping the default container...", h.Name)
			if _, err := w.driver.ForwardSignal(ctx, w.primary, syscall.SIGTERM); err != nil {
				logger.WithError(err).Warn("Cannot stop the default container")
			}
			return true
		}
	}
	return false
}

// a container that was never started is "created", not stopped
func stoppedByItself(s container.Status) bool {
	return s.Exists && (s.State == "exited" || s.State == "dead")
}
