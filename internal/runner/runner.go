// Package runner drives one run through its lifecycle: prepare, start, run,
// clean up and report a single exit code.
package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"boxrun/internal/config"
	"boxrun/internal/constants"
	"boxrun/internal/container"
	"boxrun/internal/environment"
	"boxrun/internal/errors"
	"boxrun/internal/logcapture"
	"boxrun/internal/logger"
	"boxrun/internal/runid"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// DriverFactory builds the driver of a run from options the runner fills in
type DriverFactory func(ctx context.Context, opts container.Options) (container.Driver, error)

// Options configures a Runner
type Options struct {
	Config     *config.RunConfig
	CurrentDir string
	// Env is the host environment, captured once
	Env *environment.Snapshot
	Fs  afero.Fs
	// NewDriver defaults to container.NewDriver
	NewDriver DriverFactory
	IDs       *runid.Generator
	// WatchInterval defaults to one second
	WatchInterval time.Duration
	// Notify and StopNotify default to signal.Notify and signal.Stop
	Notify     func(c chan<- os.Signal, sig ...os.Signal)
	StopNotify func(c chan<- os.Signal)
}

// Runner runs one invocation. It is not reusable.
type Runner struct {
	opts Options

	mu    sync.Mutex
	state State
	runID string

	result      *ExecutionResult
	cleanupOnce sync.Once

	// set once the primary process runs, for signal forwarding
	driver  container.Driver
	primary *container.Handle
	// interrupt is the first signal caught before the primary process ran
	interrupt   os.Signal
	forwarded   int
	signalled   bool
	signalCode  int
	signalErr   error
	stopSignals func()
}

// New creates a runner
func New(opts Options) *Runner {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.NewDriver == nil {
		opts.NewDriver = container.NewDriver
	}
	if opts.IDs == nil {
		opts.IDs = runid.NewGenerator()
	}
	if opts.Env == nil {
		opts.Env = environment.Capture(os.Environ())
	}
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = constants.DefaultWatchInterval
	}
	if opts.Notify == nil {
		opts.Notify = signal.Notify
	}
	if opts.StopNotify == nil {
		opts.StopNotify = signal.Stop
	}
	return &Runner{opts: opts, result: NewExecutionResult()}
}

// State returns the current lifecycle state
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// RunID returns the identifier of the run, empty before Run prepares it
func (r *Runner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// Result returns the per-phase exit codes
func (r *Runner) Result() *ExecutionResult {
	return r.result
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	if r.state == s {
		r.mu.Unlock()
		return
	}
	r.state = s
	r.mu.Unlock()
	logger.WithField("state", s.String()).Debug("Run state changed")
}

// Run executes the run and returns the exit code the process should exit with.
// Termination signals are handled from the start of Run until it returns, and
// cleanup runs whatever happened before it.
func (r *Runner) Run(ctx context.Context) int {
	cfg := r.opts.Config

	// startCtx bounds the work before the primary process runs; a signal cancels it
	startCtx, cancelStart := context.WithCancel(ctx)
	defer cancelStart()
	r.stopSignals = r.handleSignals(ctx, cancelStart)

	r.setState(StatePreparing)
	runID := r.opts.IDs.New(r.opts.CurrentDir, cfg.Test)
	r.mu.Lock()
	r.runID = runID
	r.mu.Unlock()
	logger.WithFields(logger.Fields{
		"run_id": runID,
		"driver": cfg.Driver,
		"action": cfg.Action,
	}).Debug("Prepared run")

	mounts, warnings := container.ResolveMounts(r.opts.Fs, cfg, r.opts.CurrentDir)
	for _, w := range warnings {
		logger.Warn(w.Error())
	}

	marshaler := environment.NewMarshaler(r.opts.Fs, "", cfg.Test)
	driver, err := r.opts.NewDriver(startCtx, container.Options{
		Config:     cfg,
		RunID:      runID,
		CurrentDir: r.opts.CurrentDir,
		Mounts:     mounts,
		Env:        r.opts.Env,
		Fs:         r.opts.Fs,
		Marshaler:  marshaler,
	})
	if err != nil {
		logger.WithError(err).Error("Cannot create the driver")
		r.result.RecordStartFailure(r.startCode(err))
		return r.finish()
	}

	if cfg.Action == config.ActionPull {
		r.pull(startCtx, driver)
		return r.finish()
	}

	r.setState(StateStarting)
	env := environment.Filter(r.opts.Env, environment.ParseBlacklist(cfg.Blacklist))
	files, err := marshaler.Write(runID, env)
	if err != nil {
		logger.WithError(errors.DriverInvocationFailed("create", err)).Error("Cannot save the environment")
	}
	if err != nil || r.interrupted() {
		if err == nil {
			logger.Info("Interrupted before the containers were created")
		}
		r.result.RecordStartFailure(r.startCode(nil))
		if rmErr := marshaler.Remove(files); rmErr != nil {
			logger.WithError(rmErr).Warn("Cannot remove environment files")
		}
		return r.finish()
	}

	handles, err := driver.Create(startCtx, files)
	if err != nil {
		logger.WithError(errors.DriverInvocationFailed("create", err)).Error("Cannot create containers")
		r.result.RecordStartFailure(r.startCode(err))
		r.cleanup(ctx, driver, handles)
		return r.finish()
	}
	if r.interrupted() {
		logger.Info("Interrupted before the run command started")
		r.result.RecordStartFailure(r.startCode(nil))
		r.cleanup(ctx, driver, handles)
		return r.finish()
	}

	// the primary process outlives startCtx, so it gets ctx
	primary, err := driver.Start(ctx, handles)
	if err != nil {
		container.LogContainerError(errors.DriverInvocationFailed("start", err), "start")
		r.result.RecordStartFailure(r.startCode(err))
		r.cleanup(ctx, driver, handles)
		return r.finish()
	}

	r.running(ctx, driver, primary)
	runCode := r.supervise(ctx, driver, handles, primary)
	r.result.Record(PhaseRun, runCode)
	if runCode != 0 {
		logger.WithError(errors.RunCommandFailed(runCode)).Debug("Run command did not succeed")
	}

	r.setState(StateCleaning)
	aggregator := logcapture.New(r.opts.Fs, cfg, r.opts.CurrentDir, runID)
	if _, err := aggregator.Capture(context.WithoutCancel(ctx), driver, handles, runCode != 0); err != nil {
		logger.WithError(err).Warn("Cannot capture all container logs")
	}

	r.cleanup(ctx, driver, handles)
	return r.finish()
}

func (r *Runner) pull(ctx context.Context, driver container.Driver) {
	r.setState(StateStarting)
	code, err := driver.Pull(ctx)
	if err != nil {
		container.LogContainerError(errors.DriverInvocationFailed("pull", err), "pull")
		if code == 0 {
			code = phaseCode(err)
		}
	}
	if code != 0 && r.interrupted() {
		code = r.startCode(err)
	}
	r.result.Record(PhasePull, code)
	r.setState(StateCleaning)
	logger.Debug("Nothing to clean after a pull")
}

// running marks the primary process as started. A signal caught while it was
// starting is forwarded now.
func (r *Runner) running(ctx context.Context, driver container.Driver, primary *container.Handle) {
	r.mu.Lock()
	r.driver = driver
	r.primary = primary
	r.state = StateRunning
	pending := r.interrupt
	r.mu.Unlock()
	logger.WithField("state", StateRunning.String()).Debug("Run state changed")

	if pending != nil {
		r.forward(context.WithoutCancel(ctx), pending)
	}
}

// supervise waits for the primary process while the watcher polls. It
// returns once both have finished.
func (r *Runner) supervise(ctx context.Context, driver container.Driver, handles []*container.Handle, primary *container.Handle) int {
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	g, gctx := errgroup.WithContext(runCtx)

	var (
		runCode int
		waitErr error
	)
	g.Go(func() error {
		defer stopRun()
		runCode, waitErr = driver.Wait(ctx, primary)
		return nil
	})
	w := newWatcher(driver, handles, primary, r.opts.Config.ExitBehavior, r.opts.WatchInterval)
	g.Go(func() error {
		return w.run(gctx)
	})

	_ = g.Wait()
	if waitErr != nil {
		logger.WithError(waitErr).Error("Waiting for the run command failed")
	}
	return runCode
}

// handleSignals routes SIGINT and SIGTERM until the returned stop func is called
func (r *Runner) handleSignals(ctx context.Context, cancelStart context.CancelFunc) func() {
	sigCh := make(chan os.Signal, 4)
	r.opts.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// signals are sent with a context that outlives the run
	sctx := context.WithoutCancel(ctx)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case sig := <-sigCh:
				r.onSignal(sctx, sig, cancelStart)
			case <-done:
				return
			}
		}
	}()

	return func() {
		r.opts.StopNotify(sigCh)
		close(done)
		wg.Wait()
	}
}

func (r *Runner) onSignal(ctx context.Context, sig os.Signal, cancelStart context.CancelFunc) {
	r.mu.Lock()
	r.signalled = true
	state := r.state
	if state == StateIdle || state == StatePreparing || state == StateStarting {
		if r.interrupt == nil {
			r.interrupt = sig
		}
		r.mu.Unlock()
		logger.Infof("Caught signal: %s before the run command started, cleaning up", sig)
		cancelStart()
		return
	}
	r.mu.Unlock()

	if state == StateRunning {
		r.forward(ctx, sig)
		return
	}
	logger.Infof("Caught signal: %s, cleanup is already in progress", sig)
}

// forward stops the primary process on the first signal and kills it on the second
func (r *Runner) forward(ctx context.Context, sig os.Signal) {
	r.mu.Lock()
	r.forwarded++
	n := r.forwarded
	driver, primary := r.driver, r.primary
	r.mu.Unlock()

	switch n {
	case 1:
		logger.Infof("Caught signal: %s, forwarding it", sig)
		code, err := driver.ForwardSignal(ctx, primary, sig)
		r.mu.Lock()
		r.signalCode, r.signalErr = code, err
		r.mu.Unlock()
	case 2:
		logger.Infof("Caught signal: %s again, killing containers", sig)
		code, err := driver.Kill(ctx, primary)
		r.mu.Lock()
		if code != 0 {
			r.signalCode = code
		}
		if err != nil {
			r.signalErr = err
		}
		r.mu.Unlock()
	default:
		logger.Infof("Caught signal: %s, containers are already being killed", sig)
	}
}

func (r *Runner) interrupted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interrupt != nil
}

// startCode is the code of a run that never got its primary process running
func (r *Runner) startCode(err error) int {
	r.mu.Lock()
	sig := r.interrupt
	r.mu.Unlock()
	if sig != nil {
		return interruptCode(sig)
	}
	return phaseCode(err)
}

// cleanup runs the driver's cleanup at most once per run. It is never
// cancelled by ctx.
func (r *Runner) cleanup(ctx context.Context, driver container.Driver, handles []*container.Handle) {
	r.cleanupOnce.Do(func() {
		r.setState(StateCleaning)
		code, err := driver.Cleanup(context.WithoutCancel(ctx), handles)
		if err != nil {
			logger.WithError(errors.CleanupFailed(r.RunID(), err)).Error("Cleanup failed")
			if code == 0 {
				code = 1
			}
		}
		r.result.Record(PhaseClean, code)
	})
}

func (r *Runner) finish() int {
	if r.stopSignals != nil {
		r.stopSignals()
	}

	r.mu.Lock()
	signalled, code, err := r.signalled, r.signalCode, r.signalErr
	r.mu.Unlock()
	if signalled {
		r.setState(StateSignalHandling)
		if err != nil {
			logger.WithError(errors.SignalForwardingFailed("termination", err)).Error("Signal forwarding failed")
		}
		r.result.Record(PhaseSignal, code)
	}

	exit := ComposeExit(r.result)
	r.setState(StateDone)
	logger.Debugf("Exit status: %d", exit)
	return exit
}
