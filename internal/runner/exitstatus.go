package runner

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"boxrun/internal/container"
	"boxrun/internal/logger"
)

// Phase names a step of the run that reports an exit status
type Phase string

const (
	PhaseRun    Phase = "run command"
	PhaseClean  Phase = "cleaning"
	PhaseSignal Phase = "signals"
	PhasePull   Phase = "pull command"
)

// ExecutionResult holds the exit code of every phase that ran
type ExecutionResult struct {
	mu    sync.Mutex
	codes map[Phase]int

	startFailed bool
	startCode   int
}

// NewExecutionResult creates an empty result
func NewExecutionResult() *ExecutionResult {
	return &ExecutionResult{codes: make(map[Phase]int)}
}

// Record stores the exit code of a phase and logs it
func (r *ExecutionResult) Record(p Phase, code int) {
	r.mu.Lock()
	r.codes[p] = code
	r.mu.Unlock()
	logger.Infof("Exit status from %s: %d", p, code)
}

// RecordStartFailure marks the run as not started. code 0 is reported as 1.
func (r *ExecutionResult) RecordStartFailure(code int) {
	if code == 0 {
		code = 1
	}
	r.mu.Lock()
	r.startFailed = true
	r.startCode = code
	r.mu.Unlock()
	r.Record(PhaseRun, code)
}

// Code returns the exit code of p and whether p ran
func (r *ExecutionResult) Code(p Phase) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[p]
	return code, ok
}

// StartFailed reports whether the run could not start
func (r *ExecutionResult) StartFailed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startFailed
}

// ComposeExit returns the single code the process exits with. A failed
// start wins, then a pull, then the run command. Cleanup and signal codes
// never change it.
func ComposeExit(r *ExecutionResult) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.startFailed {
		return r.startCode
	}
	if code, ok := r.codes[PhasePull]; ok {
		return code
	}
	if code, ok := r.codes[PhaseRun]; ok {
		return code
	}
	return 1
}

// phaseCode extracts the tool's exit code from a phase error, 1 when it has none
func phaseCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	var ce *container.ContainerError
	if errors.As(err, &ce) && ce.Type == container.ErrorTypeRuntimeNotFound {
		return 127
	}
	return 1
}

// interruptCode is the shell convention for a process ended by sig
func interruptCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 130
}
