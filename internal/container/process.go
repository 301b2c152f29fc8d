package container

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// process is the backgrounded `docker run` or `compose run` of a run
type process struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu   sync.Mutex
	code int
	err  error
}

// startProcess starts cmd attached to stdio. When the run is not interactive
// the process gets its own group, so a terminal ^C reaches only boxrun, which
// forwards it to the container.
func startProcess(cmd *exec.Cmd, stdio Stdio, interactive bool) (*process, error) {
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr
	if !interactive {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if err := cmd.Start(); err != nil {
		_, err = exitStatus(err)
		return nil, err
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		code, err := exitStatus(cmd.Wait())
		p.mu.Lock()
		p.code, p.err = code, err
		p.mu.Unlock()
		close(p.done)
	}()
	return p, nil
}

// wait returns the exit code once the process is gone.
// A non-zero exit is the user's result, not an error.
func (p *process) wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return 1, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.err.(*exec.ExitError); ok {
		return p.code, nil
	}
	return p.code, p.err
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// interrupt sends SIGINT to the process, used while docker is still pulling
// and no container exists to signal
func (p *process) interrupt() error {
	if p.exited() {
		return nil
	}
	return p.cmd.Process.Signal(os.Interrupt)
}
