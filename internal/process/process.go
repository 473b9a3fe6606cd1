package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/chromenode/internal/logging"
)

// killedExitCode is reported when the process had to be force killed.
const killedExitCode = 137

// Spec describes a subprocess to start.
type Spec struct {
	Path   string
	Args   []string
	Env    []string  // nil inherits the supervisor's environment
	Stdout io.Writer // nil discards
	Stderr io.Writer // nil discards
}

// Process is a started subprocess running in its own process group.
// Exit is observed by a single background Wait.
type Process struct {
	path   string
	cmd    *exec.Cmd
	logger logging.Logger

	done     chan struct{}
	exitErr  error
	exitOnce sync.Once

	gracefulTimeout time.Duration // SIGINT grace before SIGKILL
	killTimeout     time.Duration // wait after SIGKILL before giving up
}

// Start launches spec. Stdin is attached to the null device.
func Start(spec Spec, logger logging.Logger) (*Process, error) {
	if spec.Path == "" {
		return nil, fmt.Errorf("empty executable path")
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Env = spec.Env
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Process{
		path:            spec.Path,
		cmd:             cmd,
		logger:          logger,
		done:            make(chan struct{}),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
	go p.wait()

	logger.Info("Process started", "pid", cmd.Process.Pid, "path", spec.Path)
	return p, nil
}

// SetStopTimeouts overrides the SIGINT grace period and the post-SIGKILL wait.
func (p *Process) SetStopTimeouts(graceful, kill time.Duration) {
	if graceful > 0 {
		p.gracefulTimeout = graceful
	}
	if kill > 0 {
		p.killTimeout = kill
	}
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.exitOnce.Do(func() {
		p.exitErr = err
		close(p.done)
	})
}

// PID returns the process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Path returns the executable the process was started from.
func (p *Process) Path() string {
	return p.path
}

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code, or -1 while the process is running.
func (p *Process) ExitCode() int {
	if !p.Exited() {
		return -1
	}
	return exitCodeFromError(p.exitErr)
}

// Kill sends SIGKILL to the process group without waiting. Helpers left in
// the group are killed even when the leader has already exited.
func (p *Process) Kill() {
	p.signal(syscall.SIGKILL)
}

// Stop sends SIGINT, force kills after the graceful timeout and waits for the
// process to be reaped. Returns the exit code. Cancelling ctx skips the
// graceful period. Whatever is left in the process group afterwards is
// killed.
func (p *Process) Stop(ctx context.Context) int {
	if p.Exited() {
		p.Kill()
		return p.ExitCode()
	}

	p.logger.Info("Sending SIGINT to process", "pid", p.PID())
	p.signal(syscall.SIGINT)

	select {
	case <-p.done:
		p.Kill()
		return p.ExitCode()
	case <-ctx.Done():
		p.logger.Warn("Stop cancelled, forcing kill", "pid", p.PID())
	case <-time.After(p.gracefulTimeout):
		p.logger.Warn("Graceful shutdown timeout, forcing kill", "pid", p.PID(), "timeout", p.gracefulTimeout)
	}

	p.Kill()
	select {
	case <-p.done:
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal", "pid", p.PID())
	}
	return killedExitCode
}

// signal delivers sig to the whole process group so helper processes the
// browser forked go down with it. The group outlives its leader, so it is
// signalled even after the leader exited; ESRCH means the group is empty.
func (p *Process) signal(sig syscall.Signal) {
	pid := p.PID()
	err := syscall.Kill(-pid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) || p.Exited() {
		return
	}
	if err := p.cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to signal process", "pid", pid, "signal", sig.String(), "error", err)
	}
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
