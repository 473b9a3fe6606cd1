package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/chromenode/internal/events"
	"github.com/smazurov/chromenode/internal/locator"
	"github.com/smazurov/chromenode/internal/logging"
	"github.com/smazurov/chromenode/internal/probe"
	"github.com/smazurov/chromenode/internal/process"
	"github.com/smazurov/chromenode/internal/workspace"
)

// Locator supplies ranked installation candidates.
type Locator interface {
	Locate(ctx context.Context) (*locator.Ranked, error)
}

// Options carries the supervisor's collaborators. Every field is optional.
type Options struct {
	// Locator defaults to installation discovery honoring Config.ExecutablePath.
	Locator Locator

	// Prober defaults to a TCP dial bounded by Config.ProbeTimeout.
	Prober probe.Prober

	// Workspaces defaults to a manager rooted at Config.WorkspaceBase.
	Workspaces *workspace.Manager

	// Bus receives browser and state change events. Nil disables publishing.
	Bus *events.Bus

	// Logger for supervisor operations. If nil, uses slog.Default().
	Logger logging.Logger
}

// Info is a point-in-time view of a supervisor.
type Info struct {
	State      State     `json:"state"`
	PID        int       `json:"pid,omitempty"`
	Executable string    `json:"executable,omitempty"`
	Port       int       `json:"port"`
	Workspace  string    `json:"workspace,omitempty"`
	Restarts   int       `json:"restarts"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	LastError  string    `json:"last_error,omitempty"`
}

// Supervisor keeps one browser process alive on a debugging port.
type Supervisor struct {
	cfg        Config
	locator    Locator
	prober     probe.Prober
	workspaces *workspace.Manager
	bus        *events.Bus
	logger     logging.Logger

	// mu serializes every state transition: Launch, tick outcomes and Kill.
	mu         sync.Mutex
	state      State
	stopping   bool
	ranked     *locator.Ranked
	proc       *process.Process
	ws         *workspace.Workspace
	executable string
	restarts   int
	spawnedAt  time.Time
	startedAt  time.Time
	lastErr    error
	pending    chan error
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	term       chan struct{}
}

// New creates an idle supervisor. cfg is copied.
func New(cfg Config, opts Options) (*Supervisor, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Supervisor{
		cfg:        cfg,
		locator:    opts.Locator,
		prober:     opts.Prober,
		workspaces: opts.Workspaces,
		bus:        opts.Bus,
		logger:     opts.Logger,
		state:      StateIdle,
		term:       make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.locator == nil {
		s.locator = locator.New(locator.Options{ExecutablePath: cfg.ExecutablePath, Logger: s.logger})
	}
	if s.prober == nil {
		s.prober = probe.Dialer{Timeout: cfg.ProbeTimeout}
	}
	if s.workspaces == nil {
		s.workspaces = workspace.NewManager(cfg.WorkspaceBase, s.logger)
	}
	return s, nil
}

// Config returns the configuration the supervisor was built with.
func (s *Supervisor) Config() Config {
	cfg := s.cfg
	cfg.Flags = append([]string(nil), s.cfg.Flags...)
	return cfg
}

// Launch spawns the browser and blocks until the first successful probe, a
// terminal error, or ctx cancellation. A cancelled ctx kills the supervisor.
func (s *Supervisor) Launch(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state == StateTerminated || s.stopping:
		s.mu.Unlock()
		return ErrTerminated
	case s.state != StateIdle:
		s.mu.Unlock()
		return ErrAlreadyLaunched
	case ctx.Err() != nil:
		// A caller that gave up before the launch must not leave a browser behind.
		s.mu.Unlock()
		return ctx.Err()
	}

	s.setState(StateSpawning)
	s.startedAt = time.Now()

	ranked, err := s.locator.Locate(ctx)
	if err != nil {
		s.failLocked(err)
		s.mu.Unlock()
		return err
	}
	s.ranked = ranked

	if err := s.spawnLocked(); err != nil {
		s.failLocked(err)
		s.mu.Unlock()
		return err
	}

	result := make(chan error, 1)
	s.pending = result
	s.startLoopLocked()
	s.mu.Unlock()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		s.logger.Warn("Launch cancelled, tearing down browser", "error", ctx.Err())
		_ = s.Kill(context.WithoutCancel(ctx))
		return ctx.Err()
	}
}

// Kill stops the monitor loop, then the browser, then removes the workspace.
// It is a no-op on idle or terminated supervisors. Concurrent callers wait
// for the first one to finish.
func (s *Supervisor) Kill(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateTerminated {
		s.mu.Unlock()
		return nil
	}
	if s.stopping {
		term := s.term
		s.mu.Unlock()
		select {
		case <-term:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.stopping = true
	if s.loopCancel != nil {
		s.loopCancel()
	}
	loopDone := s.loopDone
	s.mu.Unlock()

	// The loop must be gone before the process is signalled, otherwise a
	// restart could bring it back.
	if loopDone != nil {
		<-loopDone
	}

	s.mu.Lock()
	if s.state == StateTerminated {
		// The last tick already failed and tore down.
		s.mu.Unlock()
		return nil
	}
	proc := s.proc
	s.proc = nil
	s.mu.Unlock()

	if proc != nil {
		code := proc.Stop(ctx)
		s.logger.Info("Browser stopped", "pid", proc.PID(), "exit_code", code)
	}
	s.workspaces.Destroy()

	s.mu.Lock()
	s.ws = nil
	s.setState(StateTerminated)
	s.resolveLocked(ErrTerminated)
	s.publishLocked(events.KindTerminated, nil)
	s.mu.Unlock()
	return nil
}

// Terminated is closed once the supervisor reaches the terminated state.
func (s *Supervisor) Terminated() <-chan struct{} {
	return s.term
}

// Err returns the terminal error, if the supervisor stopped on one.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the browser pid, or 0 when no process is running.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.PID()
}

// Port returns the remote debugging port.
func (s *Supervisor) Port() int {
	return s.cfg.Port
}

// Workspace returns the workspace root, or "" when none exists.
func (s *Supervisor) Workspace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return ""
	}
	return s.ws.Root
}

// Alive probes the debugging port once.
func (s *Supervisor) Alive(ctx context.Context) bool {
	return s.prober.Check(ctx, s.cfg.Host, s.cfg.Port)
}

// Info returns a snapshot of the supervisor.
func (s *Supervisor) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		State:      s.state,
		Executable: s.executable,
		Port:       s.cfg.Port,
		Restarts:   s.restarts,
		StartedAt:  s.startedAt,
	}
	if s.proc != nil {
		info.PID = s.proc.PID()
	}
	if s.ws != nil {
		info.Workspace = s.ws.Root
	}
	if s.lastErr != nil {
		info.LastError = s.lastErr.Error()
	}
	return info
}

// spawnLocked starts the next candidate. Candidates the OS refuses to start
// are skipped; the last refusal is returned once the list is exhausted.
func (s *Supervisor) spawnLocked() error {
	ws, err := s.workspaces.Create()
	if err != nil {
		return fmt.Errorf("prepare workspace: %w", err)
	}
	s.ws = ws

	var spawnErr error
	for {
		candidate, err := s.ranked.Next()
		if err != nil {
			if spawnErr != nil {
				return spawnErr
			}
			return err
		}

		proc, err := process.Start(process.Spec{
			Path:   candidate.Path,
			Args:   s.cfg.Args(ws.Root),
			Stdout: ws.Stdout,
			Stderr: ws.Stderr,
		}, s.logger)
		if err != nil {
			spawnErr = &SpawnError{Path: candidate.Path, Err: err}
			s.logger.Warn("Failed to spawn browser", "path", candidate.Path, "weight", candidate.Weight, "error", err)
			continue
		}
		proc.SetStopTimeouts(s.cfg.StopTimeout, s.cfg.StopTimeout)

		if err := ws.WritePID(proc.PID()); err != nil {
			s.logger.Warn("Failed to record browser pid", "pid", proc.PID(), "error", err)
		}

		s.proc = proc
		s.executable = candidate.Path
		s.spawnedAt = time.Now()
		s.setState(StateAwaitingReady)
		s.logger.Info("Browser spawned",
			"pid", proc.PID(),
			"path", candidate.Path,
			"port", s.cfg.Port,
			"workspace", ws.Root,
			"remaining_candidates", s.ranked.Remaining())
		return nil
	}
}

func (s *Supervisor) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.loopCancel = cancel
	s.loopDone = make(chan struct{})
	go s.monitor(ctx, s.loopDone)
}

// monitor probes once per interval. The ticker is reset after every tick, so
// a tick that overruns the interval delays the next one instead of queueing.
func (s *Supervisor) monitor(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		alive := s.prober.Check(ctx, s.cfg.Host, s.cfg.Port)
		if !s.tick(ctx, alive) {
			return
		}
		ticker.Reset(s.cfg.PollInterval)
	}
}

// tick applies one probe result. It returns false when the loop must stop.
func (s *Supervisor) tick(ctx context.Context, alive bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Kill may have cancelled the loop while the probe was in flight.
	if ctx.Err() != nil {
		return false
	}

	switch s.state {
	case StateAwaitingReady:
		if alive {
			s.setState(StateMonitoring)
			s.logger.Info("Browser ready", "pid", s.proc.PID(), "port", s.cfg.Port)
			s.publishLocked(events.KindReady, nil)
			s.resolveLocked(nil)
			return true
		}
		if !s.proc.Exited() && time.Since(s.spawnedAt) < s.cfg.StartTimeout {
			return true
		}
	case StateMonitoring:
		if alive {
			return true
		}
	default:
		return true
	}

	return s.restartLocked()
}

// restartLocked replaces a dead browser with the next candidate, reusing the
// workspace. On exhaustion the supervisor terminates.
func (s *Supervisor) restartLocked() bool {
	old := s.proc
	s.logger.Warn("Browser not reachable, restarting",
		"pid", old.PID(),
		"exited", old.Exited(),
		"port", s.cfg.Port)
	s.publishLocked(events.KindDied, nil)
	s.setState(StateRestarting)

	old.Kill()
	select {
	case <-old.Done():
	case <-time.After(s.cfg.StopTimeout):
		s.logger.Error("Dead browser did not exit after kill", "pid", old.PID())
	}
	s.proc = nil

	s.setState(StateSpawning)
	if err := s.spawnLocked(); err != nil {
		err = fmt.Errorf("%w: %w", ErrRestartExhausted, err)
		s.logger.Error("Browser restart failed", "error", err)
		s.loopCancel()
		s.failLocked(err)
		return false
	}

	s.restarts++
	s.publishLocked(events.KindRestarted, nil)
	return true
}

// failLocked tears down after a terminal error. The process, if any, must
// already be stopped.
func (s *Supervisor) failLocked(err error) {
	s.lastErr = err
	s.workspaces.Destroy()
	s.ws = nil
	s.setState(StateTerminated)
	s.resolveLocked(err)
	s.publishLocked(events.KindTerminated, err)
}

// resolveLocked completes the pending Launch, at most once.
func (s *Supervisor) resolveLocked(err error) {
	if s.pending == nil {
		return
	}
	s.pending <- err
	s.pending = nil
}

func (s *Supervisor) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.logger.Debug("Supervisor state changed", "from", from, "to", to)
	if to == StateTerminated {
		close(s.term)
	}
	if s.bus != nil {
		s.bus.Publish(events.BrowserStateChangedEvent{
			From:      string(from),
			To:        string(to),
			Timestamp: timestamp(),
		})
	}
}

func (s *Supervisor) publishLocked(kind events.BrowserEventKind, err error) {
	if s.bus == nil {
		return
	}
	ev := events.BrowserEvent{
		Kind:       kind,
		Executable: s.executable,
		Port:       s.cfg.Port,
		Restarts:   s.restarts,
		Timestamp:  timestamp(),
	}
	if s.proc != nil {
		ev.PID = s.proc.PID()
	}
	if s.ws != nil {
		ev.Workspace = s.ws.Root
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(ev)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
