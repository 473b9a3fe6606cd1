package launcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/smazurov/chromenode/internal/devtools"
	"github.com/smazurov/chromenode/internal/logging"
	"github.com/smazurov/chromenode/internal/supervisor"
)

var (
	// ErrNotRunning is returned when no browser has been launched.
	ErrNotRunning = errors.New("browser not running")
	// ErrStopped is returned by a launch that Stop interrupted.
	ErrStopped = errors.New("runner stopped")
)

// Runner owns the supervisor of a long-running service and replaces it when
// the configuration changes.
type Runner struct {
	// launchMu serializes Start and Relaunch. Stop never takes it so that
	// shutdown can interrupt a launch still waiting for readiness.
	launchMu sync.Mutex

	mu           sync.RWMutex
	mode         Mode
	cfg          supervisor.Config
	opts         supervisor.Options
	current      *supervisor.Supervisor
	cancelLaunch context.CancelFunc
	stopped      bool

	onFailure func(err error)
	logger    logging.Logger
}

// NewRunner creates a runner. onFailure, if set, is called when the current
// supervisor terminates on its own with an error.
func NewRunner(mode Mode, cfg supervisor.Config, opts supervisor.Options, onFailure func(err error)) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		mode:      mode,
		cfg:       cfg,
		opts:      opts,
		onFailure: onFailure,
		logger:    logger,
	}
}

// Start launches the browser and waits until it is ready.
func (r *Runner) Start(ctx context.Context) error {
	r.launchMu.Lock()
	defer r.launchMu.Unlock()

	r.mu.Lock()
	r.stopped = false
	mode, cfg := r.mode, r.cfg
	r.mu.Unlock()
	return r.launch(ctx, mode, cfg)
}

// Relaunch stops the current browser and starts a new one with mode and cfg.
func (r *Runner) Relaunch(ctx context.Context, mode Mode, cfg supervisor.Config) error {
	r.launchMu.Lock()
	defer r.launchMu.Unlock()

	r.logger.Info("Relaunching browser", "mode", mode, "port", cfg.Port)
	if err := r.stop(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.mode, r.cfg = mode, cfg
	r.mu.Unlock()
	return r.launch(ctx, mode, cfg)
}

// Restart relaunches with the current settings.
func (r *Runner) Restart(ctx context.Context) error {
	r.mu.RLock()
	mode, cfg := r.mode, r.cfg
	r.mu.RUnlock()
	return r.Relaunch(ctx, mode, cfg)
}

// Stop kills the current browser, including one still starting, and keeps
// Relaunch from bringing a new one up until the next Start.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	if r.cancelLaunch != nil {
		r.cancelLaunch()
	}
	r.mu.Unlock()
	return r.stop(ctx)
}

// Current returns the live supervisor, or nil before Start.
func (r *Runner) Current() *supervisor.Supervisor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Mode returns the active launch mode.
func (r *Runner) Mode() Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// Targets lists the page targets of the current browser.
func (r *Runner) Targets(ctx context.Context) ([]devtools.Target, error) {
	sup := r.Current()
	if sup == nil {
		return nil, ErrNotRunning
	}
	cfg := sup.Config()
	return devtools.New(cfg.Host, cfg.Port, r.logger).Targets(ctx)
}

func (r *Runner) launch(ctx context.Context, mode Mode, cfg supervisor.Config) error {
	sup, err := supervisor.New(mode.Apply(cfg), r.opts)
	if err != nil {
		return err
	}

	launchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrStopped
	}
	r.current = sup
	r.cancelLaunch = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.cancelLaunch = nil
		r.mu.Unlock()
	}()

	if err := sup.Launch(launchCtx); err != nil {
		if ctx.Err() == nil && launchCtx.Err() != nil {
			return ErrStopped
		}
		return err
	}
	go r.watch(sup)
	return nil
}

func (r *Runner) stop(ctx context.Context) error {
	r.mu.Lock()
	sup := r.current
	r.current = nil
	r.mu.Unlock()

	if sup == nil {
		return nil
	}
	return sup.Kill(ctx)
}

// watch reports a supervisor that gave up while still current.
func (r *Runner) watch(sup *supervisor.Supervisor) {
	<-sup.Terminated()
	err := sup.Err()
	if err == nil || r.Current() != sup {
		return
	}
	r.logger.Error("Browser supervisor terminated", "error", err)
	if r.onFailure != nil {
		r.onFailure(err)
	}
}
