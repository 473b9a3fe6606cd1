// Package shutdown runs registered teardown hooks in order before the host
// process exits.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/smazurov/chromenode/internal/logging"
)

// Hook tears down one resource.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Hooks is an ordered teardown list. It runs at most once.
type Hooks struct {
	mu     sync.Mutex
	hooks  []namedHook
	ran    bool
	done   chan struct{}
	err    error
	logger logging.Logger
}

// New creates an empty hook list.
func New(logger logging.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{done: make(chan struct{}), logger: logger}
}

// Register appends fn. Hooks registered after Run started are ignored.
func (h *Hooks) Register(name string, fn Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ran {
		h.logger.Warn("Shutdown hook registered after shutdown started", "hook", name)
		return
	}
	h.hooks = append(h.hooks, namedHook{name: name, fn: fn})
}

// Run calls every hook in registration order and returns their joined
// errors. A failing hook does not stop later ones. Calls after the first
// wait for it and return the same result.
func (h *Hooks) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.ran {
		h.mu.Unlock()
		select {
		case <-h.done:
			return h.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.ran = true
	hooks := h.hooks
	h.mu.Unlock()

	var errs []error
	for _, hook := range hooks {
		h.logger.Debug("Running shutdown hook", "hook", hook.name)
		if err := hook.fn(ctx); err != nil {
			h.logger.Error("Shutdown hook failed", "hook", hook.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
		}
	}

	h.err = errors.Join(errs...)
	close(h.done)
	return h.err
}

// Done is closed after Run has finished.
func (h *Hooks) Done() <-chan struct{} {
	return h.done
}

// OnSignal runs the hooks when the process receives SIGINT or SIGTERM, then
// calls exit with status 0, or 1 if any hook failed. The returned function
// stops listening.
func (h *Hooks) OnSignal(ctx context.Context, exit func(code int)) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	quit := make(chan struct{})
	go func() {
		select {
		case sig := <-sigs:
			h.logger.Info("Received signal, shutting down", "signal", sig.String())
			code := 0
			if err := h.Run(ctx); err != nil {
				code = 1
			}
			exit(code)
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(quit)
		})
	}
}
