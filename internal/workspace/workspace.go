package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/chromenode/internal/logging"
)

// File names inside a workspace.
const (
	StdoutFile = "chrome-out.log"
	StderrFile = "chrome-err.log"
	PIDFile    = "chrome.pid"
)

// Workspace is a per-launch directory holding the browser profile, its log
// output and the pid record.
type Workspace struct {
	Root   string
	Stdout *os.File
	Stderr *os.File
	pid    *os.File
}

// WritePID replaces the pid record with pid in decimal.
func (w *Workspace) WritePID(pid int) error {
	if err := w.pid.Truncate(0); err != nil {
		return fmt.Errorf("truncate pid file: %w", err)
	}
	if _, err := w.pid.WriteAt([]byte(strconv.Itoa(pid)), 0); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// Manager owns at most one workspace at a time.
type Manager struct {
	mu      sync.Mutex
	base    string
	now     func() time.Time
	current *Workspace
	logger  logging.Logger
}

// NewManager creates a manager that allocates workspaces under base.
// An empty base means os.TempDir().
func NewManager(base string, logger logging.Logger) *Manager {
	if base == "" {
		base = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{base: base, now: time.Now, logger: logger}
}

// Create returns the current workspace, allocating one if none exists.
func (m *Manager) Create() (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.current, nil
	}

	root := filepath.Join(m.base, dirName(m.now(), uuid.NewString()))
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	ws := &Workspace{Root: root}
	var err error
	if ws.Stdout, err = openAppend(filepath.Join(root, StdoutFile)); err == nil {
		if ws.Stderr, err = openAppend(filepath.Join(root, StderrFile)); err == nil {
			ws.pid, err = os.OpenFile(filepath.Join(root, PIDFile), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		}
	}
	if err != nil {
		m.release(ws)
		return nil, fmt.Errorf("open workspace files: %w", err)
	}

	m.current = ws
	m.logger.Debug("Workspace created", "root", root)
	return ws, nil
}

// Current returns the live workspace, or nil.
func (m *Manager) Current() *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Destroy closes the workspace handles and removes its directory. Failures
// are logged and otherwise ignored.
func (m *Manager) Destroy() {
	m.mu.Lock()
	ws := m.current
	m.current = nil
	m.mu.Unlock()

	if ws == nil {
		return
	}
	m.release(ws)
	m.logger.Debug("Workspace removed", "root", ws.Root)
}

func (m *Manager) release(ws *Workspace) {
	for _, f := range []*os.File{ws.Stdout, ws.Stderr, ws.pid} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			m.logger.Warn("Failed to close workspace file", "file", f.Name(), "error", err)
		}
	}
	if err := os.RemoveAll(ws.Root); err != nil {
		m.logger.Warn("Failed to remove workspace", "root", ws.Root, "error", err)
	}
}

func dirName(t time.Time, suffix string) string {
	return fmt.Sprintf("chrome_%d_%d_%d__%d_%d_%d__%s",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), suffix)
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
