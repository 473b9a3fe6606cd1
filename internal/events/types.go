package events

// Event type constants for kelindar/event.
const (
	TypeBrowser uint32 = iota + 1
	TypeBrowserStateChanged
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// BrowserEventKind names a supervisor notification.
type BrowserEventKind string

// Supervisor notifications.
const (
	KindReady      BrowserEventKind = "ready"
	KindDied       BrowserEventKind = "died"
	KindRestarted  BrowserEventKind = "restarted"
	KindTerminated BrowserEventKind = "terminated"
)

// BrowserEvent is published by the supervisor when the browser becomes ready,
// dies, is restarted or is terminated. All kinds share one type so a single
// subscriber observes them in publication order.
type BrowserEvent struct {
	Kind       BrowserEventKind `json:"kind" example:"ready" doc:"ready, died, restarted or terminated"`
	PID        int              `json:"pid,omitempty" example:"4242" doc:"Browser process id"`
	Executable string           `json:"executable,omitempty" doc:"Executable the process was spawned from"`
	Port       int              `json:"port" example:"9222" doc:"Remote debugging port"`
	Workspace  string           `json:"workspace,omitempty" doc:"Workspace directory"`
	Restarts   int              `json:"restarts" example:"0" doc:"Restarts since launch"`
	Error      string           `json:"error,omitempty" doc:"Terminal error, if any"`
	Timestamp  string           `json:"timestamp" example:"2026-10-18T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BrowserEvent.
func (e BrowserEvent) Type() uint32 { return TypeBrowser }

// BrowserStateChangedEvent is published on every supervisor state transition.
type BrowserStateChangedEvent struct {
	From      string `json:"from" example:"awaiting_ready" doc:"Previous state"`
	To        string `json:"to" example:"monitoring" doc:"New state"`
	Timestamp string `json:"timestamp" example:"2026-10-18T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BrowserStateChangedEvent.
func (e BrowserStateChangedEvent) Type() uint32 { return TypeBrowserStateChanged }

// LogEntryEvent carries one log record to SSE clients.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"supervisor" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
