package supervisor

import (
	"fmt"
	"strconv"
	"time"
)

// Defaults applied to zero Config fields.
const (
	DefaultPort         = 9222
	DefaultURL          = "about:blank"
	DefaultHost         = "127.0.0.1"
	DefaultPollInterval = 500 * time.Millisecond
	DefaultProbeTimeout = 2 * time.Second
	DefaultStartTimeout = 30 * time.Second
	DefaultStopTimeout  = 5 * time.Second
)

// DefaultFlags are appended after the caller's flags on every spawn.
var DefaultFlags = []string{
	"--no-first-run",
	"--no-default-browser-check",
}

// Config describes one supervised browser.
type Config struct {
	// Port is the remote debugging port probed for liveness.
	Port int
	// URL is opened on start.
	URL string
	// Flags are passed first, in order. Duplicates are kept.
	Flags []string
	// PollInterval between liveness probes.
	PollInterval time.Duration

	// Host the probe connects to.
	Host string
	// ProbeTimeout bounds one connection attempt.
	ProbeTimeout time.Duration
	// StartTimeout is how long a freshly spawned, still running process may
	// stay unreachable before it is restarted.
	StartTimeout time.Duration
	// StopTimeout is the SIGINT grace period on Kill.
	StopTimeout time.Duration

	// ExecutablePath skips installation discovery.
	ExecutablePath string
	// WorkspaceBase is the parent of per-launch workspaces. Empty means the
	// system temp directory.
	WorkspaceBase string
}

// WithDefaults returns a copy of c with zero fields defaulted. Flags is
// copied so later changes to the caller's slice have no effect.
func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	c.Flags = append([]string(nil), c.Flags...)
	return c
}

// Validate reports configuration that can never work.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Args builds the command line for a browser using userDataDir as profile:
// caller flags, DefaultFlags, debugging port, profile dir, then the URL.
func (c Config) Args(userDataDir string) []string {
	args := make([]string, 0, len(c.Flags)+len(DefaultFlags)+3)
	args = append(args, c.Flags...)
	args = append(args, DefaultFlags...)
	return append(args,
		"--remote-debugging-port="+strconv.Itoa(c.Port),
		"--user-data-dir="+userDataDir,
		c.URL,
	)
}
