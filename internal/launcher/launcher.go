// Package launcher starts a supervised browser with a preset flag set and
// returns once it accepts debugging connections.
package launcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/smazurov/chromenode/internal/supervisor"
)

// Mode selects a preset flag set.
type Mode string

// Launch modes.
const (
	ModeDefault  Mode = "default"
	ModeQuiet    Mode = "quiet"
	ModeHeadless Mode = "headless"
)

// ParseMode parses a mode name. Empty means ModeDefault.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDefault:
		return ModeDefault, nil
	case ModeQuiet:
		return ModeQuiet, nil
	case ModeHeadless:
		return ModeHeadless, nil
	default:
		return "", fmt.Errorf("unknown launch mode %q (want default, quiet or headless)", s)
	}
}

// Flags returns the preset flags for m, before any caller flags.
func (m Mode) Flags() []string {
	switch m {
	case ModeQuiet:
		return append([]string(nil), QuietFlags...)
	case ModeHeadless:
		flags := append([]string(nil), QuietFlags...)
		return append(flags, HeadlessFlags...)
	default:
		return nil
	}
}

// Apply returns cfg with the mode's preset flags placed before cfg.Flags.
func (m Mode) Apply(cfg supervisor.Config) supervisor.Config {
	cfg.Flags = append(m.Flags(), cfg.Flags...)
	return cfg
}

// Launch creates a supervisor for cfg and waits until the browser is ready.
// On failure the supervisor has already been torn down.
func Launch(ctx context.Context, cfg supervisor.Config, opts supervisor.Options) (*supervisor.Supervisor, error) {
	sup, err := supervisor.New(cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := sup.Launch(ctx); err != nil {
		return nil, err
	}
	return sup, nil
}

// LaunchQuiet is Launch with QuietFlags prepended.
func LaunchQuiet(ctx context.Context, cfg supervisor.Config, opts supervisor.Options) (*supervisor.Supervisor, error) {
	return LaunchMode(ctx, ModeQuiet, cfg, opts)
}

// LaunchHeadless is Launch with QuietFlags and HeadlessFlags prepended.
func LaunchHeadless(ctx context.Context, cfg supervisor.Config, opts supervisor.Options) (*supervisor.Supervisor, error) {
	return LaunchMode(ctx, ModeHeadless, cfg, opts)
}

// LaunchMode is Launch with the preset flags of mode.
func LaunchMode(ctx context.Context, mode Mode, cfg supervisor.Config, opts supervisor.Options) (*supervisor.Supervisor, error) {
	return Launch(ctx, mode.Apply(cfg), opts)
}
