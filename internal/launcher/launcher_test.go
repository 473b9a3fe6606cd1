package launcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/chromenode/internal/locator"
	"github.com/smazurov/chromenode/internal/probe"
	"github.com/smazurov/chromenode/internal/supervisor"
	"github.com/smazurov/chromenode/internal/workspace"
)

const fakeBrowser = `#!/bin/sh
for a in "$@"; do
  case "$a" in
    --user-data-dir=*) dir="${a#--user-data-dir=}" ;;
  esac
done
printf '%s\n' "$@" > "$dir/args"
exec sleep 60
`

type fixedLocator []locator.Candidate

func (f fixedLocator) Locate(context.Context) (*locator.Ranked, error) {
	if len(f) == 0 {
		return nil, locator.ErrNoInstallationFound
	}
	return locator.Rank(f), nil
}

func testOptions(t *testing.T, candidates ...locator.Candidate) supervisor.Options {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return supervisor.Options{
		Locator:    fixedLocator(candidates),
		Prober:     probe.Func(func(context.Context, string, int) bool { return true }),
		Workspaces: workspace.NewManager(t.TempDir(), logger),
		Logger:     logger,
	}
}

func readArgs(t *testing.T, sup *supervisor.Supervisor) []string {
	t.Helper()
	path := filepath.Join(sup.Workspace(), "args")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return strings.Split(strings.TrimSpace(string(data)), "\n")
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("browser did not record its arguments")
	return nil
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeDefault, false},
		{"default", ModeDefault, false},
		{"Quiet", ModeQuiet, false},
		{" headless ", ModeHeadless, false},
		{"kiosk", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestModeApplyPrependsPresets(t *testing.T) {
	cfg := supervisor.Config{Flags: []string{"--window-size=800,600"}}

	got := ModeHeadless.Apply(cfg).Flags
	want := append(append(append([]string(nil), QuietFlags...), HeadlessFlags...), "--window-size=800,600")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("headless flags = %v, want %v", got, want)
	}

	if got := ModeDefault.Apply(cfg).Flags; !reflect.DeepEqual(got, cfg.Flags) {
		t.Errorf("default flags = %v, want %v", got, cfg.Flags)
	}
	// The preset tables are not aliased into the config.
	quiet := ModeQuiet.Apply(supervisor.Config{}).Flags
	quiet[0] = "--changed"
	if QuietFlags[0] == "--changed" {
		t.Error("Apply aliased QuietFlags")
	}
}

func TestLaunchHeadless(t *testing.T) {
	browser := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(browser, []byte(fakeBrowser), 0o755); err != nil {
		t.Fatal(err)
	}

	sup, err := LaunchHeadless(context.Background(), supervisor.Config{
		PollInterval: 20 * time.Millisecond,
		StopTimeout:  500 * time.Millisecond,
		Flags:        []string{"--user-flag"},
	}, testOptions(t, locator.Candidate{Path: browser}))
	if err != nil {
		t.Fatalf("LaunchHeadless() error = %v", err)
	}
	defer sup.Kill(context.Background())

	if got := sup.State(); got != supervisor.StateMonitoring {
		t.Errorf("state = %s, want monitoring", got)
	}

	args := readArgs(t, sup)
	if args[0] != QuietFlags[0] {
		t.Errorf("first arg = %s, want %s", args[0], QuietFlags[0])
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--headless=new --disable-gpu --hide-scrollbars --user-flag") {
		t.Errorf("headless flags missing or out of order: %v", args)
	}
	if args[len(args)-1] != supervisor.DefaultURL {
		t.Errorf("last arg = %s, want %s", args[len(args)-1], supervisor.DefaultURL)
	}
}

func TestLaunchReturnsTerminalError(t *testing.T) {
	sup, err := LaunchQuiet(context.Background(), supervisor.Config{}, testOptions(t))
	if !errors.Is(err, locator.ErrNoInstallationFound) {
		t.Fatalf("LaunchQuiet() error = %v, want ErrNoInstallationFound", err)
	}
	if sup != nil {
		t.Error("expected nil supervisor on failure")
	}
}
