package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type browserOptions struct {
	Config string

	Port         int      `toml:"browser.port" env:"BROWSER_PORT"`
	URL          string   `toml:"browser.url" env:"BROWSER_URL"`
	Flags        []string `toml:"browser.flags" env:"BROWSER_FLAGS"`
	Headless     bool     `toml:"browser.headless" env:"BROWSER_HEADLESS"`
	PollInterval string   `toml:"supervisor.poll_interval" env:"SUPERVISOR_POLL_INTERVAL"`
	Restarts     int      `toml:"supervisor.restarts" env:"SUPERVISOR_RESTARTS"`
}

const sampleConfig = `
[browser]
port = 9333
url = "https://example.com"
flags = ["--kiosk", "--mute-audio"]
headless = true

[supervisor]
poll_interval = "250ms"
restarts = 3
`

func configFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &browserOptions{Config: configFile(t, sampleConfig)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := browserOptions{
		Config:       opts.Config,
		Port:         9333,
		URL:          "https://example.com",
		Flags:        []string{"--kiosk", "--mute-audio"},
		Headless:     true,
		PollInterval: "250ms",
		Restarts:     3,
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("got %+v\nwant %+v", *opts, want)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	t.Setenv("CHROMENODE_BROWSER_PORT", "9444")
	t.Setenv("CHROMENODE_BROWSER_FLAGS", "--a, --b")
	t.Setenv("CHROMENODE_SUPERVISOR_POLL_INTERVAL", "2s")

	opts := &browserOptions{Config: configFile(t, sampleConfig)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if opts.Port != 9444 {
		t.Errorf("Port = %d, want 9444", opts.Port)
	}
	if !reflect.DeepEqual(opts.Flags, []string{"--a", "--b"}) {
		t.Errorf("Flags = %q", opts.Flags)
	}
	if opts.PollInterval != "2s" {
		t.Errorf("PollInterval = %q, want 2s", opts.PollInterval)
	}
	if opts.URL != "https://example.com" {
		t.Errorf("URL = %q, want value from file", opts.URL)
	}
}

func TestLoadConfigChangedFlagWins(t *testing.T) {
	t.Setenv("CHROMENODE_BROWSER_PORT", "9444")

	opts := &browserOptions{Config: configFile(t, sampleConfig)}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&opts.Port, "port", 9222, "")
	cmd.Flags().StringVar(&opts.URL, "url", "about:blank", "")
	if err := cmd.Flags().Parse([]string{"--port", "9555"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if opts.Port != 9555 {
		t.Errorf("Port = %d, want flag value 9555", opts.Port)
	}
	if opts.URL != "https://example.com" {
		t.Errorf("URL = %q, unchanged flag should not block the file", opts.URL)
	}
}

func TestLoadConfigMissingFileKeepsDefaults(t *testing.T) {
	opts := &browserOptions{
		Config: filepath.Join(t.TempDir(), "absent.toml"),
		Port:   9222,
	}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if opts.Port != 9222 {
		t.Errorf("Port = %d, want default", opts.Port)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "invalid toml", body: "[browser\nport = "},
		{name: "wrong type in file", body: "[browser]\nport = \"high\"\n"},
		{name: "bad bool in env", env: map[string]string{"CHROMENODE_BROWSER_HEADLESS": "maybe"}},
		{name: "bad int in env", env: map[string]string{"CHROMENODE_BROWSER_PORT": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &browserOptions{Config: configFile(t, tt.body)}
			if err := LoadConfig(opts, nil); err == nil {
				t.Error("LoadConfig succeeded")
			}
		})
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":           "port",
		"PollInterval":   "poll-interval",
		"ExecutablePath": "executable-path",
		"BrowserURL":     "browser-url",
		"URLPath":        "url-path",
		"AuthUsername":   "auth-username",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"browser": map[string]any{"port": int64(9222)},
		"flat":    "x",
	}
	if got := getNestedValue(data, "browser.port"); got != int64(9222) {
		t.Errorf("browser.port = %v", got)
	}
	if got := getNestedValue(data, "flat"); got != "x" {
		t.Errorf("flat = %v", got)
	}
	if got := getNestedValue(data, "flat.deeper"); got != nil {
		t.Errorf("flat.deeper = %v, want nil", got)
	}
	if got := getNestedValue(data, "missing.key"); got != nil {
		t.Errorf("missing.key = %v, want nil", got)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := configFile(t, `
[logging]
level = "debug"
format = "json"
supervisor = "warn"
locator = "error"
`)
	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("level/format = %q/%q", cfg.Level, cfg.Format)
	}
	want := map[string]string{"supervisor": "warn", "locator": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	t.Setenv("CHROMENODE_LOGGING_LEVEL", "error")
	if got := LoadLoggingConfig(path).Level; got != "error" {
		t.Errorf("env level = %q, want error", got)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.toml")} {
		cfg := LoadLoggingConfig(path)
		if cfg.Level != "info" || cfg.Format != "text" || len(cfg.Modules) != 0 {
			t.Errorf("LoadLoggingConfig(%q) = %+v", path, cfg)
		}
	}
}
