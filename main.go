package main

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/smazurov/chromenode/cmd"
	"github.com/smazurov/chromenode/internal/api"
	"github.com/smazurov/chromenode/internal/config"
	"github.com/smazurov/chromenode/internal/events"
	"github.com/smazurov/chromenode/internal/launcher"
	"github.com/smazurov/chromenode/internal/logging"
	"github.com/smazurov/chromenode/internal/metrics"
	"github.com/smazurov/chromenode/internal/shutdown"
	"github.com/smazurov/chromenode/internal/supervisor"
)

// shutdownTimeout bounds the whole teardown run by OnStop.
const shutdownTimeout = 30 * time.Second

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `doc:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `doc:"API listen address" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `doc:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `doc:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Browser settings
	BrowserPort          int    `doc:"Remote debugging port" default:"9222" toml:"browser.port" env:"BROWSER_PORT"`
	BrowserURL           string `doc:"Page opened on launch" default:"about:blank" toml:"browser.url" env:"BROWSER_URL"`
	BrowserFlags         string `doc:"Extra browser flags, comma separated" default:"" toml:"browser.flags" env:"BROWSER_FLAGS"`
	BrowserMode          string `doc:"Launch mode (default, quiet, headless)" default:"default" toml:"browser.mode" env:"BROWSER_MODE"`
	BrowserExecutable    string `doc:"Executable to run instead of discovery" default:"" toml:"browser.executable" env:"BROWSER_EXECUTABLE"`
	BrowserWorkspaceBase string `doc:"Parent directory for browser workspaces" default:"" toml:"browser.workspace_base" env:"BROWSER_WORKSPACE_BASE"`

	// Supervisor settings
	SupervisorHost         string `doc:"Host probed for the debugging port" default:"127.0.0.1" toml:"supervisor.host" env:"SUPERVISOR_HOST"`
	SupervisorPollInterval string `doc:"Liveness probe interval" default:"500ms" toml:"supervisor.poll_interval" env:"SUPERVISOR_POLL_INTERVAL"`
	SupervisorProbeTimeout string `doc:"Timeout of one probe" default:"2s" toml:"supervisor.probe_timeout" env:"SUPERVISOR_PROBE_TIMEOUT"`
	SupervisorStartTimeout string `doc:"Grace period before an unreachable new browser is restarted" default:"30s" toml:"supervisor.start_timeout" env:"SUPERVISOR_START_TIMEOUT"`
	SupervisorStopTimeout  string `doc:"Wait after SIGINT before the browser is killed" default:"5s" toml:"supervisor.stop_timeout" env:"SUPERVISOR_STOP_TIMEOUT"`

	// Logging settings
	LoggingLevel  string `doc:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `doc:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
}

// browserConfig turns the flat options into a launch mode and supervisor
// configuration.
func browserConfig(opts *Options) (launcher.Mode, supervisor.Config, error) {
	mode, err := launcher.ParseMode(opts.BrowserMode)
	if err != nil {
		return "", supervisor.Config{}, err
	}

	cfg := supervisor.Config{
		Port:           opts.BrowserPort,
		URL:            opts.BrowserURL,
		Host:           opts.SupervisorHost,
		ExecutablePath: opts.BrowserExecutable,
		WorkspaceBase:  opts.BrowserWorkspaceBase,
	}
	for _, f := range strings.Split(opts.BrowserFlags, ",") {
		if f = strings.TrimSpace(f); f != "" {
			cfg.Flags = append(cfg.Flags, f)
		}
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"supervisor.poll_interval", opts.SupervisorPollInterval, &cfg.PollInterval},
		{"supervisor.probe_timeout", opts.SupervisorProbeTimeout, &cfg.ProbeTimeout},
		{"supervisor.start_timeout", opts.SupervisorStartTimeout, &cfg.StartTimeout},
		{"supervisor.stop_timeout", opts.SupervisorStopTimeout, &cfg.StopTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return "", supervisor.Config{}, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if err := cfg.WithDefaults().Validate(); err != nil {
		return "", supervisor.Config{}, err
	}
	return mode, cfg, nil
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:   opts.LoggingLevel,
			Format:  opts.LoggingFormat,
			Modules: config.LoadLoggingConfig(opts.Config).Modules,
		})
		logger := logging.GetLogger("main")

		teardown := shutdown.New(logger)

		hooks.OnStart(func() {
			ctx := context.Background()

			mode, browserCfg, err := browserConfig(opts)
			if err != nil {
				logger.Error("Invalid browser configuration", "error", err)
				os.Exit(1)
			}

			eventBus := events.New()
			logging.SetEntryCallback(func(e logging.Entry) {
				eventBus.Publish(api.LogEvent(e))
			})

			collector := metrics.New(prometheus.DefaultRegisterer)
			detachMetrics := collector.Attach(eventBus)

			runner := launcher.NewRunner(mode, browserCfg, supervisor.Options{
				Bus:    eventBus,
				Logger: logging.GetLogger("supervisor"),
			}, func(err error) {
				logger.Error("Browser supervisor gave up, use POST /api/browser/relaunch to retry", "error", err)
			})

			server := api.NewServer(&api.Options{
				AuthUsername:      opts.AuthUsername,
				AuthPassword:      opts.AuthPassword,
				Browser:           runner,
				EventBus:          eventBus,
				PrometheusHandler: metrics.Handler(),
			})

			watcher := config.NewConfigWatcher(opts.Config, func(path string) (Options, error) {
				next := *opts
				next.Config = path
				if err := config.LoadConfig(&next, cli.Root()); err != nil {
					return Options{}, err
				}
				return next, nil
			}, logging.GetLogger("config"))

			// Only the watcher goroutine touches applied after start.
			appliedMode, applied := mode, browserCfg
			watcher.OnReload(func(next Options) {
				nextMode, nextCfg, err := browserConfig(&next)
				if err != nil {
					logger.Warn("Ignoring invalid browser configuration", "error", err)
					return
				}
				if nextMode == appliedMode && reflect.DeepEqual(nextCfg, applied) {
					logger.Debug("Browser configuration unchanged")
					return
				}
				appliedMode, applied = nextMode, nextCfg
				if err := runner.Relaunch(ctx, nextMode, nextCfg); err != nil {
					logger.Error("Relaunch after config change failed", "error", err)
				}
			})

			teardown.Register("systemd", func(context.Context) error {
				_, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
				return err
			})
			teardown.Register("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
			teardown.Register("api", func(context.Context) error {
				return server.Stop()
			})
			teardown.Register("browser", runner.Stop)
			teardown.Register("metrics", func(context.Context) error {
				detachMetrics()
				return nil
			})

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- server.Start(opts.Port)
			}()

			if err := runner.Start(ctx); err != nil {
				logger.Error("Failed to launch browser", "error", err)
			}

			if _, statErr := os.Stat(opts.Config); statErr == nil {
				if err := watcher.Start(); err != nil {
					logger.Warn("Config hot reload disabled", "path", opts.Config, "error", err)
				}
			}

			if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				logger.Warn("Failed to notify systemd", "error", err)
			} else if sent {
				logger.Debug("Notified systemd of readiness")
			}

			if err := <-serverErr; err != nil {
				logger.Error("Failed to start HTTP server", "error", err)
				stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
				_ = teardown.Run(stopCtx)
				cancel()
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := teardown.Run(ctx); err != nil {
				logger.Error("Shutdown finished with errors", "error", err)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateLocateCmd())
	cli.Root().AddCommand(cmd.CreateTargetsCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
