// Package logging provides slog loggers with per-module levels.
//
// Initialize once at startup, then fetch a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"supervisor": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Browser ready", "port", 9222)
//
// Records go to stdout when it is attached to a terminal, pipe or file, to the
// systemd journal when journald is reachable, and always to an in-memory
// history buffer that the status API serves under /api/logs.
//
// Journal entries carry SYSLOG_IDENTIFIER=chromenode and one field per
// attribute:
//
//	journalctl -t chromenode MODULE=supervisor
//
// TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	supervisor = "debug"
package logging
