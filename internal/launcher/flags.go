package launcher

import "github.com/smazurov/chromenode/internal/supervisor"

// DefaultFlags are always passed. Kept in the supervisor, which appends them
// after the caller's flags.
var DefaultFlags = supervisor.DefaultFlags

// QuietFlags turn off background traffic, first-run UI and extensions.
var QuietFlags = []string{
	"--disable-background-networking",
	"--disable-background-timer-throttling",
	"--disable-client-side-phishing-detection",
	"--disable-component-update",
	"--disable-default-apps",
	"--disable-extensions",
	"--disable-features=Translate,MediaRouter",
	"--disable-hang-monitor",
	"--disable-popup-blocking",
	"--disable-prompt-on-repost",
	"--disable-session-crashed-bubble",
	"--disable-sync",
	"--hide-crash-restore-bubble",
	"--metrics-recording-only",
	"--mute-audio",
	"--password-store=basic",
	"--safebrowsing-disable-auto-update",
}

// HeadlessFlags run the browser without a window.
var HeadlessFlags = []string{
	"--headless=new",
	"--disable-gpu",
	"--hide-scrollbars",
}
