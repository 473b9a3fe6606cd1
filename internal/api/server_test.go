package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/chromenode/internal/devtools"
	"github.com/smazurov/chromenode/internal/events"
	"github.com/smazurov/chromenode/internal/launcher"
	"github.com/smazurov/chromenode/internal/locator"
	"github.com/smazurov/chromenode/internal/logging"
	"github.com/smazurov/chromenode/internal/probe"
	"github.com/smazurov/chromenode/internal/supervisor"
)

type fakeBrowser struct {
	sup      *supervisor.Supervisor
	targets  []devtools.Target
	err      error
	restarts int
}

func (f *fakeBrowser) Current() *supervisor.Supervisor { return f.sup }
func (f *fakeBrowser) Mode() launcher.Mode              { return launcher.ModeHeadless }
func (f *fakeBrowser) Restart(context.Context) error    { f.restarts++; return f.err }
func (f *fakeBrowser) Targets(context.Context) ([]devtools.Target, error) {
	return f.targets, f.err
}

func idleSupervisor(t *testing.T) *supervisor.Supervisor {
	t.Helper()
	sup, err := supervisor.New(supervisor.Config{Port: 9333}, supervisor.Options{
		Locator: locator.New(locator.Options{Registry: locator.StaticRegistry{}}),
		Prober:  probe.Func(func(context.Context, string, int) bool { return true }),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return sup
}

func newTestServer(t *testing.T, browser Browser, user, pass string) *Server {
	t.Helper()
	return NewServer(&Options{
		AuthUsername: user,
		AuthPassword: pass,
		Browser:      browser,
		EventBus:     events.New(),
		PrometheusHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "chromenode_browser_up 1\n")
		}),
	})
}

func do(t *testing.T, s *Server, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t, nil, "", "")

	w := do(t, s, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/api/version", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"go_version"`) {
		t.Errorf("version: %d %s", w.Code, w.Body.String())
	}
}

func TestBrowserStatus(t *testing.T) {
	s := newTestServer(t, &fakeBrowser{sup: idleSupervisor(t)}, "", "")

	w := do(t, s, http.MethodGet, "/api/browser", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		State     string `json:"state"`
		Port      int    `json:"port"`
		Mode      string `json:"mode"`
		Reachable bool   `json:"reachable"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.State != "idle" || body.Port != 9333 || body.Mode != "headless" || !body.Reachable {
		t.Errorf("body = %+v", body)
	}
}

func TestBrowserNotRunning(t *testing.T) {
	s := newTestServer(t, &fakeBrowser{}, "", "")

	for _, path := range []string{"/api/browser", "/api/browser/targets"} {
		if w := do(t, s, http.MethodGet, path, nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, w.Code)
		}
	}
}

func TestBrowserTargets(t *testing.T) {
	browser := &fakeBrowser{
		sup:     idleSupervisor(t),
		targets: []devtools.Target{{ID: "abc", Type: "page", URL: "about:blank"}},
	}
	s := newTestServer(t, browser, "", "")

	w := do(t, s, http.MethodGet, "/api/browser/targets", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":"abc"`) {
		t.Errorf("targets: %d %s", w.Code, w.Body.String())
	}

	browser.err = errors.New("connection refused")
	if w := do(t, s, http.MethodGet, "/api/browser/targets", nil); w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestRelaunch(t *testing.T) {
	browser := &fakeBrowser{sup: idleSupervisor(t)}
	s := newTestServer(t, browser, "", "")

	if w := do(t, s, http.MethodPost, "/api/browser/relaunch", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if browser.restarts != 1 {
		t.Errorf("Restart called %d times, want 1", browser.restarts)
	}

	browser.err = errors.New("no installation")
	if w := do(t, s, http.MethodPost, "/api/browser/relaunch", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, &fakeBrowser{sup: idleSupervisor(t)}, "admin", "secret")

	if w := do(t, s, http.MethodGet, "/api/health", nil); w.Code != http.StatusOK {
		t.Errorf("health without auth = %d, want 200", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/browser", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("browser without auth = %d, want 401", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/version", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("version without auth = %d, want 401", w.Code)
	}

	bad := http.Header{"Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte("admin:wrong"))}}
	if w := do(t, s, http.MethodGet, "/api/browser", bad); w.Code != http.StatusUnauthorized {
		t.Errorf("browser with wrong password = %d, want 401", w.Code)
	}

	good := http.Header{"Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte("admin:secret"))}}
	if w := do(t, s, http.MethodGet, "/api/browser", good); w.Code != http.StatusOK {
		t.Errorf("browser with auth = %d, want 200", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/version", good); w.Code != http.StatusOK {
		t.Errorf("version with auth = %d, want 200", w.Code)
	}

	query := "/api/browser?auth=" + base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	if w := do(t, s, http.MethodGet, query, nil); w.Code != http.StatusOK {
		t.Errorf("browser with query auth = %d, want 200", w.Code)
	}
}

func TestMetricsMounted(t *testing.T) {
	s := newTestServer(t, nil, "admin", "secret")

	w := do(t, s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "chromenode_browser_up") {
		t.Errorf("metrics: %d %s", w.Code, w.Body.String())
	}
}

func TestLogs(t *testing.T) {
	s := newTestServer(t, nil, "", "")
	logging.GetLogger("api-test").Warn("hello from the api test", "port", 9333)

	w := do(t, s, http.MethodGet, "/api/logs?limit=500", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "hello from the api test") {
		t.Errorf("log entry missing: %s", w.Body.String())
	}

	if w := do(t, s, http.MethodGet, "/api/logs?limit=0", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("limit=0 status = %d, want 422", w.Code)
	}
}

func TestEventsStreamSendsCurrentState(t *testing.T) {
	s := newTestServer(t, &fakeBrowser{sup: idleSupervisor(t)}, "", "")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %s", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	var sawEvent bool
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: state-changed" {
			sawEvent = true
		}
		if strings.HasPrefix(line, "data:") {
			if !sawEvent || !strings.Contains(line, `"to":"idle"`) {
				t.Errorf("unexpected first event: %s", line)
			}
			return
		}
	}
	t.Fatalf("stream ended without data: %v", scanner.Err())
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		method string
		status int
		want   slog.Level
	}{
		{http.MethodOptions, 204, slog.LevelDebug},
		{http.MethodGet, 200, slog.LevelInfo},
		{http.MethodGet, 404, slog.LevelWarn},
		{http.MethodPost, 502, slog.LevelError},
	}
	for _, tt := range tests {
		if got := requestLevel(tt.method, tt.status); got != tt.want {
			t.Errorf("requestLevel(%s, %d) = %v, want %v", tt.method, tt.status, got, tt.want)
		}
	}
}
