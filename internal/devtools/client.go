// Package devtools talks to a supervised browser over its remote debugging
// port using chromedp.
//
// The client never owns the browser: only allocator contexts are cancelled,
// because cancelling the first chromedp browser context closes the browser.
package devtools

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/smazurov/chromenode/internal/logging"
)

// Target is one debugging target.
type Target struct {
	ID       string `json:"id" example:"6C2B5F0E8E1F4D1B9A4E2F1C3D5B7A90" doc:"Target id"`
	Type     string `json:"type" example:"page" doc:"Target type"`
	Title    string `json:"title" doc:"Page title"`
	URL      string `json:"url" example:"about:blank" doc:"Page URL"`
	Attached bool   `json:"attached" doc:"Whether a client is attached"`
}

// Version describes the browser behind the port.
type Version struct {
	Protocol  string `json:"protocol" example:"1.3" doc:"Protocol version"`
	Product   string `json:"product" example:"Chrome/131.0.6778.86" doc:"Browser product"`
	Revision  string `json:"revision" doc:"Browser revision"`
	UserAgent string `json:"user_agent" doc:"Default user agent"`
	JSVersion string `json:"js_version" doc:"V8 version"`
}

// Client connects to a browser's remote debugging endpoint.
type Client struct {
	url    string
	logger logging.Logger
}

// New creates a client for host:port.
func New(host string, port int, logger logging.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		logger: logger,
	}
}

// URL returns the debugging endpoint.
func (c *Client) URL() string {
	return c.url
}

// connect attaches to the browser. The returned cancel only drops the
// connection.
func (c *Client) connect(ctx context.Context) (context.Context, context.CancelFunc, error) {
	allocCtx, cancel := chromedp.NewRemoteAllocator(ctx, c.url)
	browserCtx, _ := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("connect to %s: %w", c.url, err)
	}
	return browserCtx, cancel, nil
}

// Targets lists page targets.
func (c *Client) Targets(ctx context.Context) ([]Target, error) {
	browserCtx, cancel, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	infos, err := chromedp.Targets(browserCtx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	return pages(infos), nil
}

// Attach connects to the target with id. The returned context runs chromedp
// actions against it; cancel detaches without closing the page.
func (c *Client) Attach(ctx context.Context, id string) (context.Context, context.CancelFunc, error) {
	allocCtx, cancel := chromedp.NewRemoteAllocator(ctx, c.url)
	tabCtx, _ := chromedp.NewContext(allocCtx, chromedp.WithTargetID(target.ID(id)))
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("attach to target %s: %w", id, err)
	}
	c.logger.Debug("Attached to target", "target", id, "endpoint", c.url)
	return tabCtx, cancel, nil
}

// Title attaches to the target and reads its document title.
func (c *Client) Title(ctx context.Context, id string) (string, error) {
	tabCtx, cancel, err := c.Attach(ctx, id)
	if err != nil {
		return "", err
	}
	defer cancel()

	var title string
	if err := chromedp.Run(tabCtx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

// Version queries the browser version.
func (c *Client) Version(ctx context.Context) (Version, error) {
	browserCtx, cancel, err := c.connect(ctx)
	if err != nil {
		return Version{}, err
	}
	defer cancel()

	var v Version
	err = chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		v.Protocol, v.Product, v.Revision, v.UserAgent, v.JSVersion, err = browser.GetVersion().Do(ctx)
		return err
	}))
	if err != nil {
		return Version{}, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// pages keeps page targets in the browser's order.
func pages(infos []*target.Info) []Target {
	out := make([]Target, 0, len(infos))
	for _, info := range infos {
		if info == nil || info.Type != "page" {
			continue
		}
		out = append(out, Target{
			ID:       string(info.TargetID),
			Type:     info.Type,
			Title:    info.Title,
			URL:      info.URL,
			Attached: info.Attached,
		})
	}
	return out
}
