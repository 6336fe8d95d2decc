// Package fetch - browser.go provides headless browser rendering for script-built pages.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DefaultBrowserTimeout bounds a single headless render.
const DefaultBrowserTimeout = 45 * time.Second

// BrowserOptions configures a headless render.
type BrowserOptions struct {
	Timeout time.Duration
	// Clicks are selectors clicked in order after load. Missing elements are skipped.
	Clicks []string
	// WaitFor is a selector that must become visible before the HTML is captured.
	WaitFor string
	// Settle is an extra pause after the clicks for late rendering.
	Settle time.Duration
	Logger *zap.Logger
}

// Renderer renders a page and returns its HTML. Tests substitute a fake.
type Renderer interface {
	Render(ctx context.Context, url string, opts BrowserOptions) (string, error)
}

// ChromeRenderer renders pages with a local Chrome/Chromium via chromedp.
type ChromeRenderer struct{}

// Render renders url in a headless browser and returns the outer HTML of the document.
// Requires Chrome/Chromium to be installed on the system.
func (ChromeRenderer) Render(ctx context.Context, url string, opts BrowserOptions) (string, error) {
	return WithBrowser(ctx, url, opts)
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
func WithBrowser(ctx context.Context, url string, opts BrowserOptions) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}

	logger.Debug("starting headless browser", zap.String("url", url))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2 * time.Second),
		// Consent dialogs block the page in some regions
		chromedp.ActionFunc(func(ctx context.Context) error {
			_ = clickIfPresent(ctx, `button[aria-label*="Accept"], button[aria-label*="Reject"]`)
			return nil
		}),
	}
	for _, sel := range opts.Clicks {
		sel := sel
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			if err := clickIfPresent(ctx, sel); err != nil {
				logger.Debug("click skipped", zap.String("selector", sel), zap.Error(err))
			}
			return nil
		}))
	}
	if opts.WaitFor != "" {
		actions = append(actions, chromedp.WaitVisible(opts.WaitFor))
	}
	if opts.Settle > 0 {
		actions = append(actions, chromedp.Sleep(opts.Settle))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	logger.Debug("rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}

// clickIfPresent clicks the first match of sel, failing fast when nothing matches.
func clickIfPresent(ctx context.Context, sel string) error {
	var nodes int
	if err := chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, sel), &nodes).Do(ctx); err != nil {
		return err
	}
	if nodes == 0 {
		return fmt.Errorf("no element matches %s", sel)
	}
	return chromedp.Click(sel, chromedp.NodeVisible, chromedp.ByQuery).Do(ctx)
}
