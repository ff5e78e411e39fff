// Package browser provides the concrete chromedp adapter behind the
// schemas.PageEngine capability interface. Nothing above this package talks
// to CDP directly.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

// Options configure one browser instance. A non-empty UserDataDir binds the
// instance to a named profile's persistent storage.
type Options struct {
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	UserDataDir  string
}

// ChromeEngine drives a single Chrome instance over CDP. It is exclusively
// owned by one crawl session at a time; the caller serializes access.
type ChromeEngine struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *zap.Logger
}

var _ schemas.PageEngine = (*ChromeEngine)(nil)

// NewChromeEngine launches a browser instance with the given options.
func NewChromeEngine(ctx context.Context, opts Options, logger *zap.Logger) (*ChromeEngine, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	e := &ChromeEngine{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger.Named("browser"),
	}

	// Start the browser process eagerly so launch failures surface here, not
	// on the first navigation.
	if err := e.run(ctx, chromedp.ActionFunc(func(context.Context) error { return nil })); err != nil {
		e.Close(context.Background())
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	e.logger.Debug("Browser instance launched",
		zap.Bool("headless", opts.Headless),
		zap.String("user_data_dir", opts.UserDataDir))
	return e, nil
}

// run executes chromedp actions against the browser context while honoring
// the caller's deadline and cancellation.
func (e *ChromeEngine) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(e.browserCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		// Prefer the caller's error so timeouts are reported as such.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads url and waits until the document body is ready.
func (e *ChromeEngine) Navigate(ctx context.Context, url string) error {
	e.logger.Debug("Navigating", zap.String("url", url))
	return e.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// ScrollStep scrolls to the bottom of the page, waits for lazy content to
// settle, and reports whether the page height grew.
func (e *ChromeEngine) ScrollStep(ctx context.Context) (bool, error) {
	var before, after int64
	err := e.run(ctx,
		chromedp.Evaluate(`document.body.scrollHeight`, &before),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(time.Second),
		chromedp.Evaluate(`document.body.scrollHeight`, &after),
	)
	if err != nil {
		return false, err
	}
	return after > before, nil
}

// ScrollTop returns the viewport to the top of the page.
func (e *ChromeEngine) ScrollTop(ctx context.Context) error {
	return e.run(ctx,
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
		chromedp.Sleep(500*time.Millisecond),
	)
}

// QueryCandidates evaluates the candidate-collection script and unmarshals
// the resulting descriptors. Individual nodes that fail mid-walk are skipped
// by the script rather than failing the query.
func (e *ChromeEngine) QueryCandidates(ctx context.Context) ([]schemas.ElementDescriptor, error) {
	var raw string
	if err := e.run(ctx, chromedp.Evaluate(candidateScript, &raw)); err != nil {
		return nil, fmt.Errorf("candidate query failed: %w", err)
	}

	var descriptors []schemas.ElementDescriptor
	if err := json.Unmarshal([]byte(raw), &descriptors); err != nil {
		return nil, fmt.Errorf("failed to decode candidate descriptors: %w", err)
	}
	return descriptors, nil
}

// Click dispatches a click on the element addressed by an XPath locator.
func (e *ChromeEngine) Click(ctx context.Context, path string) error {
	return e.run(ctx,
		chromedp.Click(path, chromedp.BySearch, chromedp.NodeVisible),
		chromedp.Sleep(time.Second),
	)
}

// Screenshot captures the full page as PNG bytes.
func (e *ChromeEngine) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := e.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ExportCookies returns all cookies of the current browser session,
// including HttpOnly ones.
func (e *ChromeEngine) ExportCookies(ctx context.Context) ([]schemas.Cookie, error) {
	var cookies []schemas.Cookie
	err := e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		cookies = make([]schemas.Cookie, 0, len(raw))
		for _, c := range raw {
			cookie := schemas.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			}
			if c.Expires > 0 {
				cookie.Expires = time.Unix(int64(c.Expires), 0).UTC()
			}
			cookies = append(cookies, cookie)
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to export cookies: %w", err)
	}
	return cookies, nil
}

// WaitClosed blocks until the browser process exits (the user closed the
// window) or ctx is done. Used by interactive profile editing.
func (e *ChromeEngine) WaitClosed(ctx context.Context) error {
	select {
	case <-e.browserCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears down the browser instance. Safe to call more than once.
func (e *ChromeEngine) Close(ctx context.Context) error {
	e.browserCancel()

	// Give the process a moment to exit before yanking the allocator.
	select {
	case <-e.browserCtx.Done():
	case <-time.After(5 * time.Second):
		e.logger.Warn("Timeout waiting for browser to close")
	case <-ctx.Done():
	}

	e.allocCancel()
	return nil
}
