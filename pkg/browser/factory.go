package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/bddrun/pkg/lifecycle"
)

var _ lifecycle.SessionFactory = (*Factory)(nil)

// Factory owns the Playwright driver and the browser shared by a suite, and
// opens one isolated context per attempt.
type Factory struct {
	mu         sync.Mutex
	opts       Options
	viewport   Viewport
	playwright *playwright.Playwright
	browser    playwright.Browser
}

// NewFactory validates the options. The browser is not launched until
// Start.
func NewFactory(opts Options) (*Factory, error) {
	engine, err := ParseEngine(string(opts.Engine))
	if err != nil {
		return nil, err
	}
	opts.Engine = engine

	viewport, err := ParseViewport(opts.Viewport)
	if err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Factory{
		opts:     opts,
		viewport: viewport,
	}, nil
}

// Start installs (unless skipped) and runs the Playwright driver, then
// launches the browser. Calling Start again is a no-op.
func (f *Factory) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{string(f.opts.Engine)},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !f.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := f.browserType(pw).Launch(f.launchOptions())
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch %s: %w", f.opts.Engine, err)
	}

	f.playwright = pw
	f.browser = browser
	return nil
}

// NewSession opens a context and page for one attempt, with video recording
// into the requested directory and tracing started.
func (f *Factory) NewSession(ctx context.Context, req lifecycle.SessionRequest) (lifecycle.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	browser := f.browser
	f.mu.Unlock()

	if browser == nil {
		return nil, fmt.Errorf("browser not started")
	}
	if !browser.IsConnected() {
		return nil, fmt.Errorf("%w: browser disconnected", lifecycle.ErrEnvironmentClosed)
	}

	bctx, err := browser.NewContext(f.contextOptions(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	if err := bctx.Tracing().Start(playwright.TracingStartOptions{
		Name:        playwright.String(req.Identity.Name),
		Screenshots: playwright.Bool(true),
		Snapshots:   playwright.Bool(true),
	}); err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(f.opts.Timeout)

	return &Session{
		Identity:  req.Identity.Name,
		Browser:   browser,
		Context:   bctx,
		Page:      page,
		CreatedAt: time.Now(),
	}, nil
}

// Close closes the browser and stops the driver.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	if f.browser != nil {
		if err := f.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		f.browser = nil
	}
	if f.playwright != nil {
		if err := f.playwright.Stop(); err != nil {
			errs = append(errs, err)
		}
		f.playwright = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing browser: %v", errs)
	}
	return nil
}

func (f *Factory) browserType(pw *playwright.Playwright) playwright.BrowserType {
	switch f.opts.Engine {
	case EngineFirefox:
		return pw.Firefox
	case EngineWebKit:
		return pw.WebKit
	default:
		return pw.Chromium
	}
}

func (f *Factory) launchOptions() playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(f.opts.Headless),
	}
	if f.viewport.Screen() && f.opts.Engine == EngineChromium {
		opts.Args = []string{"--start-maximized"}
	}
	return opts
}

func (f *Factory) contextOptions(req lifecycle.SessionRequest) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(req.IgnoreHTTPSErrors),
	}
	if req.VideoDir != "" {
		opts.RecordVideo = &playwright.RecordVideo{Dir: req.VideoDir}
	}
	if f.viewport.Screen() {
		opts.NoViewport = playwright.Bool(true)
	} else {
		opts.Viewport = &playwright.Size{
			Width:  f.viewport.Width,
			Height: f.viewport.Height,
		}
	}
	return opts
}
