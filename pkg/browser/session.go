package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/bddrun/pkg/lifecycle"
)

var _ lifecycle.Session = (*Session)(nil)

// Session is the browser context and page owned by one attempt.
type Session struct {
	// Identity is the attempt the session belongs to
	Identity string

	// Browser is the shared Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the attempt's page
	Page playwright.Page

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time
}

// PageOf returns the Playwright page behind a lifecycle session, or false
// when the session is not backed by Playwright.
func PageOf(s lifecycle.Session) (playwright.Page, bool) {
	bs, ok := s.(*Session)
	if !ok || bs == nil || bs.Page == nil {
		return nil, false
	}
	return bs.Page, true
}

// Alive reports whether the browser is connected and the page still open.
func (s *Session) Alive() bool {
	if s.Browser == nil || s.Page == nil {
		return false
	}
	return s.Browser.IsConnected() && !s.Page.IsClosed()
}

// Screenshot writes a full-page screenshot to path and returns its bytes.
func (s *Session) Screenshot(path string) ([]byte, error) {
	if !s.Alive() {
		return nil, lifecycle.ErrEnvironmentClosed
	}
	data, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", wrapClosed(err))
	}
	return data, nil
}

// VideoPath returns where the page's video is being recorded.
func (s *Session) VideoPath() (string, error) {
	if s.Page == nil {
		return "", lifecycle.ErrEnvironmentClosed
	}
	video := s.Page.Video()
	if video == nil {
		return "", fmt.Errorf("video recording is not enabled")
	}
	path, err := video.Path()
	if err != nil {
		return "", fmt.Errorf("video path unavailable: %w", wrapClosed(err))
	}
	return path, nil
}

// StopTrace stops tracing and writes the archive to path.
func (s *Session) StopTrace(path string) error {
	if s.Context == nil {
		return lifecycle.ErrEnvironmentClosed
	}
	if err := s.Context.Tracing().Stop(path); err != nil {
		return fmt.Errorf("stop tracing failed: %w", wrapClosed(err))
	}
	return nil
}

// Close closes the page and then the context. The shared browser stays
// open.
func (s *Session) Close() error {
	var errs []error
	if s.Page != nil && !s.Page.IsClosed() {
		if err := s.Page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Context != nil {
		if err := s.Context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// wrapClosed maps Playwright's target-closed error onto the environment
// failure the lifecycle understands.
func wrapClosed(err error) error {
	if errors.Is(err, playwright.ErrTargetClosed) {
		return fmt.Errorf("%w: %w", lifecycle.ErrEnvironmentClosed, err)
	}
	return err
}
