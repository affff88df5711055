package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// WaitOptions configures waiting behavior.
type WaitOptions struct {
	// State to wait for: "attached", "detached", "visible", "hidden"
	State string

	// Timeout in milliseconds
	Timeout float64
}

// ActionOptions configures element actions.
type ActionOptions struct {
	// Timeout in milliseconds (0 means the page default)
	Timeout float64
}

func (o ActionOptions) timeout() *float64 {
	if o.Timeout > 0 {
		return playwright.Float(o.Timeout)
	}
	return nil
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, wrapClosed(err))
	}
	return nil
}

// Click clicks the element matching selector.
func (s *Session) Click(selector string, opts ActionOptions) error {
	err := s.Page.Locator(selector).Click(playwright.LocatorClickOptions{Timeout: opts.timeout()})
	if err != nil {
		return fmt.Errorf("click on %s failed: %w", selector, wrapClosed(err))
	}
	return nil
}

// Fill fills an input element with the specified value.
func (s *Session) Fill(selector, value string, opts ActionOptions) error {
	err := s.Page.Locator(selector).Fill(value, playwright.LocatorFillOptions{Timeout: opts.timeout()})
	if err != nil {
		return fmt.Errorf("fill of %s failed: %w", selector, wrapClosed(err))
	}
	return nil
}

// Press presses a key on the element matching selector.
func (s *Session) Press(selector, key string, opts ActionOptions) error {
	err := s.Page.Locator(selector).Press(key, playwright.LocatorPressOptions{Timeout: opts.timeout()})
	if err != nil {
		return fmt.Errorf("press %s on %s failed: %w", key, selector, wrapClosed(err))
	}
	return nil
}

// Wait waits for an element to reach a state.
func (s *Session) Wait(selector string, opts WaitOptions) error {
	if selector == "" {
		return fmt.Errorf("selector is required for wait")
	}

	playwrightOpts := playwright.PageWaitForSelectorOptions{}

	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		playwrightOpts.State = &state
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.WaitForSelector(selector, playwrightOpts); err != nil {
		return fmt.Errorf("wait for %s failed: %w", selector, wrapClosed(err))
	}
	return nil
}

// ExpectText waits until an element containing text is visible.
func (s *Session) ExpectText(text string, opts ActionOptions) error {
	err := s.Page.GetByText(text).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: opts.timeout(),
	})
	if err != nil {
		return fmt.Errorf("text %q not visible: %w", text, wrapClosed(err))
	}
	return nil
}

// Title returns the page title.
func (s *Session) Title() (string, error) {
	title, err := s.Page.Title()
	if err != nil {
		return "", fmt.Errorf("title unavailable: %w", wrapClosed(err))
	}
	return title, nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}
