// Package steps provides step definitions that drive the attempt's browser
// session.
package steps

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/entrhq/bddrun/pkg/browser"
	"github.com/entrhq/bddrun/pkg/runner"
)

// ErrNoBrowser is returned by browser steps when the attempt has no
// Playwright session.
var ErrNoBrowser = errors.New("no browser session")

// Options configures the built-in steps.
type Options struct {
	// BaseURL resolves relative paths given to the open step.
	BaseURL string
}

// Register adds the built-in steps to r.
func Register(r *runner.Registry, opts Options) error {
	defs := []struct {
		pattern string
		fn      runner.StepFunc
	}{
		{`(?:I )?(?:open|navigate to) "([^"]*)"`, open(opts.BaseURL)},
		{`(?:I )?click "([^"]*)"`, click},
		{`(?:I )?fill "([^"]*)" with "([^"]*)"`, fill},
		{`(?:I )?press "([^"]*)" in "([^"]*)"`, press},
		{`(?:I )?wait for "([^"]*)"`, wait},
		{`(?:I )?should see "([^"]*)"`, expectText},
		{`the (?:page )?title should be "([^"]*)"`, expectTitle},
		{`(?:I )?remember "([^"]*)" as "([^"]*)"`, remember},
	}

	for _, d := range defs {
		if err := r.Register(d.pattern, d.fn); err != nil {
			return err
		}
	}
	return nil
}

// ResolveURL joins ref onto base. Absolute refs and an empty base return
// ref unchanged.
func ResolveURL(base, ref string) (string, error) {
	target, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	if target.IsAbs() || base == "" {
		return ref, nil
	}

	root, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	if !strings.HasSuffix(root.Path, "/") {
		root.Path += "/"
	}
	target.Path = strings.TrimPrefix(target.Path, "/")
	return root.ResolveReference(target).String(), nil
}

// TimeoutMillis converts the time left before ctx's deadline into a
// Playwright timeout. Zero means no deadline.
func TimeoutMillis(ctx context.Context) float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	if ms := time.Until(deadline).Milliseconds(); ms > 1 {
		return float64(ms)
	}
	return 1
}

func actionOptions(ctx context.Context) browser.ActionOptions {
	return browser.ActionOptions{Timeout: TimeoutMillis(ctx)}
}

func session(sc *runner.StepContext) (*browser.Session, error) {
	s, ok := sc.Session.(*browser.Session)
	if !ok || s == nil || s.Page == nil {
		return nil, ErrNoBrowser
	}
	return s, nil
}

func open(baseURL string) runner.StepFunc {
	return func(ctx context.Context, sc *runner.StepContext, args []string) error {
		s, err := session(sc)
		if err != nil {
			return err
		}
		target, err := ResolveURL(baseURL, args[0])
		if err != nil {
			return err
		}
		sc.Log.Infof("Navigating to %s", target)
		return s.Navigate(target, browser.NavigateOptions{WaitUntil: "load", Timeout: TimeoutMillis(ctx)})
	}
}

func click(ctx context.Context, sc *runner.StepContext, args []string) error {
	s, err := session(sc)
	if err != nil {
		return err
	}
	return s.Click(args[0], actionOptions(ctx))
}

func fill(ctx context.Context, sc *runner.StepContext, args []string) error {
	s, err := session(sc)
	if err != nil {
		return err
	}
	return s.Fill(args[0], args[1], actionOptions(ctx))
}

func press(ctx context.Context, sc *runner.StepContext, args []string) error {
	s, err := session(sc)
	if err != nil {
		return err
	}
	return s.Press(args[1], args[0], actionOptions(ctx))
}

func wait(ctx context.Context, sc *runner.StepContext, args []string) error {
	s, err := session(sc)
	if err != nil {
		return err
	}
	return s.Wait(args[0], browser.WaitOptions{State: "visible", Timeout: TimeoutMillis(ctx)})
}

func expectText(ctx context.Context, sc *runner.StepContext, args []string) error {
	s, err := session(sc)
	if err != nil {
		return err
	}
	return s.ExpectText(args[0], actionOptions(ctx))
}

func expectTitle(_ context.Context, sc *runner.StepContext, args []string) error {
	s, err := session(sc)
	if err != nil {
		return err
	}
	title, err := s.Title()
	if err != nil {
		return err
	}
	if title != args[0] {
		return fmt.Errorf("expected title %q, got %q", args[0], title)
	}
	return nil
}

// remember stores a value in the attempt's data bag for later steps.
func remember(_ context.Context, sc *runner.StepContext, args []string) error {
	return sc.Data.Set(args[1], args[0])
}
