// Package runner drives feature files through a lifecycle.Listener: it
// discovers and parses features, selects scenarios by tag, dispatches steps
// to registered definitions and retries failed scenarios until their
// outcome is final.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/entrhq/bddrun/pkg/lifecycle"
	"github.com/entrhq/bddrun/pkg/logging"
	"github.com/entrhq/bddrun/pkg/scenario"
)

// Options configures a Runner.
type Options struct {
	// Include and Exclude are tag glob patterns.
	Include []string
	Exclude []string

	// StepTimeout bounds each step; zero means no limit. A step that does
	// not return in time fails even if it ignores its context.
	StepTimeout time.Duration

	// MaxRetries caps a scenario at MaxRetries+1 attempts, whatever the
	// listener reports.
	MaxRetries int
}

// Stats counts what a run did.
type Stats struct {
	Features  int
	Scenarios int
	Skipped   int
	Attempts  int
	Passed    int
	Failed    int
}

// Runner executes scenarios one at a time.
type Runner struct {
	listener lifecycle.Listener
	registry *Registry
	filter   *TagFilter
	opts     Options
	log      *logging.Logger
}

// New creates a runner. log may be nil.
func New(listener lifecycle.Listener, registry *Registry, opts Options, log *logging.Logger) (*Runner, error) {
	if listener == nil {
		return nil, fmt.Errorf("listener is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("step registry is required")
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries cannot be negative: %d", opts.MaxRetries)
	}
	filter, err := NewTagFilter(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{
		listener: listener,
		registry: registry,
		filter:   filter,
		opts:     opts,
		log:      log,
	}, nil
}

// Run executes every selected scenario under paths. OnSuiteEnd is called
// whenever OnSuiteStart succeeded, including after cancellation. The
// returned error is non-nil for parse failures, cancellation and listener
// failures; failing scenarios are reported through Stats only.
func (r *Runner) Run(ctx context.Context, paths []string) (stats Stats, err error) {
	files, err := Discover(paths)
	if err != nil {
		return stats, err
	}

	var features []*Feature
	for _, path := range files {
		f, err := LoadFeature(path)
		if err != nil {
			return stats, err
		}
		features = append(features, f)
	}

	if err := r.listener.OnSuiteStart(ctx); err != nil {
		return stats, fmt.Errorf("suite start failed: %w", err)
	}
	defer func() {
		if endErr := r.listener.OnSuiteEnd(ctx); endErr != nil {
			err = errors.Join(err, fmt.Errorf("suite end failed: %w", endErr))
		}
	}()

	for _, f := range features {
		stats.Features++
		r.log.Infof("Feature %q (%s): %d scenarios", f.Name, f.Path, len(f.Scenarios))

		for _, info := range f.Scenarios {
			if !r.filter.Match(info.Tags) {
				stats.Skipped++
				r.log.Debugf("Skipping %q: tags %v not selected", info.Name, info.Tags)
				continue
			}

			stats.Scenarios++
			passed, err := r.runScenario(ctx, info, &stats)
			if err != nil {
				return stats, err
			}
			if passed {
				stats.Passed++
			} else {
				stats.Failed++
			}
		}
	}

	return stats, nil
}

// runScenario repeats attempts until the listener reports a final outcome
// or the attempt limit is reached.
func (r *Runner) runScenario(ctx context.Context, info scenario.Info, stats *Stats) (bool, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		stats.Attempts++
		outcome, err := r.runAttempt(ctx, info)
		if err != nil {
			return false, err
		}
		if outcome.Final {
			return outcome.State == lifecycle.StatePassed, nil
		}
		if attempt > r.opts.MaxRetries {
			r.log.Warnf("Giving up on %q after %d attempts; last outcome %s was not final",
				info.Name, attempt, outcome.State)
			return outcome.State == lifecycle.StatePassed, nil
		}
		r.log.Infof("Retrying %q after attempt %d", info.Name, outcome.Number)
	}
}

// runAttempt runs one attempt. An error is returned only when the run must
// stop: the listener refused the attempt or the context was cancelled. A
// cancelled attempt is left unfinished.
func (r *Runner) runAttempt(ctx context.Context, info scenario.Info) (lifecycle.Outcome, error) {
	a, err := r.listener.OnScenarioStart(ctx, info)
	if a == nil {
		if err == nil {
			err = fmt.Errorf("no attempt created")
		}
		return lifecycle.Outcome{}, fmt.Errorf("scenario %q could not start: %w", info.Name, err)
	}

	if err != nil && ctx.Err() != nil {
		r.log.Warnf("Attempt %s interrupted during setup: %v", a.Identity.Name, err)
		return lifecycle.Outcome{}, ctx.Err()
	}

	var status lifecycle.Status
	if err != nil {
		r.log.Errorf("Attempt %s cannot run: %v", a.Identity.Name, err)
		status = lifecycle.StatusFailed
	} else {
		status, err = r.runSteps(ctx, a)
		if err != nil {
			return lifecycle.Outcome{}, err
		}
	}

	outcome, err := r.listener.OnScenarioEnd(ctx, a, status)
	if err != nil {
		// The attempt is concluded; only its result record is missing.
		r.log.Errorf("Attempt %s ended with error: %v", a.Identity.Name, err)
	}
	return outcome, nil
}

func (r *Runner) runSteps(ctx context.Context, a *lifecycle.Attempt) (lifecycle.Status, error) {
	sc := &StepContext{
		Attempt: a,
		Session: a.Session,
		Data:    a.Data,
		Log:     a.Log,
	}

	for i, text := range a.Info.Steps {
		if err := ctx.Err(); err != nil {
			a.Log.Warnf("Run cancelled before step %d: %s", i+1, text)
			return lifecycle.StatusPending, err
		}

		stepErr := r.runStep(ctx, sc, text)
		if err := ctx.Err(); err != nil {
			a.Log.Warnf("Run cancelled during step %d: %s", i+1, text)
			return lifecycle.StatusPending, err
		}
		envErr := r.listener.OnStepEnd(ctx, a, text, stepErr)

		if stepErr != nil || envErr != nil {
			for _, skipped := range a.Info.Steps[i+1:] {
				a.Log.Infof("Step skipped: %s", skipped)
			}
			return lifecycle.StatusFailed, nil
		}
	}
	return lifecycle.StatusPassed, nil
}

// runStep resolves and invokes a step definition. The step runs on its own
// goroutine so the step timeout holds even when the step ignores its
// context; a step left running after its deadline is abandoned.
func (r *Runner) runStep(ctx context.Context, sc *StepContext, text string) error {
	fn, args, err := r.registry.Match(text)
	if err != nil {
		return err
	}

	if r.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.StepTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- invoke(ctx, fn, sc, text, args)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		select {
		case err := <-done:
			return err
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			sc.Log.Errorf("Step %q did not finish within %s", text, r.opts.StepTimeout)
			return fmt.Errorf("step timed out after %s: %w", r.opts.StepTimeout, ctx.Err())
		}
		return ctx.Err()
	}
}

// invoke calls fn, converting a panic into a step failure.
func invoke(ctx context.Context, fn StepFunc, sc *StepContext, text string, args []string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			sc.Log.Errorf("Panic in step %q: %v\n%s", text, rec, debug.Stack())
			err = fmt.Errorf("step panicked: %v", rec)
		}
	}()

	return fn(ctx, sc, args)
}
