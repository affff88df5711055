package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/bddrun/pkg/artifacts"
	"github.com/entrhq/bddrun/pkg/databag"
	"github.com/entrhq/bddrun/pkg/logging"
	"github.com/entrhq/bddrun/pkg/results"
	"github.com/entrhq/bddrun/pkg/scenario"
	"github.com/entrhq/bddrun/pkg/suite"
)

var _ Listener = (*Orchestrator)(nil)

// Config configures an Orchestrator.
type Config struct {
	// ResultsDir is the root of every artifact and result file.
	ResultsDir string

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// IgnoreHTTPSErrorTags are glob patterns; a scenario with a matching tag
	// gets a session that accepts invalid certificates.
	IgnoreHTTPSErrorTags []string

	// CleanArtifacts removes logs, videos, traces, screenshots and
	// attachments of previous runs at suite start.
	CleanArtifacts bool
}

// Dependencies are the collaborators of an Orchestrator. Global, Sessions
// and Log are required.
type Dependencies struct {
	// Global is the suite-wide data bag holding the crash-recovery flags. It
	// must outlive the process to repair crashes across runs.
	Global databag.Bag

	Sessions SessionFactory
	Sink     artifacts.Sink
	Log      *logging.Logger
	Narrator Narrator
	Metrics  Recorder

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Orchestrator drives the lifecycle of scenario attempts. It is not safe for
// concurrent use: attempts run one at a time.
type Orchestrator struct {
	config    Config
	layout    artifacts.Layout
	state     *suite.State
	sessions  SessionFactory
	artifacts *artifacts.Manager
	results   *results.Aggregator
	log       *logging.Logger
	narrator  Narrator
	metrics   Recorder
	clock     func() time.Time
	httpsTags []glob.Glob

	// concluded holds keys whose last attempt was final. A later scenario
	// with the same key is a new logical scenario and counts from 1.
	concluded map[string]bool

	current *Attempt
}

// New creates an Orchestrator.
func New(config Config, deps Dependencies) (*Orchestrator, error) {
	if config.ResultsDir == "" {
		return nil, fmt.Errorf("results directory is required")
	}
	if config.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries cannot be negative: %d", config.MaxRetries)
	}
	if deps.Global == nil {
		return nil, fmt.Errorf("global data bag is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session factory is required")
	}

	var httpsTags []glob.Glob
	for _, pattern := range config.IgnoreHTTPSErrorTags {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid tag pattern '%s': %w", pattern, err)
		}
		httpsTags = append(httpsTags, g)
	}

	layout := artifacts.NewLayout(config.ResultsDir)
	signal := artifacts.NewBuildSignal(layout.BuildSignal())

	o := &Orchestrator{
		config:    config,
		layout:    layout,
		state:     suite.New(deps.Global, signal),
		sessions:  deps.Sessions,
		artifacts: artifacts.NewManager(layout, signal, deps.Sink),
		results:   results.NewAggregator(layout.PassedResults(), layout.FailedResultsDir()),
		log:       deps.Log,
		narrator:  deps.Narrator,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		httpsTags: httpsTags,
		concluded: make(map[string]bool),
	}

	if o.log == nil {
		o.log = logging.Discard()
	}
	if o.narrator == nil {
		o.narrator = nopNarrator{}
	}
	if o.metrics == nil {
		o.metrics = nopRecorder{}
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	return o, nil
}

// State exposes the suite state.
func (o *Orchestrator) State() *suite.State {
	return o.state
}

// Layout returns the results layout.
func (o *Orchestrator) Layout() artifacts.Layout {
	return o.layout
}

// Results returns the aggregator.
func (o *Orchestrator) Results() *results.Aggregator {
	return o.results
}

// Current returns the running attempt, or nil.
func (o *Orchestrator) Current() *Attempt {
	return o.current
}

// OnSuiteStart initialises the suite state and resets the results
// directory. Results of the previous run are removed; crash-recovery flags
// are kept.
func (o *Orchestrator) OnSuiteStart(ctx context.Context) error {
	if err := o.state.Init(o.config.MaxRetries); err != nil {
		return fmt.Errorf("failed to initialize suite state: %w", err)
	}
	o.concluded = make(map[string]bool)

	stale := []string{o.layout.PassedResults(), o.layout.FailedResultsDir()}
	if o.config.CleanArtifacts {
		for _, dir := range []string{
			artifacts.LogsDir,
			artifacts.VideosDir,
			artifacts.TracesDir,
			artifacts.ScreenshotsDir,
			artifacts.AttachmentsDir,
		} {
			stale = append(stale, filepath.Join(o.layout.Root, dir))
		}
	}
	for _, path := range stale {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to reset %s: %w", path, err)
		}
	}

	if err := os.MkdirAll(o.layout.FailedResultsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	o.log.Infof("Suite started: results=%s maxRetries=%d", o.layout.Root, o.config.MaxRetries)
	return nil
}

// OnScenarioStart repairs an orphaned previous attempt, derives the new
// attempt's identity and number, records the start for crash recovery and
// opens its session.
func (o *Orchestrator) OnScenarioStart(ctx context.Context, info scenario.Info) (*Attempt, error) {
	if o.current != nil {
		return nil, fmt.Errorf("%w: %s", ErrAttemptActive, o.current.Identity.Name)
	}

	o.recoverOrphan()

	started := o.clock()
	id := scenario.BuildIdentity(info, started)
	if o.concluded[id.Key] {
		o.log.Debugf("Key %q reused by another scenario, restarting its attempt count", id.Key)
		o.state.Forget(id.Key)
		delete(o.concluded, id.Key)
	}
	number := o.state.NextAttempt(id.Key)

	if err := o.state.MarkStarted(id.Name, id.Key); err != nil {
		o.log.Warnf("Crash recovery disabled for %s: %v", id.Name, err)
	}

	scenarioLog, err := logging.NewScenarioLogger(o.layout.LogFile(id.Name), id.Name)
	if err != nil {
		o.log.Warnf("Scenario log for %s falls back to stderr: %v", id.Name, err)
	}

	data := databag.NewMemory()
	a := &Attempt{
		Info:     info,
		Identity: id,
		Number:   number,
		Status:   StatusPending,
		Log:      scenarioLog,
		Data:     data,
		steps:    NewStepTracker(data),
		started:  started,
	}
	o.current = a

	o.log.Infof("Starting %s (attempt %d of %d)", id.Name, number, o.config.MaxRetries+1)
	scenarioLog.Infof("Attempt %d of %d for %q in %s", number, o.config.MaxRetries+1, info.Name, info.FeaturePath)
	o.narrator.AttemptStarted(a, o.config.MaxRetries)

	session, err := o.sessions.NewSession(ctx, SessionRequest{
		Identity:          id,
		IgnoreHTTPSErrors: o.ignoreHTTPSErrors(info),
		VideoDir:          o.layout.VideoDir(id.Name),
	})
	if err != nil {
		scenarioLog.Errorf("Failed to open browser session: %v", err)
		return a, fmt.Errorf("failed to open session for %s: %w", id.Name, err)
	}
	a.Session = session

	return a, nil
}

// OnStepEnd records a failed step and checks that the browser environment is
// still alive.
func (o *Orchestrator) OnStepEnd(ctx context.Context, a *Attempt, step string, stepErr error) error {
	if a == nil || a != o.current {
		return ErrNoActiveAttempt
	}

	a.steps.Observe(step, stepErr)
	if stepErr != nil {
		a.Log.Errorf("Step failed: %s: %v", step, stepErr)
	} else {
		a.Log.Debugf("Step passed: %s", step)
	}

	if a.Session == nil || !a.Session.Alive() {
		a.steps.Observe(step, ErrEnvironmentClosed)
		a.Log.Errorf("Browser environment closed during step: %s", step)
		return fmt.Errorf("%w during step %q", ErrEnvironmentClosed, step)
	}
	return nil
}

// OnScenarioEnd resolves the outcome, captures artifacts, records the result
// and marks the attempt completed. The session is released whatever
// happens. An error is returned only when a failed result could not be
// written; the attempt is concluded regardless.
func (o *Orchestrator) OnScenarioEnd(ctx context.Context, a *Attempt, status Status) (Outcome, error) {
	if a == nil || a != o.current {
		return Outcome{}, ErrNoActiveAttempt
	}
	defer func() { o.current = nil }()

	if status == StatusPending {
		status = StatusFailed
	}
	a.Status = status
	a.duration = o.clock().Sub(a.started)

	outcome := Resolve(status, a.Number, o.config.MaxRetries)
	if outcome.Final {
		o.concluded[a.Identity.Key] = true
	}
	a.Log.Infof("Attempt %d ended %s (final=%t)", a.Number, outcome.State, outcome.Final)

	capture := o.artifacts.Capture(a.Session, artifacts.Outcome{
		Identity: a.Identity,
		Passed:   status == StatusPassed,
		Final:    outcome.Final,
	}, a.Log)
	if n := len(capture.Errors); n > 0 {
		o.metrics.ArtifactErrors(n)
	}
	if capture.SignalEmitted {
		o.metrics.BuildSignalEmitted()
		o.log.Warnf("Build signal emitted by %s", a.Identity.Name)
	}

	var resultErr error
	feature := results.Feature{Name: a.Info.FeatureName, Path: a.Info.FeaturePath}
	result := results.ScenarioResult{
		Name:       a.Identity.Name,
		Duration:   a.duration.Milliseconds(),
		Retries:    a.Retries(),
		FailedStep: a.FailedStep(),
	}
	switch outcome.State {
	case StatePassed:
		o.results.AddPassed(feature, result)
	case StateFailedFinal:
		if err := o.results.WriteFailed(feature, result); err != nil {
			o.log.Errorf("Failed to record failure of %s: %v", a.Identity.Name, err)
			resultErr = fmt.Errorf("failed to record failure of %s: %w", a.Identity.Name, err)
		}
	}

	o.metrics.AttemptFinished(outcome.State.String(), a.Retries(), a.duration)
	o.narrator.AttemptFinished(a, outcome)
	o.log.Infof("Finished %s: %s", a.Identity.Name, outcome.State)

	if err := a.Log.Close(); err != nil {
		o.log.Warnf("Failed to close scenario log: %v", err)
	}

	if err := o.state.MarkCompleted(); err != nil {
		o.log.Warnf("Failed to mark %s completed: %v", a.Identity.Name, err)
	}

	return outcome, resultErr
}

// OnSuiteEnd writes the passed results and closes the shared browser. An
// attempt still running is abandoned without being marked completed, so the
// next run repairs it.
func (o *Orchestrator) OnSuiteEnd(ctx context.Context) error {
	if a := o.current; a != nil {
		o.log.Warnf("Attempt %s did not complete; it will be repaired on the next run", a.Identity.Name)
		if a.Session != nil {
			if err := a.Session.Close(); err != nil {
				o.log.Warnf("Failed to close abandoned session: %v", err)
			}
		}
		_ = a.Log.Close()
		o.current = nil
	}

	flushErr := o.results.Flush()
	if flushErr != nil {
		o.log.Errorf("Failed to write passed results: %v", flushErr)
	}

	o.narrator.SuiteFinished(o.results.Summary())

	if err := o.sessions.Close(); err != nil {
		o.log.Warnf("Failed to close browser: %v", err)
	}

	o.log.Infof("Suite finished")
	return flushErr
}

// Failed reports whether any scenario failed finally in this run.
func (o *Orchestrator) Failed() bool {
	return o.results.Summary().Failed > 0
}

func (o *Orchestrator) ignoreHTTPSErrors(info scenario.Info) bool {
	for _, tag := range info.Tags {
		for _, g := range o.httpsTags {
			if g.Match(tag) {
				return true
			}
		}
	}
	return false
}
