package lifecycle

import (
	"context"
	"time"

	"github.com/entrhq/bddrun/pkg/results"
	"github.com/entrhq/bddrun/pkg/scenario"
	"github.com/entrhq/bddrun/pkg/suite"
)

// Listener receives lifecycle callbacks from a runner.
type Listener interface {
	// OnSuiteStart is called once before any scenario.
	OnSuiteStart(ctx context.Context) error

	// OnScenarioStart begins an attempt. When it returns a non-nil attempt
	// together with an error, the attempt exists but cannot run; the runner
	// must still end it with StatusFailed.
	OnScenarioStart(ctx context.Context, info scenario.Info) (*Attempt, error)

	// OnStepEnd observes a completed step. A non-nil return value is a fatal
	// environment failure that must fail the attempt.
	OnStepEnd(ctx context.Context, a *Attempt, step string, stepErr error) error

	// OnScenarioEnd concludes an attempt and reports whether another attempt
	// of the same scenario should follow.
	OnScenarioEnd(ctx context.Context, a *Attempt, status Status) (Outcome, error)

	// OnSuiteEnd is called once after the last scenario.
	OnSuiteEnd(ctx context.Context) error
}

// Narrator reports progress to the user.
type Narrator interface {
	AttemptStarted(a *Attempt, maxRetries int)
	AttemptFinished(a *Attempt, o Outcome)
	OrphanRecovered(p suite.RecoveryPoint)
	SuiteFinished(s results.Summary)
}

// Recorder collects run metrics.
type Recorder interface {
	AttemptFinished(state string, retries int, d time.Duration)
	OrphanRecovered()
	ArtifactErrors(n int)
	BuildSignalEmitted()
}

type nopNarrator struct{}

func (nopNarrator) AttemptStarted(*Attempt, int)        {}
func (nopNarrator) AttemptFinished(*Attempt, Outcome)   {}
func (nopNarrator) OrphanRecovered(suite.RecoveryPoint) {}
func (nopNarrator) SuiteFinished(results.Summary)       {}

type nopRecorder struct{}

func (nopRecorder) AttemptFinished(string, int, time.Duration) {}
func (nopRecorder) OrphanRecovered()                           {}
func (nopRecorder) ArtifactErrors(int)                         {}
func (nopRecorder) BuildSignalEmitted()                        {}
