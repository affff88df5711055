package lifecycle

import (
	"time"

	"github.com/entrhq/bddrun/pkg/databag"
	"github.com/entrhq/bddrun/pkg/logging"
	"github.com/entrhq/bddrun/pkg/scenario"
)

// Status is the conclusion of an attempt.
type Status int

const (
	StatusPending Status = iota
	StatusPassed
	StatusFailed
)

// String returns a human-readable label for the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt is one concrete execution of a scenario template.
type Attempt struct {
	Info     scenario.Info
	Identity scenario.Identity

	// Number is the value of the retry counter for Identity.Key after this
	// attempt incremented it. The first attempt is 1.
	Number int

	Status Status

	// Session is nil when it could not be created.
	Session Session

	Log  *logging.Logger
	Data databag.Bag

	steps    *StepTracker
	started  time.Time
	duration time.Duration
}

// FailedStep returns the text of the last failed step, if any.
func (a *Attempt) FailedStep() string {
	if a.steps == nil {
		return ""
	}
	return a.steps.FailedStep()
}

// Retries is the number of earlier attempts of the same key.
func (a *Attempt) Retries() int {
	return a.Number - 1
}

// Duration is the attempt wall-clock time, known once it ended.
func (a *Attempt) Duration() time.Duration {
	return a.duration
}
