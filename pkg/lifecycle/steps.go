package lifecycle

import "github.com/entrhq/bddrun/pkg/databag"

// KeyFailedStep holds the failed step text in the attempt's data bag.
const KeyFailedStep = "failedStep"

// StepTracker records which step failed within an attempt. Only the latest
// failure is kept; in practice execution stops after the first.
type StepTracker struct {
	bag databag.Bag
}

// NewStepTracker records into the attempt's data bag.
func NewStepTracker(bag databag.Bag) *StepTracker {
	return &StepTracker{bag: bag}
}

// Observe is called as each step completes.
func (t *StepTracker) Observe(step string, err error) {
	if err == nil {
		return
	}
	_ = t.bag.Set(KeyFailedStep, step)
}

// FailedStep returns the recorded step text.
func (t *StepTracker) FailedStep() string {
	step, _ := databag.String(t.bag, KeyFailedStep)
	return step
}
