package lifecycle

// State is a node of the attempt state machine.
type State int

const (
	StateRunning State = iota
	StatePassed
	StateFailedRetrying
	StateFailedFinal
)

// String returns the state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePassed:
		return "passed"
	case StateFailedRetrying:
		return "failed_retrying"
	case StateFailedFinal:
		return "failed_final"
	default:
		return "unknown"
	}
}

// Outcome is the resolved conclusion of an attempt.
type Outcome struct {
	State  State
	Number int

	// Final is true when no further attempt of the key will run.
	Final bool
}

// IsFinalAttempt reports whether an attempt is the last of its key: it
// passed, or its number reached maxRetries+1.
func IsFinalAttempt(status Status, number, maxRetries int) bool {
	return status == StatusPassed || number == maxRetries+1
}

// Resolve maps an attempt's status and number to the next state.
func Resolve(status Status, number, maxRetries int) Outcome {
	o := Outcome{
		Number: number,
		Final:  IsFinalAttempt(status, number, maxRetries),
	}

	switch {
	case status == StatusPassed:
		o.State = StatePassed
	case status == StatusPending:
		o.State = StateRunning
		o.Final = false
	case o.Final:
		o.State = StateFailedFinal
	default:
		o.State = StateFailedRetrying
	}
	return o
}
