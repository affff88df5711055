package lifecycle

import "errors"

var (
	// ErrEnvironmentClosed reports that the browser or the attempt's context
	// was closed underneath the scenario. The attempt must fail.
	ErrEnvironmentClosed = errors.New("browser environment was closed")

	// ErrNoActiveAttempt is returned when a callback refers to an attempt
	// that is not the one currently running.
	ErrNoActiveAttempt = errors.New("no active attempt")

	// ErrAttemptActive is returned when an attempt starts while another one
	// has not ended.
	ErrAttemptActive = errors.New("another attempt is still active")
)
