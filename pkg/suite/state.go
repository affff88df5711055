// Package suite holds the process-wide state of a test run: retry counters
// per scenario key and the flags that let the next attempt detect a crash of
// the previous one.
//
// State is not safe for concurrent use. Scenarios run strictly sequentially
// within a process; running several processes against the same results root
// is not coordinated.
package suite

import (
	"fmt"

	"github.com/entrhq/bddrun/pkg/databag"
)

// Keys of the recovery flags in the global data bag.
const (
	KeyLastCompleted   = "lastCompleted"
	KeyLastArtifactDir = "lastArtifactDir"
	KeyLastRetryKey    = "lastRetryKey"
)

// SignalResetter clears a build signal left by a previous run.
type SignalResetter interface {
	Reset() error
}

// RecoveryPoint describes an attempt that started but never completed.
type RecoveryPoint struct {
	ArtifactDir string
	RetryKey    string
}

// State tracks retries and crash-recovery flags for one run.
type State struct {
	global      databag.Bag
	signal      SignalResetter
	retryCounts map[string]int
	maxRetries  int
}

// New creates suite state over the global data bag. signal may be nil.
func New(global databag.Bag, signal SignalResetter) *State {
	return &State{
		global:      global,
		signal:      signal,
		retryCounts: make(map[string]int),
	}
}

// Init resets the retry counters and removes a leftover build signal. The
// recovery flags are kept so a crash of the previous run is still repaired.
func (s *State) Init(maxRetries int) error {
	if maxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %d", maxRetries)
	}

	s.maxRetries = maxRetries
	s.retryCounts = make(map[string]int)

	if s.signal != nil {
		if err := s.signal.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// MaxRetries returns the configured retry ceiling.
func (s *State) MaxRetries() int {
	return s.maxRetries
}

// NextAttempt increments and returns the attempt counter for key, starting
// at 1.
func (s *State) NextAttempt(key string) int {
	s.retryCounts[key]++
	return s.retryCounts[key]
}

// Count returns the attempt counter for key and whether it exists.
func (s *State) Count(key string) (int, bool) {
	n, ok := s.retryCounts[key]
	return n, ok
}

// Decrement undoes one NextAttempt for key. A counter that drops to zero is
// removed; a missing key is left alone.
func (s *State) Decrement(key string) {
	n, ok := s.retryCounts[key]
	if !ok {
		return
	}
	if n <= 1 {
		delete(s.retryCounts, key)
		return
	}
	s.retryCounts[key] = n - 1
}

// Forget drops the counter for key so the next NextAttempt starts at 1.
func (s *State) Forget(key string) {
	delete(s.retryCounts, key)
}

// MarkStarted records that an attempt began and has not yet completed.
func (s *State) MarkStarted(identity, key string) error {
	if err := s.global.Set(KeyLastArtifactDir, identity); err != nil {
		return fmt.Errorf("failed to record attempt identity: %w", err)
	}
	if err := s.global.Set(KeyLastRetryKey, key); err != nil {
		return fmt.Errorf("failed to record retry key: %w", err)
	}
	if err := s.global.Set(KeyLastCompleted, false); err != nil {
		return fmt.Errorf("failed to record attempt start: %w", err)
	}
	return nil
}

// MarkCompleted records that the current attempt reached its terminal hook.
func (s *State) MarkCompleted() error {
	if err := s.global.Set(KeyLastCompleted, true); err != nil {
		return fmt.Errorf("failed to record attempt completion: %w", err)
	}
	return nil
}

// Recovery returns the orphaned attempt, if the most recently started
// attempt never completed. An unset flag counts as completed.
func (s *State) Recovery() (RecoveryPoint, bool) {
	completed, ok := databag.Bool(s.global, KeyLastCompleted)
	if !ok || completed {
		return RecoveryPoint{}, false
	}

	dir, _ := databag.String(s.global, KeyLastArtifactDir)
	key, _ := databag.String(s.global, KeyLastRetryKey)
	return RecoveryPoint{ArtifactDir: dir, RetryKey: key}, true
}

// ClearRecovery drops the orphan pointers once the orphan is repaired, so
// it is not repaired twice.
func (s *State) ClearRecovery() error {
	if err := s.global.Delete(KeyLastArtifactDir); err != nil {
		return fmt.Errorf("failed to clear artifact dir: %w", err)
	}
	if err := s.global.Delete(KeyLastRetryKey); err != nil {
		return fmt.Errorf("failed to clear retry key: %w", err)
	}
	if err := s.global.Set(KeyLastCompleted, true); err != nil {
		return fmt.Errorf("failed to clear completion flag: %w", err)
	}
	return nil
}
