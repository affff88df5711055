package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/bddrun/pkg/lifecycle"
	"github.com/entrhq/bddrun/pkg/results"
	"github.com/entrhq/bddrun/pkg/suite"
)

// Level represents the console verbosity level
type Level int

const (
	// LevelQuiet shows only final failures and the summary
	LevelQuiet Level = iota
	// LevelNormal shows every attempt outcome (default)
	LevelNormal
	// LevelVerbose also shows attempt starts and durations
	LevelVerbose
	// LevelDebug shows artifact locations
	LevelDebug
)

// ParseLevel maps a configuration string to a level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return LevelQuiet, nil
	case "", "normal":
		return LevelNormal, nil
	case "verbose":
		return LevelVerbose, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelNormal, fmt.Errorf("invalid verbosity %q (want quiet, normal, verbose or debug)", s)
	}
}

var _ lifecycle.Narrator = (*Console)(nil)

// Console narrates attempts to a terminal.
type Console struct {
	mu    sync.Mutex
	level Level
	w     io.Writer
	start time.Time
}

// NewConsole writes to w at the given level.
func NewConsole(w io.Writer, level Level) *Console {
	return &Console{
		level: level,
		w:     w,
		start: time.Now(),
	}
}

// Header prints a prominent header message
func (c *Console) Header(message string) {
	c.printf(LevelNormal, "%s\n", headerStyle.Render(message))
}

// Errorf prints an error at every level.
func (c *Console) Errorf(format string, args ...interface{}) {
	c.printf(LevelQuiet, "%s\n", failStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// AttemptStarted prints which attempt of how many is starting.
func (c *Console) AttemptStarted(a *lifecycle.Attempt, maxRetries int) {
	c.printf(LevelVerbose, "%s\n", detailStyle.Render(
		fmt.Sprintf("→ %s (attempt %d of %d)", a.Identity.Key, a.Number, maxRetries+1)))
}

// AttemptFinished prints the outcome of an attempt.
func (c *Console) AttemptFinished(a *lifecycle.Attempt, o lifecycle.Outcome) {
	var line string
	level := LevelNormal

	switch o.State {
	case lifecycle.StatePassed:
		line = passStyle.Render("✓ " + a.Identity.Key)
		if o.Number > 1 {
			line += retryStyle.Render(fmt.Sprintf(" (passed on attempt %d)", o.Number))
		}
	case lifecycle.StateFailedRetrying:
		line = retryStyle.Render(fmt.Sprintf("↻ %s failed attempt %d, retrying", a.Identity.Key, o.Number))
	default:
		line = failStyle.Render(fmt.Sprintf("✗ %s failed after %d attempt(s)", a.Identity.Key, o.Number))
		if step := a.FailedStep(); step != "" {
			line += detailStyle.Render(fmt.Sprintf("\n    at step: %s", step))
		}
		level = LevelQuiet
	}

	if c.level >= LevelVerbose {
		line += detailStyle.Render(fmt.Sprintf(" [%s]", a.Duration().Round(time.Millisecond)))
	}
	if c.level >= LevelDebug {
		line += detailStyle.Render(fmt.Sprintf("\n    identity: %s", a.Identity.Name))
	}

	c.printf(level, "%s\n", line)
}

// OrphanRecovered reports a repaired crash.
func (c *Console) OrphanRecovered(p suite.RecoveryPoint) {
	c.printf(LevelNormal, "%s\n", retryStyle.Render(
		fmt.Sprintf("⚠ recovered interrupted attempt %s", p.ArtifactDir)))
}

// SuiteFinished prints the summary table.
func (c *Console) SuiteFinished(s results.Summary) {
	c.printf(LevelQuiet, "\n%s\n", FormatSummary(s))

	status := passStyle.Render(fmt.Sprintf("%d passed", s.Passed))
	if s.PassedRetry > 0 {
		status += retryStyle.Render(fmt.Sprintf(" (%d after retry)", s.PassedRetry))
	}
	if s.Failed > 0 {
		status += ", " + failStyle.Render(fmt.Sprintf("%d failed", s.Failed))
	}
	c.printf(LevelQuiet, "%s %s\n", status, detailStyle.Render(fmt.Sprintf("in %s", time.Since(c.start).Round(time.Second))))
}

func (c *Console) printf(at Level, format string, args ...interface{}) {
	if c.level < at {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}
