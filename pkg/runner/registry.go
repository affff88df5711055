package runner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/bddrun/pkg/databag"
	"github.com/entrhq/bddrun/pkg/lifecycle"
	"github.com/entrhq/bddrun/pkg/logging"
)

var (
	// ErrUndefinedStep is returned when no definition matches a step.
	ErrUndefinedStep = errors.New("undefined step")

	// ErrAmbiguousStep is returned when several definitions match a step.
	ErrAmbiguousStep = errors.New("ambiguous step")
)

// StepContext is what a step definition can reach while it runs.
type StepContext struct {
	Attempt *lifecycle.Attempt

	// Session is nil when the attempt has no browser session.
	Session lifecycle.Session

	// Data is the attempt's data bag.
	Data databag.Bag

	Log *logging.Logger
}

// StepFunc implements a step. args holds the regexp capture groups.
type StepFunc func(ctx context.Context, sc *StepContext, args []string) error

type stepDef struct {
	pattern *regexp.Regexp
	fn      StepFunc
}

// Registry maps step text patterns to implementations.
type Registry struct {
	defs []stepDef
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a step definition. The pattern is anchored at both ends
// unless it already is.
func (r *Registry) Register(pattern string, fn StepFunc) error {
	if fn == nil {
		return fmt.Errorf("step %q has no implementation", pattern)
	}
	if !strings.HasPrefix(pattern, "^") {
		pattern = "^" + pattern
	}
	if !strings.HasSuffix(pattern, "$") {
		pattern += "$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid step pattern %q: %w", pattern, err)
	}
	r.defs = append(r.defs, stepDef{pattern: re, fn: fn})
	return nil
}

// MustRegister is Register for definitions known at compile time.
func (r *Registry) MustRegister(pattern string, fn StepFunc) {
	if err := r.Register(pattern, fn); err != nil {
		panic(err)
	}
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Match finds the single definition for text and returns its captures.
func (r *Registry) Match(text string) (StepFunc, []string, error) {
	var (
		found StepFunc
		args  []string
		hits  []string
	)
	for _, def := range r.defs {
		m := def.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		hits = append(hits, def.pattern.String())
		found, args = def.fn, m[1:]
	}

	switch len(hits) {
	case 0:
		return nil, nil, fmt.Errorf("%w: %s", ErrUndefinedStep, text)
	case 1:
		return found, args, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguousStep, text, strings.Join(hits, ", "))
	}
}
