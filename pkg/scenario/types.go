// Package scenario describes a scenario template as seen by the orchestrator
// and derives the per-attempt identity used to name every artifact.
package scenario

import "strings"

// Info is the metadata the runner hands to lifecycle callbacks for one
// concrete execution of a scenario template.
type Info struct {
	// Name is the scenario template name as written in the feature file.
	Name string

	// FeatureName is the name of the enclosing feature.
	FeatureName string

	// FeaturePath is the feature file URI; results are grouped by it.
	FeaturePath string

	// Steps are the concrete step texts of this execution, with outline
	// placeholders already substituted.
	Steps []string

	// Examples are the example tables declared on the template. Empty for
	// plain scenarios.
	Examples []ExampleTable

	// Tags include inherited feature and rule tags, with the leading '@'.
	Tags []string
}

// ExampleTable holds the body rows of one Examples block. The header row is
// not included.
type ExampleTable struct {
	Name string
	Rows [][]string
}

// HasTag reports whether the scenario carries the exact tag.
func (i Info) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// StepText returns all step texts joined into a single string.
func (i Info) StepText() string {
	return strings.Join(i.Steps, "\n")
}
