// Package results aggregates concluded scenario attempts per feature.
//
// Passed scenarios are buffered in memory and written once at suite end.
// Final failures are merged into a per-feature file immediately so they
// survive an abrupt termination of the suite.
package results

// ScenarioResult is the persisted projection of a concluded attempt.
type ScenarioResult struct {
	// Name is the attempt identity.
	Name string `json:"name"`

	// Duration is the attempt wall-clock time in milliseconds.
	Duration int64 `json:"duration"`

	// Retries is the attempt number minus one.
	Retries int `json:"retries"`

	FailedStep string `json:"failedStep,omitempty"`
}

// FeatureResult groups scenario results of one feature file.
type FeatureResult struct {
	Name      string           `json:"name"`
	Path      string           `json:"path"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// Feature identifies the feature a result belongs to.
type Feature struct {
	Name string
	Path string
}

// Summary counts concluded scenarios for the console report.
type Summary struct {
	Passed      int
	Failed      int
	PassedRetry int
	Features    []FeatureSummary
}

// FeatureSummary is one row of the console report.
type FeatureSummary struct {
	Name    string
	Passed  int
	Failed  int
	Retried int
}
