package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// FailedFileSuffix follows the sanitized feature name.
	FailedFileSuffix = "-failed-scenarios.json"

	maxFeatureFileName = 50
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// SanitizeFeatureName turns a feature name into a file name prefix:
// characters outside [a-zA-Z0-9-_] become '_', the result is truncated to 50
// characters and lower-cased.
func SanitizeFeatureName(name string) string {
	s := unsafeFileChars.ReplaceAllString(name, "_")
	if len(s) > maxFeatureFileName {
		s = s[:maxFeatureFileName]
	}
	return strings.ToLower(s)
}

// Aggregator collects scenario results for one run.
type Aggregator struct {
	passedPath string
	failedDir  string

	order  []string
	passed map[string]*FeatureResult

	summary      map[string]*FeatureSummary
	summaryOrder []string
}

// NewAggregator writes passed results to passedPath and failed results into
// failedDir.
func NewAggregator(passedPath, failedDir string) *Aggregator {
	return &Aggregator{
		passedPath: passedPath,
		failedDir:  failedDir,
		passed:     make(map[string]*FeatureResult),
		summary:    make(map[string]*FeatureSummary),
	}
}

// AddPassed buffers a passed scenario under its feature.
func (a *Aggregator) AddPassed(feature Feature, result ScenarioResult) {
	fr, ok := a.passed[feature.Path]
	if !ok {
		fr = &FeatureResult{Name: feature.Name, Path: feature.Path}
		a.passed[feature.Path] = fr
		a.order = append(a.order, feature.Path)
	}
	fr.Scenarios = append(fr.Scenarios, result)

	fs := a.featureSummary(feature)
	fs.Passed++
	if result.Retries > 0 {
		fs.Retried++
	}
}

// FailedPath returns the per-feature failed results file.
func (a *Aggregator) FailedPath(featureName string) string {
	return filepath.Join(a.failedDir, SanitizeFeatureName(featureName)+FailedFileSuffix)
}

// WriteFailed merges a finally failed scenario into the feature's failed
// results file: existing scenarios are read back, the new one appended and
// the file rewritten.
func (a *Aggregator) WriteFailed(feature Feature, result ScenarioResult) error {
	fs := a.featureSummary(feature)
	fs.Failed++
	if result.Retries > 0 {
		fs.Retried++
	}

	if err := os.MkdirAll(a.failedDir, 0755); err != nil {
		return fmt.Errorf("failed to create failed results directory: %w", err)
	}

	path := a.FailedPath(feature.Name)
	fr := FeatureResult{Name: feature.Name, Path: feature.Path}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var existing FeatureResult
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
		fr.Scenarios = existing.Scenarios
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	fr.Scenarios = append(fr.Scenarios, result)
	return writeJSON(path, fr)
}

// Passed returns the buffered passed results in feature insertion order.
func (a *Aggregator) Passed() []FeatureResult {
	out := make([]FeatureResult, 0, len(a.order))
	for _, path := range a.order {
		out = append(out, *a.passed[path])
	}
	return out
}

// Flush writes all buffered passed results as a single JSON array.
func (a *Aggregator) Flush() error {
	if err := os.MkdirAll(filepath.Dir(a.passedPath), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	return writeJSON(a.passedPath, a.Passed())
}

// Summary returns counts of everything recorded so far.
func (a *Aggregator) Summary() Summary {
	var s Summary
	for _, path := range a.summaryOrder {
		fs := a.summary[path]
		s.Passed += fs.Passed
		s.Failed += fs.Failed
		s.Features = append(s.Features, *fs)
	}
	for _, fr := range a.passed {
		for _, sc := range fr.Scenarios {
			if sc.Retries > 0 {
				s.PassedRetry++
			}
		}
	}
	return s
}

func (a *Aggregator) featureSummary(feature Feature) *FeatureSummary {
	fs, ok := a.summary[feature.Path]
	if !ok {
		fs = &FeatureSummary{Name: feature.Name}
		a.summary[feature.Path] = fs
		a.summaryOrder = append(a.summaryOrder, feature.Path)
	}
	return fs
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
