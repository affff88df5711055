// Package config holds the run configuration: a YAML file whose values are
// overridden by command-line flags and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/bddrun/pkg/browser"
)

// Config represents the configuration for a test run
type Config struct {
	// Feature files or directories to run
	Features []string `yaml:"features" json:"features"`

	// ResultsDir receives logs, videos, traces, screenshots and result files
	ResultsDir string `yaml:"results_dir" json:"results_dir"`

	// MaxRetries is the number of retries after a failed first attempt
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// BaseURL resolves relative URLs in navigation steps
	BaseURL string `yaml:"base_url" json:"base_url"`

	// StepTimeout bounds each step; zero disables the limit
	StepTimeout time.Duration `yaml:"step_timeout" json:"step_timeout"`

	// CleanArtifacts removes artifacts of previous runs at suite start
	CleanArtifacts bool `yaml:"clean_artifacts" json:"clean_artifacts"`

	// MetricsFile, when set, receives Prometheus metrics at suite end
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`

	Browser BrowserConfig `yaml:"browser" json:"browser"`
	Tags    TagConfig     `yaml:"tags" json:"tags"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig configures the shared browser
type BrowserConfig struct {
	Engine      string        `yaml:"engine" json:"engine"`
	Headless    bool          `yaml:"headless" json:"headless"`
	Viewport    string        `yaml:"viewport" json:"viewport"` // "screen" or WIDTHxHEIGHT
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	SkipInstall bool          `yaml:"skip_install" json:"skip_install"`
}

// TagConfig holds tag glob patterns
type TagConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`

	// IgnoreHTTPSErrors lists tags whose scenarios accept invalid certificates
	IgnoreHTTPSErrors []string `yaml:"ignore_https_errors" json:"ignore_https_errors"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// BrowserOptions converts the browser section into factory options.
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Engine:      browser.Engine(c.Browser.Engine),
		Headless:    c.Browser.Headless,
		Viewport:    c.Browser.Viewport,
		Timeout:     float64(c.Browser.Timeout.Milliseconds()),
		SkipInstall: c.Browser.SkipInstall,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Features) == 0 {
		return fmt.Errorf("at least one feature path is required")
	}

	if c.ResultsDir == "" {
		return fmt.Errorf("results directory is required")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}

	if c.StepTimeout < 0 {
		return fmt.Errorf("step_timeout cannot be negative")
	}

	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser timeout cannot be negative")
	}

	if _, err := browser.ParseEngine(c.Browser.Engine); err != nil {
		return err
	}

	if _, err := browser.ParseViewport(c.Browser.Viewport); err != nil {
		return err
	}

	// Set default verbosity if not specified
	c.Logging.Verbosity = strings.ToLower(strings.TrimSpace(c.Logging.Verbosity))
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Features:   []string{"features"},
		ResultsDir: "test-results",
		MaxRetries: 0,
		Browser: BrowserConfig{
			Engine:   string(browser.EngineChromium),
			Headless: true,
			Viewport: browser.ViewportScreen,
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
