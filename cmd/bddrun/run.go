package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/entrhq/bddrun/pkg/artifacts"
	"github.com/entrhq/bddrun/pkg/browser"
	"github.com/entrhq/bddrun/pkg/config"
	"github.com/entrhq/bddrun/pkg/databag"
	"github.com/entrhq/bddrun/pkg/lifecycle"
	"github.com/entrhq/bddrun/pkg/logging"
	"github.com/entrhq/bddrun/pkg/metrics"
	"github.com/entrhq/bddrun/pkg/report"
	"github.com/entrhq/bddrun/pkg/runner"
	"github.com/entrhq/bddrun/pkg/steps"
)

// run wires the components together and executes the suite.
//
//nolint:gocyclo
func run(ctx context.Context, cfg *config.Config) error {
	level, err := report.ParseLevel(cfg.Logging.Verbosity)
	if err != nil {
		return err
	}
	console := report.NewConsole(os.Stdout, level)

	runID := logging.NewRunID()
	layout := artifacts.NewLayout(cfg.ResultsDir)

	// The suite log lives under the state directory so clean_artifacts
	// cannot remove it mid-run.
	suiteLog, err := logging.NewSuiteLogger(filepath.Join(layout.Root, artifacts.StateDir, artifacts.LogsDir), runID)
	if err != nil {
		console.Errorf("Suite log unavailable, logging to stderr: %v", err)
	}
	defer suiteLog.Close()

	suiteLog.Infof("Starting bddrun v%s (run %s)", version, runID)
	suiteLog.Infof("Features: %s", strings.Join(cfg.Features, ", "))
	suiteLog.Infof("Results: %s, max retries: %d", layout.Root, cfg.MaxRetries)

	global, err := databag.OpenFile(layout.StateFile())
	if err != nil {
		return fmt.Errorf("failed to open suite state: %w", err)
	}

	factory, err := browser.NewFactory(cfg.BrowserOptions())
	if err != nil {
		return fmt.Errorf("failed to configure browser: %w", err)
	}
	// Closing twice is harmless; the orchestrator closes it at suite end.
	defer factory.Close()

	if err := factory.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	recorder := metrics.New(runID)

	orchestrator, err := lifecycle.New(
		lifecycle.Config{
			ResultsDir:           cfg.ResultsDir,
			MaxRetries:           cfg.MaxRetries,
			IgnoreHTTPSErrorTags: cfg.Tags.IgnoreHTTPSErrors,
			CleanArtifacts:       cfg.CleanArtifacts,
		},
		lifecycle.Dependencies{
			Global:   global,
			Sessions: factory,
			Sink:     report.NewDirSink(layout),
			Log:      suiteLog,
			Narrator: console,
			Metrics:  recorder,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	registry := runner.NewRegistry()
	if err := steps.Register(registry, steps.Options{BaseURL: cfg.BaseURL}); err != nil {
		return fmt.Errorf("failed to register steps: %w", err)
	}

	r, err := runner.New(orchestrator, registry, runner.Options{
		Include:     cfg.Tags.Include,
		Exclude:     cfg.Tags.Exclude,
		StepTimeout: cfg.StepTimeout,
		MaxRetries:  cfg.MaxRetries,
	}, suiteLog)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	console.Header(fmt.Sprintf("bddrun v%s: %s (%s)", version, strings.Join(cfg.Features, ", "), cfg.Browser.Engine))

	stats, runErr := r.Run(ctx, cfg.Features)
	suiteLog.Infof("Run finished: %d features, %d scenarios, %d skipped, %d attempts, %d passed, %d failed",
		stats.Features, stats.Scenarios, stats.Skipped, stats.Attempts, stats.Passed, stats.Failed)

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			suiteLog.Errorf("Failed to write metrics: %v", err)
			console.Errorf("Failed to write metrics to %s: %v", cfg.MetricsFile, err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	if orchestrator.Failed() {
		return fmt.Errorf("%d scenario(s) failed: %w", stats.Failed, errScenariosFailed)
	}
	return nil
}
