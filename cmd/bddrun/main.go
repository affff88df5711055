// Package main provides bddrun, a Gherkin scenario runner that drives a
// Playwright browser, retries failed scenarios and repairs attempts
// interrupted by a crash of the previous run.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

const (
	version = "0.1.0"

	// Exit codes. A failed scenario is distinguished from a run that could
	// not execute at all.
	exitScenariosFailed = 1
	exitRunError        = 2
)

// errScenariosFailed reports that at least one scenario failed on its final
// attempt.
var errScenariosFailed = errors.New("scenarios failed")

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, finishing the current step...")
		cancel()
	}()

	err := newApp().RunContext(ctx, os.Args)
	cancel()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "bddrun"
	app.Usage = "Run Gherkin scenarios in a browser with retries and crash recovery"
	app.ArgsUsage = "[feature files or directories...]"
	app.Version = version
	app.Flags = newFlags()
	app.Action = runAction
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		if !errors.Is(err, errScenariosFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return app
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, errScenariosFailed) {
		return exitScenariosFailed
	}
	return exitRunError
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return run(c.Context, cfg)
}
