// Package lifecycle orchestrates the execution lifecycle of BDD scenario
// attempts.
//
// # Attempts
//
// Every execution of a scenario template is an Attempt. The Orchestrator
// gives each attempt a unique identity, an isolated browser session, a
// scenario-scoped logger and a per-attempt data bag. When the attempt ends it
// resolves whether the attempt was final, captures artifacts, records the
// result and releases the session.
//
// # Retries
//
// Attempts of the same logical scenario share a key. The attempt number for
// a key increases until the scenario passes or the number reaches
// maxRetries+1:
//
//	RUNNING -> PASSED
//	RUNNING -> FAILED_RETRYING -> RUNNING (next attempt, same key)
//	RUNNING -> FAILED_FINAL
//
// # Crash recovery
//
// The start of each attempt is recorded in the global data bag before any
// artifact is created and its completion after all artifacts are filed. If
// the next attempt finds the previous one started but not completed, the
// orphan's log and video directories are removed and its retry counter is
// decremented, so the next attempt looks like an ordinary retry.
//
// # Driving
//
// The Orchestrator implements Listener. A runner invokes the callbacks in
// order, strictly sequentially:
//
//	OnSuiteStart
//	  OnScenarioStart, OnStepEnd..., OnScenarioEnd   (per attempt)
//	OnSuiteEnd
package lifecycle
