package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/bddrun/pkg/artifacts"
	"github.com/entrhq/bddrun/pkg/databag"
	"github.com/entrhq/bddrun/pkg/results"
	"github.com/entrhq/bddrun/pkg/scenario"
	"github.com/entrhq/bddrun/pkg/suite"
)

type fakeSession struct {
	alive  bool
	closed int
}

func (s *fakeSession) Screenshot(path string) ([]byte, error) {
	data := []byte("png")
	return data, os.WriteFile(path, data, 0644)
}

func (s *fakeSession) VideoPath() (string, error) {
	return "video.webm", nil
}

func (s *fakeSession) StopTrace(path string) error {
	return os.WriteFile(path, []byte("zip"), 0644)
}

func (s *fakeSession) Close() error {
	s.closed++
	s.alive = false
	return nil
}

func (s *fakeSession) Alive() bool {
	return s.alive
}

type fakeFactory struct {
	err      error
	requests []SessionRequest
	sessions []*fakeSession
	closed   bool
}

func (f *fakeFactory) NewSession(_ context.Context, req SessionRequest) (Session, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeSession{alive: true}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeFactory) Close() error {
	f.closed = true
	return nil
}

type countingRecorder struct {
	states  []string
	orphans int
	signals int
}

func (r *countingRecorder) AttemptFinished(state string, _ int, _ time.Duration) {
	r.states = append(r.states, state)
}
func (r *countingRecorder) OrphanRecovered()    { r.orphans++ }
func (r *countingRecorder) ArtifactErrors(int)  {}
func (r *countingRecorder) BuildSignalEmitted() { r.signals++ }

type harness struct {
	orch     *Orchestrator
	factory  *fakeFactory
	recorder *countingRecorder
	global   databag.Bag
	layout   artifacts.Layout
}

func newHarness(t *testing.T, root string, config Config, global databag.Bag) *harness {
	t.Helper()

	config.ResultsDir = root
	if global == nil {
		global = databag.NewMemory()
	}

	now := time.UnixMilli(100)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	h := &harness{
		factory:  &fakeFactory{},
		recorder: &countingRecorder{},
		global:   global,
		layout:   artifacts.NewLayout(root),
	}

	orch, err := New(config, Dependencies{
		Global:   global,
		Sessions: h.factory,
		Metrics:  h.recorder,
		Clock:    clock,
	})
	require.NoError(t, err)
	h.orch = orch
	return h
}

// run executes one attempt, failing the step equal to failAt.
func (h *harness) run(t *testing.T, info scenario.Info, failAt string) (*Attempt, Outcome) {
	t.Helper()
	ctx := context.Background()

	a, err := h.orch.OnScenarioStart(ctx, info)
	require.NoError(t, err)

	status := StatusPassed
	for _, step := range info.Steps {
		var stepErr error
		if step == failAt {
			stepErr = errors.New("assertion failed")
			status = StatusFailed
		}
		require.NoError(t, h.orch.OnStepEnd(ctx, a, step, stepErr))
		if stepErr != nil {
			break
		}
	}

	outcome, err := h.orch.OnScenarioEnd(ctx, a, status)
	require.NoError(t, err)
	return a, outcome
}

func loginInfo() scenario.Info {
	return scenario.Info{
		Name:        "Login",
		FeatureName: "Login",
		FeaturePath: "features/login.feature",
		Steps:       []string{"I open the login page", "I sign in"},
	}
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Config{}, Dependencies{})
	assert.Error(t, err)

	_, err = New(Config{ResultsDir: "r", MaxRetries: -1}, Dependencies{Global: databag.NewMemory(), Sessions: &fakeFactory{}})
	assert.Error(t, err)

	_, err = New(Config{ResultsDir: "r"}, Dependencies{Sessions: &fakeFactory{}})
	assert.Error(t, err)

	_, err = New(Config{ResultsDir: "r"}, Dependencies{Global: databag.NewMemory()})
	assert.Error(t, err)
}

func TestOrchestrator_LoginFailsUntilFinal(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t, root, Config{MaxRetries: 2}, nil)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	signal := artifacts.NewBuildSignal(h.layout.BuildSignal())

	for attempt := 1; attempt <= 3; attempt++ {
		a, outcome := h.run(t, loginInfo(), "I sign in")

		count, ok := h.orch.State().Count("Login")
		require.True(t, ok)
		assert.Equal(t, attempt, count)
		assert.Equal(t, attempt, a.Number)
		assert.Equal(t, "I sign in", a.FailedStep())

		if attempt < 3 {
			assert.Equal(t, StateFailedRetrying, outcome.State)
			assert.False(t, outcome.Final)
			assert.False(t, signal.Exists(), "no signal before the final attempt")
		} else {
			assert.Equal(t, StateFailedFinal, outcome.State)
			assert.True(t, outcome.Final)
		}
	}

	content, err := os.ReadFile(h.layout.BuildSignal())
	require.NoError(t, err)
	assert.Equal(t, "failed", string(content))

	raw, err := os.ReadFile(filepath.Join(h.layout.FailedResultsDir(), "login-failed-scenarios.json"))
	require.NoError(t, err)
	var fr results.FeatureResult
	require.NoError(t, json.Unmarshal(raw, &fr))
	require.Len(t, fr.Scenarios, 1)
	assert.Equal(t, 2, fr.Scenarios[0].Retries)
	assert.Equal(t, "I sign in", fr.Scenarios[0].FailedStep)

	assert.Equal(t, []string{"failed_retrying", "failed_retrying", "failed_final"}, h.recorder.states)
	assert.Equal(t, 1, h.recorder.signals)
	assert.True(t, h.orch.Failed())

	for _, s := range h.factory.sessions {
		assert.Equal(t, 1, s.closed)
	}

	require.NoError(t, h.orch.OnSuiteEnd(ctx))
	assert.True(t, h.factory.closed)
}

func TestOrchestrator_PassAfterFailures(t *testing.T) {
	h := newHarness(t, t.TempDir(), Config{MaxRetries: 3}, nil)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	const failures = 2
	for i := 0; i < failures; i++ {
		_, outcome := h.run(t, loginInfo(), "I sign in")
		assert.False(t, outcome.Final)
	}
	a, outcome := h.run(t, loginInfo(), "")

	assert.True(t, outcome.Final, "a passed attempt is always final")
	assert.Equal(t, StatePassed, outcome.State)
	count, _ := h.orch.State().Count("Login")
	assert.Equal(t, failures+1, count)
	assert.Equal(t, failures, a.Retries())
	assert.Empty(t, a.FailedStep())

	require.NoError(t, h.orch.OnSuiteEnd(ctx))

	raw, err := os.ReadFile(h.layout.PassedResults())
	require.NoError(t, err)
	var passed []results.FeatureResult
	require.NoError(t, json.Unmarshal(raw, &passed))
	require.Len(t, passed, 1)
	assert.Equal(t, "features/login.feature", passed[0].Path)
	require.Len(t, passed[0].Scenarios, 1)
	assert.Equal(t, failures, passed[0].Scenarios[0].Retries)
	assert.Equal(t, int64(1000), passed[0].Scenarios[0].Duration)

	assert.False(t, h.orch.Failed())
	assert.False(t, artifacts.NewBuildSignal(h.layout.BuildSignal()).Exists())
}

func TestOrchestrator_SignalOnlyOnFirstFinalFailure(t *testing.T) {
	h := newHarness(t, t.TempDir(), Config{MaxRetries: 0}, nil)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	first := loginInfo()
	second := loginInfo()
	second.Name = "Logout"

	h.run(t, first, "I sign in")
	info, err := os.Stat(h.layout.BuildSignal())
	require.NoError(t, err)

	h.run(t, second, "I sign in")
	again, err := os.Stat(h.layout.BuildSignal())
	require.NoError(t, err)

	assert.Equal(t, info.ModTime(), again.ModTime())
	assert.Equal(t, 1, h.recorder.signals)

	raw, err := os.ReadFile(filepath.Join(h.layout.FailedResultsDir(), "login-failed-scenarios.json"))
	require.NoError(t, err)
	var fr results.FeatureResult
	require.NoError(t, json.Unmarshal(raw, &fr))
	assert.Len(t, fr.Scenarios, 2, "failures of one feature are merged")
}

func TestOrchestrator_RecoversCrashFromPreviousRun(t *testing.T) {
	root := t.TempDir()
	layout := artifacts.NewLayout(root)

	global, err := databag.OpenFile(layout.StateFile())
	require.NoError(t, err)
	require.NoError(t, suite.New(global, nil).MarkStarted("Checkout-100", "Checkout"))

	for _, dir := range []string{layout.LogDir("Checkout-100"), layout.VideoDir("Checkout-100")} {
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "partial"), []byte("x"), 0644))
	}

	// A new process reopens the persisted bag.
	reopened, err := databag.OpenFile(layout.StateFile())
	require.NoError(t, err)
	h := newHarness(t, root, Config{MaxRetries: 1}, reopened)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	info := loginInfo()
	info.Name = "Checkout"
	a, _ := h.run(t, info, "")

	assert.NoDirExists(t, layout.LogDir("Checkout-100"))
	assert.NoDirExists(t, layout.VideoDir("Checkout-100"))
	assert.Equal(t, 1, a.Number)
	assert.Equal(t, 1, h.recorder.orphans)

	_, orphaned := h.orch.State().Recovery()
	assert.False(t, orphaned)
	dir, _ := databag.String(reopened, suite.KeyLastArtifactDir)
	assert.Equal(t, a.Identity.Name, dir, "pointers now name the latest attempt")
}

func TestOrchestrator_RecoveryDecrementsRetryCounter(t *testing.T) {
	h := newHarness(t, t.TempDir(), Config{MaxRetries: 3}, nil)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	info := loginInfo()
	info.Name = "Checkout"
	h.run(t, info, "I sign in")

	// An attempt that counted itself and started but never reached its end.
	h.orch.State().NextAttempt("Checkout")
	require.NoError(t, h.orch.State().MarkStarted("Checkout-100", "Checkout"))
	count, _ := h.orch.State().Count("Checkout")
	require.Equal(t, 2, count)

	a, _ := h.run(t, info, "")
	assert.Equal(t, 2, a.Number, "the orphaned attempt is not counted")
	assert.Equal(t, 1, h.recorder.orphans)
}

func TestOrchestrator_EnvironmentClosed(t *testing.T) {
	h := newHarness(t, t.TempDir(), Config{MaxRetries: 0}, nil)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	a, err := h.orch.OnScenarioStart(ctx, loginInfo())
	require.NoError(t, err)
	h.factory.sessions[0].alive = false

	err = h.orch.OnStepEnd(ctx, a, "I open the login page", nil)
	assert.ErrorIs(t, err, ErrEnvironmentClosed)
	assert.Equal(t, "I open the login page", a.FailedStep())

	outcome, err := h.orch.OnScenarioEnd(ctx, a, StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, StateFailedFinal, outcome.State)
}

func TestOrchestrator_SessionFailure(t *testing.T) {
	h := newHarness(t, t.TempDir(), Config{MaxRetries: 0}, nil)
	h.factory.err = errors.New("browser crashed")
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	a, err := h.orch.OnScenarioStart(ctx, loginInfo())
	require.Error(t, err)
	require.NotNil(t, a)
	assert.Nil(t, a.Session)

	outcome, err := h.orch.OnScenarioEnd(ctx, a, StatusFailed)
	require.NoError(t, err)
	assert.True(t, outcome.Final)
	assert.True(t, artifacts.NewBuildSignal(h.layout.BuildSignal()).Exists())
	assert.Nil(t, h.orch.Current())
}

func TestOrchestrator_AttemptOrdering(t *testing.T) {
	h := newHarness(t, t.TempDir(), Config{}, nil)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	a, err := h.orch.OnScenarioStart(ctx, loginInfo())
	require.NoError(t, err)

	_, err = h.orch.OnScenarioStart(ctx, loginInfo())
	assert.ErrorIs(t, err, ErrAttemptActive)

	_, err = h.orch.OnScenarioEnd(ctx, &Attempt{}, StatusPassed)
	assert.ErrorIs(t, err, ErrNoActiveAttempt)

	outcome, err := h.orch.OnScenarioEnd(ctx, a, StatusPending)
	require.NoError(t, err)
	assert.Equal(t, StateFailedFinal, outcome.State, "an attempt ended without a verdict failed")
}

func TestOrchestrator_SuiteEndAbandonsRunningAttempt(t *testing.T) {
	h := newHarness(t, t.TempDir(), Config{}, nil)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	_, err := h.orch.OnScenarioStart(ctx, loginInfo())
	require.NoError(t, err)

	require.NoError(t, h.orch.OnSuiteEnd(ctx))
	assert.Equal(t, 1, h.factory.sessions[0].closed)

	point, orphaned := h.orch.State().Recovery()
	assert.True(t, orphaned, "the next run repairs the abandoned attempt")
	assert.Equal(t, "Login", point.RetryKey)
}

func TestOrchestrator_SuiteStartResetsResults(t *testing.T) {
	root := t.TempDir()
	layout := artifacts.NewLayout(root)
	require.NoError(t, os.MkdirAll(layout.FailedResultsDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(layout.FailedResultsDir(), "old-failed-scenarios.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(layout.PassedResults(), []byte("[]"), 0644))
	require.NoError(t, os.WriteFile(layout.BuildSignal(), []byte("failed"), 0644))
	require.NoError(t, os.MkdirAll(layout.LogDir("Old-1"), 0755))

	h := newHarness(t, root, Config{}, nil)
	require.NoError(t, h.orch.OnSuiteStart(context.Background()))

	assert.NoFileExists(t, layout.PassedResults())
	assert.NoFileExists(t, layout.BuildSignal())
	assert.NoFileExists(t, filepath.Join(layout.FailedResultsDir(), "old-failed-scenarios.json"))
	assert.DirExists(t, layout.FailedResultsDir())
	assert.DirExists(t, layout.LogDir("Old-1"), "artifacts are kept by default")

	h = newHarness(t, root, Config{CleanArtifacts: true}, nil)
	require.NoError(t, h.orch.OnSuiteStart(context.Background()))
	assert.NoDirExists(t, layout.LogDir("Old-1"))
}

func TestOrchestrator_IgnoreHTTPSErrorsByTag(t *testing.T) {
	h := newHarness(t, t.TempDir(), Config{IgnoreHTTPSErrorTags: []string{"@insecure*"}}, nil)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	tagged := loginInfo()
	tagged.Tags = []string{"@smoke", "@insecure-certs"}
	h.run(t, tagged, "")
	h.run(t, loginInfo(), "")

	require.Len(t, h.factory.requests, 2)
	assert.True(t, h.factory.requests[0].IgnoreHTTPSErrors)
	assert.False(t, h.factory.requests[1].IgnoreHTTPSErrors)
	assert.Equal(t, h.layout.VideoDir(h.factory.requests[0].Identity.Name), h.factory.requests[0].VideoDir)
}

func TestOrchestrator_OutlineIdentity(t *testing.T) {
	h := newHarness(t, t.TempDir(), Config{MaxRetries: 1}, nil)
	ctx := context.Background()
	require.NoError(t, h.orch.OnSuiteStart(ctx))

	info := scenario.Info{
		Name:        "Search",
		FeatureName: "Search",
		FeaturePath: "features/search.feature",
		Steps:       []string{`I search for "shoes"`, "I see 12 results"},
		Examples: []scenario.ExampleTable{{Rows: [][]string{
			{"hats", "3"},
			{"shoes", "12"},
		}}},
	}

	a, _ := h.run(t, info, "I see 12 results")
	assert.Equal(t, "Search[shoes, 12]", a.Identity.Key)
	count, _ := h.orch.State().Count("Search[shoes, 12]")
	assert.Equal(t, 1, count)
	assert.FileExists(t, h.layout.LogFile(a.Identity.Name))
}

func TestOrchestrator_ReusedKeyStartsNewCount(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t, root, Config{MaxRetries: 1}, nil)
	require.NoError(t, h.orch.OnSuiteStart(context.Background()))

	// Two scenarios named "Login", in different features.
	first := loginInfo()
	second := loginInfo()
	second.FeatureName = "Admin"
	second.FeaturePath = "features/admin.feature"

	a, outcome := h.run(t, first, "")
	assert.Equal(t, 1, a.Number)
	assert.Equal(t, StatePassed, outcome.State)

	a, outcome = h.run(t, second, "I sign in")
	assert.Equal(t, 1, a.Number, "a new scenario with the same key counts from 1")
	assert.Equal(t, StateFailedRetrying, outcome.State)

	a, outcome = h.run(t, second, "I sign in")
	assert.Equal(t, 2, a.Number)
	assert.Equal(t, StateFailedFinal, outcome.State)
	assert.True(t, outcome.Final)

	_, err := os.Stat(filepath.Join(h.layout.FailedResultsDir(), "admin-failed-scenarios.json"))
	assert.NoError(t, err)
	assert.True(t, artifacts.NewBuildSignal(h.layout.BuildSignal()).Exists())
}
