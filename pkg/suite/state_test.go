package suite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/bddrun/pkg/databag"
)

type fakeSignal struct {
	resets int
	err    error
}

func (f *fakeSignal) Reset() error {
	f.resets++
	return f.err
}

func TestState_NextAttemptCountsPerKey(t *testing.T) {
	s := New(databag.NewMemory(), nil)
	require.NoError(t, s.Init(2))

	assert.Equal(t, 1, s.NextAttempt("Login"))
	assert.Equal(t, 2, s.NextAttempt("Login"))
	assert.Equal(t, 1, s.NextAttempt("Checkout"))
	assert.Equal(t, 3, s.NextAttempt("Login"))

	n, ok := s.Count("Login")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, s.MaxRetries())
}

func TestState_FailuresThenPass(t *testing.T) {
	for failures := 0; failures < 5; failures++ {
		s := New(databag.NewMemory(), nil)
		require.NoError(t, s.Init(10))

		for i := 0; i <= failures; i++ {
			s.NextAttempt("k")
		}

		n, _ := s.Count("k")
		assert.Equal(t, failures+1, n)
	}
}

func TestState_InitResetsCountersAndSignal(t *testing.T) {
	signal := &fakeSignal{}
	s := New(databag.NewMemory(), signal)
	require.NoError(t, s.Init(1))
	s.NextAttempt("Login")

	require.NoError(t, s.Init(1))
	_, ok := s.Count("Login")
	assert.False(t, ok)
	assert.Equal(t, 2, signal.resets)
}

func TestState_InitErrors(t *testing.T) {
	s := New(databag.NewMemory(), &fakeSignal{err: errors.New("denied")})
	assert.Error(t, s.Init(1))
	assert.Error(t, New(databag.NewMemory(), nil).Init(-1))
}

func TestState_Decrement(t *testing.T) {
	s := New(databag.NewMemory(), nil)
	require.NoError(t, s.Init(3))

	s.NextAttempt("Checkout")
	s.NextAttempt("Checkout")
	s.Decrement("Checkout")
	n, ok := s.Count("Checkout")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	s.Decrement("Checkout")
	_, ok = s.Count("Checkout")
	assert.False(t, ok, "counter dropping to zero is removed")
	assert.Equal(t, 1, s.NextAttempt("Checkout"))

	s.Decrement("missing")
	_, ok = s.Count("missing")
	assert.False(t, ok)
}

func TestState_RecoveryFlags(t *testing.T) {
	s := New(databag.NewMemory(), nil)

	_, orphaned := s.Recovery()
	assert.False(t, orphaned, "unset flag counts as completed")

	require.NoError(t, s.MarkStarted("Checkout-100", "Checkout"))
	point, orphaned := s.Recovery()
	assert.True(t, orphaned)
	assert.Equal(t, RecoveryPoint{ArtifactDir: "Checkout-100", RetryKey: "Checkout"}, point)

	require.NoError(t, s.MarkCompleted())
	_, orphaned = s.Recovery()
	assert.False(t, orphaned)
}

func TestState_ClearRecovery(t *testing.T) {
	bag := databag.NewMemory()
	s := New(bag, nil)

	require.NoError(t, s.MarkStarted("Checkout-100", "Checkout"))
	require.NoError(t, s.ClearRecovery())

	_, orphaned := s.Recovery()
	assert.False(t, orphaned)
	_, ok := bag.Get(KeyLastArtifactDir)
	assert.False(t, ok)
	_, ok = bag.Get(KeyLastRetryKey)
	assert.False(t, ok)
}

func TestState_RecoverySurvivesProcessRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	bag, err := databag.OpenFile(path)
	require.NoError(t, err)
	first := New(bag, nil)
	require.NoError(t, first.Init(2))
	require.NoError(t, first.MarkStarted("Checkout-100", "Checkout"))

	reopened, err := databag.OpenFile(path)
	require.NoError(t, err)
	second := New(reopened, nil)
	require.NoError(t, second.Init(2))

	point, orphaned := second.Recovery()
	assert.True(t, orphaned)
	assert.Equal(t, "Checkout-100", point.ArtifactDir)
	assert.Equal(t, "Checkout", point.RetryKey)
}

func TestState_Forget(t *testing.T) {
	s := New(databag.NewMemory(), nil)
	require.NoError(t, s.Init(0))

	s.NextAttempt("Login")
	s.NextAttempt("Login")
	s.Forget("Login")
	s.Forget("missing")

	_, ok := s.Count("Login")
	assert.False(t, ok)
	assert.Equal(t, 1, s.NextAttempt("Login"))
}
