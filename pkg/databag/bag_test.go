package databag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	bag := NewMemory()

	require.NoError(t, bag.Set("b", "two"))
	require.NoError(t, bag.Set("a", 1))

	v, ok := String(bag, "b")
	assert.True(t, ok)
	assert.Equal(t, "two", v)

	n, ok := Int(bag, "a")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	assert.Equal(t, []string{"a", "b"}, bag.Keys())

	require.NoError(t, bag.Delete("a"))
	require.NoError(t, bag.Delete("missing"))
	_, ok = bag.Get("a")
	assert.False(t, ok)
}

func TestTypedGetters_WrongType(t *testing.T) {
	bag := NewMemory()
	require.NoError(t, bag.Set("k", "text"))

	_, ok := Bool(bag, "k")
	assert.False(t, ok)
	_, ok = Int(bag, "k")
	assert.False(t, ok)
	_, ok = String(bag, "missing")
	assert.False(t, ok)
}

func TestFile_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "global.json")

	bag, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, bag.Path())

	require.NoError(t, bag.Set("lastCompleted", false))
	require.NoError(t, bag.Set("lastArtifactDir", "Checkout-100"))
	require.NoError(t, bag.Set("count", 3))

	reopened, err := OpenFile(path)
	require.NoError(t, err)

	completed, ok := Bool(reopened, "lastCompleted")
	assert.True(t, ok)
	assert.False(t, completed)

	dir, ok := String(reopened, "lastArtifactDir")
	assert.True(t, ok)
	assert.Equal(t, "Checkout-100", dir)

	count, ok := Int(reopened, "count")
	assert.True(t, ok)
	assert.Equal(t, 3, count)

	require.NoError(t, reopened.Delete("lastArtifactDir"))
	again, err := OpenFile(path)
	require.NoError(t, err)
	_, ok = again.Get("lastArtifactDir")
	assert.False(t, ok)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestOpenFile_Errors(t *testing.T) {
	_, err := OpenFile("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err = OpenFile(path)
	assert.Error(t, err)
}

func TestOpenFile_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	bag, err := OpenFile(path)
	require.NoError(t, err)
	assert.Empty(t, bag.Keys())
}
