package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireExclusive(t *testing.T) {
	target := filepath.Join(t.TempDir(), "dest", "run.csv")

	first, err := Acquire(target)
	require.NoError(t, err)
	assert.Equal(t, target+LockSuffix, first.Path())
	assert.FileExists(t, first.Path())

	_, err = Acquire(target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, first.Release())
	assert.NoFileExists(t, target+LockSuffix)

	again, err := Acquire(target)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestUnlockWithoutLock(t *testing.T) {
	fl := New(filepath.Join(t.TempDir(), "x"))
	assert.NoError(t, fl.Unlock())
	assert.NoError(t, fl.Release())
}

func TestTryLock(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.xlsx")
	a, b := New(target), New(target)

	ok, err := a.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Unlock())
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.html")

	require.NoError(t, AtomicWrite(path, []byte("first")))
	require.NoError(t, AtomicWrite(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}
