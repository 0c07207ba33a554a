package marker

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestFileMarker_AcquireRelease creates and removes the marker.
func TestFileMarker_AcquireRelease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := NewFileMarker(dir)

	require.NoError(t, m.Acquire(context.Background()))
	require.FileExists(t, filepath.Join(dir, Filename))

	require.NoError(t, m.Release(context.Background()))
	require.NoFileExists(t, filepath.Join(dir, Filename))

	// Releasing twice is harmless.
	require.NoError(t, m.Release(context.Background()))
}

// TestFileMarker_LiveOwnerBlocks refuses a second run while the owner is alive.
func TestFileMarker_LiveOwnerBlocks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Filename), []byte("424242"), 0o600))

	m := NewFileMarker(dir, WithProcessLookup(func(pid int) (bool, error) {
		require.Equal(t, 424242, pid)
		return true, nil
	}))

	require.ErrorIs(t, m.Acquire(context.Background()), ErrRunInProgress)

	// A refused marker must not be removed by Release.
	require.NoError(t, m.Release(context.Background()))
	require.FileExists(t, filepath.Join(dir, Filename))
}

// TestFileMarker_SameProcessBlocks prevents re-entrant runs from one process.
func TestFileMarker_SameProcessBlocks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first := NewFileMarker(dir)
	require.NoError(t, first.Acquire(context.Background()))

	second := NewFileMarker(dir)
	require.ErrorIs(t, second.Acquire(context.Background()), ErrRunInProgress)

	require.NoError(t, first.Release(context.Background()))
	require.NoError(t, second.Acquire(context.Background()))
	require.NoError(t, second.Release(context.Background()))
}

// TestFileMarker_ReclaimsStale takes over markers of dead or expired owners.
func TestFileMarker_ReclaimsStale(t *testing.T) {
	t.Parallel()

	t.Run("owner exited", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, Filename), []byte("424242"), 0o600))

		m := NewFileMarker(dir, WithProcessLookup(func(int) (bool, error) { return false, nil }))
		require.NoError(t, m.Acquire(context.Background()))

		data, err := os.ReadFile(m.Path())
		require.NoError(t, err)
		require.Equal(t, strconv.Itoa(os.Getpid()), string(data))
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, Filename)
		require.NoError(t, os.WriteFile(path, []byte("424242"), 0o600))

		old := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(path, old, old))

		m := NewFileMarker(dir,
			WithLifetime(time.Minute),
			WithProcessLookup(func(int) (bool, error) { return true, nil }))
		require.NoError(t, m.Acquire(context.Background()))
	})

	t.Run("garbage owner", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, Filename), []byte("not-a-pid"), 0o600))

		m := NewFileMarker(dir)
		require.NoError(t, m.Acquire(context.Background()))
	})
}

// TestProcessExists finds the current process through go-ps.
func TestProcessExists(t *testing.T) {
	t.Parallel()

	ok, err := processExists(os.Getpid())
	require.NoError(t, err)
	require.True(t, ok)
}
