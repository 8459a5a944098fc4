package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercise runs the same contract checks against both implementations.
func exercise(t *testing.T, fsys FileSystem, root string) {
	t.Helper()
	dir := filepath.Join(root, "params", "d")

	require.NoError(t, fsys.MkdirAll(dir, 0o755))

	_, err := fsys.ReadFile(filepath.Join(dir, "AccelPersonality"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)

	tmp := filepath.Join(dir, ".tmp_AccelPersonality")
	require.NoError(t, fsys.WriteFile(tmp, []byte("3"), 0o600))
	require.NoError(t, fsys.Rename(tmp, filepath.Join(dir, "AccelPersonality")))

	data, err := fsys.ReadFile(filepath.Join(dir, "AccelPersonality"))
	require.NoError(t, err)
	assert.Equal(t, "3", string(data))

	require.NoError(t, fsys.WriteFile(filepath.Join(dir, "IsMetric"), []byte("1"), 0o600))
	names, err := fsys.ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"AccelPersonality", "IsMetric"}, names)

	require.NoError(t, fsys.Remove(filepath.Join(dir, "IsMetric")))
	err = fsys.Remove(filepath.Join(dir, "IsMetric"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)

	_, err = fsys.ListFiles(filepath.Join(root, "missing"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}

func TestOSFileSystem(t *testing.T) {
	exercise(t, OSFileSystem{}, t.TempDir())
}

func TestMemoryFileSystem(t *testing.T) {
	exercise(t, NewMemoryFileSystem(), "/data")
}

func TestMemoryFileSystem_WriteNeedsParent(t *testing.T) {
	mfs := NewMemoryFileSystem()
	err := mfs.WriteFile("/nowhere/key", []byte("x"), 0o600)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}

func TestMemoryFileSystem_ReadReturnsCopy(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/key", []byte("12"), 0o600))

	data, err := mfs.ReadFile("/key")
	require.NoError(t, err)
	data[0] = '9'

	again, err := mfs.ReadFile("/key")
	require.NoError(t, err)
	assert.Equal(t, "12", string(again))
}

func TestMemoryFileSystem_RenameMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()
	err := mfs.Rename("/a", "/b")
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}
