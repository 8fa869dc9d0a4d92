package ops

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsoknownaszac/tendly/internal/cache"
)

func TestBackupRestoreCacheDir_RoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	store, err := cache.NewFileStore(src)
	require.NoError(t, err)

	require.NoError(t, cache.SetJSON(store, cache.KeyTasks, []string{"task_1"}))
	require.NoError(t, cache.SetJSON(store, cache.KeyCompost, 128))
	require.NoError(t, cache.SetJSON(store, cache.KeyLevel, 3))

	// Non-json droppings in the data dir stay out of the archive.
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("scratch"), 0o644))

	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	require.NoError(t, BackupCacheDir(src, archive))

	restoreDir := filepath.Join(t.TempDir(), "restore")
	require.NoError(t, RestoreCacheDir(archive, restoreDir))

	restored, err := cache.NewFileStore(restoreDir)
	require.NoError(t, err)

	var compost int
	ok, err := cache.GetJSON(restored, cache.KeyCompost, &compost)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 128, compost)

	var tasks []string
	ok, err = cache.GetJSON(restored, cache.KeyTasks, &tasks)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"task_1"}, tasks)

	_, err = os.Stat(filepath.Join(restoreDir, "notes.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestRestoreCacheDir_RejectsPathTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bad.tar.gz")
	f, err := os.Create(archive)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../escape.json",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len("bad")),
	}))
	_, err = tw.Write([]byte("bad"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	err = RestoreCacheDir(archive, filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
}

func TestRestoreCacheDir_RejectsNestedEntries(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "nested.tar.gz")
	f, err := os.Create(archive)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "sub/dir.json",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     0,
	}))
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	err = RestoreCacheDir(archive, filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
}
