package logging

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshots(t *testing.T, path string) []string {
	t.Helper()
	matches, err := filepath.Glob(path + "_*.tar.gz")
	require.NoError(t, err)
	return matches
}

func TestRotateIfNeeded(t *testing.T) {
	t.Run("missing file is a noop", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forksync.log")
		require.NoError(t, RotateIfNeeded(path, 10, 3))
		assert.Empty(t, snapshots(t, path))
	})

	t.Run("below threshold is a noop", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forksync.log")
		require.NoError(t, os.WriteFile(path, []byte("short"), 0o644))

		require.NoError(t, RotateIfNeeded(path, 1024, 3))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, int64(len("short")), info.Size())
		assert.Empty(t, snapshots(t, path))
	})

	t.Run("at threshold rotates and truncates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forksync.log")
		content := strings.Repeat("log line\n", 20)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		require.NoError(t, RotateIfNeeded(path, int64(len(content)), 3))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Zero(t, info.Size())

		snaps := snapshots(t, path)
		require.Len(t, snaps, 1)

		// the snapshot holds the pre-rotation content
		f, err := os.Open(snaps[0])
		require.NoError(t, err)
		defer f.Close()

		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		tr := tar.NewReader(gz)

		hdr, err := tr.Next()
		require.NoError(t, err)
		assert.Equal(t, "forksync.log", hdr.Name)

		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("zero max size disables rotation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forksync.log")
		require.NoError(t, os.WriteFile(path, []byte("anything"), 0o644))

		require.NoError(t, RotateIfNeeded(path, 0, 3))
		assert.Empty(t, snapshots(t, path))
	})
}

func TestPruneSnapshots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forksync.log")

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("%s_2026082%d_120000.tar.gz", path, i)
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	require.NoError(t, pruneSnapshots(path, 2))

	remaining := snapshots(t, path)
	require.Len(t, remaining, 2)
	// the newest two survive
	assert.Contains(t, remaining[0], "20260823")
	assert.Contains(t, remaining[1], "20260824")
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forksync.log")

	logger, err := New(Options{Path: path, MaxSize: 1 << 20, Retention: 3})
	require.NoError(t, err)

	logger.Info("hello from the test")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the test")
}
