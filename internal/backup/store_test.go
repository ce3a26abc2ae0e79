package backup

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewStore(t.TempDir(), logger)
}

func writeArchive(t *testing.T, s *Store, repo string, ts time.Time) *Archive {
	t.Helper()
	a, err := s.Write(repo, ts, strings.NewReader("zip-bytes"))
	require.NoError(t, err)
	return a
}

func TestArchiveName_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 28, 6, 30, 0, 0, time.UTC)

	name := ArchiveName("repo-x", ts)
	assert.Equal(t, "repo-x_20260828_063000.zip", name)

	repo, parsed, ok := ParseArchiveName(name)
	require.True(t, ok)
	assert.Equal(t, "repo-x", repo)
	assert.Equal(t, ts, parsed)
}

func TestParseArchiveName_Rejects(t *testing.T) {
	for _, name := range []string{
		"README.md",
		"repo-x.zip",
		"repo-x_2026_063000.zip",
		"repo-x_20260828_063000.tar.gz",
		"_20260828_063000.zip",
	} {
		_, _, ok := ParseArchiveName(name)
		assert.False(t, ok, name)
	}
}

func TestParseArchiveName_GreedyRepoName(t *testing.T) {
	// underscores in the repository name bind the timestamp to the end
	repo, ts, ok := ParseArchiveName("my_repo_20260101_120000_20260828_063000.zip")
	require.True(t, ok)
	assert.Equal(t, "my_repo_20260101_120000", repo)
	assert.Equal(t, time.Date(2026, 8, 28, 6, 30, 0, 0, time.UTC), ts)
}

func TestStore_ScanAndList(t *testing.T) {
	s := setupTestStore(t)

	t.Run("missing directory is empty", func(t *testing.T) {
		missing := NewStore(filepath.Join(t.TempDir(), "nope"), s.logger)
		archives, err := missing.Scan()
		require.NoError(t, err)
		assert.Empty(t, archives)
	})

	writeArchive(t, s, "repo-a", time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC))
	writeArchive(t, s, "repo-a", time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC))
	writeArchive(t, s, "repo-b", time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))

	// files outside the convention are ignored
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "stray.zip"), []byte("x"), 0o644))

	t.Run("scan sorts oldest first", func(t *testing.T) {
		archives, err := s.Scan()
		require.NoError(t, err)
		require.Len(t, archives, 3)
		assert.Equal(t, "repo-a", archives[0].Repo)
		assert.Equal(t, 26, archives[0].Timestamp.Day())
		assert.Equal(t, "repo-b", archives[2].Repo)
	})

	t.Run("list filters by repo", func(t *testing.T) {
		archives, err := s.List("repo-a")
		require.NoError(t, err)
		require.Len(t, archives, 2)
		assert.True(t, archives[0].Timestamp.Before(archives[1].Timestamp))
	})

	t.Run("disk usage sums archives only", func(t *testing.T) {
		total, err := s.DiskUsage()
		require.NoError(t, err)
		assert.Equal(t, int64(3*len("zip-bytes")), total)
	})
}

func TestStore_Prune(t *testing.T) {
	s := setupTestStore(t)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		writeArchive(t, s, "repo-x", base.AddDate(0, 0, i))
	}
	keeper := writeArchive(t, s, "other-repo", base)

	t.Run("deletes oldest beyond retention", func(t *testing.T) {
		deleted, err := s.Prune("repo-x", 3)
		require.NoError(t, err)
		require.Len(t, deleted, 1)
		assert.Equal(t, base, deleted[0].Timestamp)

		remaining, err := s.List("repo-x")
		require.NoError(t, err)
		require.Len(t, remaining, 3)
		assert.Equal(t, base.AddDate(0, 0, 1), remaining[0].Timestamp)
	})

	t.Run("noop when at or below retention", func(t *testing.T) {
		deleted, err := s.Prune("repo-x", 3)
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})

	t.Run("other repositories untouched", func(t *testing.T) {
		_, err := os.Stat(keeper.Path)
		assert.NoError(t, err)
	})
}

func TestStore_CleanOrphans(t *testing.T) {
	s := setupTestStore(t)

	writeArchive(t, s, "kept-fork", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC))
	orphan1 := writeArchive(t, s, "gone-fork", time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	orphan2 := writeArchive(t, s, "gone-fork", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC))

	strayPath := filepath.Join(s.Dir(), "not-an-archive.zip")
	require.NoError(t, os.WriteFile(strayPath, []byte("x"), 0o644))

	deleted, err := s.CleanOrphans(map[string]struct{}{"kept-fork": {}})
	require.NoError(t, err)
	require.Len(t, deleted, 2)

	for _, path := range []string{orphan1.Path, orphan2.Path} {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), path)
	}

	// archives of current forks and non-matching files survive
	kept, err := s.List("kept-fork")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	_, err = os.Stat(strayPath)
	assert.NoError(t, err)
}
