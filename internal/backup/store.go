// Package backup manages the flat directory of repository archives. There is
// no index file; the directory listing is the only source of truth and is
// parsed into typed records once per run.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Archive is one backup file discovered in the store directory.
type Archive struct {
	Repo      string    `json:"repo"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
}

// Store reads and writes archives in a single directory.
type Store struct {
	dir    string
	logger *logrus.Logger
}

// NewStore creates a store over dir. The directory is created lazily on the
// first write.
func NewStore(dir string, logger *logrus.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger,
	}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Scan lists every archive in the directory, oldest first. Files that do not
// match the naming convention are logged and skipped, never touched.
func (s *Store) Scan() ([]Archive, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory %s: %w", s.dir, err)
	}

	var archives []Archive
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		repo, ts, ok := ParseArchiveName(entry.Name())
		if !ok {
			if filepath.Ext(entry.Name()) == ".zip" {
				s.logger.WithField("file", entry.Name()).Debug("Skipping file outside the archive naming convention")
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}

		archives = append(archives, Archive{
			Repo:      repo,
			Timestamp: ts,
			Path:      filepath.Join(s.dir, entry.Name()),
			Size:      info.Size(),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		if archives[i].Timestamp.Equal(archives[j].Timestamp) {
			return archives[i].Path < archives[j].Path
		}
		return archives[i].Timestamp.Before(archives[j].Timestamp)
	})

	return archives, nil
}

// List returns the archives belonging to one repository, oldest first.
func (s *Store) List(repo string) ([]Archive, error) {
	all, err := s.Scan()
	if err != nil {
		return nil, err
	}

	var archives []Archive
	for _, a := range all {
		if a.Repo == repo {
			archives = append(archives, a)
		}
	}
	return archives, nil
}

// Write streams r into a new archive for repo timestamped at ts. A partial
// file left by a failed copy is removed.
func (s *Store) Write(repo string, ts time.Time, r io.Reader) (*Archive, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, ArchiveName(repo, ts))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive %s: %w", path, err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write archive %s: %w", path, err)
	}

	return &Archive{Repo: repo, Timestamp: ts, Path: path, Size: size}, nil
}

// Prune deletes the oldest archives of repo beyond keep, returning the
// deleted records.
func (s *Store) Prune(repo string, keep int) ([]Archive, error) {
	if keep < 0 {
		keep = 0
	}

	archives, err := s.List(repo)
	if err != nil {
		return nil, err
	}
	if len(archives) <= keep {
		return nil, nil
	}

	var deleted []Archive
	for _, a := range archives[:len(archives)-keep] {
		if err := os.Remove(a.Path); err != nil {
			return deleted, fmt.Errorf("failed to delete archive %s: %w", a.Path, err)
		}
		s.logger.WithField("file", filepath.Base(a.Path)).Info("Deleted archive beyond retention")
		deleted = append(deleted, a)
	}

	return deleted, nil
}

// CleanOrphans deletes archives whose repository is absent from forks.
// Non-matching filenames never reach this point because Scan skips them.
func (s *Store) CleanOrphans(forks map[string]struct{}) ([]Archive, error) {
	archives, err := s.Scan()
	if err != nil {
		return nil, err
	}

	var deleted []Archive
	for _, a := range archives {
		if _, ok := forks[a.Repo]; ok {
			continue
		}
		if err := os.Remove(a.Path); err != nil {
			return deleted, fmt.Errorf("failed to delete orphan archive %s: %w", a.Path, err)
		}
		s.logger.WithFields(logrus.Fields{
			"file": filepath.Base(a.Path),
			"repo": a.Repo,
		}).Info("Deleted orphan archive")
		deleted = append(deleted, a)
	}

	return deleted, nil
}

// DiskUsage returns the total size in bytes of all archives in the store.
func (s *Store) DiskUsage() (int64, error) {
	archives, err := s.Scan()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, a := range archives {
		total += a.Size
	}
	return total, nil
}
