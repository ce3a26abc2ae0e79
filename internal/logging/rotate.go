package logging

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const rotatedTimestampLayout = "20060102_150405"

// RotateIfNeeded compresses the log at path into a timestamped tar.gz next
// to it and truncates the live file, when the live file has reached maxSize.
// Rotated snapshots beyond keep are deleted oldest first. A maxSize of zero
// disables rotation.
func RotateIfNeeded(path string, maxSize int64, keep int) error {
	if maxSize <= 0 {
		return nil
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < maxSize {
		return nil
	}

	snapshot := fmt.Sprintf("%s_%s.tar.gz", path, time.Now().Format(rotatedTimestampLayout))
	if err := compressFile(path, snapshot, info); err != nil {
		return err
	}

	if err := os.Truncate(path, 0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", path, err)
	}

	return pruneSnapshots(path, keep)
}

func compressFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(src)

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := io.Copy(tw, in); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// pruneSnapshots deletes the oldest rotated snapshots of path beyond keep.
// Snapshot names sort chronologically because of the timestamp suffix.
func pruneSnapshots(path string, keep int) error {
	if keep < 0 {
		keep = 0
	}

	snapshots, err := filepath.Glob(path + "_*.tar.gz")
	if err != nil {
		return err
	}
	sort.Strings(snapshots)

	for len(snapshots) > keep {
		if err := os.Remove(snapshots[0]); err != nil {
			return fmt.Errorf("failed to delete rotated log %s: %w", snapshots[0], err)
		}
		snapshots = snapshots[1:]
	}

	return nil
}
