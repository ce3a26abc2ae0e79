package backup

import (
	"fmt"
	"regexp"
	"time"
)

// Archive filenames encode their repository and creation time:
// <repo>_<YYYYMMDD>_<HHMMSS>.zip. The repo group is greedy, so a repository
// name containing the delimiter pattern still binds the timestamp to the end
// of the filename.
var archiveNamePattern = regexp.MustCompile(`^(.+)_(\d{8}_\d{6})\.zip$`)

const archiveTimestampLayout = "20060102_150405"

// ArchiveName builds the filename for a repository backup taken at ts.
func ArchiveName(repo string, ts time.Time) string {
	return fmt.Sprintf("%s_%s.zip", repo, ts.Format(archiveTimestampLayout))
}

// ParseArchiveName extracts the repository name and timestamp from an archive
// filename. ok is false for files that do not follow the naming convention.
func ParseArchiveName(name string) (repo string, ts time.Time, ok bool) {
	m := archiveNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", time.Time{}, false
	}

	ts, err := time.Parse(archiveTimestampLayout, m[2])
	if err != nil {
		return "", time.Time{}, false
	}

	return m[1], ts, true
}
