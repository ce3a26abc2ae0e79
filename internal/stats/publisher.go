// Package stats renders run statistics and republishes them into the
// organization profile README between marker comments.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forkops/forksync/internal/github"
	"github.com/forkops/forksync/internal/models"
)

const (
	// StartMarker and EndMarker delimit the managed region in the profile
	// README. Text strictly between them is replaced each run.
	StartMarker = "<!-- forksync:start -->"
	EndMarker   = "<!-- forksync:end -->"

	// ProfileRepo is the organization's special repository whose
	// profile/README.md renders on the org page.
	ProfileRepo = ".github"
	ProfilePath = "profile/README.md"

	commitMessage = "chore: update fork sync stats"
)

// ErrMarkersNotFound indicates the profile file lacks the marker pair or has
// the start marker at or after the end marker.
var ErrMarkersNotFound = errors.New("stats markers not found or out of order")

// ContentsAPI is the slice of the GitHub client the publisher needs.
type ContentsAPI interface {
	GetRepository(ctx context.Context, org, repo string) (*github.Repository, error)
	GetContents(ctx context.Context, org, repo, path string) (*github.FileContents, error)
	PutContents(ctx context.Context, org, repo, path, message string, content []byte, sha string) error
}

// Publisher rewrites the stats block in the organization profile.
type Publisher struct {
	client ContentsAPI
	org    string
	logger *logrus.Logger
}

// NewPublisher creates a publisher for the given organization.
func NewPublisher(client ContentsAPI, org string, logger *logrus.Logger) *Publisher {
	return &Publisher{
		client: client,
		org:    org,
		logger: logger,
	}
}

// Publish writes the report into the profile README. Missing repository,
// missing file, missing or misordered markers, and a lost write race all
// abort the step with a log line and a nil error; only transport-level
// failures are returned.
func (p *Publisher) Publish(ctx context.Context, report *models.RunReport) error {
	logger := p.logger.WithField("component", "stats")

	if _, err := p.client.GetRepository(ctx, p.org, ProfileRepo); err != nil {
		if github.IsNotFound(err) {
			logger.Infof("Organization has no %s repository, skipping stats publish", ProfileRepo)
			return nil
		}
		return fmt.Errorf("failed to check profile repository: %w", err)
	}

	file, err := p.client.GetContents(ctx, p.org, ProfileRepo, ProfilePath)
	if err != nil {
		if github.IsNotFound(err) {
			logger.Infof("Profile repository has no %s, skipping stats publish", ProfilePath)
			return nil
		}
		return fmt.Errorf("failed to fetch profile file: %w", err)
	}

	updated, err := ReplaceBetweenMarkers(file.Content, StartMarker, EndMarker, RenderBlock(report))
	if err != nil {
		logger.Warn("Profile file has no usable stats markers, skipping stats publish")
		return nil
	}
	if updated == file.Content {
		logger.Debug("Stats block unchanged, nothing to publish")
		return nil
	}

	if err := p.client.PutContents(ctx, p.org, ProfileRepo, ProfilePath, commitMessage, []byte(updated), file.SHA); err != nil {
		if github.IsConflict(err) {
			logger.Warn("Profile file changed during the run, skipping stats publish")
			return nil
		}
		return fmt.Errorf("failed to write profile file: %w", err)
	}

	logger.Info("Published run statistics to organization profile")
	return nil
}

// RenderBlock builds the fixed-format statistics block for a run.
func RenderBlock(report *models.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Last sync: %s\n", report.FinishedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Repositories processed: %d\n", report.ReposProcessed)
	fmt.Fprintf(&b, "Repositories updated: %d\n", report.ReposUpdated)
	fmt.Fprintf(&b, "Backups created: %d\n", report.BackupsCreated)
	fmt.Fprintf(&b, "Backups deleted: %d\n", report.BackupsDeleted)
	fmt.Fprintf(&b, "Failures: %d\n", report.Failures)
	fmt.Fprintf(&b, "Duration: %s\n", report.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Disk delta: %s", FormatBytes(report.DiskDeltaBytes))
	return b.String()
}

// ReplaceBetweenMarkers replaces the text strictly between the first start
// marker and the first end marker. The content comes back unchanged with
// ErrMarkersNotFound when either marker is missing or the start marker does
// not precede the end marker.
func ReplaceBetweenMarkers(content, start, end, block string) (string, error) {
	startIdx := strings.Index(content, start)
	endIdx := strings.Index(content, end)

	if startIdx == -1 || endIdx == -1 || startIdx >= endIdx {
		return content, ErrMarkersNotFound
	}

	var b strings.Builder
	b.WriteString(content[:startIdx+len(start)])
	b.WriteString("\n")
	b.WriteString(block)
	b.WriteString("\n")
	b.WriteString(content[endIdx:])
	return b.String(), nil
}

// FormatBytes renders a signed byte count in a human-readable unit.
func FormatBytes(n int64) string {
	sign := ""
	if n > 0 {
		sign = "+"
	} else if n < 0 {
		sign = "-"
		n = -n
	}

	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%s%d B", sign, n)
	}

	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s%.1f %ciB", sign, float64(n)/float64(div), "KMGTPE"[exp])
}
