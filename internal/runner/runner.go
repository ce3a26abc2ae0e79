// Package runner drives one batch sync over every fork of the organization.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forkops/forksync/internal/backup"
	"github.com/forkops/forksync/internal/config"
	"github.com/forkops/forksync/internal/github"
	"github.com/forkops/forksync/internal/models"
)

const descriptionFormat = "Fork | auto-synced with upstream at %s"

// APIClient is the slice of the GitHub client the runner needs.
type APIClient interface {
	ListOrgForks(ctx context.Context, org string) ([]github.Repository, error)
	MergeUpstream(ctx context.Context, org, repo, branch string) (*github.MergeResult, error)
	DownloadArchive(ctx context.Context, org, repo, ref string) (io.ReadCloser, error)
	UpdateDescription(ctx context.Context, org, repo, description string) error
}

// Publisher republishes run statistics after the loop.
type Publisher interface {
	Publish(ctx context.Context, report *models.RunReport) error
}

// History records finished runs.
type History interface {
	SaveRunReport(ctx context.Context, report *models.RunReport) error
}

// Runner executes the sync batch: update, decide-backup, backup, prune and
// describe for every fork, then the optional cleanup and publishing steps.
type Runner struct {
	cfg       *config.Config
	client    APIClient
	store     *backup.Store
	logger    *logrus.Logger
	publisher Publisher
	history   History
	tracker   *Tracker
	now       func() time.Time
}

// Option configures optional collaborators of the Runner.
type Option func(*Runner)

// WithPublisher attaches the stats publisher.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithHistory attaches the run-history store.
func WithHistory(h History) Option {
	return func(r *Runner) {
		r.history = h
	}
}

// WithTracker attaches the live status tracker.
func WithTracker(t *Tracker) Option {
	return func(r *Runner) {
		r.tracker = t
	}
}

// New creates a Runner.
func New(cfg *config.Config, client APIClient, store *backup.Store, logger *logrus.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes one batch. A failing repository is logged and counted, and
// the loop continues with the next one; the returned error is non-nil only
// when the fork listing fails, the context is cancelled, or every repository
// failed.
func (r *Runner) Run(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{StartedAt: r.now()}
	r.tracker.start(report)
	defer r.tracker.finish(report)

	diskBefore, err := r.store.DiskUsage()
	if err != nil {
		return report, fmt.Errorf("failed to measure backup directory: %w", err)
	}

	r.tracker.setPhase(PhaseListing)
	forks, err := r.client.ListOrgForks(ctx, r.cfg.Org)
	if err != nil {
		report.FinishedAt = r.now()
		return report, fmt.Errorf("failed to list forks of %s: %w", r.cfg.Org, err)
	}
	if len(forks) == 0 {
		r.logger.Infof("Organization %s has no forked repositories, nothing to do", r.cfg.Org)
		report.FinishedAt = r.now()
		return report, nil
	}

	r.logger.Infof("Syncing %d forked repositories of %s", len(forks), r.cfg.Org)
	runTimestamp := report.StartedAt

	r.tracker.setPhase(PhaseSyncing)
	for _, repo := range forks {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = r.now()
			return report, err
		}

		r.tracker.setRepo(repo.Name)
		logger := r.logger.WithField("repo", repo.Name)

		report.ReposProcessed++
		if err := r.processRepo(ctx, logger, repo, runTimestamp, report); err != nil {
			logger.WithError(err).Error("Repository sync failed")
			report.Failures++
		}
		r.tracker.update(report)
	}
	r.tracker.setRepo("")

	if r.cfg.OrphanCleanup {
		r.tracker.setPhase(PhaseCleanup)
		r.cleanOrphans(forks, report)
		r.tracker.update(report)
	}

	diskAfter, err := r.store.DiskUsage()
	if err != nil {
		r.logger.WithError(err).Warn("Failed to measure backup directory after the run")
	} else {
		report.DiskDeltaBytes = diskAfter - diskBefore
	}
	report.FinishedAt = r.now()

	if r.publisher != nil && !r.cfg.DryRun {
		r.tracker.setPhase(PhasePublishing)
		if err := r.publisher.Publish(ctx, report); err != nil {
			r.logger.WithError(err).Warn("Failed to publish run statistics")
		}
	}

	if r.history != nil && !r.cfg.DryRun {
		if err := r.history.SaveRunReport(ctx, report); err != nil {
			r.logger.WithError(err).Warn("Failed to record run history")
		}
	}

	r.logger.WithFields(logrus.Fields{
		"repos_processed": report.ReposProcessed,
		"repos_updated":   report.ReposUpdated,
		"backups_created": report.BackupsCreated,
		"backups_deleted": report.BackupsDeleted,
		"failures":        report.Failures,
		"duration":        report.Duration().Round(time.Second).String(),
	}).Info("Sync run finished")

	if report.ReposProcessed > 0 && report.Failures == report.ReposProcessed {
		return report, fmt.Errorf("all %d repositories failed", report.ReposProcessed)
	}

	return report, nil
}

// processRepo runs the per-repository step sequence. The first failing step
// aborts this repository only.
func (r *Runner) processRepo(ctx context.Context, logger *logrus.Entry, repo github.Repository, runTimestamp time.Time, report *models.RunReport) error {
	existing, err := r.store.List(repo.Name)
	if err != nil {
		return fmt.Errorf("failed to list existing backups: %w", err)
	}

	if r.cfg.DryRun {
		logger.Infof("Dry run: would merge upstream into %s (%d existing backups)", repo.DefaultBranch, len(existing))
		return nil
	}

	merge, err := r.client.MergeUpstream(ctx, r.cfg.Org, repo.Name, repo.DefaultBranch)
	if err != nil {
		return fmt.Errorf("failed to merge upstream: %w", err)
	}

	if merge.FastForwarded() {
		report.ReposUpdated++
		logger.Info("Pulled new commits from upstream")
	} else {
		logger.WithField("merge_type", merge.MergeType).Debug("No new upstream commits")
	}

	// Back up when change detection is off, when new commits arrived, or
	// when no backup exists yet for this repository.
	needBackup := !r.cfg.ChangeDetection || merge.FastForwarded() || len(existing) == 0
	if needBackup {
		if err := r.writeBackup(ctx, logger, repo, runTimestamp); err != nil {
			return err
		}
		report.BackupsCreated++
	}

	deleted, err := r.store.Prune(repo.Name, r.cfg.Retention)
	report.BackupsDeleted += len(deleted)
	if err != nil {
		return fmt.Errorf("failed to prune backups: %w", err)
	}

	description := fmt.Sprintf(descriptionFormat, r.now().UTC().Format("2006-01-02 15:04:05 MST"))
	if err := r.client.UpdateDescription(ctx, r.cfg.Org, repo.Name, description); err != nil {
		return err
	}

	return nil
}

func (r *Runner) writeBackup(ctx context.Context, logger *logrus.Entry, repo github.Repository, runTimestamp time.Time) error {
	rc, err := r.client.DownloadArchive(ctx, r.cfg.Org, repo.Name, repo.DefaultBranch)
	if err != nil {
		return fmt.Errorf("failed to download archive: %w", err)
	}
	defer rc.Close()

	archive, err := r.store.Write(repo.Name, runTimestamp, rc)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"file": backup.ArchiveName(repo.Name, runTimestamp),
		"size": archive.Size,
	}).Info("Created backup archive")
	return nil
}

func (r *Runner) cleanOrphans(forks []github.Repository, report *models.RunReport) {
	if r.cfg.DryRun {
		r.logger.Info("Dry run: skipping orphan cleanup")
		return
	}

	known := make(map[string]struct{}, len(forks))
	for _, repo := range forks {
		known[repo.Name] = struct{}{}
	}

	deleted, err := r.store.CleanOrphans(known)
	report.BackupsDeleted += len(deleted)
	if err != nil {
		r.logger.WithError(err).Warn("Orphan cleanup did not finish")
	}
}
