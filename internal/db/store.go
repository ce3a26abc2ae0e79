package db

import (
	"context"

	"github.com/forkops/forksync/internal/models"
)

// Store defines the interface for run-history persistence
type Store interface {
	Migrate() error
	SaveRunReport(ctx context.Context, report *models.RunReport) error
	ListRunReports(ctx context.Context, limit int) ([]*models.RunReport, error)
	Close() error
}
