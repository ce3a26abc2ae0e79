package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/forkops/forksync/internal/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore persists run reports in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Migrate applies the embedded goose migrations.
func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveRunReport inserts a finished run and fills in its assigned ID.
func (s *PostgresStore) SaveRunReport(ctx context.Context, report *models.RunReport) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO run_reports (
			started_at, finished_at, repos_processed, repos_updated,
			backups_created, backups_deleted, failures, disk_delta_bytes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		report.StartedAt,
		report.FinishedAt,
		report.ReposProcessed,
		report.ReposUpdated,
		report.BackupsCreated,
		report.BackupsDeleted,
		report.Failures,
		report.DiskDeltaBytes,
	).Scan(&report.ID)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}

	return nil
}

// ListRunReports returns the most recent runs, newest first.
func (s *PostgresStore) ListRunReports(ctx context.Context, limit int) ([]*models.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, started_at, finished_at, repos_processed, repos_updated,
			backups_created, backups_deleted, failures, disk_delta_bytes
		FROM run_reports
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.RunReport
	for rows.Next() {
		var r models.RunReport
		if err := rows.Scan(
			&r.ID,
			&r.StartedAt,
			&r.FinishedAt,
			&r.ReposProcessed,
			&r.ReposUpdated,
			&r.BackupsCreated,
			&r.BackupsDeleted,
			&r.Failures,
			&r.DiskDeltaBytes,
		); err != nil {
			return nil, err
		}
		reports = append(reports, &r)
	}

	return reports, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
