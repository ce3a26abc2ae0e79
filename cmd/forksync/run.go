package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/forkops/forksync/internal/api"
	"github.com/forkops/forksync/internal/backup"
	"github.com/forkops/forksync/internal/config"
	"github.com/forkops/forksync/internal/db"
	"github.com/forkops/forksync/internal/github"
	"github.com/forkops/forksync/internal/logging"
	"github.com/forkops/forksync/internal/runner"
	"github.com/forkops/forksync/internal/stats"

	_ "github.com/forkops/forksync/docs"
)

func runSync(ctx context.Context) error {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		logrus.Errorf("Failed to load configuration: %v", err)
		return err
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		logrus.Errorf("Invalid configuration: %v", err)
		return err
	}

	logger, err := logging.New(logging.Options{
		Path:      cfg.LogPath,
		Verbose:   cfg.Verbose,
		MaxSize:   cfg.LogMaxSize,
		Retention: cfg.LogRetention,
	})
	if err != nil {
		logrus.Errorf("Failed to initialize logging: %v", err)
		return err
	}

	client := github.NewClient(cfg.Token, logger,
		github.WithBaseURL(cfg.APIBaseURL),
		github.WithVerbose(cfg.Verbose),
	)
	store := backup.NewStore(cfg.BackupDir, logger)

	opts := []runner.Option{}

	var history db.Store
	if cfg.DBConnectionString != "" {
		history, err = db.NewPostgresStore(cfg.DBConnectionString)
		if err != nil {
			logger.Errorf("Failed to initialize database: %v", err)
			return err
		}
		defer history.Close()

		if err := retry(3, 5*time.Second, history.Migrate); err != nil {
			logger.Errorf("Failed to run migrations after retries: %v", err)
			return err
		}
		opts = append(opts, runner.WithHistory(history))
	}

	if cfg.PublishStats {
		opts = append(opts, runner.WithPublisher(stats.NewPublisher(client, cfg.Org, logger)))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	tracker := runner.NewTracker()
	if cfg.StatusPort != "" {
		opts = append(opts, runner.WithTracker(tracker))
		server = startStatusServer(cfg, tracker, history, logger)
		defer shutdownStatusServer(server, logger)
	}

	r := runner.New(cfg, client, store, logger, opts...)
	if _, err := r.Run(ctx); err != nil {
		logger.Errorf("Sync run failed: %v", err)
		return err
	}
	return nil
}

// applyFlags lets command-line flags override file and environment settings.
func applyFlags(cfg *config.Config) {
	if flagOrg != "" {
		cfg.Org = flagOrg
	}
	if flagToken != "" {
		cfg.Token = flagToken
	}
	if flagDryRun {
		cfg.DryRun = true
	}
	if flagVerbose {
		cfg.Verbose = true
	}
}

func startStatusServer(cfg *config.Config, tracker *runner.Tracker, history db.Store, logger *logrus.Logger) *http.Server {
	handler := api.NewHandler(tracker, history, logger)
	server := &http.Server{
		Addr:         ":" + cfg.StatusPort,
		Handler:      api.SetupRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Status server listening on port %s", cfg.StatusPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Status server failed: %v", err)
		}
	}()

	return server
}

func shutdownStatusServer(server *http.Server, logger *logrus.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Status server shutdown failed: %v", err)
	}
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
