// qbench measures sparse expectation-value kernels and serves the results.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/qbench/internal/config"
	"github.com/aristath/qbench/internal/database"
	"github.com/aristath/qbench/internal/events"
	"github.com/aristath/qbench/internal/modules/benchmarks"
	"github.com/aristath/qbench/internal/reliability"
	"github.com/aristath/qbench/internal/scheduler"
	"github.com/aristath/qbench/internal/server"
	"github.com/aristath/qbench/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting qbench")

	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "results.db"),
		Profile: database.ProfileStandard,
		Name:    "results",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate results database")
	}

	bus := events.NewBus()
	runner := benchmarks.NewRunner(bus, log)
	repo := benchmarks.NewRepository(db.Conn())

	sched := scheduler.New(log)

	sweepJob := benchmarks.NewSweepJob(runner, repo, cfg.SweepDims, cfg.SweepDensity, cfg.SweepIters, log)
	if err := sched.AddJob(cfg.SweepSchedule, sweepJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register sweep job")
	}

	maintenanceJob := reliability.NewMaintenanceJob(db, repo, cfg.RetentionDays, log)
	if err := sched.AddJob("@daily", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	if cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup storage")
		}

		backupService := reliability.NewBackupService(db, s3Client, bus, cfg.DataDir, log)
		backupJob := reliability.NewBackupJob(backupService, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Backup credentials not configured, cloud backup disabled")
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Cfg:       cfg,
		DB:        db,
		Bus:       bus,
		Runner:    runner,
		Repo:      repo,
		Scheduler: sched,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	// Checkpoint before exit so the WAL does not carry over
	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Final WAL checkpoint failed")
	}

	log.Info().Msg("qbench stopped")
}
