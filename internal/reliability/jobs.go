package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qbench/internal/database"
	"github.com/aristath/qbench/internal/modules/benchmarks"
)

// BackupJob runs the cloud backup on a schedule
type BackupJob struct {
	service       *BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "cloud_backup").Logger(),
	}
}

// Name returns the job name for the scheduler
func (j *BackupJob) Name() string {
	return "cloud_backup"
}

// Run creates and uploads a backup, then rotates old ones
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.service.CreateAndUpload(ctx); err != nil {
		return err
	}

	if err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}

// MaintenanceJob keeps the results database healthy: retention pruning,
// WAL checkpoint, integrity check, and size reporting.
type MaintenanceJob struct {
	db            *database.DB
	repo          *benchmarks.Repository
	retentionDays int
	log           zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job. retentionDays 0 disables
// result pruning.
func NewMaintenanceJob(db *database.DB, repo *benchmarks.Repository, retentionDays int, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:            db,
		repo:          repo,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "db_maintenance").Logger(),
	}
}

// Name returns the job name for the scheduler
func (j *MaintenanceJob) Name() string {
	return "db_maintenance"
}

// Run executes the maintenance pass
func (j *MaintenanceJob) Run() error {
	startTime := time.Now()

	if j.retentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
		pruned, err := j.repo.Prune(cutoff)
		if err != nil {
			j.log.Error().Err(err).Msg("Result pruning failed")
		} else if pruned > 0 {
			j.log.Info().Int64("pruned", pruned).Time("cutoff", cutoff).Msg("Old benchmark runs pruned")
		}
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		// Checkpoint contention is transient, the next run retries
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("Database health check failed")
		return err
	}

	if stats, err := j.db.GetStats(); err == nil {
		j.log.Info().
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Dur("duration_ms", time.Since(startTime)).
			Msg("Maintenance completed")
	}

	return nil
}
