package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/clientdata"
	"github.com/attikos/foresight/internal/config"
	"github.com/attikos/foresight/internal/scheduler"
)

// RegisterJobs creates the scheduler and registers all background jobs.
//
// Schedules come from config: the nightly calibration sweep, the fixings
// sync shortly before it, the weekly maintenance window for checkpoints
// and integrity checks, and the daily archive upload.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	sched := scheduler.New(container.EventManager, log)
	container.Scheduler = sched

	if container.RateFeedClient != nil {
		fixingsSync := scheduler.NewFixingsSyncJob(container.RateFeedClient, 0, log)
		if err := sched.AddJob(cfg.Scheduler.FixingsSchedule, fixingsSync); err != nil {
			return fmt.Errorf("failed to register fixings sync job: %w", err)
		}
	}

	calibrationSweep := scheduler.NewCalibrationSweepJob(container.CalibrationService, log)
	if err := sched.AddJob(cfg.Scheduler.CalibrationSchedule, calibrationSweep); err != nil {
		return fmt.Errorf("failed to register calibration sweep job: %w", err)
	}

	walCheckpoint := scheduler.NewWALCheckpointJob(
		container.HistoryDB, container.ModelDB, container.ResultsDB, container.CacheDB, log)
	if err := sched.AddJob(cfg.Scheduler.MaintenanceSchedule, walCheckpoint); err != nil {
		return fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	integrityCheck := scheduler.NewIntegrityCheckJob(
		container.HistoryDB, container.ModelDB, container.ResultsDB, log)
	if err := sched.AddJob(cfg.Scheduler.MaintenanceSchedule, integrityCheck); err != nil {
		return fmt.Errorf("failed to register integrity check job: %w", err)
	}

	runRetention := scheduler.NewRunRetentionJob(container.RunRepo, cfg.RunRetentionDays, log)
	if err := sched.AddJob(cfg.Scheduler.MaintenanceSchedule, runRetention); err != nil {
		return fmt.Errorf("failed to register run retention job: %w", err)
	}

	cacheCleanup := clientdata.NewCleanupJob(container.ClientDataRepo, log)
	if err := sched.AddJob(cfg.Scheduler.MaintenanceSchedule, cacheCleanup); err != nil {
		return fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	if container.Archiver != nil {
		archiveUpload := scheduler.NewArchiveUploadJob(
			container.Archiver, container.RunRepo, cfg.Archive.RetentionDays, log)
		if err := sched.AddJob(cfg.Scheduler.ArchiveSchedule, archiveUpload); err != nil {
			return fmt.Errorf("failed to register archive upload job: %w", err)
		}
	}

	log.Info().Int("jobs", len(sched.Jobs())).Msg("Background jobs registered")
	return nil
}
