package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/modules/forecast"
	"github.com/attikos/foresight/internal/reliability"
)

// ArchiveUploadJob ships the most recent completed run to object storage
// and rotates archives past the retention window.
type ArchiveUploadJob struct {
	archiver      *reliability.Archiver
	runs          *forecast.Repository
	retentionDays int
	log           zerolog.Logger
}

func NewArchiveUploadJob(archiver *reliability.Archiver, runs *forecast.Repository, retentionDays int, log zerolog.Logger) *ArchiveUploadJob {
	return &ArchiveUploadJob{
		archiver:      archiver,
		runs:          runs,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "archive_upload").Logger(),
	}
}

// Name returns the job name.
func (j *ArchiveUploadJob) Name() string {
	return "archive_upload"
}

// Run archives the latest completed run and prunes expired archives.
func (j *ArchiveUploadJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	completed, err := j.runs.CompletedRuns()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to list completed runs")
		return err
	}

	if len(completed) == 0 {
		j.log.Debug().Msg("No completed runs to archive")
	} else {
		latest := completed[len(completed)-1]
		key, err := j.archiver.ArchiveRun(ctx, latest.ID)
		if err != nil {
			j.log.Error().Err(err).Str("run_id", latest.ID).Msg("Archive upload failed")
			return err
		}
		j.log.Info().Str("run_id", latest.ID).Str("key", key).Msg("Run archived")
	}

	if j.retentionDays > 0 {
		if err := j.archiver.Rotate(ctx, j.retentionDays); err != nil {
			j.log.Error().Err(err).Msg("Archive rotation failed")
			return err
		}
	}

	return nil
}
