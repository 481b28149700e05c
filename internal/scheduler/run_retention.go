package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/modules/forecast"
)

// RunRetentionJob prunes failed forecast runs past the retention window.
// Completed runs stay forever: calibration needs them.
type RunRetentionJob struct {
	runs     *forecast.Repository
	keepDays int
	log      zerolog.Logger
}

func NewRunRetentionJob(runs *forecast.Repository, keepDays int, log zerolog.Logger) *RunRetentionJob {
	if keepDays <= 0 {
		keepDays = 30
	}
	return &RunRetentionJob{
		runs:     runs,
		keepDays: keepDays,
		log:      log.With().Str("job", "run_retention").Logger(),
	}
}

// Name returns the job name.
func (j *RunRetentionJob) Name() string {
	return "run_retention"
}

// Run deletes failed runs older than the retention window.
func (j *RunRetentionJob) Run() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.keepDays)
	deleted, err := j.runs.DeleteFailedRunsBefore(cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Run retention failed")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Run retention finished")
	}
	return nil
}
