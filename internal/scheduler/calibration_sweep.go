package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/modules/calibration"
)

// CalibrationSweepJob scores stored runs against actuals reported since.
// Scheduled nightly so new filings get picked up without manual sweeps.
type CalibrationSweepJob struct {
	service *calibration.Service
	log     zerolog.Logger
}

func NewCalibrationSweepJob(service *calibration.Service, log zerolog.Logger) *CalibrationSweepJob {
	return &CalibrationSweepJob{
		service: service,
		log:     log.With().Str("job", "calibration_sweep").Logger(),
	}
}

// Name returns the job name.
func (j *CalibrationSweepJob) Name() string {
	return "calibration_sweep"
}

// Run executes the backtest sweep.
func (j *CalibrationSweepJob) Run() error {
	result, err := j.service.Backtest()
	if err != nil {
		j.log.Error().Err(err).Msg("Calibration sweep failed")
		return err
	}

	j.log.Info().
		Int("scopes", len(result.Scores)).
		Int("warnings", len(result.Warnings)).
		Msg("Calibration sweep finished")
	return nil
}
