package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/clients/ratefeed"
)

// FixingsSyncJob pulls the trailing benchmark rate fixings each morning so
// the treasury rate path runs on published rates.
type FixingsSyncJob struct {
	client *ratefeed.Client
	days   int
	log    zerolog.Logger
}

func NewFixingsSyncJob(client *ratefeed.Client, days int, log zerolog.Logger) *FixingsSyncJob {
	return &FixingsSyncJob{
		client: client,
		days:   days,
		log:    log.With().Str("job", "fixings_sync").Logger(),
	}
}

// Name returns the job name.
func (j *FixingsSyncJob) Name() string {
	return "fixings_sync"
}

// Run syncs the trailing fixings window.
func (j *FixingsSyncJob) Run() error {
	n, err := j.client.Sync(j.days)
	if err != nil {
		j.log.Error().Err(err).Msg("Fixings sync failed")
		return err
	}

	j.log.Info().Int("days", n).Msg("Fixings sync finished")
	return nil
}
