package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attikos/foresight/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:          t.TempDir(),
		Port:             8001,
		LogLevel:         "error",
		DefaultHorizon:   4,
		RunRetentionDays: 30,
		Scheduler: &config.SchedulerConfig{
			Enabled:             true,
			FixingsSchedule:     "0 15 2 * * *",
			CalibrationSchedule: "0 30 2 * * *",
			MaintenanceSchedule: "0 0 3 * * 0",
			ArchiveSchedule:     "0 0 4 * * *",
		},
		Archive: &config.ArchiveConfig{},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	defer container.Close()

	// Databases
	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.ModelDB)
	assert.NotNil(t, container.ResultsDB)
	assert.NotNil(t, container.CacheDB)

	// Events
	assert.NotNil(t, container.EventBus)
	assert.NotNil(t, container.EventManager)

	// Repositories
	assert.NotNil(t, container.HistoryRepo)
	assert.NotNil(t, container.AssumptionsRepo)
	assert.NotNil(t, container.OverlayRepo)
	assert.NotNil(t, container.TreasuryRepo)
	assert.NotNil(t, container.HoldingsRepo)
	assert.NotNil(t, container.RunRepo)
	assert.NotNil(t, container.CalibrationRepo)
	assert.NotNil(t, container.ClientDataRepo)

	// Services
	assert.NotNil(t, container.ForecastService)
	assert.NotNil(t, container.CalibrationService)

	// Optional integrations stay nil without credentials
	assert.Nil(t, container.RateFeedClient)
	assert.Nil(t, container.ObjectStore)
	assert.Nil(t, container.Archiver)

	// Scheduler has the always-on jobs registered
	require.NotNil(t, container.Scheduler)
	jobs := container.Scheduler.Jobs()
	names := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		names[job.Name] = true
	}
	assert.True(t, names["calibration_sweep"])
	assert.True(t, names["wal_checkpoint"])
	assert.True(t, names["integrity_check"])
	assert.True(t, names["run_retention"])
	assert.True(t, names["cache_cleanup"])
	assert.False(t, names["fixings_sync"], "fixings sync should be off without a feed URL")
	assert.False(t, names["archive_upload"], "archive upload should be off without credentials")
}

func TestWireWithRateFeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateFeedURL = "http://localhost:9/feed"
	log := zerolog.Nop()

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.RateFeedClient)

	jobs := container.Scheduler.Jobs()
	found := false
	for _, job := range jobs {
		if job.Name == "fixings_sync" {
			found = true
		}
	}
	assert.True(t, found)
}
