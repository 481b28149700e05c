package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/clients/ratefeed"
	"github.com/attikos/foresight/internal/config"
	"github.com/attikos/foresight/internal/events"
	"github.com/attikos/foresight/internal/modules/calibration"
	"github.com/attikos/foresight/internal/modules/forecast"
	"github.com/attikos/foresight/internal/reliability"
)

// InitializeServices creates the business logic layer.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.ForecastService = forecast.NewService(
		container.HistoryRepo,
		container.AssumptionsRepo,
		container.OverlayRepo,
		container.TreasuryRepo,
		container.HoldingsRepo,
		container.RunRepo,
		container.EventManager,
		container.ClientDataRepo,
		log,
	)

	container.CalibrationService = calibration.NewService(
		container.HistoryRepo,
		container.RunRepo,
		container.CalibrationRepo,
		container.EventManager,
		0, // use the default MAPE floor
		log,
	)

	if cfg.RateFeedURL != "" {
		container.RateFeedClient = ratefeed.NewClient(cfg.RateFeedURL, container.ClientDataRepo, log)
	} else {
		log.Info().Msg("Rate feed URL not set, fixings sync disabled")
	}

	if cfg.Archive.Configured() {
		endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.Archive.AccountID)
		store, err := reliability.NewObjectStore(
			endpoint,
			cfg.Archive.AccessKeyID,
			cfg.Archive.SecretAccessKey,
			cfg.Archive.BucketName,
			log,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize object store: %w", err)
		}
		container.ObjectStore = store
		container.Archiver = reliability.NewArchiver(store, container.RunRepo, cfg.DataDir, log)
	} else {
		log.Info().Msg("Archive storage not configured, run archiving disabled")
	}

	log.Info().Msg("Services initialized")
	return nil
}
