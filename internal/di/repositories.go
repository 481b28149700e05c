package di

import (
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/clientdata"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/calibration"
	"github.com/attikos/foresight/internal/modules/forecast"
	"github.com/attikos/foresight/internal/modules/history"
	"github.com/attikos/foresight/internal/modules/holdings"
	"github.com/attikos/foresight/internal/modules/overlay"
	"github.com/attikos/foresight/internal/modules/treasury"
)

// InitializeRepositories creates the data access layer on top of the
// opened databases.
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	container.HistoryRepo = history.NewRepository(container.HistoryDB.Conn(), log)

	container.AssumptionsRepo = assumptions.NewRepository(container.ModelDB.Conn(), log)
	container.OverlayRepo = overlay.NewRepository(container.ModelDB.Conn(), log)
	container.TreasuryRepo = treasury.NewRepository(container.ModelDB.Conn(), log)
	container.HoldingsRepo = holdings.NewRepository(container.ModelDB.Conn(), log)

	container.RunRepo = forecast.NewRepository(container.ResultsDB.Conn(), log)
	container.CalibrationRepo = calibration.NewRepository(container.ResultsDB.Conn(), log)

	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	log.Info().Msg("Repositories initialized")
	return nil
}
