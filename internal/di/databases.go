package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/config"
	"github.com/attikos/foresight/internal/database"
)

// InitializeDatabases opens the four databases and applies their schemas.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. history.db - Reported actuals, daily price bars, liquidity anchors
	historyDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/history.db",
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	// 2. model.db - Assumption sets, regions, unit volumes, treasury events
	modelDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/model.db",
		Profile: database.ProfileStandard,
		Name:    "model",
	})
	if err != nil {
		historyDB.Close()
		return nil, fmt.Errorf("failed to initialize model database: %w", err)
	}
	container.ModelDB = modelDB

	// 3. results.db - Immutable run ledger and calibration scores
	resultsDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/results.db",
		Profile: database.ProfileLedger, // Maximum safety for the append-only run ledger
		Name:    "results",
	})
	if err != nil {
		historyDB.Close()
		modelDB.Close()
		return nil, fmt.Errorf("failed to initialize results database: %w", err)
	}
	container.ResultsDB = resultsDB

	// 4. cache.db - Fetched rate fixings, rebuildable at any time
	cacheDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/cache.db",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		historyDB.Close()
		modelDB.Close()
		resultsDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	// Apply schemas
	for _, db := range []*database.DB{historyDB, modelDB, resultsDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("data_dir", cfg.DataDir).
		Msg("Databases initialized")

	return container, nil
}
