// Package di provides dependency injection wiring and initialization.
//
// The Container is the single source of truth for all repository and
// service instances. It is created by Wire() and handed to the HTTP
// server and the scheduler.
package di

import (
	"github.com/attikos/foresight/internal/clientdata"
	"github.com/attikos/foresight/internal/clients/ratefeed"
	"github.com/attikos/foresight/internal/database"
	"github.com/attikos/foresight/internal/events"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/calibration"
	"github.com/attikos/foresight/internal/modules/forecast"
	"github.com/attikos/foresight/internal/modules/history"
	"github.com/attikos/foresight/internal/modules/holdings"
	"github.com/attikos/foresight/internal/modules/overlay"
	"github.com/attikos/foresight/internal/modules/treasury"
	"github.com/attikos/foresight/internal/reliability"
	"github.com/attikos/foresight/internal/scheduler"
)

// Container holds all dependencies for the application.
//
// Databases follow the four-database layout: history.db for reported
// actuals and prices, model.db for assumptions and model inputs,
// results.db for the immutable run ledger, cache.db for fetched rate
// fixings.
type Container struct {
	// Databases
	HistoryDB *database.DB // Reported actuals, prices, liquidity anchors
	ModelDB   *database.DB // Assumption sets, regions, model inputs
	ResultsDB *database.DB // Immutable run ledger and calibration scores
	CacheDB   *database.DB // Ephemeral fetched data (rate fixings)

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Repositories
	HistoryRepo     *history.Repository
	AssumptionsRepo *assumptions.Repository
	OverlayRepo     *overlay.Repository
	TreasuryRepo    *treasury.Repository
	HoldingsRepo    *holdings.Repository
	RunRepo         *forecast.Repository
	CalibrationRepo *calibration.Repository
	ClientDataRepo  *clientdata.Repository

	// Services
	ForecastService    *forecast.Service
	CalibrationService *calibration.Service

	// Optional integrations (nil when not configured)
	RateFeedClient *ratefeed.Client
	ObjectStore    *reliability.ObjectStore
	Archiver       *reliability.Archiver

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// Close closes all database connections.
func (c *Container) Close() {
	for _, db := range []*database.DB{c.HistoryDB, c.ModelDB, c.ResultsDB, c.CacheDB} {
		if db != nil {
			db.Close()
		}
	}
}
