// Package main is the entry point for the Foresight earnings forecasting engine.
// The service holds reported quarterly actuals, versioned assumption sets, and
// an immutable ledger of forecast runs, and recomputes full projected financial
// statements deterministically from those inputs.
//
// The application follows clean architecture principles:
// - Domain layer is pure (no infrastructure dependencies)
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attikos/foresight/internal/config"
	"github.com/attikos/foresight/internal/di"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/server"
	"github.com/attikos/foresight/pkg/logger"
)

// main orchestrates the system startup sequence:
// 1. Loads configuration from environment variables
// 2. Initializes logging
// 3. Wires all dependencies via the DI container (databases, repositories, services, jobs)
// 4. Seeds the baseline assumption set on first boot
// 5. Starts the scheduler and the HTTP server
// 6. Waits for a shutdown signal and shuts down gracefully
//
// The application uses a four-database layout:
// - history.db: Reported actuals, daily price bars, liquidity anchors
// - model.db: Assumption sets, regions, unit volumes, treasury events
// - results.db: Immutable run ledger and calibration scores
// - cache.db: Fetched rate fixings (rebuildable at any time)
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Foresight")

	// Wire all dependencies using the DI container.
	// Databases are opened and migrated first, repositories are created
	// with database connections, services with repository dependencies,
	// and background jobs are registered last.
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// First boot installs the baseline assumption set so a fresh instance
	// can execute a forecast out of the box.
	if err := assumptions.EnsureSeeded(container.AssumptionsRepo, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed baseline assumptions")
	}

	if cfg.Scheduler.Enabled {
		container.Scheduler.Start()
		defer container.Scheduler.Stop()
		log.Info().Msg("Scheduler started")
	} else {
		log.Info().Msg("Scheduler disabled")
	}

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// Graceful shutdown: in-flight requests get up to 15 seconds to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Foresight stopped")
}
