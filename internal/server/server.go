// Package server provides the HTTP server and routing for Foresight.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/config"
	"github.com/attikos/foresight/internal/di"
	assumptionhandlers "github.com/attikos/foresight/internal/modules/assumptions/handlers"
	calibrationhandlers "github.com/attikos/foresight/internal/modules/calibration/handlers"
	forecasthandlers "github.com/attikos/foresight/internal/modules/forecast/handlers"
	historyhandlers "github.com/attikos/foresight/internal/modules/history/handlers"
	holdingshandlers "github.com/attikos/foresight/internal/modules/holdings/handlers"
	overlayhandlers "github.com/attikos/foresight/internal/modules/overlay/handlers"
	treasuryhandlers "github.com/attikos/foresight/internal/modules/treasury/handlers"
)

// Config holds server configuration.
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
}

// Server is the HTTP surface over the forecasting engine.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
	streamHandlers *StreamHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
	}

	s.systemHandlers = NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		cfg.Container.HistoryDB,
		cfg.Container.ModelDB,
		cfg.Container.ResultsDB,
		cfg.Container.CacheDB,
		cfg.Container.Scheduler,
	)
	s.streamHandlers = NewStreamHandlers(cfg.Container.EventBus, cfg.Container.RunRepo, cfg.Log)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware.
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Event streams go first; websocket upgrades must not pass
		// through the response compressor.
		r.Get("/events/stream", s.streamHandlers.HandleEventStream)
		r.Get("/forecast/runs/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
			s.streamHandlers.HandleRunStream(w, r, chi.URLParam(r, "id"))
		})

		forecastHandler := forecasthandlers.NewHandler(
			s.container.ForecastService,
			s.container.RunRepo,
			s.container.AssumptionsRepo,
			s.cfg.DefaultHorizon,
			s.log,
		)
		forecastHandler.RegisterRoutes(r)

		historyHandler := historyhandlers.NewHandler(
			s.container.HistoryRepo,
			s.container.AssumptionsRepo,
			s.container.EventManager,
			s.log,
		)
		historyHandler.RegisterRoutes(r)

		assumptionHandler := assumptionhandlers.NewHandler(
			s.container.AssumptionsRepo,
			s.container.EventManager,
			s.log,
		)
		assumptionHandler.RegisterRoutes(r)

		calibrationHandler := calibrationhandlers.NewHandler(s.container.CalibrationService, s.log)
		calibrationHandler.RegisterRoutes(r)

		treasuryHandler := treasuryhandlers.NewHandler(s.container.TreasuryRepo, s.log)
		treasuryHandler.RegisterRoutes(r)

		overlayHandler := overlayhandlers.NewHandler(s.container.OverlayRepo, s.log)
		overlayHandler.RegisterRoutes(r)

		holdingsHandler := holdingshandlers.NewHandler(s.container.HoldingsRepo, s.log)
		holdingsHandler.RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/health", s.systemHandlers.HandleSystemHealth)
			r.Get("/info", s.systemHandlers.HandleSystemInfo)
			r.Get("/databases", s.systemHandlers.HandleDatabaseStats)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.systemHandlers.HandleJobsStatus)
			r.Post("/{name}/run", func(w http.ResponseWriter, r *http.Request) {
				s.systemHandlers.HandleRunJob(w, r, chi.URLParam(r, "name"))
			})
		})

		r.Route("/archive", func(r chi.Router) {
			r.Post("/upload/{runID}", func(w http.ResponseWriter, r *http.Request) {
				s.handleArchiveUpload(w, r, chi.URLParam(r, "runID"))
			})
			r.Get("/list", s.handleArchiveList)
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
