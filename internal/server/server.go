// Package server exposes the analytics engine over HTTP. Handlers only
// translate between JSON and the engine's inputs and outputs; all numeric
// logic lives in the modules.
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

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/config"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/optimization"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/prices"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/rebalancing"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/valuation"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/scheduler"
)

// Deps bundles everything the server needs.
type Deps struct {
	Config      *config.Config
	Portfolio   domain.PortfolioConfig
	Store       *prices.Store
	Valuation   *valuation.Service
	Optimizer   *optimization.Service
	Rebalancing *rebalancing.Service
	Scheduler   *scheduler.Scheduler
	RefreshJob  scheduler.Job
	Log         zerolog.Logger
}

// Server represents the HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	deps   Deps
	log    zerolog.Logger
}

// New creates a new HTTP server.
func New(deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		log:    deps.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(deps.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", deps.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/value", s.handleValue)
			r.Get("/performance", s.handlePerformance)
			r.Get("/risk", s.handleRisk)
			r.Get("/allocation", s.handleAllocation)
			r.Get("/optimize", s.handleOptimize)
			r.Post("/whatif", s.handleWhatIf)
			r.Post("/rebalance", s.handleRebalance)
		})

		r.Route("/charts", func(r chi.Router) {
			r.Get("/value.png", s.handleValueChart)
			r.Get("/frontier.png", s.handleFrontierChart)
		})

		r.Route("/prices", func(r chi.Router) {
			r.Get("/coverage", s.handleCoverage)
			r.Post("/sync", s.handleSync)
		})

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.deps.Config.Port).Msg("Starting HTTP server")
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
