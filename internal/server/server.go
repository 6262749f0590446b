// Package server provides the HTTP server and routing for qbench.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/qbench/internal/config"
	"github.com/aristath/qbench/internal/database"
	"github.com/aristath/qbench/internal/events"
	"github.com/aristath/qbench/internal/modules/benchmarks"
	benchmarkhandlers "github.com/aristath/qbench/internal/modules/benchmarks/handlers"
	expectationhandlers "github.com/aristath/qbench/internal/modules/expectation/handlers"
	"github.com/aristath/qbench/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Cfg       *config.Config
	DB        *database.DB
	Bus       *events.Bus
	Runner    *benchmarks.Runner
	Repo      *benchmarks.Repository
	Scheduler *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       *config.Config
	db        *database.DB
	bus       *events.Bus
	runner    *benchmarks.Runner
	repo      *benchmarks.Repository
	sched     *scheduler.Scheduler
	startedAt time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Cfg,
		db:        cfg.DB,
		bus:       cfg.Bus,
		runner:    cfg.Runner,
		repo:      cfg.Repo,
		sched:     cfg.Scheduler,
		startedAt: time.Now(),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router returns the chi router, used by tests to drive requests directly
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// The websocket stream stays outside the timeout group, connections
		// are long-lived.
		wsHandler := NewEventStreamHandler(s.bus, s.log)
		r.Get("/events/ws", wsHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/health", s.handleHealth)
			r.Get("/system/info", s.handleSystemInfo)

			expectationhandlers.NewHandler(s.log).RegisterRoutes(r)
			benchmarkhandlers.NewHandler(s.runner, s.repo, s.log).RegisterRoutes(r)
		})
	})
}

// handleHealth reports service and database health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if err := s.db.HealthCheck(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"data": map[string]interface{}{
			"status":         status,
			"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// handleSystemInfo reports host characteristics and service state.
// Host data gives benchmark numbers their context.
func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	host := benchmarks.CollectHostInfo(s.log)

	info := map[string]interface{}{
		"host":           host,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"jobs":           s.sched.JobNames(),
		"sweep": map[string]interface{}{
			"schedule":   s.cfg.SweepSchedule,
			"dims":       s.cfg.SweepDims,
			"density":    s.cfg.SweepDensity,
			"iterations": s.cfg.SweepIters,
		},
	}

	if stats, err := s.db.GetStats(); err == nil {
		info["database"] = map[string]interface{}{
			"size_bytes":     stats.SizeBytes,
			"wal_size_bytes": stats.WALSizeBytes,
			"page_count":     stats.PageCount,
			"page_size":      stats.PageSize,
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": info,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// loggingMiddleware logs HTTP requests
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

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
