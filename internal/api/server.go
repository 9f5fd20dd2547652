package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/marketreplay/backtester/internal/api/handlers"
	"github.com/marketreplay/backtester/internal/config"
	ratelimitmw "github.com/marketreplay/backtester/internal/middleware"
)

// Server wraps the read-only results HTTP server: health, results,
// metrics, and a tick websocket. No auth, orders, or strategy routing —
// this binary only ever serves completed backtest runs.
type Server struct {
	router *chi.Mux
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new HTTP server around the given result store and
// tick broker. db may be nil if no Timescale mirror is configured.
func NewServer(cfg *config.ServerConfig, store *ResultStore, broker *TickBroker, db handlers.Pinger, logger zerolog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := []string{"*"}
	if cfg.CORSAllowedOrigins != "" && cfg.CORSAllowedOrigins != "*" {
		origins = []string{cfg.CORSAllowedOrigins}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	limiter := ratelimitmw.NewRateLimiter(20, 40, time.Minute, logger)
	r.Use(limiter.Limit)

	healthHandler := handlers.NewHealthHandler(db, logger)
	resultsHandler := handlers.NewResultsHandler(store, logger)
	wsHandler := handlers.NewWebSocketHandler(logger, broker)

	r.Get("/healthz", healthHandler.Handle)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/results", func(r chi.Router) {
		r.Get("/", resultsHandler.ListResults)
		r.Get("/{runID}", resultsHandler.GetResult)
	})

	r.Get("/ws/{runID}", wsHandler.HandleConnection)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{router: r, server: httpServer, logger: logger}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting results HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("start results server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down results HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown results server: %w", err)
	}
	return nil
}

// LoggingMiddleware logs HTTP requests using zerolog.
func LoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
