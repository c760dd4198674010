package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/server/handler"
	"github.com/alanyoungcy/liquidrouter/internal/server/middleware"
	"github.com/alanyoungcy/liquidrouter/internal/server/ws"
)

const (
	healthPath  = "/api/health"
	metricsPath = "/metrics"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	RateLimit   int    // requests per RateWindow per client IP; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Books   *handler.BookHandler
	Routes  *handler.RouteHandler
	Sources *handler.SourceHandler
	Metrics http.Handler // Prometheus exposition, optional
}

// Server is the HTTP and websocket API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and builds the middleware chain. limiter
// and wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewHandler(cfg, handlers, wsHub, limiter, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger.With(slog.String("component", "server"))}
}

// NewHandler returns the routed handler wrapped in middleware.
func NewHandler(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+healthPath, handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/books/{symbol}", handlers.Books.GetBook)
	mux.HandleFunc("GET /api/books/{symbol}/best", handlers.Books.GetBest)
	mux.HandleFunc("GET /api/books/{symbol}/ladder", handlers.Books.GetLadder)
	mux.HandleFunc("GET /api/metrics/{symbol}", handlers.Books.GetMetrics)

	mux.HandleFunc("POST /api/routes", handlers.Routes.CreateRoute)
	mux.HandleFunc("GET /api/routes", handlers.Routes.ListRoutes)
	mux.HandleFunc("GET /api/routes/{id}", handlers.Routes.GetRoute)

	mux.HandleFunc("GET /api/sources", handlers.Sources.ListSources)
	mux.HandleFunc("GET /api/sources/{id}/books/{symbol}", handlers.Sources.GetSourceBook)

	if handlers.Metrics != nil {
		mux.Handle("GET "+metricsPath, handlers.Metrics)
	}
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Outermost first: CORS, request id, logging, rate limit, auth.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, healthPath, metricsPath)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger, healthPath, metricsPath)(h)
	}
	h = middleware.Logging(logger, healthPath, metricsPath)(h)
	h = middleware.RequestID(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
