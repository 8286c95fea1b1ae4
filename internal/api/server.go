// Package api serves read-only JSON endpoints over the ledger analytics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"prediction-market-lab/internal/observability"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr         string
	DefaultLimit int    // leaderboard and activity limit when none is given
	DefaultSort  string // leaderboard sort key when none is given
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer registers every route on a ServeMux and wraps it with request
// logging.
func NewServer(cfg Config, h *Handlers, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      logging(logger)(Routes(h)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger}
}

// Routes returns the route table without middleware.
func Routes(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /leaderboard", h.Leaderboard)
	mux.HandleFunc("GET /snapshots/latest", h.LatestSnapshot)

	mux.HandleFunc("GET /users/{wallet}/stats", h.UserStats)
	mux.HandleFunc("GET /users/{wallet}/positions", h.UserPositions)
	mux.HandleFunc("GET /users/{wallet}/activity", h.UserActivity)

	mux.HandleFunc("GET /activity", h.Activity)
	mux.HandleFunc("GET /markets/{address}", h.Market)

	return mux
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests within the ctx deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}

// logging logs every request with its status and duration.
func logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}
