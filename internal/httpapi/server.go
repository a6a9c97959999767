// Package httpapi serves the gateway's operator-facing HTTP surface: a
// liveness/readiness probe pair, a version endpoint, a Prometheus scrape
// endpoint, a JSON metrics snapshot, and an SSE event stream backed by
// internal/audit's Publisher.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opsgate/slb-mcp-gateway/internal/audit"
)

// Version is stamped at build time via -ldflags; defaults to "dev".
var Version = "dev"

// Server wraps the http.Server and chi router serving the operator API.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
}

// Config controls what the server exposes.
type Config struct {
	Addr          string
	AuthToken     string // non-empty requires Bearer auth on /api/* routes
	MetricsPath   string // defaults to /metrics
	EnablePromReg bool   // register Go/process collectors on the prometheus registry
}

// New builds a Server wired to publisher for metrics/events.
func New(cfg Config, publisher *audit.Publisher) *Server {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, requestLogger)

	reg := newPrometheusRegistry(publisher.Registry(), cfg.EnablePromReg)
	setupRoutes(r, cfg, publisher, reg)

	return &Server{
		router: r,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 0, // the SSE stream holds connections open indefinitely
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Router exposes the underlying chi.Mux for tests.
func (s *Server) Router() *chi.Mux { return s.router }

// ListenAndServe starts the server; returns http.ErrServerClosed on a
// clean Shutdown.
func (s *Server) ListenAndServe() error {
	log.Info("http api listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections, including open SSE streams,
// within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)
		log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lw.status,
			"duration", time.Since(start),
			"requestID", middleware.GetReqID(r.Context()),
		)
	})
}

type statusCapturingWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requireAuthToken is applied to /api/* when Config.AuthToken is set,
// protecting the metrics/replay surface the same way the supervisor's
// confirmation gate protects execution (§6.7 operator auth token).
func requireAuthToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get("Authorization")
			if got != fmt.Sprintf("Bearer %s", token) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
