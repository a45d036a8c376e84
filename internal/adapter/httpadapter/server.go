package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
)

// DashboardService is the part of dashboard.Service the API needs.
type DashboardService interface {
	Defaults() dashboard.Params
	View(ctx context.Context, p dashboard.Params) (dashboard.View, error)
	Reload(ctx context.Context) (dashboard.Dataset, error)
}

// Options configures optional routes and CORS.
type Options struct {
	AllowedOrigins []string
	// Archive enables the /api/v1/snapshots routes when non-nil.
	Archive dashboard.SnapshotArchive
}

// Server exposes the dashboard API plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	svc        DashboardService
	archive    dashboard.SnapshotArchive
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API under /api/v1 and the
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, svc DashboardService, ready sharedobs.ReadinessChecker, opts Options, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:     svc,
		archive: opts.Archive,
		logger:  logger,
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/double-jeopardy", s.handleDoubleJeopardy)
		r.Get("/states", s.handleStates)
		r.Get("/heatmap", s.handleHeatmap)
		r.Get("/snapshots", s.handleListSnapshots)
		r.Get("/snapshots/{id}", s.handleSnapshot)
		r.Post("/reload", s.handleReload)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Readiness combines several checkers; all must pass.
type Readiness []sharedobs.ReadinessChecker

// CheckReadiness implements sharedobs.ReadinessChecker.
func (rs Readiness) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, c := range rs {
		if c == nil {
			continue
		}
		if err := c.CheckReadiness(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
