package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bas-flights/telegram-etl/internal/adapter/sqlite"
	"github.com/bas-flights/telegram-etl/internal/domain"
	"github.com/bas-flights/telegram-etl/internal/ingest"
)

// Ingester parses uploads into flights.
type Ingester interface {
	IngestText(ctx context.Context, data []byte) (ingest.Report, error)
	IngestWorkbook(ctx context.Context, r io.Reader) (ingest.Report, error)
}

// FlightLoader persists the flights of an upload.
type FlightLoader interface {
	LoadBatch(ctx context.Context, flights []domain.EnrichedFlight) error
}

// FlightQuerier serves the read side of the API.
type FlightQuerier interface {
	List(ctx context.Context, f sqlite.Filter) ([]sqlite.StoredFlight, error)
	Statistics(ctx context.Context, start, end *time.Time) (sqlite.Statistics, error)
	RegionRating(ctx context.Context, start, end *time.Time, limit int) ([]sqlite.RegionRank, error)
	RegionStatistics(ctx context.Context, region string, start, end *time.Time) (sqlite.RegionStatistics, error)
	Report(ctx context.Context, start, end *time.Time, regions []string) (sqlite.Report, error)
}

// Options configures the listener and request limits.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Ready    sharedobs.ReadinessChecker
	Ingester Ingester
	Loader   FlightLoader
	Flights  FlightQuerier
}

// Server exposes health, readiness, metrics and the flight API.
type Server struct {
	httpServer *http.Server
	deps       Deps
	maxUpload  int64
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the probe routes and /api/v1.
func NewServer(opts Options, deps Deps, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      r,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:      deps,
		maxUpload: opts.MaxUploadBytes,
		logger:    logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/flights", func(r chi.Router) {
			r.Get("/", s.handleListFlights)
			r.Get("/statistics", s.handleStatistics)
			r.Post("/upload/telegrams", s.handleUploadTelegrams)
			r.Post("/upload/excel", s.handleUploadExcel)
		})
		r.Route("/regions", func(r chi.Router) {
			r.Get("/rating", s.handleRegionRating)
			r.Get("/{region}/statistics", s.handleRegionStatistics)
		})
		r.Get("/reports/json", s.handleReport)
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
