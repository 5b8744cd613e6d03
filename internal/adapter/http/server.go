package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/couchcryptid/grid-capacity-etl/internal/view"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Querier answers filtered queries over the canonical table.
type Querier interface {
	Records(f domain.Filter) ([]domain.CanonicalRecord, error)
	Options(f domain.Filter) (domain.Options, error)
	Stats(f domain.Filter) (domain.Stats, error)
	Nearest(f domain.Filter, lat, lon float64) (domain.CanonicalRecord, bool, error)
}

// Server exposes health, readiness, metrics and the capacity query API.
type Server struct {
	httpServer *http.Server
	query      Querier
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// the /api/v1 query routes. origins lists the CORS origins allowed to call
// the API.
func NewServer(addr string, q Querier, ready sharedobs.ReadinessChecker, origins []string, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		query:  q,
		logger: logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/records", s.handleRecords)
		r.Get("/options", s.handleOptions)
		r.Get("/stats", s.handleStats)
		r.Get("/nearest", s.handleNearest)
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

// recordJSON adds the marker color to a record.
type recordJSON struct {
	domain.CanonicalRecord
	Color string `json:"color"`
}

func toJSON(r domain.CanonicalRecord) recordJSON {
	return recordJSON{CanonicalRecord: r, Color: r.ColorBucket.Color()}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recs, err := s.query.Records(f)
	if err != nil {
		s.queryFailed(w, err)
		return
	}
	out := make([]recordJSON, len(recs))
	for i, rec := range recs {
		out[i] = toJSON(rec)
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"count": len(out), "records": out})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts, err := s.query.Options(f)
	if err != nil {
		s.queryFailed(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, opts)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	st, err := s.query.Stats(f)
	if err != nil {
		s.queryFailed(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lat, err := requiredFloat(r, "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lon, err := requiredFloat(r, "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, ok, err := s.query.Nearest(f, lat, lon)
	if err != nil {
		s.queryFailed(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no record matches the filter"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, toJSON(rec))
}

func (s *Server) queryFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, view.ErrNotLoaded) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.logger.Error("query failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

// parseFilter reads operator, province, municipality, voltage, min_pct and
// max_pct from the query string.
func parseFilter(r *http.Request) (domain.Filter, error) {
	q := r.URL.Query()
	f := domain.Filter{
		Operator:     q.Get("operator"),
		Province:     q.Get("province"),
		Municipality: q.Get("municipality"),
		Voltage:      q.Get("voltage"),
	}
	var err error
	if f.MinPct, err = optionalFloat(r, "min_pct"); err != nil {
		return domain.Filter{}, err
	}
	if f.MaxPct, err = optionalFloat(r, "max_pct"); err != nil {
		return domain.Filter{}, err
	}
	return f, nil
}

func optionalFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &paramError{name: name, value: raw}
	}
	return &v, nil
}

func requiredFloat(r *http.Request, name string) (float64, error) {
	v, err := optionalFloat(r, name)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, &paramError{name: name}
	}
	return *v, nil
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	if e.value == "" {
		return "missing query parameter " + e.name
	}
	return "invalid query parameter " + e.name + ": " + strconv.Quote(e.value)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}
