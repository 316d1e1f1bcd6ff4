// Package http exposes the panel analytics over a JSON API, plus the usual
// health, readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/XINRUIQI/CASA0028-Assessment01/internal/domain"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/service"
)

// Threshold values arriving over the API are clamped to the range the UI
// slider offers.
const (
	thresholdMin = 0.10
	thresholdMax = 1.00
)

// PanelService answers the queries the API serves.
type PanelService interface {
	DefaultThreshold() float64
	Months() ([]string, error)
	Areas() (json.RawMessage, error)
	MonthSlice(month string, threshold float64) ([]domain.EnrichedRecord, error)
	Compare(monthA, monthB string, threshold float64) ([]domain.DeltaRecord, error)
	TopEnriched(month, metric string, alertsOnly bool, threshold float64) ([]domain.EnrichedRecord, error)
	TopDeltas(monthA, monthB, metric string, alertsOnly bool, threshold float64) ([]domain.DeltaRecord, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the panel API and operational HTTP endpoints.
type Server struct {
	httpServer *http.Server
	svc        PanelService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API and operational routes.
func NewServer(addr string, svc PanelService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/areas", s.handleAreas)
	mux.HandleFunc("GET /api/panel", s.handlePanel)
	mux.HandleFunc("GET /api/compare", s.handleCompare)
	mux.HandleFunc("GET /api/rankings", s.handleRankings)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMonths(w http.ResponseWriter, _ *http.Request) {
	months, err := s.svc.Months()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": months})
}

func (s *Server) handleAreas(w http.ResponseWriter, _ *http.Request) {
	areas, err := s.svc.Areas()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(areas) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no area geometry loaded"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(areas) //nolint:errcheck // best-effort response body
}

// handlePanel serves the enriched records for one month. Unknown months
// yield an empty array, not an error.
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		writeBadRequest(w, "month is required")
		return
	}
	threshold, ok := s.parseThreshold(w, r)
	if !ok {
		return
	}

	records, err := s.svc.MonthSlice(month, threshold)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":     month,
		"threshold": threshold,
		"records":   emptyIfNil(records),
	})
}

// handleCompare serves the per-area deltas between two months. Comparing a
// month against itself yields an empty array.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeBadRequest(w, "from and to are required")
		return
	}
	threshold, ok := s.parseThreshold(w, r)
	if !ok {
		return
	}

	deltas, err := s.svc.Compare(from, to, threshold)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":      from,
		"to":        to,
		"threshold": threshold,
		"deltas":    emptyIfNil(deltas),
	})
}

// handleRankings serves a top-10 slice: by month for enriched records, or by
// (from, to) for delta records.
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric := q.Get("metric")
	if metric == "" {
		metric = domain.MetricRiskIndex
	}
	alertsOnly := q.Get("alerts_only") == "true"

	threshold, ok := s.parseThreshold(w, r)
	if !ok {
		return
	}

	from, to := q.Get("from"), q.Get("to")
	if from != "" || to != "" {
		if from == "" || to == "" {
			writeBadRequest(w, "from and to must be supplied together")
			return
		}
		top, err := s.svc.TopDeltas(from, to, metric, alertsOnly, threshold)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"metric":  metric,
			"ranking": emptyIfNil(top),
		})
		return
	}

	month := q.Get("month")
	if month == "" {
		writeBadRequest(w, "month or from/to is required")
		return
	}
	top, err := s.svc.TopEnriched(month, metric, alertsOnly, threshold)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metric":  metric,
		"ranking": emptyIfNil(top),
	})
}

// parseThreshold reads the threshold query parameter, falling back to the
// configured default. Non-numeric, NaN, or non-positive values are rejected;
// in-range parsing clamps to the slider's bounds. Reports whether the
// request may proceed.
func (s *Server) parseThreshold(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return s.svc.DefaultThreshold(), true
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v <= 0 {
		writeBadRequest(w, "threshold must be a positive number")
		return 0, false
	}
	if v < thresholdMin {
		v = thresholdMin
	}
	if v > thresholdMax {
		v = thresholdMax
	}
	return v, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrNoDataset) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

// emptyIfNil keeps empty result sets rendering as [] rather than null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
