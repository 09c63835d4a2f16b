// Package server exposes stored cost data over an authenticated JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/cloudsaver/internal/auth"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/ogulcanaydogan/cloudsaver/pkg/report"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Limits bounds the size of a cost listing.
type Limits struct {
	Default int
	Max     int
}

// Server provides health, cost query and metrics endpoints.
type Server struct {
	reports  *report.Service
	verifier auth.Verifier
	limits   Limits
	mux      *http.ServeMux
	logger   *slog.Logger
}

// NewServer creates an API server.
func NewServer(reports *report.Service, verifier auth.Verifier, limits Limits, logger *slog.Logger) *Server {
	s := &Server{
		reports:  reports,
		verifier: verifier,
		limits:   limits,
		mux:      http.NewServeMux(),
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.Handle("GET /api/v1/costs", s.instrument("costs", s.authenticate(s.handleCosts)))
	s.mux.Handle("GET /api/v1/summary", s.instrument("summary", s.authenticate(s.handleSummary)))
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type costJSON struct {
	Date    string  `json:"date"`
	Service string  `json:"service"`
	Cost    float64 `json:"cost"`
}

type costsResponse struct {
	User  string     `json:"user"`
	Count int        `json:"count"`
	Costs []costJSON `json:"costs"`
}

type serviceJSON struct {
	Service   string  `json:"service"`
	TotalCost float64 `json:"total_cost"`
}

type summaryResponse struct {
	User      string        `json:"user"`
	TotalCost float64       `json:"total_cost"`
	Services  []serviceJSON `json:"services"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCosts(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_limit")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	caller := callerName(ctx)
	records, err := s.reports.Recent(ctx, caller, limit)
	if err != nil {
		s.fail(w, "query costs", caller, err)
		return
	}

	resp := costsResponse{User: caller, Count: len(records), Costs: make([]costJSON, 0, len(records))}
	for _, rec := range records {
		resp.Costs = append(resp.Costs, costJSON{
			Date:    rec.Day(),
			Service: rec.Service,
			Cost:    rec.Cost.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	caller := callerName(ctx)
	summary, err := s.reports.Summary(ctx, caller)
	if err != nil {
		s.fail(w, "summarize costs", caller, err)
		return
	}

	resp := summaryResponse{
		User:      caller,
		TotalCost: summary.Total.InexactFloat64(),
		Services:  make([]serviceJSON, 0, len(summary.Services)),
	}
	for _, st := range summary.Services {
		resp.Services = append(resp.Services, serviceJSON{
			Service:   st.Service,
			TotalCost: st.TotalCost.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseLimit applies the default when raw is empty and caps at the maximum.
func (s *Server) parseLimit(raw string) (int, bool) {
	if raw == "" {
		return s.limits.Default, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if s.limits.Max > 0 && n > s.limits.Max {
		n = s.limits.Max
	}
	return n, true
}

// fail logs err and writes a response that names only its kind.
func (s *Server) fail(w http.ResponseWriter, op, caller string, err error) {
	s.logger.Error(op, "user", caller, "kind", model.ErrorKind(err), "error", err)

	if errors.Is(err, model.ErrStorageUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal")
}

func callerName(ctx context.Context) string {
	id, _ := auth.FromContext(ctx)
	return id.Name()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind string) {
	writeJSON(w, status, map[string]string{"error": kind})
}
