// Package api exposes read-only HTTP handlers over pipeline snapshots.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trainload/internal/analysis"
	"trainload/internal/service"
)

// Snapshotter computes the derived state served by the API
type Snapshotter interface {
	Compute(ctx context.Context, opts service.ComputeOptions) (*service.Snapshot, error)
}

// Handler answers API requests by computing a fresh snapshot per request
type Handler struct {
	pipeline Snapshotter
	lookback analysis.Lookback
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler builds a Handler. lookback is used when a request does not name one.
func NewHandler(pipeline Snapshotter, lookback analysis.Lookback, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		lookback: lookback,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterRoutes wires endpoints to the mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/load", h.get(h.load))
	mux.HandleFunc("/v1/weekly", h.get(h.weekly))
	mux.HandleFunc("/v1/peaks", h.get(h.peaks))
	mux.HandleFunc("/v1/vo2max", h.get(h.vo2max))
	mux.HandleFunc("/v1/readiness", h.get(h.readiness))
	mux.HandleFunc("/healthz", healthz)
	mux.Handle("/metrics", promhttp.Handler())
}

// Routes returns a mux with every endpoint registered and request logging
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h.logRequests(mux)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) get(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		next(w, r)
	}
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request, lookback analysis.Lookback) (*service.Snapshot, bool) {
	snap, err := h.pipeline.Compute(r.Context(), service.ComputeOptions{Lookback: lookback, Now: h.now()})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, false
		}
		h.logger.Error("computing snapshot", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return nil, false
	}
	return snap, true
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	snap, ok := h.snapshot(w, r, h.lookback)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toLoadView(snap, days))
}

func (h *Handler) weekly(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r, h.lookback)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toWeeklyView(snap.Weekly))
}

func (h *Handler) peaks(w http.ResponseWriter, r *http.Request) {
	lookback := h.lookback
	if raw := r.URL.Query().Get("lookback"); raw != "" {
		parsed, err := analysis.ParseLookback(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		lookback = parsed
	}
	snap, ok := h.snapshot(w, r, lookback)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toPeaksView(snap))
}

func (h *Handler) vo2max(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r, h.lookback)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]VO2maxView{"estimates": toVO2maxViews(snap)})
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	snap, ok := h.snapshot(w, r, h.lookback)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReadinessListView(snap, days))
}

// daysParam reads the optional days query parameter; 0 means everything
func daysParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "days must be a non-negative integer")
		return 0, false
	}
	return days, true
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
