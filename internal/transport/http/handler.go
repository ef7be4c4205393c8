package http

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"fleet-monitor/alerting/internal/domain"
	"fleet-monitor/alerting/internal/metrics"
)

const maxTelemetryBody = 1 << 20

type Submitter interface {
	Handle(ctx context.Context, ev domain.TelemetryEvent) domain.AlertBatch
}

type History interface {
	Query(driverID int64) iter.Seq[domain.AlertBatch]
}

// HealthCheck is one dependency probed by /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Handler struct {
	submitter Submitter
	history   History
	checks    []HealthCheck
	logger    *slog.Logger
}

func NewHandler(s Submitter, h History, checks []HealthCheck, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		submitter: s,
		history:   h,
		checks:    checks,
		logger:    logger.With("component", "ingress"),
	}
}

type submitResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Alerts  []domain.Alert `json:"alerts,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// SubmitTelemetry handles POST /telemetry.
func (h *Handler) SubmitTelemetry(w http.ResponseWriter, r *http.Request) {
	ev, err := domain.DecodeTelemetry(http.MaxBytesReader(w, r.Body, maxTelemetryBody))
	if err != nil {
		metrics.EventsMalformed.Add(1)
		h.logger.Warn("rejected telemetry", "error", err, "remote", r.RemoteAddr)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch := h.submitter.Handle(r.Context(), ev)
	if batch.Empty() {
		writeJSON(w, http.StatusOK, submitResponse{Status: "ok", Message: "All good"})
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Status: "warning", Alerts: batch.Alerts})
}

// DriverAlerts handles GET /alerts/{driverId}.
func (h *Handler) DriverAlerts(w http.ResponseWriter, r *http.Request) {
	driverID, err := strconv.ParseInt(r.PathValue("driverId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "driverId must be an integer")
		return
	}

	batches := make([]domain.AlertBatch, 0)
	for b := range h.history.Query(driverID) {
		batches = append(batches, b)
	}
	writeJSON(w, http.StatusOK, batches)
}

type endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []endpoint{
	{"/", "GET", "Service information"},
	{"/telemetry", "POST", "Submit a telemetry sample"},
	{"/alerts/{driverId}", "GET", "Alert history for a driver"},
	{"/ws/{role}/{id}", "GET", "Subscribe as driver or passenger"},
	{"/ws/dispatcher", "GET", "Subscribe as dispatcher"},
	{"/health", "GET", "Dependency health"},
	{"/metrics", "GET", "Counters"},
}

// Home handles GET / with a short description of the service.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"message":   "Driver alert service is running",
		"endpoints": endpoints,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	var failed error
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			status[c.Name] = err.Error()
			failed = errors.Join(failed, err)
			continue
		}
		status[c.Name] = "ok"
	}

	if failed != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "checks": status})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "checks": status})
}
