package http

import (
	"net/http"

	"fleet-monitor/alerting/internal/metrics"
)

// NewRouter mounts the ingress routes and the subscriber endpoint.
func NewRouter(h *Handler, subscribe http.Handler, mw *Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("POST /telemetry", h.SubmitTelemetry)
	mux.HandleFunc("POST /send_data/", h.SubmitTelemetry)
	mux.HandleFunc("GET /alerts/{driverId}", h.DriverAlerts)

	mux.Handle("GET /ws/{role}", subscribe)
	mux.Handle("GET /ws/{role}/{id}", subscribe)

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /metrics", metrics.HandleMetrics)

	return mw.Wrap(mux)
}
