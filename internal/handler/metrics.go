package handler

import (
	"net/http"
)

// MetricsHandler serves the Prometheus exposition endpoint.
type MetricsHandler struct {
	exporter http.Handler
}

// NewMetricsHandler wraps an exporter such as metrics.PrometheusRecorder.Handler().
// A nil exporter makes the endpoint report 503.
func NewMetricsHandler(exporter http.Handler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter}
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "METRICS_DISABLED", "metrics are disabled")
		return
	}
	h.exporter.ServeHTTP(w, r)
}
