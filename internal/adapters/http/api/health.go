package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cosnor/winged/pkg/metrics"
)

// HealthHandler serves liveness and Prometheus metrics.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})}
}

// HandleHealth handles GET /healthz. Clients asking for text or
// OpenMetrics get the metrics exposition instead of the JSON status.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if wantsMetrics(r.Header.Get("Accept")) {
		h.metrics.ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MetricsHandler returns the Prometheus handler for GET /metrics.
func (h *HealthHandler) MetricsHandler() http.Handler { return h.metrics }

func wantsMetrics(accept string) bool {
	for _, prefix := range []string{"application/openmetrics-text", "text/plain"} {
		if strings.HasPrefix(accept, prefix) {
			return true
		}
	}
	return false
}
