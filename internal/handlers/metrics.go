package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns the Prometheus metrics handler. It is served on the
// main port only when no separate metrics port is configured.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
