package handlers

import (
	"net/http"
	"runtime"
	"time"

	"avplay/internal/indexer"
	"avplay/internal/logging"
	"avplay/internal/metrics"
	"avplay/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Library
	Playlists    int    `json:"playlists"`
	Entries      int    `json:"entries"`
	LastSnapshot string `json:"lastSnapshot,omitempty"`

	// Player
	PlayerState    string `json:"playerState"`
	MonitorRunning bool   `json:"monitorRunning"`

	Scanner *indexer.Status `json:"scanner,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// ready reports whether the first scan has finished. Without a scanner the
// service is ready as soon as it listens.
func (h *Handlers) ready() (ready bool, scanErr string) {
	if h.indexer == nil {
		return true, ""
	}
	status := h.indexer.GetStatus()
	return !status.LastScanned.IsZero() || status.LastScanError != "", status.LastScanError
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Stats{}
	if h.manager != nil {
		stats = h.manager.Stats()
	}
	ready, scanErr := h.ready()

	response := HealthResponse{
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Playlists:    stats.Playlists,
		Entries:      stats.Entries,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if h.controller != nil {
		response.PlayerState = h.controller.State().String()
		response.MonitorRunning = h.controller.MonitorRunning()
	}
	if h.indexer != nil {
		status := h.indexer.GetStatus()
		response.Scanner = &status
	}
	if h.db != nil {
		last, err := h.db.GetLastSnapshot(r.Context())
		if err != nil {
			logging.Warn("Health check could not read last snapshot time: %v", err)
		} else if !last.IsZero() {
			response.LastSnapshot = last.Format(time.RFC3339)
		}
	}

	switch {
	case scanErr != "":
		response.Status = statusDegraded
	case ready:
		response.Status = statusHealthy
	default:
		response.Status = statusStarting
	}

	// Return 503 only if not ready at all
	if !ready {
		writeJSONStatusCode(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept traffic
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if ready, _ := h.ready(); ready {
		writeJSONStatusCode(w, http.StatusOK, map[string]string{
			"status": "ready",
		})
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{
		"status": "not_ready",
	})
}
