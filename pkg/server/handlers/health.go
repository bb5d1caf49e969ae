package handlers

import (
	"net/http"
	"runtime"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// HealthHandler handles the health endpoint (spec §6). It reports
// liveness only and never probes the LLM provider or the graph store.
type HealthHandler struct{}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"service":   "kortex",
		"version":   Version,
		"go":        runtime.Version(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
