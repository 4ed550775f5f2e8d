package handler

import (
	"net/http"

	"github.com/safetalk/mediation-platform/internal/store"
)

// HealthChecker reports broker connectivity.
type HealthChecker interface {
	IsConnected() bool
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store  *store.Store
	broker HealthChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(st *store.Store, broker HealthChecker) *HealthHandler {
	return &HealthHandler{store: st, broker: broker}
}

// Live handles GET /healthz.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz: the service is ready when the database responds
// and the message broker is connected.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"database": "ok",
		"broker":   "ok",
	}
	status := http.StatusOK

	if err := h.store.Ping(); err != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if h.broker != nil && !h.broker.IsConnected() {
		checks["broker"] = "disconnected"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, checks)
}
