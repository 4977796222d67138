package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	pkghttp "github.com/jthurman/localhive/pkg/http"
)

// Pinger is the minimal health-check surface of the database layer
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports service liveness including a database ping
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		pkghttp.WriteError(w, http.StatusServiceUnavailable, "unhealthy", "database unreachable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
