package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and store status.
type HealthHandler struct {
	service string
	driver  string
	offline bool
	db      Pinger
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(service, driver string, offline bool, db Pinger) *HealthHandler {
	return &HealthHandler{service: service, driver: driver, offline: offline, db: db, now: time.Now}
}

type healthResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Service     string `json:"service"`
	Driver      string `json:"driver"`
	DBConnected bool   `json:"dbConnected"`
	Offline     bool   `json:"offline"`
	Timestamp   string `json:"timestamp"`
}

// HandleHealth responds 200 with the store status. A failed ping is
// reported in the body, not the status code.
// GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	connected := h.db != nil && h.db.Ping(ctx) == nil

	writeJSON(w, http.StatusOK, healthResponse{
		Success:     true,
		Message:     "User service is running",
		Service:     h.service,
		Driver:      h.driver,
		DBConnected: connected && !h.offline,
		Offline:     h.offline,
		Timestamp:   h.now().UTC().Format(time.RFC3339),
	})
}
