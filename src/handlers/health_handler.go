package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/utils"
)

type HealthHandler struct {
	db      *sql.DB
	service string
}

func NewHealthHandler(db *sql.DB, service string) *HealthHandler {
	return &HealthHandler{db: db, service: service}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   h.service,
	})
}

// Ready reports 503 until the database answers a ping.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		logger.FromContext(r.Context()).Error("Readiness check failed", "error", err)
		sendJSONError(w, "Service not ready", http.StatusServiceUnavailable)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]any{
		"ready":     true,
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
