// Package api provides HTTP handlers for the chat server's plain
// endpoints: health checks and JSON helpers. The chat itself runs over
// the WebSocket transport.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nlqbot/nlq-server/internal/schema"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Pinger reports whether a retrieval data source is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	retrieval Pinger // nil when the backend has no liveness probe
	sch       *schema.Schema
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(retrieval Pinger, sch *schema.Schema) *HealthHandler {
	return &HealthHandler{retrieval: retrieval, sch: sch}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if h.sch == nil || len(h.sch.Tables) == 0 {
		status["status"] = "degraded"
		checks["schema"] = "missing"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["schema"] = "ok"
	}

	if h.retrieval != nil {
		if err := h.retrieval.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			status["status"] = "degraded"
			checks["retrieval"] = "unreachable"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["retrieval"] = "ok"
		}
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route. The router's
// Heartbeat middleware already answers /health; this is the deeper
// check that inspects dependencies.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
