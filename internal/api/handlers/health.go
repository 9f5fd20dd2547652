package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Pinger is satisfied by *pgxpool.Pool; kept narrow so the health handler
// does not need to import the Timescale mirror package directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles liveness/readiness requests. The Timescale mirror
// is optional infrastructure, so db may be nil when a run has none
// configured.
type HealthHandler struct {
	db     Pinger
	logger zerolog.Logger
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(db Pinger, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents a single health check.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Handle responds to health check requests.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]HealthCheck),
	}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			response.Status = "unhealthy"
			response.Checks["timescale_mirror"] = HealthCheck{Status: "unhealthy", Message: err.Error()}
		} else {
			response.Checks["timescale_mirror"] = HealthCheck{Status: "healthy"}
		}
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode health response")
	}
}
