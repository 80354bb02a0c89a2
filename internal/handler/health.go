package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for health checking
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	checkers map[string]HealthChecker
	channels func() int
}

// NewHealthHandler creates a new HealthHandler. channels reports how many
// channels can currently be delivered; readiness fails when it is zero.
func NewHealthHandler(channels func() int) *HealthHandler {
	return &HealthHandler{
		checkers: make(map[string]HealthChecker),
		channels: channels,
	}
}

// AddChecker adds a health checker
func (h *HealthHandler) AddChecker(name string, checker HealthChecker) {
	h.checkers[name] = checker
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Channels   int                        `json:"channels"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

// ComponentStatus represents a component's health status
type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health reports the service and every registered dependency
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Channels:   h.channelCount(),
		Components: make(map[string]ComponentStatus),
	}

	allHealthy := true
	for name, checker := range h.checkers {
		componentStatus := ComponentStatus{Status: "healthy"}

		if err := checker.Health(ctx); err != nil {
			componentStatus.Status = "unhealthy"
			componentStatus.Message = err.Error()
			allHealthy = false
		}

		status.Components[name] = componentStatus
	}

	code := http.StatusOK
	if !allHealthy {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, status)
}

// Liveness handles liveness probe requests
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// Readiness fails when a dependency is down or no channel is registered
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.channelCount() == 0 {
		JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "no delivery channel is configured",
		})
		return
	}

	for name, checker := range h.checkers {
		if err := checker.Health(ctx); err != nil {
			JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":    "not ready",
				"component": name,
				"error":     err.Error(),
			})
			return
		}
	}

	JSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (h *HealthHandler) channelCount() int {
	if h.channels == nil {
		return 0
	}
	return h.channels()
}
