package api

import (
	"context"
	"net/http"
	"time"

	"repoedit/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]bool   `json:"components"`
	Details    map[string]string `json:"details,omitempty"`
}

// handleHealth responds to health check requests (simple liveness check)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}

	WriteJSON(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}, http.StatusOK)
}

// handleReady checks that the content store answers. The AI provider and
// journal are reported but do not affect readiness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}

	components := map[string]bool{
		"store":   false,
		"ai":      s.provider != nil,
		"journal": s.history != nil,
	}
	details := map[string]string{}

	if s.provider != nil {
		details["ai"] = s.provider.Name() + "/" + s.provider.Model()
	}

	if s.store == nil {
		details["store"] = "not configured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if _, err := s.store.GetTree(ctx); err != nil {
			details["store"] = err.Error()
		} else {
			components["store"] = true
		}
	}

	status := "ready"
	code := http.StatusOK
	if !components["store"] {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, ReadyResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
		Details:    details,
	}, code)
}
