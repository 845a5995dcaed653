// Package health reports service liveness and storage health
package health

import (
	"context"
	"net/http"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/common"
)

// Checker is a component whose health is reported
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// Response represents the health check response
type Response struct {
	Status  string                     `json:"status"`
	Version string                     `json:"version,omitempty"`
	Details map[string]ComponentStatus `json:"details,omitempty"`
}

// ComponentStatus is the health of one checked component
type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Handler processes health check requests
type Handler struct {
	checks  map[string]Checker
	version string
}

// New creates a new health check handler over the named checkers
func New(checks map[string]Checker) *Handler {
	return &Handler{
		checks:  checks,
		version: "unknown",
	}
}

// WithVersion sets the version for health check responses
func (h *Handler) WithVersion(version string) *Handler {
	h.version = version
	return h
}

// ServeHTTP handles GET /health
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Status:  "healthy",
		Version: h.version,
		Details: make(map[string]ComponentStatus, len(h.checks)),
	}

	for name, c := range h.checks {
		if err := c.CheckHealth(r.Context()); err != nil {
			response.Status = "unhealthy"
			response.Details[name] = ComponentStatus{Status: "unhealthy", Message: err.Error()}
			continue
		}
		response.Details[name] = ComponentStatus{Status: "healthy"}
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	common.WriteJSON(w, status, response)
}
