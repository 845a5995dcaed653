// Package authorize starts provider authorizations
package authorize

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/common"
	"github.com/wrale/healthbot-connect/internal/connect"
)

// Response carries the provider URL the browser must visit
type Response struct {
	URL string `json:"url"`
}

// Handler builds authorization URLs
type Handler struct {
	service connect.Service
	logger  *slog.Logger
}

// New creates a new authorization handler
func New(service connect.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ServeHTTP handles GET /api/oauth/authorize/{provider}. With redirect=1
// the browser is sent straight to the provider.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "provider")

	authURL, err := h.service.AuthorizationURL(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, connect.ErrNotConfigured) {
			common.WriteError(w, http.StatusNotFound, connect.ErrNotConfigured.Error(), "")
			return
		}
		h.logger.Error("building authorization url", "device_id", deviceID, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	if r.URL.Query().Get("redirect") == "1" {
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, authURL, http.StatusFound)
		return
	}
	common.WriteJSON(w, http.StatusOK, Response{URL: authURL})
}
