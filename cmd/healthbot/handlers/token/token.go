// Package token serves the authorization code exchange endpoint
package token

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/common"
	"github.com/wrale/healthbot-connect/internal/connect"
	"github.com/wrale/healthbot-connect/internal/oauth"
	"github.com/wrale/healthbot-connect/internal/retry"
)

const maxBodySize = 64 << 10

// Handler exchanges authorization codes for provider tokens
type Handler struct {
	service connect.Service
	logger  *slog.Logger
}

// Config contains handler configuration options
type Config struct {
	Service connect.Service
	Logger  *slog.Logger
}

// New creates a new token exchange handler
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: cfg.Service,
		logger:  logger,
	}
}

// ServeHTTP handles POST /api/oauth/token
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.WriteError(w, http.StatusMethodNotAllowed, "POST method required", "")
		return
	}

	var req oauth.ExchangeRequest
	if err := common.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	tok, err := h.service.Complete(r.Context(), req)
	if err != nil {
		h.writeExchangeError(w, req.DeviceID, err)
		return
	}

	common.WriteJSON(w, http.StatusOK, tok)
}

func (h *Handler) writeExchangeError(w http.ResponseWriter, deviceID string, err error) {
	var (
		unknown   *oauth.UnknownDeviceError
		rejected  *oauth.ProviderError
		transport *retry.TransportError
	)

	switch {
	case errors.Is(err, oauth.ErrMissingParameters):
		common.WriteError(w, http.StatusBadRequest, "Missing required parameters", "")
	case errors.As(err, &unknown):
		common.WriteError(w, http.StatusBadRequest, unknown.Error(), "")
	case errors.Is(err, connect.ErrSessionNotFound):
		common.WriteError(w, http.StatusBadRequest, "No pending authorization", "Start the connection again")
	case errors.Is(err, connect.ErrStateMismatch):
		common.WriteError(w, http.StatusBadRequest, "Authorization state mismatch", "")
	case errors.As(err, &rejected):
		common.WriteError(w, rejected.Status, "Token exchange failed", rejected.Body)
	case errors.As(err, &transport):
		common.WriteError(w, http.StatusInternalServerError, transport.Message(), transport.Details())
	default:
		h.logger.Error("token exchange", "device_id", deviceID, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}
