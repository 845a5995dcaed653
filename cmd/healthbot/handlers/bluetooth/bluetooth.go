// Package bluetooth accepts measurements relayed from a browser Web Bluetooth session
package bluetooth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/common"
	"github.com/wrale/healthbot-connect/internal/bluetooth"
	"github.com/wrale/healthbot-connect/internal/connect"
	"github.com/wrale/healthbot-connect/internal/health"
)

const maxBodySize = 4 << 10

// MeasurementRequest carries one raw characteristic value. Payload is
// standard base64 in JSON.
type MeasurementRequest struct {
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ProfileResponse tells a browser which GATT attributes to request for a class.
// The numbers are the 16-bit assigned numbers Web Bluetooth accepts as aliases.
type ProfileResponse struct {
	Class                string `json:"class"`
	DeviceID             string `json:"deviceId"`
	Service              string `json:"service"`
	Characteristic       string `json:"characteristic"`
	ServiceNumber        uint16 `json:"serviceNumber"`
	CharacteristicNumber uint16 `json:"characteristicNumber"`
}

// ConnectionRequest reports the browser-side GATT connection state
type ConnectionRequest struct {
	Connected bool `json:"connected"`
}

// Handler decodes and stores relayed measurements
type Handler struct {
	store   *health.Store
	service connect.Service
	now     func() time.Time
	logger  *slog.Logger
}

// Config contains handler configuration options
type Config struct {
	Store   *health.Store
	Service connect.Service
	Clock   func() time.Time
	Logger  *slog.Logger
}

// New creates a new Bluetooth relay handler
func New(cfg Config) *Handler {
	h := &Handler{
		store:   cfg.Store,
		service: cfg.Service,
		now:     cfg.Clock,
		logger:  cfg.Logger,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) (bluetooth.Profile, bool) {
	class := chi.URLParam(r, "class")
	p, ok := bluetooth.ProfileFor(bluetooth.Class(class))
	if !ok {
		common.WriteError(w, http.StatusNotFound, "Unknown device class", class)
	}
	return p, ok
}

// Profile handles GET /api/bluetooth/{class}
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}

	svc, err := bluetooth.ShortUUID(p.Service)
	if err != nil {
		h.logger.Error("profile service is not a SIG UUID", "class", p.Class, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	char, err := bluetooth.ShortUUID(p.Characteristic)
	if err != nil {
		h.logger.Error("profile characteristic is not a SIG UUID", "class", p.Class, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	common.WriteJSON(w, http.StatusOK, ProfileResponse{
		Class:                string(p.Class),
		DeviceID:             p.DeviceID,
		Service:              p.Service.String(),
		Characteristic:       p.Characteristic.String(),
		ServiceNumber:        svc,
		CharacteristicNumber: char,
	})
}

// Measurement handles POST /api/bluetooth/{class}/measurements
func (h *Handler) Measurement(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}

	var req MeasurementRequest
	if err := common.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = h.now()
	}

	reading, err := bluetooth.Decode(p.Class, req.Payload, ts)
	if err != nil {
		if errors.Is(err, bluetooth.ErrShortPayload) {
			h.logger.Debug("dropping malformed measurement", "class", p.Class, "bytes", len(req.Payload))
			common.WriteError(w, http.StatusUnprocessableEntity, "Malformed measurement", err.Error())
			return
		}
		common.WriteError(w, http.StatusBadRequest, "Invalid measurement", err.Error())
		return
	}

	if err := h.store.Append(r.Context(), []health.Reading{reading}); err != nil {
		h.logger.Error("storing bluetooth reading", "class", p.Class, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	if err := h.service.MarkBluetooth(r.Context(), p.DeviceID, true); err != nil {
		h.logger.Warn("recording bluetooth status", "device_id", p.DeviceID, "error", err)
	}

	common.WriteJSON(w, http.StatusCreated, reading)
}

// Connection handles POST /api/bluetooth/{class}/connection
func (h *Handler) Connection(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}

	var req ConnectionRequest
	if err := common.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.service.MarkBluetooth(r.Context(), p.DeviceID, req.Connected); err != nil {
		h.logger.Error("recording bluetooth status", "device_id", p.DeviceID, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
