// Package devices lists, disconnects and syncs connectable data sources
package devices

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/common"
	"github.com/wrale/healthbot-connect/internal/connect"
	"github.com/wrale/healthbot-connect/internal/fetch"
	"github.com/wrale/healthbot-connect/internal/health"
	"github.com/wrale/healthbot-connect/internal/validation"
)

// Syncer pulls provider data into the reading store
type Syncer interface {
	Sync(ctx context.Context, deviceID string, kind fetch.Kind, start, end time.Time) ([]health.Reading, error)
	Kinds(deviceID string) ([]fetch.Kind, bool)
}

// ListResponse is the body of GET /api/devices
type ListResponse struct {
	Devices []connect.DeviceConnection `json:"devices"`
}

// SyncResponse is the body of POST /api/devices/{id}/sync
type SyncResponse struct {
	DeviceID string           `json:"deviceId"`
	From     time.Time        `json:"from"`
	To       time.Time        `json:"to"`
	Readings []health.Reading `json:"readings"`
}

// Handler serves the device endpoints
type Handler struct {
	service connect.Service
	syncer  Syncer
	now     func() time.Time
	logger  *slog.Logger
}

// Config contains handler configuration options
type Config struct {
	Service connect.Service
	Syncer  Syncer
	Clock   func() time.Time
	Logger  *slog.Logger
}

// New creates a new devices handler
func New(cfg Config) *Handler {
	h := &Handler{
		service: cfg.Service,
		syncer:  cfg.Syncer,
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

// List handles GET /api/devices
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	conns, err := h.service.Connections(r.Context())
	if err != nil {
		h.logger.Error("listing connections", "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	common.WriteJSON(w, http.StatusOK, ListResponse{Devices: conns})
}

// Disconnect handles DELETE /api/devices/{id}
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Disconnect(r.Context(), id); err != nil {
		if errors.Is(err, connect.ErrUnknownDevice) {
			common.WriteError(w, http.StatusNotFound, "Unknown device: "+id, "")
			return
		}
		h.logger.Error("disconnecting device", "device_id", id, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

// Sync handles POST /api/devices/{id}/sync?kind=&from=&to=. Without kind
// every kind the provider serves is synced.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := r.URL.Query()

	kinds, ok := h.syncer.Kinds(id)
	if !ok {
		common.WriteError(w, http.StatusNotFound, "Unknown device: "+id, "")
		return
	}
	if k := query.Get("kind"); k != "" {
		kinds = []fetch.Kind{fetch.Kind(k)}
	}

	start, end, err := validation.ParseRange(query.Get("from"), query.Get("to"), h.now())
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid range", err.Error())
		return
	}

	resp := SyncResponse{DeviceID: id, From: start, To: end, Readings: []health.Reading{}}
	for _, kind := range kinds {
		readings, err := h.syncer.Sync(r.Context(), id, kind, start, end)
		if err != nil {
			h.writeSyncError(w, id, kind, err)
			return
		}
		resp.Readings = append(resp.Readings, readings...)
	}

	h.logger.Info("device synced", "device_id", id, "readings", len(resp.Readings))
	common.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeSyncError(w http.ResponseWriter, id string, kind fetch.Kind, err error) {
	switch {
	case errors.Is(err, fetch.ErrNotConnected):
		common.WriteError(w, http.StatusConflict, "Device not connected", "Reconnect "+id+" to sync")
	case errors.Is(err, fetch.ErrUnsupportedKind):
		common.WriteError(w, http.StatusBadRequest, "Unsupported data kind", string(kind))
	default:
		h.logger.Error("syncing device", "device_id", id, "kind", kind, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}
