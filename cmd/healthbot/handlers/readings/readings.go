// Package readings serves stored health readings and manual entry
package readings

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/common"
	"github.com/wrale/healthbot-connect/internal/connect"
	"github.com/wrale/healthbot-connect/internal/health"
	"github.com/wrale/healthbot-connect/internal/validation"
)

const maxBodySize = 16 << 10

// ListResponse is the body of GET /api/readings
type ListResponse struct {
	Readings []health.Reading `json:"readings"`
}

// Handler serves the reading endpoints
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

// New creates a new readings handler
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

// List handles GET /api/readings?type=. Without type all readings are returned.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var (
		out []health.Reading
		err error
	)
	if t := r.URL.Query().Get("type"); t != "" {
		typ, perr := health.ParseType(t)
		if perr != nil {
			common.WriteError(w, http.StatusBadRequest, "Unknown reading type", t)
			return
		}
		out, err = h.store.ByType(r.Context(), typ)
	} else {
		out, err = h.store.All(r.Context())
	}
	if err != nil {
		h.logger.Error("loading readings", "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	if out == nil {
		out = []health.Reading{}
	}
	common.WriteJSON(w, http.StatusOK, ListResponse{Readings: out})
}

// Latest handles GET /api/readings/latest?type=
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	t := r.URL.Query().Get("type")
	typ, err := health.ParseType(t)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "Unknown reading type", t)
		return
	}

	latest, err := h.store.Latest(r.Context(), typ)
	if err != nil {
		h.logger.Error("loading latest reading", "type", typ, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	if latest == nil {
		common.WriteError(w, http.StatusNotFound, "No readings", string(typ))
		return
	}
	common.WriteJSON(w, http.StatusOK, latest)
}

// Create handles POST /api/readings with a manually entered reading
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in validation.ManualReading
	if err := common.DecodeJSON(w, r, maxBodySize, &in); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	reading, err := in.Reading(h.now())
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid reading", err.Error())
		return
	}

	if err := h.store.Append(r.Context(), []health.Reading{reading}); err != nil {
		h.logger.Error("storing manual reading", "error", err)
		common.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	if err := h.service.MarkSynced(r.Context(), connect.ManualEntryID); err != nil {
		h.logger.Warn("recording manual entry", "error", err)
	}

	common.WriteJSON(w, http.StatusCreated, reading)
}
