// Package callback relays provider authorization redirects to the connect page
package callback

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/healthbot-connect/internal/provider"
)

// ConnectPath is the client page that finishes the exchange
const ConnectPath = "/connect"

// Handler redirects provider callbacks. It never exchanges the code itself.
type Handler struct {
	registry *provider.Registry
}

// New creates a new callback handler
func New(reg *provider.Registry) *Handler {
	return &Handler{registry: reg}
}

// ServeHTTP handles GET /api/oauth/callback/{provider}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "provider")
	query := r.URL.Query()

	providerID := segment
	cfg, known := h.registry.BySegment(segment)
	if known {
		providerID = string(cfg.ID)
	}

	params := url.Values{}
	switch {
	case query.Get("error") != "":
		desc := query.Get("error_description")
		if desc == "" {
			desc = "Authorization failed"
		}
		params.Set("error", desc)
		params.Set("provider", providerID)

	case query.Get("code") == "":
		params.Set("error", "No authorization code received")
		params.Set("provider", providerID)

	default:
		params.Set("code", query.Get("code"))
		if state := query.Get("state"); state != "" {
			params.Set("provider", state)
			params.Set("state", state)
		} else {
			params.Set("provider", providerID)
		}
		if known && provider.StrategyFor(cfg.ID).RelayRedirectURI {
			params.Set("redirectUri", RedirectURI(r.Host, segment))
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, ConnectPath+"?"+params.Encode(), http.StatusFound)
}

// RedirectURI rebuilds the callback URL the provider was given, using
// plain http only for localhost.
func RedirectURI(host, segment string) string {
	scheme := "https"
	if strings.Contains(host, "localhost") {
		scheme = "http"
	}
	return scheme + "://" + host + "/api/oauth/callback/" + segment
}
