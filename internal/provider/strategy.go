package provider

import (
	"encoding/base64"
	"net/http"
	"net/url"
)

// Strategy isolates the token-request quirks of a provider.
// The zero value is a standard OAuth2 form POST.
type Strategy struct {
	// Authenticate adds client authentication headers to a token request
	Authenticate func(h http.Header, cfg Config)

	// ExtraParams adds provider-specific form fields to a token request
	ExtraParams func(form url.Values)

	// Envelope names the JSON field wrapping the token payload, if any
	Envelope string

	// RelayRedirectURI makes the callback hand the redirect URI back to the client
	RelayRedirectURI bool
}

// BasicAuth sets an HTTP Basic header built from the client credentials
func BasicAuth(h http.Header, cfg Config) {
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))
	h.Set("Authorization", "Basic "+creds)
}

// WithingsRequestToken adds the action parameter the Withings token endpoint requires
func WithingsRequestToken(form url.Values) {
	form.Set("action", "requesttoken")
}

var strategies = map[ID]Strategy{
	GoogleFit: {RelayRedirectURI: true},
	Fitbit:    {Authenticate: BasicAuth},
	Withings:  {ExtraParams: WithingsRequestToken, Envelope: "body"},
	Oura:      {},
	Strava:    {},
}

// StrategyFor returns the strategy for id, falling back to the standard flow
func StrategyFor(id ID) Strategy {
	return strategies[id]
}
