package provider

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Credentials holds client ids and secrets loaded from the environment.
// Client ids are public values; secrets never leave the server.
type Credentials struct {
	GoogleFitClientID     string `envconfig:"GOOGLE_FIT_CLIENT_ID"`
	GoogleFitClientSecret string `envconfig:"GOOGLE_FIT_CLIENT_SECRET"`
	FitbitClientID        string `envconfig:"FITBIT_CLIENT_ID"`
	FitbitClientSecret    string `envconfig:"FITBIT_CLIENT_SECRET"`
	WithingsClientID      string `envconfig:"WITHINGS_CLIENT_ID"`
	WithingsClientSecret  string `envconfig:"WITHINGS_CLIENT_SECRET"`
	OuraClientID          string `envconfig:"OURA_CLIENT_ID"`
	OuraClientSecret      string `envconfig:"OURA_CLIENT_SECRET"`
	StravaClientID        string `envconfig:"STRAVA_CLIENT_ID"`
	StravaClientSecret    string `envconfig:"STRAVA_CLIENT_SECRET"`
}

func (c Credentials) lookup(id ID) (clientID, secret string) {
	switch id {
	case GoogleFit:
		return c.GoogleFitClientID, c.GoogleFitClientSecret
	case Fitbit:
		return c.FitbitClientID, c.FitbitClientSecret
	case Withings:
		return c.WithingsClientID, c.WithingsClientSecret
	case Oura:
		return c.OuraClientID, c.OuraClientSecret
	case Strava:
		return c.StravaClientID, c.StravaClientSecret
	}
	return "", ""
}

// Override replaces endpoint settings of a built-in provider
type Override struct {
	AuthorizationURL string `yaml:"authorization_url"`
	TokenURL         string `yaml:"token_url"`
	APIBaseURL       string `yaml:"api_base_url"`
	Scope            string `yaml:"scope"`
}

// LoadOverrides reads a YAML file mapping provider ids to endpoint overrides
func LoadOverrides(path string) (map[ID]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider overrides: %w", err)
	}

	var overrides map[ID]Override
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing provider overrides: %w", err)
	}
	for id := range overrides {
		if _, ok := strategies[id]; !ok {
			return nil, fmt.Errorf("provider overrides: unknown provider %q", id)
		}
	}
	return overrides, nil
}

// Registry is the immutable set of provider configurations
type Registry struct {
	order   []ID
	configs map[ID]Config
}

// NewRegistry builds a registry from explicit configs, in the given order
func NewRegistry(configs ...Config) *Registry {
	r := &Registry{configs: make(map[ID]Config, len(configs))}
	for _, c := range configs {
		if c.CallbackSegment == "" {
			c.CallbackSegment = string(c.ID)
		}
		if _, dup := r.configs[c.ID]; !dup {
			r.order = append(r.order, c.ID)
		}
		r.configs[c.ID] = c
	}
	return r
}

// Load builds the registry of built-in providers with credentials applied,
// redirect URIs rooted at baseURL and optional endpoint overrides.
func Load(creds Credentials, baseURL string, overrides map[ID]Override) *Registry {
	baseURL = strings.TrimSuffix(baseURL, "/")

	configs := defaults()
	for i := range configs {
		c := &configs[i]
		c.ClientID, c.ClientSecret = creds.lookup(c.ID)
		c.RedirectURI = baseURL + callbackPath + c.CallbackSegment

		if o, ok := overrides[c.ID]; ok {
			if o.AuthorizationURL != "" {
				c.AuthorizationURL = o.AuthorizationURL
			}
			if o.TokenURL != "" {
				c.TokenURL = o.TokenURL
			}
			if o.APIBaseURL != "" {
				c.APIBaseURL = o.APIBaseURL
			}
			if o.Scope != "" {
				c.Scope = o.Scope
			}
		}
	}
	return NewRegistry(configs...)
}

// Lookup returns the configuration for a provider id
func (r *Registry) Lookup(id string) (Config, bool) {
	c, ok := r.configs[ID(id)]
	return c, ok
}

// BySegment resolves a callback path segment to its provider
func (r *Registry) BySegment(segment string) (Config, bool) {
	for _, id := range r.order {
		if c := r.configs[id]; c.CallbackSegment == segment {
			return c, true
		}
	}
	return r.Lookup(segment)
}

// All returns every configured provider in registration order
func (r *Registry) All() []Config {
	out := make([]Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.configs[id])
	}
	return out
}
