// Package provider holds the static OAuth settings and request quirks of each
// supported health-data provider
package provider

import (
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// ID identifies a provider; it doubles as the device id and the OAuth state value
type ID string

// Supported providers
const (
	GoogleFit ID = "google_fit"
	Fitbit    ID = "fitbit"
	Withings  ID = "withings"
	Oura      ID = "oura"
	Strava    ID = "strava"
)

// callbackPath is the redirect path prefix registered with every provider
const callbackPath = "/api/oauth/callback/"

// Config holds the settings for one provider. Values are fixed after startup.
type Config struct {
	ID               ID
	Name             string
	AuthorizationURL string
	TokenURL         string
	APIBaseURL       string
	ClientID         string
	ClientSecret     string
	Scope            string
	// CallbackSegment is the last path element of the redirect URI.
	// It differs from ID for Google ("google").
	CallbackSegment string
	RedirectURI     string
}

// Configured reports whether a client id is available for the provider
func (c Config) Configured() bool {
	return c.ClientID != ""
}

// OAuth2 returns the equivalent x/oauth2 config for building authorization requests
func (c Config) OAuth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       []string{c.Scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthorizationURL,
			TokenURL: c.TokenURL,
		},
	}
}

// defaults returns the built-in provider table. Scope separators follow each
// provider's documentation (space for Google, Fitbit and Oura; comma for Withings and Strava).
func defaults() []Config {
	return []Config{
		{
			ID:               GoogleFit,
			Name:             "Google Fit",
			AuthorizationURL: "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:         endpoints.Google.TokenURL,
			APIBaseURL:       "https://www.googleapis.com/fitness/v1",
			Scope: strings.Join([]string{
				"https://www.googleapis.com/auth/fitness.activity.read",
				"https://www.googleapis.com/auth/fitness.body.read",
				"https://www.googleapis.com/auth/fitness.heart_rate.read",
				"https://www.googleapis.com/auth/fitness.sleep.read",
			}, " "),
			CallbackSegment: "google",
		},
		{
			ID:               Fitbit,
			Name:             "Fitbit",
			AuthorizationURL: endpoints.Fitbit.AuthURL,
			TokenURL:         endpoints.Fitbit.TokenURL,
			APIBaseURL:       "https://api.fitbit.com",
			Scope:            "activity heartrate location nutrition profile settings sleep social weight",
			CallbackSegment:  "fitbit",
		},
		{
			ID:               Withings,
			Name:             "Withings",
			AuthorizationURL: "https://account.withings.com/oauth2_user/authorize2",
			TokenURL:         "https://wbsapi.withings.net/v2/oauth2",
			APIBaseURL:       "https://wbsapi.withings.net",
			Scope:            "user.info,user.metrics,user.activity,user.sleepevents",
			CallbackSegment:  "withings",
		},
		{
			ID:               Oura,
			Name:             "Oura Ring",
			AuthorizationURL: "https://cloud.ouraring.com/oauth/authorize",
			TokenURL:         "https://api.ouraring.com/oauth/token",
			APIBaseURL:       "https://api.ouraring.com",
			Scope:            "daily readiness sleep activity heart_rate",
			CallbackSegment:  "oura",
		},
		{
			ID:               Strava,
			Name:             "Strava",
			AuthorizationURL: endpoints.Strava.AuthURL,
			TokenURL:         endpoints.Strava.TokenURL,
			APIBaseURL:       "https://www.strava.com/api/v3",
			Scope:            "read,activity:read_all,profile:read_all",
			CallbackSegment:  "strava",
		},
	}
}
