package connect

import (
	"time"

	"golang.org/x/oauth2"

	"github.com/wrale/healthbot-connect/internal/oauth"
)

// OAuthSession is the server-side state of one authorization attempt.
// It is written when the authorization URL is built and consumed by the
// token exchange.
type OAuthSession struct {
	DeviceID     string    `json:"device_id"`
	CodeVerifier string    `json:"code_verifier"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
}

// TokenRecord is the stored credential for one provider
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"` // zero when the provider gave no lifetime
	ObtainedAt   time.Time `json:"obtained_at"`
}

// RecordFromToken converts an exchange result into a record obtained at now
func RecordFromToken(tok *oauth.Token, now time.Time) TokenRecord {
	rec := TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ObtainedAt:   now,
	}
	if tok.ExpiresIn > 0 {
		rec.ExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return rec
}

// Valid reports whether the token may still be used at now.
// A record without an expiry never expires.
func (r TokenRecord) Valid(now time.Time) bool {
	if r.AccessToken == "" {
		return false
	}
	return r.ExpiresAt.IsZero() || r.ExpiresAt.After(now)
}

// OAuth2Token returns the record as an x/oauth2 token for authenticated clients
func (r TokenRecord) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		Expiry:       r.ExpiresAt,
	}
}

// ConnectionType is how a data source is attached
type ConnectionType string

// Connection types
const (
	ConnectionOAuth     ConnectionType = "oauth"
	ConnectionBluetooth ConnectionType = "web-bluetooth"
	ConnectionManual    ConnectionType = "manual"
)

// Device is a catalogue entry for a connectable data source
type Device struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	ConnectionType ConnectionType `json:"connectionType"`
	Metrics        []string       `json:"metrics"`
}

// DeviceConnection is a catalogue entry with its current status
type DeviceConnection struct {
	Device
	Connected  bool       `json:"connected"`
	Configured bool       `json:"configured"`
	LastSync   *time.Time `json:"lastSync"`
}
