// Package connect manages provider connections: authorization sessions,
// code exchange hand-off, token storage and per-device status
package connect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/wrale/healthbot-connect/internal/kv"
	"github.com/wrale/healthbot-connect/internal/oauth"
	"github.com/wrale/healthbot-connect/internal/pkce"
	"github.com/wrale/healthbot-connect/internal/provider"
)

// DefaultSessionTTL is how long an authorization URL stays redeemable
const DefaultSessionTTL = 10 * time.Minute

// Service is the connection API consumed by the HTTP handlers
type Service interface {
	AuthorizationURL(ctx context.Context, deviceID string) (string, error)
	Complete(ctx context.Context, req oauth.ExchangeRequest) (*oauth.Token, error)
	Disconnect(ctx context.Context, deviceID string) error
	Connections(ctx context.Context) ([]DeviceConnection, error)
	MarkSynced(ctx context.Context, deviceID string) error
	MarkBluetooth(ctx context.Context, deviceID string, connected bool) error
	CheckHealth(ctx context.Context) error
}

// Flow implements Service
type Flow struct {
	registry   *provider.Registry
	exchanger  oauth.CodeExchanger
	store      kv.Store
	sessions   *SessionStore
	tokens     *TokenStore
	status     statusStore
	sessionTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewFlow creates a connection flow persisting into store
func NewFlow(reg *provider.Registry, store kv.Store, exchanger oauth.CodeExchanger, opts ...Option) *Flow {
	f := &Flow{
		registry:   reg,
		exchanger:  exchanger,
		store:      store,
		sessions:   NewSessionStore(store),
		tokens:     NewTokenStore(store),
		status:     statusStore{kv: store},
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.tokens.now = f.now
	return f
}

// Tokens exposes the token store for data fetchers
func (f *Flow) Tokens() *TokenStore {
	return f.tokens
}

// AuthorizationURL starts an authorization for deviceID and returns the
// provider URL the user must visit. It returns ErrNotConfigured when the
// provider is unknown or lacks a client id.
func (f *Flow) AuthorizationURL(ctx context.Context, deviceID string) (string, error) {
	cfg, ok := f.registry.Lookup(deviceID)
	if !ok || !cfg.Configured() {
		f.logger.Warn("oauth not configured", "device_id", deviceID)
		return "", ErrNotConfigured
	}

	pair := pkce.New()
	sess := OAuthSession{
		DeviceID:     deviceID,
		CodeVerifier: pair.Verifier,
		State:        deviceID,
		CreatedAt:    f.now(),
	}
	if err := f.sessions.Save(ctx, sess, f.sessionTTL); err != nil {
		return "", fmt.Errorf("saving authorization session: %w", err)
	}

	return cfg.OAuth2().AuthCodeURL(sess.State, oauth2.S256ChallengeOption(pair.Verifier)), nil
}

// Complete redeems the pending session for req.DeviceID, exchanges the code
// and stores the resulting token.
func (f *Flow) Complete(ctx context.Context, req oauth.ExchangeRequest) (*oauth.Token, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if cfg, ok := f.registry.Lookup(req.DeviceID); !ok || !cfg.Configured() {
		return nil, &oauth.UnknownDeviceError{DeviceID: req.DeviceID}
	}

	// A foreign state must not burn the pending session
	if req.State != "" && req.State != req.DeviceID {
		return nil, ErrStateMismatch
	}

	sess, err := f.sessions.Consume(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if sess.State != req.DeviceID {
		return nil, ErrStateMismatch
	}
	if req.CodeVerifier == "" {
		req.CodeVerifier = sess.CodeVerifier
	}

	tok, err := f.exchanger.Exchange(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := f.tokens.Put(ctx, req.DeviceID, RecordFromToken(tok, f.now())); err != nil {
		return nil, err
	}
	if err := f.MarkSynced(ctx, req.DeviceID); err != nil {
		f.logger.Warn("recording connection time", "device_id", req.DeviceID, "error", err)
	}

	f.logger.Info("device connected", "device_id", req.DeviceID)
	return tok, nil
}

// Disconnect forgets the token, pending session and status of deviceID
func (f *Flow) Disconnect(ctx context.Context, deviceID string) error {
	if _, ok := LookupDevice(deviceID); !ok {
		return ErrUnknownDevice
	}
	if err := f.tokens.Clear(ctx, deviceID); err != nil {
		return err
	}
	if err := f.sessions.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if err := f.status.delete(ctx, deviceID); err != nil {
		return fmt.Errorf("deleting device status: %w", err)
	}
	return nil
}

// Connections returns the catalogue with current connection status
func (f *Flow) Connections(ctx context.Context) ([]DeviceConnection, error) {
	devices := Catalogue()
	out := make([]DeviceConnection, 0, len(devices))

	for _, d := range devices {
		st, err := f.status.get(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		conn := DeviceConnection{Device: d, LastSync: st.LastSync}

		switch d.ConnectionType {
		case ConnectionOAuth:
			cfg, _ := f.registry.Lookup(d.ID)
			conn.Configured = cfg.Configured()
			conn.Connected = f.tokens.IsValid(ctx, d.ID)
		case ConnectionBluetooth:
			conn.Configured = true
			conn.Connected = st.Connected
		case ConnectionManual:
			conn.Configured = true
			conn.Connected = true
		}
		if !conn.Connected {
			conn.LastSync = nil
		}
		out = append(out, conn)
	}
	return out, nil
}

// MarkSynced records now as the last sync time of deviceID
func (f *Flow) MarkSynced(ctx context.Context, deviceID string) error {
	st, err := f.status.get(ctx, deviceID)
	if err != nil {
		return err
	}
	now := f.now()
	st.LastSync = &now
	return f.status.put(ctx, deviceID, st)
}

// MarkBluetooth records whether a Bluetooth device is currently streaming
func (f *Flow) MarkBluetooth(ctx context.Context, deviceID string, connected bool) error {
	d, ok := LookupDevice(deviceID)
	if !ok || d.ConnectionType != ConnectionBluetooth {
		return ErrUnknownDevice
	}

	st := deviceStatus{Connected: connected}
	if connected {
		now := f.now()
		st.LastSync = &now
	}
	return f.status.put(ctx, deviceID, st)
}

// CheckHealth verifies the storage backend is healthy
func (f *Flow) CheckHealth(ctx context.Context) error {
	return f.store.CheckHealth(ctx)
}
