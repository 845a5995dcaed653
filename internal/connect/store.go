package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wrale/healthbot-connect/internal/kv"
)

const (
	tokenPrefix   = "token:"
	sessionPrefix = "session:"
	statusPrefix  = "status:"
)

// TokenStore keeps one TokenRecord per provider id
type TokenStore struct {
	kv  kv.Store
	now func() time.Time
}

// NewTokenStore creates a token store over s
func NewTokenStore(s kv.Store) *TokenStore {
	return &TokenStore{kv: s, now: time.Now}
}

// Put replaces the record for id
func (t *TokenStore) Put(ctx context.Context, id string, rec TokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling token record: %w", err)
	}
	if err := t.kv.Put(ctx, tokenPrefix+id, data, 0); err != nil {
		return fmt.Errorf("storing token record: %w", err)
	}
	return nil
}

// Get returns the record for id, or nil when none is stored.
// Undecodable records are treated as absent.
func (t *TokenStore) Get(ctx context.Context, id string) (*TokenRecord, error) {
	data, err := t.kv.Get(ctx, tokenPrefix+id)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting token record: %w", err)
	}

	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

// IsValid reports whether id has a record that has not expired
func (t *TokenStore) IsValid(ctx context.Context, id string) bool {
	rec, err := t.Get(ctx, id)
	if err != nil || rec == nil {
		return false
	}
	return rec.Valid(t.now())
}

// Clear removes the record for id
func (t *TokenStore) Clear(ctx context.Context, id string) error {
	if err := t.kv.Delete(ctx, tokenPrefix+id); err != nil {
		return fmt.Errorf("clearing token record: %w", err)
	}
	return nil
}

// SessionStore keeps pending authorizations keyed by device id
type SessionStore struct {
	kv kv.Store
}

// NewSessionStore creates a session store over s
func NewSessionStore(s kv.Store) *SessionStore {
	return &SessionStore{kv: s}
}

// Save stores sess, replacing any earlier pending authorization for the device
func (s *SessionStore) Save(ctx context.Context, sess OAuthSession, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.kv.Put(ctx, sessionPrefix+sess.DeviceID, data, ttl); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Consume returns and removes the session for deviceID
func (s *SessionStore) Consume(ctx context.Context, deviceID string) (*OAuthSession, error) {
	data, err := s.kv.Get(ctx, sessionPrefix+deviceID)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if err := s.kv.Delete(ctx, sessionPrefix+deviceID); err != nil {
		return nil, fmt.Errorf("deleting session: %w", err)
	}

	var sess OAuthSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// Delete drops any pending authorization for deviceID
func (s *SessionStore) Delete(ctx context.Context, deviceID string) error {
	return s.kv.Delete(ctx, sessionPrefix+deviceID)
}

type deviceStatus struct {
	Connected bool       `json:"connected"`
	LastSync  *time.Time `json:"last_sync,omitempty"`
}

type statusStore struct {
	kv kv.Store
}

func (s statusStore) get(ctx context.Context, id string) (deviceStatus, error) {
	var st deviceStatus
	data, err := s.kv.Get(ctx, statusPrefix+id)
	if errors.Is(err, kv.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("getting device status: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return deviceStatus{}, nil
	}
	return st, nil
}

func (s statusStore) put(ctx context.Context, id string, st deviceStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling device status: %w", err)
	}
	return s.kv.Put(ctx, statusPrefix+id, data, 0)
}

func (s statusStore) delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, statusPrefix+id)
}
