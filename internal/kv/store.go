// Package kv provides the key-value persistence port shared by sessions, tokens and readings
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or expired
var ErrNotFound = errors.New("key not found")

// Store defines the interface for key-value persistence.
// A zero ttl means the value never expires.
type Store interface {
	// Put stores a value under key, replacing any existing value
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves the value stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// CheckHealth verifies the storage backend is healthy
	CheckHealth(ctx context.Context) error
}
