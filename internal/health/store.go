package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wrale/healthbot-connect/internal/kv"
)

const (
	readingsKey = "health_data"

	// MaxReadings is how many readings the store retains
	MaxReadings = 1000
)

// Store keeps the most recent readings in a single kv entry.
// Read-merge-write cycles are serialized within the process.
type Store struct {
	mu  sync.Mutex
	kv  kv.Store
	max int
}

// NewStore creates a reading store over s
func NewStore(s kv.Store) *Store {
	return &Store{kv: s, max: MaxReadings}
}

// Append merges readings into the store. A reading whose (source, timestamp,
// type) is already present is dropped, keeping the first one seen. Only the
// newest MaxReadings entries in insertion order are retained.
func (s *Store) Append(ctx context.Context, readings []Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(ctx)
	if err != nil {
		return err
	}

	merged := Merge(existing, readings, s.max)
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshaling readings: %w", err)
	}
	if err := s.kv.Put(ctx, readingsKey, data, 0); err != nil {
		return fmt.Errorf("storing readings: %w", err)
	}
	return nil
}

// Merge appends incoming to existing, drops duplicates and keeps the last limit
func Merge(existing, incoming []Reading, limit int) []Reading {
	seen := make(map[readingKey]struct{}, len(existing)+len(incoming))
	out := make([]Reading, 0, len(existing)+len(incoming))

	for _, batch := range [][]Reading{existing, incoming} {
		for _, r := range batch {
			k := r.key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// All returns every stored reading in insertion order
func (s *Store) All(ctx context.Context) ([]Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// ByType returns the stored readings of type t
func (s *Store) ByType(ctx context.Context, t Type) ([]Reading, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Reading, 0, len(all))
	for _, r := range all {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out, nil
}

// Latest returns the reading of type t with the newest timestamp, or nil
func (s *Store) Latest(ctx context.Context, t Type) (*Reading, error) {
	readings, err := s.ByType(ctx, t)
	if err != nil || len(readings) == 0 {
		return nil, err
	}
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.After(readings[j].Timestamp)
	})
	return &readings[0], nil
}

func (s *Store) load(ctx context.Context) ([]Reading, error) {
	data, err := s.kv.Get(ctx, readingsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []Reading{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading readings: %w", err)
	}

	var readings []Reading
	if err := json.Unmarshal(data, &readings); err != nil {
		// A corrupt blob reads as empty, as a fresh store would
		return []Reading{}, nil
	}
	return readings, nil
}
