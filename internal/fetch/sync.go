package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/wrale/healthbot-connect/internal/health"
)

// SyncMarker records a successful sync of a device
type SyncMarker interface {
	MarkSynced(ctx context.Context, deviceID string) error
}

// Syncer fetches readings and merges them into the reading store
type Syncer struct {
	fetchers *Set
	readings *health.Store
	marker   SyncMarker
}

// NewSyncer creates a syncer. marker may be nil.
func NewSyncer(fetchers *Set, readings *health.Store, marker SyncMarker) *Syncer {
	return &Syncer{fetchers: fetchers, readings: readings, marker: marker}
}

// Sync fetches kind from deviceID over [start, end], stores the readings
// and returns them.
func (s *Syncer) Sync(ctx context.Context, deviceID string, kind Kind, start, end time.Time) ([]health.Reading, error) {
	f, ok := s.fetchers.Get(deviceID)
	if !ok {
		return nil, fmt.Errorf("%w: no fetcher for %s", ErrUnsupportedKind, deviceID)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	readings, err := f.Fetch(ctx, kind, start, end)
	if err != nil {
		return nil, err
	}
	if len(readings) > 0 {
		if err := s.readings.Append(ctx, readings); err != nil {
			return nil, err
		}
	}
	if s.marker != nil {
		if err := s.marker.MarkSynced(ctx, deviceID); err != nil {
			return nil, fmt.Errorf("recording sync: %w", err)
		}
	}
	return readings, nil
}

// Kinds lists the data kinds deviceID can sync
func (s *Syncer) Kinds(deviceID string) ([]Kind, bool) {
	f, ok := s.fetchers.Get(deviceID)
	if !ok {
		return nil, false
	}
	return f.Kinds(), true
}
