package connect

import (
	"log/slog"
	"time"
)

// Option configures a Flow
type Option func(*Flow)

// WithSessionTTL sets how long a pending authorization stays usable
func WithSessionTTL(d time.Duration) Option {
	return func(f *Flow) {
		f.sessionTTL = d
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		f.now = now
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = l
	}
}
