// Package fetch reads health data from provider APIs with stored tokens and
// normalizes it into health readings
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wrale/healthbot-connect/internal/connect"
	"github.com/wrale/healthbot-connect/internal/health"
	"github.com/wrale/healthbot-connect/internal/provider"
	"github.com/wrale/healthbot-connect/internal/retry"
)

// Kind selects which data set a fetcher reads
type Kind string

// Data kinds
const (
	KindSteps         Kind = "steps"
	KindHeartRate     Kind = "heart_rate"
	KindSleep         Kind = "sleep"
	KindWeight        Kind = "weight"
	KindBloodPressure Kind = "blood_pressure"
	KindReadiness     Kind = "readiness"
	KindActivity      Kind = "activity"
)

var (
	// ErrNotConnected indicates no valid token is stored for the provider
	ErrNotConnected = errors.New("not connected")

	// ErrUnsupportedKind indicates the provider does not serve the requested kind
	ErrUnsupportedKind = errors.New("unsupported data kind")
)

// Fetcher reads one provider's data for a time range. Provider failures
// and malformed payloads yield an empty result, not an error.
type Fetcher interface {
	Fetch(ctx context.Context, kind Kind, start, end time.Time) ([]health.Reading, error)
	Kinds() []Kind
}

// Tokens looks up stored provider credentials
type Tokens interface {
	Get(ctx context.Context, id string) (*connect.TokenRecord, error)
}

// Option configures the fetchers built by NewSet
type Option func(*options)

type options struct {
	client *http.Client
	logger *slog.Logger
	policy retry.Policy
	now    func() time.Time
}

// WithHTTPClient sets the base client wrapped with bearer authentication
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTimeout bounds each provider call
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.policy.Timeout = d
	}
}

// WithClock replaces the time source used for token validity
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Set holds a fetcher per provider
type Set struct {
	fetchers map[provider.ID]Fetcher
}

// NewSet builds fetchers for every provider in reg
func NewSet(reg *provider.Registry, tokens Tokens, opts ...Option) *Set {
	o := options{
		client: http.DefaultClient,
		logger: slog.Default(),
		policy: retry.Policy{MaxAttempts: 1, Timeout: retry.DefaultTimeout},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Set{fetchers: make(map[provider.ID]Fetcher)}
	for _, cfg := range reg.All() {
		b := &base{
			id:      cfg.ID,
			apiBase: cfg.APIBaseURL,
			tokens:  tokens,
			opts:    o,
		}
		switch cfg.ID {
		case provider.GoogleFit:
			s.fetchers[cfg.ID] = &GoogleFit{base: b}
		case provider.Fitbit:
			s.fetchers[cfg.ID] = &Fitbit{base: b}
		case provider.Oura:
			s.fetchers[cfg.ID] = &Oura{base: b}
		case provider.Withings:
			s.fetchers[cfg.ID] = &Withings{base: b}
		case provider.Strava:
			s.fetchers[cfg.ID] = &Strava{base: b}
		}
	}
	return s
}

// Get returns the fetcher for a provider id
func (s *Set) Get(id string) (Fetcher, bool) {
	f, ok := s.fetchers[provider.ID(id)]
	return f, ok
}

func supports(f Fetcher, kind Kind) error {
	for _, k := range f.Kinds() {
		if k == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
}
