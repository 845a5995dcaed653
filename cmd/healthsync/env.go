package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/wrale/healthbot-connect/internal/connect"
	"github.com/wrale/healthbot-connect/internal/fetch"
	"github.com/wrale/healthbot-connect/internal/health"
	"github.com/wrale/healthbot-connect/internal/kv"
	"github.com/wrale/healthbot-connect/internal/oauth"
	"github.com/wrale/healthbot-connect/internal/provider"
)

// Env is the storage and provider configuration shared with the server
type Env struct {
	BaseURL       string        `envconfig:"BASE_URL" default:"http://localhost:8080"`
	StoreDriver   string        `envconfig:"STORE_DRIVER" default:"memory"`
	RedisURL      string        `envconfig:"REDIS_URL"`
	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	ProvidersFile string        `envconfig:"PROVIDERS_FILE"`

	provider.Credentials
}

// runtime holds the services a command works with
type runtime struct {
	out      io.Writer
	logger   *slog.Logger
	flow     *connect.Flow
	readings *health.Store
	syncer   *fetch.Syncer
	now      func() time.Time
	close    func() error
}

// opener builds the runtime once flags are parsed
type opener func(ctx context.Context, logger *slog.Logger) (*runtime, error)

func newRuntime(store kv.Store, reg *provider.Registry, client *http.Client, timeout time.Duration, now func() time.Time, logger *slog.Logger) *runtime {
	flow := connect.NewFlow(reg, store, oauth.NewExchanger(reg, oauth.WithHTTPClient(client), oauth.WithLogger(logger)),
		connect.WithClock(now),
		connect.WithLogger(logger),
	)
	fetchers := fetch.NewSet(reg, flow.Tokens(),
		fetch.WithHTTPClient(client),
		fetch.WithTimeout(timeout),
		fetch.WithClock(now),
		fetch.WithLogger(logger),
	)
	readings := health.NewStore(store)
	return &runtime{
		logger:   logger,
		flow:     flow,
		readings: readings,
		syncer:   fetch.NewSyncer(fetchers, readings, flow),
		now:      now,
		close:    func() error { return nil },
	}
}

// openFromEnv reads Env and connects to the configured store
func openFromEnv(ctx context.Context, logger *slog.Logger) (*runtime, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	var overrides map[provider.ID]provider.Override
	if env.ProvidersFile != "" {
		o, err := provider.LoadOverrides(env.ProvidersFile)
		if err != nil {
			return nil, err
		}
		overrides = o
	}
	reg := provider.Load(env.Credentials, env.BaseURL, overrides)

	if env.StoreDriver == kv.DriverMemory {
		logger.Warn("memory store holds no tokens from the server; set STORE_DRIVER to redis or postgres")
	}
	store, closeStore, err := kv.Open(ctx, kv.Options{
		Driver:      env.StoreDriver,
		RedisURL:    env.RedisURL,
		DatabaseURL: env.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", env.StoreDriver, err)
	}

	rt := newRuntime(store, reg, &http.Client{}, env.FetchTimeout, time.Now, logger)
	rt.close = closeStore
	return rt, nil
}
