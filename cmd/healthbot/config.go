package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/wrale/healthbot-connect/internal/kv"
	"github.com/wrale/healthbot-connect/internal/provider"
	"github.com/wrale/healthbot-connect/internal/retry"
)

// Config holds server configuration loaded from environment variables
type Config struct {
	Port     int        `envconfig:"PORT" default:"8080"`
	BaseURL  string     `envconfig:"BASE_URL" default:"http://localhost:8080"`
	LogLevel slog.Level `envconfig:"LOG_LEVEL" default:"info"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"memory"`
	RedisURL    string `envconfig:"REDIS_URL"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	SessionTTL       time.Duration `envconfig:"SESSION_TTL" default:"10m"`
	ExchangeTimeout  time.Duration `envconfig:"EXCHANGE_TIMEOUT" default:"15s"`
	ExchangeAttempts int           `envconfig:"EXCHANGE_ATTEMPTS" default:"3"`
	ExchangeBackoff  time.Duration `envconfig:"EXCHANGE_BACKOFF" default:"1s"`
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	ProvidersFile    string        `envconfig:"PROVIDERS_FILE"`

	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"90s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	RequestTimeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	provider.Credentials
}

// loadConfig reads the environment and checks cross-field constraints
func loadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.ExchangeAttempts < 1 {
		return cfg, fmt.Errorf("EXCHANGE_ATTEMPTS must be at least 1, got %d", cfg.ExchangeAttempts)
	}
	return cfg, nil
}

// ExchangePolicy is the retry policy for token exchange
func (c Config) ExchangePolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.ExchangeAttempts,
		Timeout:     c.ExchangeTimeout,
		BaseDelay:   c.ExchangeBackoff,
	}
}

// StoreOptions selects the key-value backend
func (c Config) StoreOptions() kv.Options {
	return kv.Options{
		Driver:      c.StoreDriver,
		RedisURL:    c.RedisURL,
		DatabaseURL: c.DatabaseURL,
	}
}

// Registry builds the provider registry, applying PROVIDERS_FILE when set
func (c Config) Registry() (*provider.Registry, error) {
	var overrides map[provider.ID]provider.Override
	if c.ProvidersFile != "" {
		o, err := provider.LoadOverrides(c.ProvidersFile)
		if err != nil {
			return nil, err
		}
		overrides = o
	}
	return provider.Load(c.Credentials, c.BaseURL, overrides), nil
}
