package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Supported storage drivers
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Options selects and configures a storage backend
type Options struct {
	Driver      string
	RedisURL    string
	DatabaseURL string
}

// Open builds the store named by opts.Driver. The returned close func
// releases backend connections and is never nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), noop, nil

	case DriverRedis:
		if opts.RedisURL == "" {
			return nil, noop, fmt.Errorf("redis driver requires REDIS_URL")
		}
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("connecting to redis: %w", err)
		}
		return NewRedisStore(client), client.Close, nil

	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("postgres driver requires DATABASE_URL")
		}
		store, err := NewPostgresStore(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
