// Package cache stores annotation resolutions between lineage invocations.
//
// Two backends implement Cache: MemoryCache for a single process and
// RedisCache for resolutions shared between processes. Open selects one from
// configuration.
package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value; a missing key yields ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL; zero uses the backend default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value
	Delete(ctx context.Context, key string) error

	// Clear removes every value under the configured prefix
	Clear(ctx context.Context) error

	// Exists checks if a key is present and not expired
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend
	Close() error
}

// Backend names accepted by Open
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options holds common configuration for cache backends
type Options struct {
	// DefaultTTL applies when Set is called with a zero TTL
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultOptions returns the default cache options
func DefaultOptions() Options {
	return Options{
		DefaultTTL: 10 * time.Minute,
		Prefix:     "lineage:",
	}
}

// Config selects and configures a backend
type Config struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// Open creates the backend named by cfg. The none backend yields a nil Cache.
func Open(cfg Config, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := DefaultOptions()
	if cfg.TTL > 0 {
		opts.DefaultTTL = cfg.TTL
	}
	if cfg.Prefix != "" {
		opts.Prefix = cfg.Prefix
	}

	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		logger.Debug("using memory cache", zap.Duration("ttl", opts.DefaultTTL))
		return NewMemoryCache(opts), nil
	case BackendRedis:
		rc := cfg.Redis
		rc.Options = opts
		c, err := NewRedisCache(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr, err)
		}
		logger.Debug("using redis cache", zap.String("addr", rc.Addr), zap.Int("db", rc.DB))
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}
