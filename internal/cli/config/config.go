// Package config loads lineage.yml through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/lineage/internal/cache"
	"github.com/conduit-lang/lineage/internal/logging"
	"github.com/conduit-lang/lineage/internal/server"
	"github.com/conduit-lang/lineage/internal/store"
)

// FileName is the configuration file name without extension
const FileName = "lineage"

// EnvPrefix prefixes environment overrides, e.g. LINEAGE_GRAPH_PATH
const EnvPrefix = "LINEAGE"

// Config represents the lineage configuration
type Config struct {
	Graph  GraphConfig    `mapstructure:"graph"`
	Log    logging.Config `mapstructure:"log"`
	Cache  cache.Config   `mapstructure:"cache"`
	Store  store.Config   `mapstructure:"store"`
	Server server.Config  `mapstructure:"server"`

	// File is the configuration file that was read, if any
	File string `mapstructure:"-"`
}

// GraphConfig locates the graph definition
type GraphConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	log := logging.DefaultConfig()
	srv := server.DefaultConfig()
	redis := cache.DefaultRedisConfig()

	v.SetDefault("graph.path", "graph.yml")
	v.SetDefault("log.level", log.Level)
	v.SetDefault("log.format", log.Format)
	v.SetDefault("cache.backend", cache.BackendNone)
	v.SetDefault("cache.ttl", cache.DefaultOptions().DefaultTTL)
	v.SetDefault("cache.prefix", cache.DefaultOptions().Prefix)
	v.SetDefault("cache.redis.addr", redis.Addr)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.dsn", "lineage.db")
	v.SetDefault("server.host", srv.Host)
	v.SetDefault("server.port", srv.Port)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.read_timeout", srv.ReadTimeout)
	v.SetDefault("server.write_timeout", srv.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", srv.ShutdownTimeout)
}

// Load reads the configuration. An explicit path must exist; otherwise
// lineage.yml or lineage.yaml in the working directory is used when present.
// Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write stores cfg as YAML at path
func Write(path string, cfg *Config) error {
	v := viper.New()
	v.Set("graph.path", cfg.Graph.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("cache.backend", cfg.Cache.Backend)
	if cfg.Cache.TTL > 0 {
		v.Set("cache.ttl", cfg.Cache.TTL.String())
	}
	if cfg.Cache.Backend == cache.BackendRedis {
		v.Set("cache.redis.addr", cfg.Cache.Redis.Addr)
		v.Set("cache.redis.db", cfg.Cache.Redis.DB)
	}
	v.Set("store.driver", cfg.Store.Driver)
	v.Set("store.dsn", cfg.Store.DSN)
	v.Set("server.host", cfg.Server.Host)
	v.Set("server.port", cfg.Server.Port)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// FindFile walks up from dir looking for lineage.yml or lineage.yaml
func FindFile(dir string) (string, error) {
	for {
		for _, ext := range []string{".yml", ".yaml"} {
			candidate := filepath.Join(dir, FileName+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yml found", FileName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Graph.Path) == "" {
		return errors.New("graph.path must not be empty")
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}
	switch cfg.Cache.Backend {
	case cache.BackendNone, cache.BackendMemory, cache.BackendRedis:
	default:
		return fmt.Errorf("cache.backend must be none, memory or redis, got: %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL < 0 || (cfg.Cache.TTL > 0 && cfg.Cache.TTL < time.Second) {
		return fmt.Errorf("cache.ttl must be at least 1s, got: %s", cfg.Cache.TTL)
	}
	switch cfg.Store.Driver {
	case store.DriverSQLite, store.DriverPostgres, store.DriverPgx:
	default:
		return fmt.Errorf("store.driver must be sqlite3, postgres or pgx, got: %s", cfg.Store.Driver)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got: %d", cfg.Server.Port)
	}
	return nil
}
