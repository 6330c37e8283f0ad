// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the complete environment-sourced configuration.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB" envDefault:"school"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// CacheTTLSeconds is the fixed expiry applied to every cache entry.
	CacheTTLSeconds int `env:"CACHE_TTL_SECONDS" envDefault:"600"`

	// CacheBackend selects the cache provider: redis, ristretto or bigcache.
	// The in-process backends exist for single-node and development setups.
	CacheBackend string `env:"CACHE_BACKEND" envDefault:"redis"`

	// CacheCodec selects the cache value serialization: json, msgpack or cbor.
	CacheCodec string `env:"CACHE_CODEC" envDefault:"json"`

	// CacheMaxValueBytes caps the size of payloads accepted back from the
	// cache. 0 disables the limit.
	CacheMaxValueBytes int `env:"CACHE_MAX_VALUE_BYTES" envDefault:"1048576"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// CacheTTL returns the entry expiry as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
