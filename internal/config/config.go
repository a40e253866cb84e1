// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment
// variables. Credentials are NOT here — they live in the shared settings
// document managed by the configfile adapter.
type Config struct {
	ConfigPath   string
	CacheDBPath  string
	ListenAddr   string
	PollInterval time.Duration
	CacheTTL     time.Duration
}

// Load reads configuration from environment variables and returns a
// validated Config. All variables are optional and default to values that
// match the original tool's working-directory layout:
// SURPLUSSYNC_CONFIG_PATH (ebay.config.json),
// SURPLUSSYNC_CACHE_DB_PATH (surplussync.db),
// SURPLUSSYNC_LISTEN_ADDR (127.0.0.1:8080),
// SURPLUSSYNC_POLL_INTERVAL (60s), SURPLUSSYNC_CACHE_TTL (30s).
func Load() (*Config, error) {
	configPath := "ebay.config.json"
	if v, ok := os.LookupEnv("SURPLUSSYNC_CONFIG_PATH"); ok && v != "" {
		configPath = v
	}

	cacheDBPath := "surplussync.db"
	if v, ok := os.LookupEnv("SURPLUSSYNC_CACHE_DB_PATH"); ok && v != "" {
		cacheDBPath = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("SURPLUSSYNC_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	pollInterval := time.Minute
	if v, ok := os.LookupEnv("SURPLUSSYNC_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SURPLUSSYNC_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("SURPLUSSYNC_POLL_INTERVAL must be positive, got %q", v)
		}
		pollInterval = parsed
	}

	cacheTTL := 30 * time.Second
	if v, ok := os.LookupEnv("SURPLUSSYNC_CACHE_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SURPLUSSYNC_CACHE_TTL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("SURPLUSSYNC_CACHE_TTL must be positive, got %q", v)
		}
		cacheTTL = parsed
	}

	return &Config{
		ConfigPath:   configPath,
		CacheDBPath:  cacheDBPath,
		ListenAddr:   listenAddr,
		PollInterval: pollInterval,
		CacheTTL:     cacheTTL,
	}, nil
}
