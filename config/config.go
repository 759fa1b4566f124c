// Package config loads runtime tuning from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration.
type Config struct {
	Environment string
	Retry       RetryConfig
	Cache       CacheConfig
	Batch       BatchConfig
	Relay       RelayConfig
}

// RetryConfig bounds the backoff loop around provider calls.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// CacheConfig sizes the in-memory response cache.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// BatchConfig tunes the multi-item orchestrators.
type BatchConfig struct {
	InterItemDelay time.Duration
	FewShotLimit   int
}

// RelayConfig points at the forwarding relay used for backends that
// block direct calls from the caller's region.
type RelayConfig struct {
	BaseURL string
}

// Load reads configuration from the environment. A .env file is loaded
// first when present.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("GENFLOW_ENV", "development"),
		Retry: RetryConfig{
			MaxAttempts:  getEnvInt("GENFLOW_RETRY_MAX_ATTEMPTS", 3),
			InitialDelay: getEnvDuration("GENFLOW_RETRY_INITIAL_DELAY", 500*time.Millisecond),
			Multiplier:   getEnvFloat("GENFLOW_RETRY_MULTIPLIER", 2.0),
			MaxDelay:     getEnvDuration("GENFLOW_RETRY_MAX_DELAY", 8*time.Second),
		},
		Cache: CacheConfig{
			MaxEntries: getEnvInt("GENFLOW_CACHE_MAX_ENTRIES", 100),
			TTL:        getEnvDuration("GENFLOW_CACHE_TTL", 10*time.Minute),
		},
		Batch: BatchConfig{
			InterItemDelay: getEnvDuration("GENFLOW_BATCH_DELAY", 500*time.Millisecond),
			FewShotLimit:   getEnvInt("GENFLOW_FEW_SHOT_LIMIT", 5),
		},
		Relay: RelayConfig{
			BaseURL: getEnv("GENFLOW_RELAY_URL", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1, got %g", c.Retry.Multiplier)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache max entries must be at least 1, got %d", c.Cache.MaxEntries)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
