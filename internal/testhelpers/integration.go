//go:build integration
// +build integration

// Package testhelpers reads the environment for integration tests. It must
// not import packages whose tests use it.
package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/agri-advisor/internal/client"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	OpenWeatherKey string
	GeoapifyKey    string
	CacheBackend   string // in_memory, memcached or redis
	MemcachedAddr  string
	RedisAddr      string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if OPENWEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	key := os.Getenv("OPENWEATHER_API_KEY")
	if key == "" {
		t.Skip("OPENWEATHER_API_KEY not set, skipping integration test")
	}
	backend := os.Getenv("INTEGRATION_CACHE_BACKEND")
	if backend == "" {
		backend = "in_memory"
	}
	return IntegrationTestConfig{
		OpenWeatherKey: key,
		GeoapifyKey:    os.Getenv("GEOAPIFY_API_KEY"),
		CacheBackend:   backend,
		MemcachedAddr:  MemcachedAddr(),
		RedisAddr:      RedisAddr(),
	}
}

// MemcachedAddr returns MEMCACHED_ADDRS or localhost:11211.
func MemcachedAddr() string {
	return envOr("MEMCACHED_ADDRS", "localhost:11211")
}

// RedisAddr returns REDIS_ADDR or localhost:6379.
func RedisAddr() string {
	return envOr("REDIS_ADDR", "localhost:6379")
}

// SetupWeatherClient returns a live OpenWeather client.
func SetupWeatherClient(cfg IntegrationTestConfig) *client.OpenWeatherClient {
	return client.NewOpenWeatherClient(client.Config{
		APIKey:        cfg.OpenWeatherKey,
		Timeout:       5 * time.Second,
		RetryAttempts: 2,
	})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
