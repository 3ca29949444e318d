package testutil

import (
	"os"
	"time"

	"github.com/guarzo/resellgap/internal/config"
)

const (
	// Environment variables holding real provider credentials for manual
	// integration runs.
	TestKeepaKey       = "TEST_KEEPA_KEY"
	TestSearchKey      = "TEST_SEARCH_KEY"
	TestSearchEngineID = "TEST_SEARCH_ENGINE_ID"

	DefaultTestKey = "test-key"
)

// GetTestToken returns envVar's value or defaultValue.
func GetTestToken(envVar, defaultValue string) string {
	if token := os.Getenv(envVar); token != "" {
		return token
	}
	return defaultValue
}

// Config returns the default configuration with providers pointed at
// baseURL (typically an httptest server), no cache and fast batches.
func Config(baseURL string) config.Config {
	cfg := config.Default()
	cfg.Keepa.BaseURL = baseURL
	cfg.Keepa.RatePerMinute = 0
	cfg.Keepa.Timeout = 2 * time.Second
	cfg.WebSearch.BaseURL = baseURL
	cfg.WebSearch.RatePerMinute = 0
	cfg.WebSearch.Timeout = 2 * time.Second
	cfg.Exchange.BaseURL = baseURL
	cfg.Cache.Backend = "none"
	cfg.Batch.Workers = 2
	cfg.Batch.ItemTimeout = 5 * time.Second
	cfg.Batch.RequestsPerSecond = 0
	return cfg
}
