package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.15, cfg.FeeRate)
	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.Equal(t, "fr", cfg.PrimaryMarket().Code)
}

func TestPrimaryMarket(t *testing.T) {
	cfg := Default()
	cfg.Keepa.Domain = cfg.Markets[1].Domain
	assert.Equal(t, cfg.Markets[1].Code, cfg.PrimaryMarket().Code)

	cfg.Keepa.Domain = 99
	assert.Equal(t, cfg.Markets[0].Code, cfg.PrimaryMarket().Code)

	var empty Config
	empty.Keepa.Domain = 4
	empty.BaseCurrency = "EUR"
	assert.Equal(t, MarketConfig{Domain: 4, Currency: "EUR"}, empty.PrimaryMarket())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fee rate too high", func(c *Config) { c.FeeRate = 1 }},
		{"negative fee rate", func(c *Config) { c.FeeRate = -0.1 }},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"no markets", func(c *Config) { c.Markets = nil }},
		{"market without currency", func(c *Config) { c.Markets = []MarketConfig{{Code: "fr"}} }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resellgap.yaml")
	content := `
fee_rate: 0.12
batch:
  workers: 3
  item_timeout: 10s
markets:
  - code: de
    name: Amazon.de
    domain: 3
    currency: EUR
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("RESELLGAP_KEEPA_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.12, cfg.FeeRate)
	assert.Equal(t, 3, cfg.Batch.Workers)
	assert.Equal(t, 10*time.Second, cfg.Batch.ItemTimeout)
	assert.Equal(t, "env-key", cfg.Keepa.APIKey)
	require.Len(t, cfg.Markets, 1)
	assert.Equal(t, "de", cfg.Markets[0].Code)
	assert.NotEmpty(t, cfg.Categories, "categories fall back to defaults")
	assert.Equal(t, 1.17, cfg.Exchange.FallbackRates["GBP"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
