package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RecommendationConfig(t *testing.T) {
	t.Setenv("RECOMMENDATION_PRIORITY", "price_high")
	t.Setenv("MAX_RECOMMENDATIONS", "5")
	t.Setenv("ENABLE_PAGE_RECOMMENDATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "price_high", cfg.Recommendation.Priority)
	assert.Equal(t, 5, cfg.Recommendation.MaxResults)
	assert.True(t, cfg.Recommendation.EnableProducts)
	assert.False(t, cfg.Recommendation.EnablePages)
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("RECOMMENDATION_PRIORITY")
	os.Unsetenv("MAX_RECOMMENDATIONS")
	os.Unsetenv("CONFIG_FILE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "relevance", cfg.Recommendation.Priority)
	assert.Equal(t, 3, cfg.Recommendation.MaxResults)
	assert.Equal(t, "Store Assistant", cfg.Store.Name)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 500, cfg.LLM.MaxTokens)
	assert.Equal(t, 24*time.Hour, cfg.Indexing.Interval)
}

func TestLoad_YAMLFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
store:
  name: Acme Outfitters
  description: Outdoor gear
  currency:
    symbol: "€"
    position: right_space
llm:
  provider: gemini
  model: gemini-1.5-flash
  timeout: 10s
recommendation:
  priority: newest
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LLM_MODEL", "gemini-1.5-pro")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Acme Outfitters", cfg.Store.Name)
	assert.Equal(t, "Outdoor gear", cfg.Store.Description)
	assert.Equal(t, "€", cfg.Store.Currency.Symbol)
	assert.Equal(t, "right_space", cfg.Store.Currency.Position)
	// untouched nested defaults survive the merge
	assert.Equal(t, 2, cfg.Store.Currency.Decimals)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.LLM.Model)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "newest", cfg.Recommendation.Priority)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsZeroReindexInterval(t *testing.T) {
	t.Setenv("INDEXING_PERIODIC", "true")
	t.Setenv("REINDEX_INTERVAL", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reindex interval")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown priority", mutate: func(c *Config) { c.Recommendation.Priority = "popular" }, wantErr: true},
		{name: "zero max", mutate: func(c *Config) { c.Recommendation.MaxResults = 0 }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "claude" }, wantErr: true},
		{name: "page size too large", mutate: func(c *Config) { c.Indexing.PageSize = 500 }, wantErr: true},
		{name: "sales priority", mutate: func(c *Config) { c.Recommendation.Priority = "sales" }},
		{name: "periodic with zero interval", mutate: func(c *Config) { c.Indexing.Periodic = true; c.Indexing.Interval = 0 }, wantErr: true},
		{name: "periodic with negative interval", mutate: func(c *Config) { c.Indexing.Periodic = true; c.Indexing.Interval = -time.Hour }, wantErr: true},
		{name: "zero interval without periodic", mutate: func(c *Config) { c.Indexing.Interval = 0 }},
		{name: "too many suggestions", mutate: func(c *Config) { c.Recommendation.SuggestionCount = 20 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example, https://admin.example ,")
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, getEnvAsList("ALLOWED_ORIGINS", nil))

	t.Setenv("ALLOWED_ORIGINS", " , ")
	assert.Equal(t, []string{"*"}, getEnvAsList("ALLOWED_ORIGINS", []string{"*"}))
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", c.DatabaseDSN())
}
