package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "llama3"
  fallback_model: "mistral"
  max_tokens: 1000
  temperature: 0.5
  timeout: 45s

store:
  backend: "postgres"

database:
  url: "postgres://localhost:5432/test"
  documents_table: "escritos"
  max_conns: 4

redis:
  ttl: 24h

cache:
  size: 50

server:
  addr: ":9090"

log:
  level: "debug"
  pretty: true
  caller: true

importer:
  rate_limit: 1.5
  allowed_hosts:
    - "example.com"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, "mistral", config.LLM.FallbackModel)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 45*time.Second, config.LLM.Timeout)
	assert.Equal(t, "postgres", config.Store.Backend)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "escritos", config.Database.DocumentsTable)
	assert.Equal(t, "edit_history", config.Database.HistoryTable)
	assert.Equal(t, int32(4), config.Database.MaxConns)
	assert.Equal(t, 24*time.Hour, config.Redis.TTL)
	assert.Equal(t, 50, config.Cache.Size)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.True(t, config.Log.Pretty)
	assert.True(t, config.Log.Caller)
	assert.Equal(t, []string{"example.com"}, config.Importer.AllowedHosts)

	assert.Empty(t, config.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unterminated"), 0644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, 30*time.Second, config.LLM.Timeout)
	assert.Equal(t, 0.8, config.LLM.MaxDeltaRatio)
	assert.Equal(t, "memory", config.Store.Backend)
	assert.Equal(t, 100, config.Cache.Size)
	assert.Equal(t, "escrito:", config.Redis.Prefix)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		var c Config
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name: "invalid llm",
			mutate: func(c *Config) {
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = 10000
				c.LLM.Temperature = 3.0
			},
			errorMessages: []string{
				"llm.base_url: invalid base URL",
				"llm.max_tokens: max_tokens must be between 1 and 8192",
				"llm.temperature: temperature must be between 0 and 1",
			},
		},
		{
			name: "openai without key",
			mutate: func(c *Config) {
				c.LLM.Provider = "openai"
			},
			errorMessages: []string{"llm.api_key"},
		},
		{
			name: "postgres without url",
			mutate: func(c *Config) {
				c.Store.Backend = "postgres"
			},
			errorMessages: []string{"database.url: database URL is required"},
		},
		{
			name: "unknown backend and level",
			mutate: func(c *Config) {
				c.Store.Backend = "sqlite"
				c.Log.Level = "verbose"
				c.Cache.Size = -1
			},
			errorMessages: []string{
				"store.backend",
				"cache.size",
				"log.level",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			errors := config.Validate()
			require.Len(t, errors, len(tt.errorMessages))
			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("REDIS_URL", "redis://env-redis:6379/0")
	t.Setenv("ESCRITO_LOG_LEVEL", "warn")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "redis://env-redis:6379/0", config.Redis.URL)
	assert.Equal(t, "warn", config.Log.Level)
}
