package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider      string        `yaml:"provider"`
		BaseURL       string        `yaml:"base_url"`
		APIKey        string        `yaml:"api_key"`
		Model         string        `yaml:"model"`
		FallbackModel string        `yaml:"fallback_model"`
		MaxTokens     int           `yaml:"max_tokens"`
		Temperature   float64       `yaml:"temperature"`
		Timeout       time.Duration `yaml:"timeout"`
		DraftTimeout  time.Duration `yaml:"draft_timeout"`
		MaxDeltaRatio float64       `yaml:"max_delta_ratio"`
		Disabled      bool          `yaml:"disabled"`
	} `yaml:"llm"`

	Store struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`

	Database struct {
		URL            string `yaml:"url"`
		DocumentsTable string `yaml:"documents_table"`
		HistoryTable   string `yaml:"history_table"`
		MaxConns       int32  `yaml:"max_conns"`
	} `yaml:"database"`

	Redis struct {
		URL    string        `yaml:"url"`
		Prefix string        `yaml:"prefix"`
		TTL    time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`

	Server struct {
		Addr            string        `yaml:"addr"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
		Caller bool   `yaml:"caller"`
	} `yaml:"log"`

	Importer struct {
		RateLimit      float64       `yaml:"rate_limit"`
		Timeout        time.Duration `yaml:"timeout"`
		UserAgent      string        `yaml:"user_agent"`
		AllowedHosts   []string      `yaml:"allowed_hosts"`
		IgnorePatterns []string      `yaml:"ignore_patterns"`
	} `yaml:"importer"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/escrito/config.yaml"),
			"/etc/escrito/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 30 * time.Second
	}
	if config.LLM.DraftTimeout == 0 {
		config.LLM.DraftTimeout = 2 * time.Minute
	}
	if config.LLM.MaxDeltaRatio == 0 {
		config.LLM.MaxDeltaRatio = 0.8
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "memory"
	}

	if config.Database.DocumentsTable == "" {
		config.Database.DocumentsTable = "documents"
	}
	if config.Database.HistoryTable == "" {
		config.Database.HistoryTable = "edit_history"
	}
	if config.Database.MaxConns == 0 {
		config.Database.MaxConns = 10
	}

	if config.Redis.Prefix == "" {
		config.Redis.Prefix = "escrito:"
	}

	if config.Cache.Size == 0 {
		config.Cache.Size = 100
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}

	if config.Importer.RateLimit == 0 {
		config.Importer.RateLimit = 2.0
	}
	if config.Importer.Timeout == 0 {
		config.Importer.Timeout = 30 * time.Second
	}
	if config.Importer.UserAgent == "" {
		config.Importer.UserAgent = "escrito/1.0"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
	}
	if backend := os.Getenv("ESCRITO_STORE"); backend != "" {
		config.Store.Backend = backend
	}
	if level := os.Getenv("ESCRITO_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
