// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	Model       ModelConfig
	Storage     StorageConfig
	Retrieval   RetrievalConfig
	TurnTimeout time.Duration
	RateLimit   RateLimitConfig
}

// ModelConfig holds the OpenAI-compatible API settings.
type ModelConfig struct {
	APIKey          string
	BaseURL         string
	ClassifyModel   string
	DecomposeModel  string
	QueryModel      string
	SynthesizeModel string
}

// StorageConfig controls where the schema document and the SQLite
// snapshot come from. With Bucket set they are fetched from GCS;
// otherwise LocalDir serves them from disk.
type StorageConfig struct {
	Bucket      string
	LocalDir    string
	SchemaKey   string
	DatabaseKey string
	DataDir     string
}

// RetrievalConfig selects the retrieval backend.
type RetrievalConfig struct {
	Backend           string // "sqlite" or "knowledge"
	KnowledgeEndpoint string
	KnowledgeTimeout  time.Duration
}

// RateLimitConfig throttles inbound chat turns per client.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		Model: ModelConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", ""),
			ClassifyModel:   getEnv("CLASSIFY_MODEL", ""),
			DecomposeModel:  getEnv("DECOMPOSE_MODEL", ""),
			QueryModel:      getEnv("QUERY_MODEL", ""),
			SynthesizeModel: getEnv("SYNTHESIZE_MODEL", ""),
		},
		Storage: StorageConfig{
			Bucket:      getEnv("STORAGE_BUCKET", ""),
			LocalDir:    getEnv("STORAGE_LOCAL_DIR", "./data/store"),
			SchemaKey:   getEnv("SCHEMA_KEY", "schema.json"),
			DatabaseKey: getEnv("DATABASE_KEY", "data.db"),
			DataDir:     getEnv("DATA_DIR", "./data"),
		},
		Retrieval: RetrievalConfig{
			Backend:           getEnv("RETRIEVAL_BACKEND", "sqlite"),
			KnowledgeEndpoint: getEnv("KNOWLEDGE_ENDPOINT", ""),
			KnowledgeTimeout:  time.Duration(getEnvInt("KNOWLEDGE_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		TurnTimeout: time.Duration(getEnvInt("TURN_TIMEOUT_SECONDS", 120)) * time.Second,
		RateLimit: RateLimitConfig{
			Limit:  getEnvInt("RATE_LIMIT", 10),
			Window: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Model.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY cannot be empty")
	}
	if c.Storage.SchemaKey == "" {
		return fmt.Errorf("SCHEMA_KEY cannot be empty")
	}
	if c.Storage.Bucket == "" && c.Storage.LocalDir == "" {
		return fmt.Errorf("one of STORAGE_BUCKET or STORAGE_LOCAL_DIR must be set")
	}
	switch c.Retrieval.Backend {
	case "sqlite":
		if c.Storage.DatabaseKey == "" {
			return fmt.Errorf("DATABASE_KEY cannot be empty with the sqlite backend")
		}
		if c.Storage.DataDir == "" {
			return fmt.Errorf("DATA_DIR cannot be empty with the sqlite backend")
		}
	case "knowledge":
		if c.Retrieval.KnowledgeEndpoint == "" {
			return fmt.Errorf("KNOWLEDGE_ENDPOINT cannot be empty with the knowledge backend")
		}
	default:
		return fmt.Errorf("RETRIEVAL_BACKEND must be \"sqlite\" or \"knowledge\", got %q", c.Retrieval.Backend)
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("TURN_TIMEOUT_SECONDS must be > 0")
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
