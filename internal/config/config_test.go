package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Retrieval.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Retrieval.Backend)
	}
	if cfg.TurnTimeout != 2*time.Minute {
		t.Errorf("TurnTimeout = %v, want 2m", cfg.TurnTimeout)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Error("expected error without OPENAI_API_KEY")
	}
}

func TestValidateRetrievalBackend(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	t.Setenv("RETRIEVAL_BACKEND", "knowledge")
	if _, err := Load(); err == nil {
		t.Error("knowledge backend without endpoint must fail")
	}

	t.Setenv("KNOWLEDGE_ENDPOINT", "http://localhost:9000/query")
	if _, err := Load(); err != nil {
		t.Errorf("knowledge backend with endpoint: %v", err)
	}

	t.Setenv("RETRIEVAL_BACKEND", "graphql")
	if _, err := Load(); err == nil {
		t.Error("unknown backend must fail")
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{FrontendURL: "https://chat.example.com"}
	if cfg.IsDevelopment() {
		t.Error("production frontend URL must not be development")
	}
	cfg.FrontendURL = "http://localhost:3000"
	if !cfg.IsDevelopment() {
		t.Error("localhost frontend URL is development")
	}
	t.Setenv("APP_ENV", "development")
	cfg.FrontendURL = "https://chat.example.com"
	if !cfg.IsDevelopment() {
		t.Error("APP_ENV overrides URL detection")
	}
}
