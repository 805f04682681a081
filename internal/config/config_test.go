package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:      HTTPConfig{Port: 8080},
		Database:  DatabaseConfig{URL: "file:icons.db"},
		Embedding: EmbeddingConfig{APIKey: "sk-test"},
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected read timeout default 10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("unexpected embedding model default: %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected 1536 dims default, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Expansion.TimeoutMS != 2000 {
		t.Errorf("expected 2000ms expansion timeout default, got %d", cfg.Expansion.TimeoutMS)
	}
	if cfg.Search.MinQueryLen != 3 {
		t.Errorf("expected min query len 3, got %d", cfg.Search.MinQueryLen)
	}
	if cfg.Search.DefaultLimit != 50 || cfg.Search.MaxLimit != 320 {
		t.Errorf("unexpected limit defaults: %d/%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if cfg.Search.SemanticWeight != 0.6 || cfg.Search.LexicalWeight != 0.4 {
		t.Errorf("unexpected weight defaults: %v/%v", cfg.Search.SemanticWeight, cfg.Search.LexicalWeight)
	}
	if cfg.Search.CandidateCap != 1000 {
		t.Errorf("expected candidate cap 1000, got %d", cfg.Search.CandidateCap)
	}
	if cfg.Cache.ResultsTTLSec != 60 {
		t.Errorf("expected results TTL default 60s, got %d", cfg.Cache.ResultsTTLSec)
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := validConfig()
	bad.ApplyDefaults()
	bad.HTTP.Port = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing port")
	}

	bad = validConfig()
	bad.ApplyDefaults()
	bad.Database.URL = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing database url")
	}

	bad = validConfig()
	bad.ApplyDefaults()
	bad.Embedding.APIKey = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing embedding api key")
	}

	bad = validConfig()
	bad.ApplyDefaults()
	bad.Search.SemanticWeight = 0.8
	bad.Search.LexicalWeight = 0.4
	if err := bad.Validate(); err == nil {
		t.Error("expected error for weights summing over 1")
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("UNICON_TEST_KEY", "secret")
	defer os.Unsetenv("UNICON_TEST_KEY")

	out := string(expandEnvVars([]byte("api_key: ${UNICON_TEST_KEY}")))
	if out != "api_key: secret" {
		t.Errorf("unexpected expansion: %q", out)
	}

	out = string(expandEnvVars([]byte("url: ${UNICON_TEST_MISSING:-file:local.db}")))
	if out != "url: file:local.db" {
		t.Errorf("unexpected default expansion: %q", out)
	}
}
