package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the unicon-search API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Expansion ExpansionConfig `yaml:"expansion"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds admin endpoint authentication settings.
type AuthConfig struct {
	AdminToken string `yaml:"admin_token"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds libSQL catalog settings.
type DatabaseConfig struct {
	URL              string `yaml:"url"` // file path or libsql:// URL
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// RedisConfig holds the optional shared embedding-cache backend. When
// addrs is empty the embedding cache stays in process memory.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Provider   string `yaml:"provider"`
}

// ExpansionConfig holds AI query expansion settings. Expansion is
// disabled entirely when api_key is empty.
type ExpansionConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// SearchConfig holds ranking and pagination policy.
type SearchConfig struct {
	MinQueryLen    int     `yaml:"min_query_len"`
	DefaultLimit   int     `yaml:"default_limit"`
	MaxLimit       int     `yaml:"max_limit"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	LexicalWeight  float64 `yaml:"lexical_weight"`
	CandidateCap   int     `yaml:"candidate_cap"`
}

// CacheConfig holds per-tier TTL cache settings.
type CacheConfig struct {
	EmbeddingTTLSec  int `yaml:"embedding_ttl_sec"`
	EmbeddingMaxSize int `yaml:"embedding_max_size"`
	ExpansionTTLSec  int `yaml:"expansion_ttl_sec"`
	ExpansionMaxSize int `yaml:"expansion_max_size"`
	ResultsTTLSec    int `yaml:"results_ttl_sec"`
	ResultsMaxSize   int `yaml:"results_max_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Expansion.TimeoutMS <= 0 {
		c.Expansion.TimeoutMS = 2000
	}
	if c.Search.MinQueryLen <= 0 {
		c.Search.MinQueryLen = 3
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 50
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 320
	}
	if c.Search.SemanticWeight <= 0 {
		c.Search.SemanticWeight = 0.6
	}
	if c.Search.LexicalWeight <= 0 {
		c.Search.LexicalWeight = 0.4
	}
	if c.Search.CandidateCap <= 0 {
		c.Search.CandidateCap = 1000
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 24 * 60 * 60
	}
	if c.Cache.EmbeddingMaxSize <= 0 {
		c.Cache.EmbeddingMaxSize = 1000
	}
	if c.Cache.ExpansionTTLSec <= 0 {
		c.Cache.ExpansionTTLSec = 60 * 60
	}
	if c.Cache.ExpansionMaxSize <= 0 {
		c.Cache.ExpansionMaxSize = 1000
	}
	if c.Cache.ResultsTTLSec <= 0 {
		c.Cache.ResultsTTLSec = 60
	}
	if c.Cache.ResultsMaxSize <= 0 {
		c.Cache.ResultsMaxSize = 100
	}
}

// Validate checks the configuration for correctness. A missing embedding
// credential is a startup error, not a per-request one.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	if c.Search.SemanticWeight+c.Search.LexicalWeight > 1.0001 {
		return fmt.Errorf("search weights must sum to at most 1, got %v + %v",
			c.Search.SemanticWeight, c.Search.LexicalWeight)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
