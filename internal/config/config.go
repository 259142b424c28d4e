// Package config loads runtime settings from an optional YAML file, a .env
// file and AGT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load-error policies for a batch upload.
const (
	PolicySkip  = "skip"
	PolicyAbort = "abort"
)

// Embedding providers backed by chromem-go's built-in embedding functions.
const (
	EmbeddingOllama = "ollama"
	EmbeddingOpenAI = "openai"
)

// Per-provider embedding defaults, applied when the model or base URL is unset.
const (
	DefaultOllamaModel   = "nomic-embed-text"
	DefaultOllamaBaseURL = "http://localhost:11434/api"
	DefaultOpenAIModel   = "text-embedding-3-small"
)

type Config struct {
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	AnthropicBaseURL string `yaml:"anthropic_base_url"`
	Model            string `yaml:"model"`
	MaxTokens        int    `yaml:"max_tokens"`

	// Agent loop
	TokenBudget int `yaml:"token_budget"`
	MaxSteps    int `yaml:"max_steps"`
	TopK        int `yaml:"top_k"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`

	// Ingestion
	UploadDir       string        `yaml:"upload_dir"`
	IngestWorkers   int           `yaml:"ingest_workers"`
	LoadErrorPolicy string        `yaml:"load_error_policy"`
	SummaryCacheTTL time.Duration `yaml:"summary_cache_ttl"`

	// Observability
	ObserveJSON bool      `yaml:"observe_json"`
	EventsDir   string    `yaml:"events_dir"`
	Log         LogConfig `yaml:"log"`

	Addr string `yaml:"addr"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
}

// WithDefaults fills an unset model or base URL with the provider's default.
// The OpenAI function has no base URL setting.
func (e EmbeddingConfig) WithDefaults() EmbeddingConfig {
	switch e.Provider {
	case EmbeddingOllama:
		if e.Model == "" {
			e.Model = DefaultOllamaModel
		}
		if e.BaseURL == "" {
			e.BaseURL = DefaultOllamaBaseURL
		}
	case EmbeddingOpenAI:
		if e.Model == "" {
			e.Model = DefaultOpenAIModel
		}
	}
	return e
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MaxTokens:   1024,
		TokenBudget: 8000,
		MaxSteps:    8,
		TopK:        3,
		Embedding: EmbeddingConfig{
			Provider: EmbeddingOllama,
		},
		Chunking:        ChunkingConfig{Size: 512, Overlap: 64},
		UploadDir:       "uploads",
		IngestWorkers:   1,
		LoadErrorPolicy: PolicySkip,
		SummaryCacheTTL: 30 * time.Minute,
		EventsDir:       ".agent",
		Log:             LogConfig{Level: "info"},
		Addr:            ":8080",
	}
}

// Load builds a Config from defaults, then path (if non-empty), then the
// environment. A .env file in the working directory is loaded first when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.Embedding = cfg.Embedding.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := os.LookupEnv(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}

	str(&c.AnthropicAPIKey, "AGT_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	str(&c.AnthropicBaseURL, "AGT_ANTHROPIC_BASE_URL")
	str(&c.Model, "AGT_MODEL")
	str(&c.Embedding.Provider, "AGT_EMBEDDING_PROVIDER")
	str(&c.Embedding.Model, "AGT_EMBEDDING_MODEL")
	str(&c.Embedding.BaseURL, "AGT_EMBEDDING_BASE_URL")
	str(&c.Embedding.APIKey, "AGT_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	str(&c.UploadDir, "AGT_UPLOAD_DIR")
	str(&c.LoadErrorPolicy, "AGT_LOAD_ERROR_POLICY")
	str(&c.EventsDir, "AGT_EVENTS_DIR")
	str(&c.Log.Level, "AGT_LOG_LEVEL")
	str(&c.Log.File, "AGT_LOG_FILE")
	str(&c.Addr, "AGT_ADDR")

	for key, dst := range map[string]*int{
		"AGT_MAX_TOKENS":     &c.MaxTokens,
		"AGT_TOKEN_BUDGET":   &c.TokenBudget,
		"AGT_MAX_STEPS":      &c.MaxSteps,
		"AGT_TOP_K":          &c.TopK,
		"AGT_INGEST_WORKERS": &c.IngestWorkers,
		"AGT_CHUNK_SIZE":     &c.Chunking.Size,
		"AGT_CHUNK_OVERLAP":  &c.Chunking.Overlap,
	} {
		if err := num(dst, key); err != nil {
			return err
		}
	}

	if v, ok := os.LookupEnv("AGT_SUMMARY_CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid AGT_SUMMARY_CACHE_TTL %q: %w", v, err)
		}
		c.SummaryCacheTTL = d
	}
	// Honour explicit 0/1 like the other AGT_ switches.
	if v, ok := os.LookupEnv("AGT_OBSERVE_JSON"); ok {
		c.ObserveJSON = v == "1"
	}
	if v, ok := os.LookupEnv("AGT_LOG_DEVELOPMENT"); ok {
		c.Log.Development = v == "1"
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.AnthropicAPIKey) == "":
		return errors.New("missing ANTHROPIC_API_KEY; export it or set anthropic_api_key")
	case c.MaxTokens <= 0:
		return fmt.Errorf("max_tokens must be > 0, got %d", c.MaxTokens)
	case c.TokenBudget <= 0:
		return fmt.Errorf("token_budget must be > 0, got %d", c.TokenBudget)
	case c.MaxSteps <= 0:
		return fmt.Errorf("max_steps must be > 0, got %d", c.MaxSteps)
	case c.TopK <= 0:
		return fmt.Errorf("top_k must be > 0, got %d", c.TopK)
	case c.IngestWorkers <= 0:
		return fmt.Errorf("ingest_workers must be > 0, got %d", c.IngestWorkers)
	case c.Chunking.Size <= 0 || c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size:
		return fmt.Errorf("invalid chunking size=%d overlap=%d", c.Chunking.Size, c.Chunking.Overlap)
	}

	switch c.LoadErrorPolicy {
	case PolicySkip, PolicyAbort:
	default:
		return fmt.Errorf("load_error_policy must be %q or %q, got %q", PolicySkip, PolicyAbort, c.LoadErrorPolicy)
	}

	switch c.Embedding.Provider {
	case EmbeddingOllama:
	case EmbeddingOpenAI:
		if c.Embedding.APIKey == "" {
			return errors.New("embedding provider openai requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	return nil
}
