package lexrag

import (
	"time"

	"github.com/lexragph/lexrag/llm"
)

// Config holds all configuration for the lexrag engine.
type Config struct {
	// Knowledge base service.
	KBBaseURL string `json:"kb_base_url" yaml:"kb_base_url"`
	// KBAPISecret is either a pre-issued JWT or a signing secret for
	// self-minted service tokens.
	KBAPISecret string `json:"kb_api_secret" yaml:"kb_api_secret"`
	KBEnabled   bool   `json:"kb_enabled" yaml:"kb_enabled"`

	// Gating.
	ConfidenceBase      float64 `json:"confidence_base" yaml:"confidence_base"`
	TopK                int     `json:"top_k" yaml:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
	FastPathLimit       int     `json:"fast_path_limit" yaml:"fast_path_limit"`

	// Upstream resilience.
	CacheTTLSeconds  int           `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	RetryAttempts    int           `json:"retry_attempts" yaml:"retry_attempts"`
	RetryBaseDelayMs int           `json:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RequestTimeout   time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// Query structuring.
	SQGEnabled    bool       `json:"sqg_enabled" yaml:"sqg_enabled"`
	SQGModel      string     `json:"sqg_model" yaml:"sqg_model"`
	SQGCacheTTLMs int        `json:"sqg_cache_ttl_ms" yaml:"sqg_cache_ttl_ms"`
	Structuring   llm.Config `json:"structuring" yaml:"structuring"`

	// AuditDBPath enables the SQLite decision log when non-empty.
	AuditDBPath string `json:"audit_db_path,omitempty" yaml:"audit_db_path,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults. The KB base URL
// and secret must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		KBEnabled:           true,
		ConfidenceBase:      0.18,
		TopK:                12,
		SimilarityThreshold: 0.20,
		FastPathLimit:       8,
		CacheTTLSeconds:     60,
		RetryAttempts:       3,
		RetryBaseDelayMs:    1000,
		RequestTimeout:      8 * time.Second,
		SQGEnabled:          true,
		SQGCacheTTLMs:       int((10 * time.Minute).Milliseconds()),
		Structuring: llm.Config{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
	}
}

func (c *Config) cacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) sqgCacheTTL() time.Duration {
	if c.SQGCacheTTLMs <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.SQGCacheTTLMs) * time.Millisecond
}

func (c *Config) retryBaseDelay() time.Duration {
	if c.RetryBaseDelayMs <= 0 {
		return time.Second
	}
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}
