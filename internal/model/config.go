package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete symptomlog configuration
type Config struct {
	Extraction   ExtractionConfig   `yaml:"extraction" mapstructure:"extraction"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Source       SourceConfig       `yaml:"source" mapstructure:"source"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// ExtractionConfig controls the extraction engine
type ExtractionConfig struct {
	TaxonomyFile string `yaml:"taxonomy_file" mapstructure:"taxonomy_file"` // Empty = built-in taxonomy
	WindowBefore int    `yaml:"window_before" mapstructure:"window_before"` // Characters searched before a numeric keyword; 0 searches none
	WindowAfter  int    `yaml:"window_after" mapstructure:"window_after"`   // Characters searched after a numeric keyword
}

// CacheConfig controls the extraction result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig controls entry persistence
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite database file
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr               string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout        time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxTranscriptBytes int64         `yaml:"max_transcript_bytes" mapstructure:"max_transcript_bytes"`
	Metrics            bool          `yaml:"metrics" mapstructure:"metrics"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig controls per-user submission limits
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// SourceConfig controls how transcripts are loaded from URLs
type SourceConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// LLMConfig controls the optional recap provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "", openai, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // Never written to disk
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Strict    bool   `yaml:"strict" mapstructure:"strict"`
}

// LoggingConfig controls zerolog output
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			WindowBefore: 30,
			WindowAfter:  40,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join(defaultDataDir(), "cache"),
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Path: filepath.Join(defaultDataDir(), "journal.db"),
		},
		Server: ServerConfig{
			Addr:               ":8080",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			MaxTranscriptBytes: 64 * 1024,
			Metrics:            true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         5,
		},
		Source: SourceConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "symptomlog/0.1",
			MaxBodyBytes: 2_000_000,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 400,
			Strict:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".symptomlog"
	}
	return filepath.Join(home, ".symptomlog")
}
