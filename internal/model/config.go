package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete anchorx configuration
type Config struct {
	HTTP         HTTPConfig              `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig             `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig       `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig         `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Extraction   ExtractionConfig        `yaml:"extraction" mapstructure:"extraction"`
	Output       OutputConfig            `yaml:"output" mapstructure:"output"`
	Templates    map[string]TemplateSpec `yaml:"templates" mapstructure:"templates"`
}

// HTTPConfig controls document retrieval
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig controls the fetched-document cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitConfig is applied per domain during batch runs
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ExtractionConfig holds engine-wide extraction settings
type ExtractionConfig struct {
	Fallback string `yaml:"fallback" mapstructure:"fallback"` // Sentinel for fields that cannot be located
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Format  string `yaml:"format" mapstructure:"format"` // text, json, yaml, markdown
}

// TemplateSpec is one named template as written in the config file
type TemplateSpec struct {
	Pattern     string            `yaml:"pattern" mapstructure:"pattern"`
	Description string            `yaml:"description,omitempty" mapstructure:"description"`
	Rows        bool              `yaml:"rows,omitempty" mapstructure:"rows"`         // Apply as a repeated row template
	Children    map[string]string `yaml:"children,omitempty" mapstructure:"children"` // Field name -> child pattern
	Defaults    map[string]string `yaml:"defaults,omitempty" mapstructure:"defaults"` // Field name -> value when missing
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "anchorx-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".anchorx", "cache")
	}

	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "anchorx/0.1 (+https://github.com/ppiankov/anchorx)",
			MaxBodyBytes:  5_000_000,
			MaxRetries:    2,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   6 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Extraction: ExtractionConfig{
			Fallback: "N/A",
		},
		Output: OutputConfig{
			Format: "text",
		},
		Templates: map[string]TemplateSpec{
			"title": {
				Pattern:     "<title>{{TEXT:TITLE}}</title>",
				Description: "Document title",
			},
			"links": {
				Pattern:     `<a href="{{TEXT:HREF}}"`,
				Description: "Every double-quoted href, one row per link",
				Rows:        true,
			},
		},
	}
}
