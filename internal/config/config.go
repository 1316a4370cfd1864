// Package config provides configuration loading and validation for the
// server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Cache backend names accepted in configuration.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config represents the application configuration. It can be loaded from a
// JSON file; environment variables override file values.
type Config struct {
	// API
	APIKey string `json:"api_key,omitempty"` // Gemini API key

	// Server
	Port int `json:"port,omitempty"` // HTTP listen port

	// Cache
	CacheBackend  string `json:"cache_backend,omitempty"`   // "file" or "redis"
	CacheDir      string `json:"cache_dir,omitempty"`       // file backend directory
	CacheTTLHours int    `json:"cache_ttl_hours,omitempty"` // entry lifetime
	RedisURL      string `json:"redis_url,omitempty"`       // redis backend URL

	// Job analysis pacing
	BatchSize       int `json:"batch_size,omitempty"`
	Concurrency     int `json:"concurrency,omitempty"`
	RequestDelayMS  int `json:"request_delay_ms,omitempty"`
	ResultsWanted   int `json:"results_wanted,omitempty"`
	ProgressTTLMins int `json:"progress_ttl_minutes,omitempty"` // finished-job retention

	// Redaction
	ProfessionalDomains []string `json:"professional_domains,omitempty"`

	// Behavior
	Verbose bool `json:"verbose,omitempty"`
	JSONLog bool `json:"json_log,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:            8080,
		CacheBackend:    BackendFile,
		CacheDir:        "cache",
		CacheTTLHours:   7 * 24,
		BatchSize:       5,
		Concurrency:     3,
		RequestDelayMS:  500,
		ResultsWanted:   20,
		ProgressTTLMins: 5,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.CacheBackend != "" && c.CacheBackend != BackendFile && c.CacheBackend != BackendRedis {
		return fmt.Errorf("config error: 'cache_backend' must be %q or %q", BackendFile, BackendRedis)
	}
	if c.CacheBackend == BackendRedis && c.RedisURL == "" {
		return fmt.Errorf("config error: 'redis_url' is required with the redis backend")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be a valid TCP port")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("config error: 'batch_size' must be non-negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.RequestDelayMS < 0 {
		return fmt.Errorf("config error: 'request_delay_ms' must be non-negative")
	}
	if c.CacheTTLHours < 0 {
		return fmt.Errorf("config error: 'cache_ttl_hours' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.CacheBackend == "" {
		result.CacheBackend = defaults.CacheBackend
	}
	if result.CacheDir == "" {
		result.CacheDir = defaults.CacheDir
	}
	if result.CacheTTLHours == 0 {
		result.CacheTTLHours = defaults.CacheTTLHours
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.RequestDelayMS == 0 {
		result.RequestDelayMS = defaults.RequestDelayMS
	}
	if result.ResultsWanted == 0 {
		result.ResultsWanted = defaults.ResultsWanted
	}
	if result.ProgressTTLMins == 0 {
		result.ProgressTTLMins = defaults.ProgressTTLMins
	}
	if result.ProfessionalDomains == nil {
		result.ProfessionalDomains = defaults.ProfessionalDomains
	}

	return result
}

// ApplyEnv overlays environment variables onto the configuration. Variables
// win over file values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("SEEKRAI_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("SEEKRAI_CACHE_BACKEND"); v != "" {
		c.CacheBackend = v
	}
	if v := os.Getenv("SEEKRAI_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
}

// CacheTTL returns the cache entry lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// RequestDelay returns the pause between completion calls within a batch.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMS) * time.Millisecond
}

// ProgressRetention returns how long finished jobs remain pollable.
func (c *Config) ProgressRetention() time.Duration {
	return time.Duration(c.ProgressTTLMins) * time.Minute
}
