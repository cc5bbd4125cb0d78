package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// Feed defaults
	DefaultFeedTimeout = 30 * time.Second

	// Fetch defaults
	DefaultMaxInFlight      = 5
	DefaultRequestInterval  = 500 * time.Millisecond
	DefaultBurst            = 1
	DefaultMaxRetries       = 3
	DefaultRetryBackoffBase = 1 * time.Second
	DefaultAttemptTimeout   = 30 * time.Second

	// Cache defaults
	DefaultCacheEnabled = true
	DefaultCacheTTL     = 24 * time.Hour

	// Extraction defaults
	DefaultFormDepth      = 5
	DefaultH2HDepth       = 5
	DefaultWorkers        = 5
	DefaultRequestTimeout = 2 * time.Minute

	// Output defaults
	DefaultOutputPath = "./extraction.json"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".matchgraph"
	}
	return filepath.Join(home, ".matchgraph")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Feed: FeedConfig{
			Timeout: DefaultFeedTimeout,
		},
		Fetch: FetchConfig{
			MaxInFlight:      DefaultMaxInFlight,
			RequestInterval:  DefaultRequestInterval,
			Burst:            DefaultBurst,
			MaxRetries:       DefaultMaxRetries,
			RetryBackoffBase: DefaultRetryBackoffBase,
			AttemptTimeout:   DefaultAttemptTimeout,
		},
		Cache: CacheConfig{
			Enabled:   DefaultCacheEnabled,
			TTL:       DefaultCacheTTL,
			Directory: CacheDir(),
		},
		Extraction: ExtractionConfig{
			FormDepth:      DefaultFormDepth,
			H2HDepth:       DefaultH2HDepth,
			Strict:         false,
			Workers:        DefaultWorkers,
			RequestTimeout: DefaultRequestTimeout,
		},
		Output: OutputConfig{
			Path:      DefaultOutputPath,
			Gzip:      false,
			Overwrite: false,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
