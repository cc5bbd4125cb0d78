package config

import (
	"fmt"
	"time"
)

// Config represents the application configuration
type Config struct {
	Feed       FeedConfig       `mapstructure:"feed" yaml:"feed"`
	Fetch      FetchConfig      `mapstructure:"fetch" yaml:"fetch"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// FeedConfig contains upstream feed settings
type FeedConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	ProxyURL  string        `mapstructure:"proxy_url" yaml:"proxy_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// FetchConfig contains fetch pipeline settings
type FetchConfig struct {
	MaxInFlight      int           `mapstructure:"max_in_flight" yaml:"max_in_flight"`
	RequestInterval  time.Duration `mapstructure:"request_interval" yaml:"request_interval"`
	Burst            int           `mapstructure:"burst" yaml:"burst"`
	MaxRetries       int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBackoffBase time.Duration `mapstructure:"retry_backoff_base" yaml:"retry_backoff_base"`
	AttemptTimeout   time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
}

// CacheConfig contains cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
}

// ExtractionConfig contains extraction settings
type ExtractionConfig struct {
	FormDepth      int           `mapstructure:"form_depth" yaml:"form_depth"`
	H2HDepth       int           `mapstructure:"h2h_depth" yaml:"h2h_depth"`
	Strict         bool          `mapstructure:"strict" yaml:"strict"`
	Workers        int           `mapstructure:"workers" yaml:"workers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// OutputConfig contains output settings
type OutputConfig struct {
	Path      string `mapstructure:"path" yaml:"path"`
	Gzip      bool   `mapstructure:"gzip" yaml:"gzip"`
	Overwrite bool   `mapstructure:"overwrite" yaml:"overwrite"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration and clamps out-of-range values
func (c *Config) Validate() error {
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Feed.Timeout < time.Second {
		c.Feed.Timeout = DefaultFeedTimeout
	}
	if c.Fetch.MaxInFlight < 1 {
		c.Fetch.MaxInFlight = DefaultMaxInFlight
	}
	if c.Fetch.RequestInterval <= 0 {
		c.Fetch.RequestInterval = DefaultRequestInterval
	}
	if c.Fetch.Burst < 1 {
		c.Fetch.Burst = DefaultBurst
	}
	if c.Fetch.MaxRetries < 0 {
		c.Fetch.MaxRetries = DefaultMaxRetries
	}
	if c.Fetch.RetryBackoffBase <= 0 {
		c.Fetch.RetryBackoffBase = DefaultRetryBackoffBase
	}
	if c.Fetch.AttemptTimeout < time.Second {
		c.Fetch.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.Cache.TTL < time.Minute {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Extraction.FormDepth < 1 {
		c.Extraction.FormDepth = DefaultFormDepth
	}
	if c.Extraction.H2HDepth < 1 {
		c.Extraction.H2HDepth = DefaultH2HDepth
	}
	if c.Extraction.Workers < 1 {
		c.Extraction.Workers = DefaultWorkers
	}
	if c.Extraction.RequestTimeout < 0 {
		c.Extraction.RequestTimeout = DefaultRequestTimeout
	}
	return nil
}
