package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults
// Uses the global viper instance to access CLI flag bindings
func Load() (*Config, error) {
	v := viper.GetViper()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Environment variables (MATCHGRAPH_*)
	v.SetEnvPrefix("MATCHGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.base_url", "")
	v.SetDefault("feed.user_agent", "")
	v.SetDefault("feed.proxy_url", "")
	v.SetDefault("feed.timeout", DefaultFeedTimeout)

	v.SetDefault("fetch.max_in_flight", DefaultMaxInFlight)
	v.SetDefault("fetch.request_interval", DefaultRequestInterval)
	v.SetDefault("fetch.burst", DefaultBurst)
	v.SetDefault("fetch.max_retries", DefaultMaxRetries)
	v.SetDefault("fetch.retry_backoff_base", DefaultRetryBackoffBase)
	v.SetDefault("fetch.attempt_timeout", DefaultAttemptTimeout)

	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.directory", CacheDir())

	v.SetDefault("extraction.form_depth", DefaultFormDepth)
	v.SetDefault("extraction.h2h_depth", DefaultH2HDepth)
	v.SetDefault("extraction.strict", false)
	v.SetDefault("extraction.workers", DefaultWorkers)
	v.SetDefault("extraction.request_timeout", DefaultRequestTimeout)

	v.SetDefault("output.path", DefaultOutputPath)
	v.SetDefault("output.gzip", false)
	v.SetDefault("output.overwrite", false)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}

// EnsureCacheDir creates the cache directory if it doesn't exist
func EnsureCacheDir() error {
	return os.MkdirAll(CacheDir(), 0755)
}
