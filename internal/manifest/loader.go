package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader reads manifest files. The format is picked by file extension:
// .yaml/.yml or .json.
type Loader struct{}

// NewLoader creates a manifest loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads, parses, and validates the manifest at path.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	return l.LoadFromBytes(data, filepath.Ext(path))
}

// LoadFromBytes parses a manifest from raw bytes, applying option defaults
// before validation.
func (l *Loader) LoadFromBytes(data []byte, ext string) (*Config, error) {
	cfg, err := decode(data, ext)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExt, ext)
	}
	return &cfg, nil
}

// applyDefaults fills unset global options. Zero CacheTTL means "use the
// default", not "disable caching"; caching is toggled in the app config.
func applyDefaults(cfg *Config) {
	defaults := DefaultOptions()

	if cfg.Options.Output == "" {
		cfg.Options.Output = defaults.Output
	}
	if cfg.Options.Concurrency <= 0 {
		cfg.Options.Concurrency = defaults.Concurrency
	}
	if cfg.Options.CacheTTL <= 0 {
		cfg.Options.CacheTTL = defaults.CacheTTL
	}
}
