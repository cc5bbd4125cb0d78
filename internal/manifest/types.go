package manifest

import (
	"fmt"
	"time"
)

// Config represents the complete manifest configuration
type Config struct {
	Targets []Target `yaml:"targets" json:"targets"`
	Options Options  `yaml:"options" json:"options"`
}

// Target represents one round to extract. Depth and strictness fields
// override the global configuration when set.
type Target struct {
	Country     string `yaml:"country" json:"country"`
	Competition string `yaml:"competition" json:"competition"`
	Round       string `yaml:"round" json:"round"`
	FormDepth   int    `yaml:"form_depth,omitempty" json:"form_depth,omitempty"`
	H2HDepth    int    `yaml:"h2h_depth,omitempty" json:"h2h_depth,omitempty"`
	Strict      *bool  `yaml:"strict,omitempty" json:"strict,omitempty"`
	Output      string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Options represents global manifest options
type Options struct {
	ContinueOnError bool          `yaml:"continue_on_error" json:"continue_on_error"`
	Output          string        `yaml:"output,omitempty" json:"output,omitempty"`
	Gzip            bool          `yaml:"gzip,omitempty" json:"gzip,omitempty"`
	Concurrency     int           `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	CacheTTL        time.Duration `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"`
}

// Validate validates the manifest configuration
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTargets
	}
	for i, t := range c.Targets {
		if t.Country == "" || t.Competition == "" || t.Round == "" {
			return fmt.Errorf("target %d: %w", i, ErrIncompleteTarget)
		}
	}
	return nil
}

// OutputPath returns the output file for a target, preferring the per-target
// override and otherwise deriving a name under the global output directory.
func (c *Config) OutputPath(t Target) string {
	if t.Output != "" {
		return t.Output
	}
	return fmt.Sprintf("%s/%s-%s-%s.json", c.Options.Output, t.Country, t.Competition, t.Round)
}

// DefaultOptions returns options with sensible defaults
func DefaultOptions() Options {
	return Options{
		ContinueOnError: false,
		Output:          "./extractions",
		Concurrency:     5,
		CacheTTL:        24 * time.Hour,
	}
}
