// Package config loads leaplint settings from leaplint.yaml, LEAPLINT_
// environment variables and command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/plugin"
	"github.com/leapstack-labs/leaplint/pkg/query"
)

// QueryConfig bounds rule query execution.
type QueryConfig struct {
	Timeout  time.Duration `koanf:"timeout"`
	MaxSteps uint64        `koanf:"max_steps"`
	MaxRows  int           `koanf:"max_rows"`
}

// Limits converts the settings into engine limits.
func (q QueryConfig) Limits() query.Limits {
	return query.Limits{Timeout: q.Timeout, MaxSteps: q.MaxSteps}
}

// LintConfig disables rules or overrides their severity.
type LintConfig struct {
	Disabled []string          `koanf:"disabled"`
	Severity map[string]string `koanf:"severity"`
}

// Config holds all CLI configuration options.
type Config struct {
	RulesDir    string      `koanf:"rules_dir"`
	PrintRows   bool        `koanf:"print_rows"`
	OnlyRule    string      `koanf:"only_rule"`
	Include     []string    `koanf:"include"`
	Exclude     []string    `koanf:"exclude"`
	Query       QueryConfig `koanf:"query"`
	Lint        LintConfig  `koanf:"lint"`
	Concurrency int         `koanf:"concurrency"`
	Baseline    string      `koanf:"baseline"`
	Output      string      `koanf:"output"`
	Verbose     bool        `koanf:"verbose"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultRulesDir     = "rules"
	DefaultBaselineFile = ".leaplint/baseline.db"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultTimeout      = 5 * time.Second
	DefaultMaxSteps     = 10_000_000
)

// LintRules builds the diagnostic filter for lint contexts.
func (c *Config) LintRules() (*lint.Config, error) {
	return lint.ConfigFrom(c.Lint.Disabled, c.Lint.Severity)
}

// Selection returns the rules to run.
func (c *Config) Selection() plugin.Selection {
	if c.OnlyRule != "" {
		return plugin.Only(c.OnlyRule)
	}
	return plugin.All()
}

// LoaderOptions returns the rule discovery options. Empty lists keep the
// loader defaults.
func (c *Config) LoaderOptions() []plugin.LoaderOption {
	var opts []plugin.LoaderOption
	if len(c.Include) > 0 {
		opts = append(opts, plugin.WithInclude(c.Include...))
	}
	if c.Exclude != nil {
		opts = append(opts, plugin.WithExclude(c.Exclude...))
	}
	return opts
}
