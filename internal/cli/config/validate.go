package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.RulesDir == "" {
		errs = append(errs, errors.New("rules_dir is required"))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency))
	}
	if c.Query.Timeout < 0 {
		errs = append(errs, fmt.Errorf("query.timeout must not be negative, got %s", c.Query.Timeout))
	}
	if c.Query.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("query.max_rows must not be negative, got %d", c.Query.MaxRows))
	}
	if _, err := output.ParseMode(c.Output); err != nil {
		errs = append(errs, err)
	}
	for id, name := range c.Lint.Severity {
		if _, ok := lint.ParseSeverity(name); !ok {
			errs = append(errs, fmt.Errorf("lint.severity: rule %q: unknown severity %q", id, name))
		}
	}
	for _, list := range [][]string{c.Include, c.Exclude} {
		for _, p := range list {
			if !doublestar.ValidatePattern(p) {
				errs = append(errs, fmt.Errorf("invalid glob pattern %q", p))
			}
		}
	}
	return errors.Join(errs...)
}

// ValidateDirectories checks if the rules directory exists.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.RulesDir); os.IsNotExist(err) {
		return fmt.Errorf("rules directory does not exist: %s\nHint: Create the directory or use --rules-dir to specify a different path", c.RulesDir)
	}
	return nil
}
