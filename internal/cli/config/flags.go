package config

import (
	"context"

	"github.com/spf13/pflag"
)

// RegisterFlags adds the global configuration flags to fs. Flag names map
// to config keys by replacing dashes with underscores; the query- prefix
// selects the query section.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default: ./leaplint.yaml)")
	fs.String("project-dir", "", "Project root that relative paths are resolved against")
	fs.String("rules-dir", "", "Directory containing rule definitions")
	fs.StringSlice("include", nil, "Glob patterns selecting rule files (default: **/*.yml, **/*.yaml)")
	fs.StringSlice("exclude", nil, "Glob patterns excluding rule files (default: **/ignore_*/**)")
	fs.String("only-rule", "", "Run only the named rule")
	fs.Bool("print-rows", false, "Echo raw query result rows to stderr")
	fs.Duration("query-timeout", 0, "Wall clock limit for one query on one file")
	fs.Uint64("query-max-steps", 0, "Execution step budget for one query on one file")
	fs.Int("query-max-rows", 0, "Maximum rows one query may produce on one file (0 = unlimited)")
	fs.BoolP("verbose", "v", false, "Verbose output")
	fs.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext retrieves the config stored by NewContext.
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(ctxKey{}).(*Config)
	return cfg, ok
}
