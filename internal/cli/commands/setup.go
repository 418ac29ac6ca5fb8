// Package commands implements the leaplint subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplint/internal/cli/config"
	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/pkg/plugin"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the configuration the
// root command stored in the context, loading it from flags when the
// command runs on its own.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	cfg, ok := config.FromContext(ctx)
	if !ok {
		cfgFile, _ := cmd.Flags().GetString("config")
		res, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return nil, err
		}
		cfg = res.Config
	}

	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// LoadedRules is the outcome of loading the configured rules directory.
type LoadedRules struct {
	Plugin *plugin.LinterPlugin
	Result *plugin.LoadResult
}

// LoadPlugin loads the configured rules and builds a plugin from them. Rule
// files that fail to load are reported in Result.Errors; the remaining rules
// are usable.
func (c *CommandContext) LoadPlugin(cmd *cobra.Command) (*LoadedRules, error) {
	if err := c.Cfg.ValidateDirectories(); err != nil {
		return nil, err
	}

	opts := append(c.Cfg.LoaderOptions(), plugin.WithLoaderLogger(c.Logger))
	res, err := plugin.NewLoader(c.Cfg.RulesDir, opts...).Load()
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded rules",
		slog.String("dir", c.Cfg.RulesDir),
		slog.Int("rules", len(res.Rules)),
		slog.Int("errors", len(res.Errors)))

	engines := plugin.DefaultEngines(c.Logger)
	usable := make([]*plugin.Definition, 0, len(res.Rules))
	for _, r := range res.Rules {
		if _, ok := engines.Lookup(r.Engine); !ok {
			res.Errors = append(res.Errors, &plugin.LoadError{
				Path: r.Path,
				Err: fmt.Errorf("%w %q (available: %s)",
					plugin.ErrUnknownEngine, r.Engine, strings.Join(engines.Names(), ", ")),
			})
			continue
		}
		usable = append(usable, r)
	}
	res.Rules = usable

	p, err := plugin.New(res.Rules, plugin.Options{
		Engines:   engines,
		Limits:    c.Cfg.Query.Limits(),
		MaxRows:   c.Cfg.Query.MaxRows,
		PrintRows: c.Cfg.PrintRows,
		RowWriter: cmd.ErrOrStderr(),
		Logger:    c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}
	if _, err := p.Select(c.Cfg.Selection()); err != nil {
		return nil, err
	}
	return &LoadedRules{Plugin: p, Result: res}, nil
}
