package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/leaplint/internal/pattern"
	"github.com/leapstack-labs/leaplint/internal/starlark"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/query"
)

// Options configures a LinterPlugin.
type Options struct {
	// Engines resolves rule engine names. Nil uses DefaultEngines.
	Engines *query.Registry
	// Limits bounds every query execution.
	Limits query.Limits
	// MaxRows fails a query that yields more rows. Zero means unlimited.
	MaxRows int
	// PrintRows echoes every raw result row to RowWriter.
	PrintRows bool
	// RowWriter defaults to os.Stderr.
	RowWriter io.Writer
	Logger    *slog.Logger
}

// DefaultEngines returns a registry with the Starlark engine as default and
// the tree-sitter pattern engine.
func DefaultEngines(logger *slog.Logger) *query.Registry {
	r, err := query.NewRegistry(
		starlark.NewEngine(starlark.WithLogger(logger)),
		pattern.NewEngine(),
	)
	if err != nil {
		panic(err)
	}
	return r
}

// LinterPlugin runs a fixed set of rule definitions. It is safe to share
// between goroutines linting different files.
type LinterPlugin struct {
	rules   []*Definition
	byName  map[string]*Definition
	engines *query.Registry
	opts    Options
	logger  *slog.Logger
}

// New creates a plugin for rules. Rules must have unique names and use
// registered engines.
func New(rules []*Definition, opts Options) (*LinterPlugin, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Engines == nil {
		opts.Engines = DefaultEngines(opts.Logger)
	}
	if opts.RowWriter == nil {
		opts.RowWriter = os.Stderr
	}

	p := &LinterPlugin{
		rules:   rules,
		byName:  make(map[string]*Definition, len(rules)),
		engines: opts.Engines,
		opts:    opts,
		logger:  opts.Logger,
	}
	var errs []error
	for _, r := range rules {
		if prev, dup := p.byName[r.Name]; dup {
			errs = append(errs, &DuplicateRuleError{Name: r.Name, Path: r.Path, FirstPath: prev.Path})
			continue
		}
		p.byName[r.Name] = r
		if _, ok := p.engines.Lookup(r.Engine); !ok {
			errs = append(errs, fmt.Errorf("rule %q: %w %q (available: %s)",
				r.Name, ErrUnknownEngine, r.Engine, strings.Join(p.engines.Names(), ", ")))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

// Rules returns the plugin's rules in load order.
func (p *LinterPlugin) Rules() []*Definition { return p.rules }

// Rule returns the rule with the given name.
func (p *LinterPlugin) Rule(name string) (*Definition, bool) {
	r, ok := p.byName[name]
	return r, ok
}

// Engines returns the engine registry.
func (p *LinterPlugin) Engines() *query.Registry { return p.engines }

// Selection chooses the rules a run executes.
type Selection struct {
	only string
}

// All selects every rule.
func All() Selection { return Selection{} }

// Only selects the single rule called name.
func Only(name string) Selection { return Selection{only: name} }

// Rule returns the selected rule name, if the selection is restricted.
func (s Selection) Rule() (string, bool) { return s.only, s.only != "" }

// Select returns the rules chosen by sel.
func (p *LinterPlugin) Select(sel Selection) ([]*Definition, error) {
	name, ok := sel.Rule()
	if !ok {
		return p.rules, nil
	}
	r, found := p.byName[name]
	if !found {
		return nil, fmt.Errorf("%w %q", ErrUnknownRule, name)
	}
	return []*Definition{r}, nil
}

// Run executes the selected rules against one file's adapter, one after the
// other. A query that fails is reported to sink as an error diagnostic of
// its rule. Rows with unusable span fields stop their rule; those errors are
// joined and returned once every rule has run.
func (p *LinterPlugin) Run(ctx context.Context, sink lint.Sink, adapter query.Adapter, sel Selection) error {
	rules, err := p.Select(sel)
	if err != nil {
		return err
	}

	var errs []error
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := p.RunRule(ctx, sink, rule, adapter)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var qErr *query.Error
		if errors.As(err, &qErr) {
			p.logger.Debug("rule query failed", slog.String("rule", rule.Name), slog.Any("error", err))
			ReportQueryFailure(sink, rule, qErr)
			continue
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RunRule executes one rule and reports its findings to sink. It returns the
// number of diagnostics reported. Query failures are returned as
// *query.Error, unusable rows as *SpanShapeError.
func (p *LinterPlugin) RunRule(ctx context.Context, sink lint.Sink, rule *Definition, adapter query.Adapter) (int, error) {
	engine, ok := p.engines.Lookup(rule.Engine)
	if !ok {
		return 0, fmt.Errorf("rule %q: %w %q", rule.Name, ErrUnknownEngine, rule.Engine)
	}

	rows, err := engine.Execute(ctx, adapter, rule.Query, rule.Args, p.opts.Limits)
	if err != nil {
		return 0, err
	}

	reported, seen := 0, 0
	for row, err := range rows {
		if err != nil {
			return reported, err
		}
		seen++
		if p.opts.MaxRows > 0 && seen > p.opts.MaxRows {
			return reported, query.Errorf(engine.Name(), "query produced more than %d rows", p.opts.MaxRows)
		}
		if p.opts.PrintRows {
			p.printRow(rule, row)
		}

		span, err := DecodeSpan(row)
		if err != nil {
			var shapeErr *SpanShapeError
			if errors.As(err, &shapeErr) {
				shapeErr.Rule = rule.Name
			}
			return reported, err
		}
		reported += Emit(sink, rule, span)
	}
	return reported, nil
}

// ReportQueryFailure reports a failed query of rule to sink as an error
// diagnostic carrying the engine's message.
func ReportQueryFailure(sink lint.Sink, rule *Definition, err *query.Error) {
	sink.WithRuleName(rule.Name)
	sink.Diagnostic(lint.Diagnostic{
		RuleID:   rule.Name,
		Severity: lint.SeverityError,
		Message:  err.Error(),
		Label:    "query of rule " + rule.Name + " failed",
	})
}

func (p *LinterPlugin) printRow(rule *Definition, row query.Row) {
	var b strings.Builder
	b.WriteString(rule.Name)
	b.WriteString(":")
	for _, k := range row.Keys() {
		fmt.Fprintf(&b, " %s=%v", k, row[k])
	}
	b.WriteString("\n")
	_, _ = io.WriteString(p.opts.RowWriter, b.String())
}
