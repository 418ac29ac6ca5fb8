// Package plugintest runs the fixtures embedded in rule definitions.
//
// Every fixture is parsed, given a semantic model and linted with only the
// rule that embeds it. Pass fixtures must come out clean; fail fixtures must
// produce a diagnostic, fail to parse, or make the query fail. The first
// fixture that does not meet its expectation stops the run with a
// *MismatchError locating the fixture inside the rule file.
package plugintest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leaplint/pkg/adapter"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/parser"
	"github.com/leapstack-labs/leaplint/pkg/plugin"
	"github.com/leapstack-labs/leaplint/pkg/query"
	"github.com/leapstack-labs/leaplint/pkg/semantic"
)

// Expectation is what a fixture is meant to produce.
type Expectation int

// Expectations.
const (
	ExpectPass Expectation = iota
	ExpectFail
)

func (e Expectation) String() string {
	if e == ExpectFail {
		return "fail"
	}
	return "pass"
}

// Outcome is the result of running one fixture.
type Outcome int

// Outcomes.
const (
	// OutcomeClean means the rule reported nothing.
	OutcomeClean Outcome = iota
	// OutcomeDiagnosed means the rule reported at least one diagnostic.
	OutcomeDiagnosed
	// OutcomeParseFailed means the fixture code has syntax errors.
	OutcomeParseFailed
	// OutcomeQueryFailed means the rule's query could not run.
	OutcomeQueryFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeDiagnosed:
		return "diagnosed"
	case OutcomeParseFailed:
		return "parse failed"
	case OutcomeQueryFailed:
		return "query failed"
	default:
		return "unknown"
	}
}

// Result is the evaluation of one fixture.
type Result struct {
	Rule        string
	Expectation Expectation
	Index       int
	Fixture     plugin.Fixture
	Outcome     Outcome
	Diagnostics []lint.Diagnostic
	ParseErrors []*parser.SyntaxError
}

// Satisfied reports whether the outcome meets the expectation.
func (r *Result) Satisfied() bool {
	if r.Expectation == ExpectPass {
		return r.Outcome == OutcomeClean
	}
	return r.Outcome != OutcomeClean
}

// RuleTally counts the fixtures of a rule that ran successfully.
type RuleTally struct {
	Rule   string
	Passed int
}

// Summary describes a successful test run.
type Summary struct {
	Rules []RuleTally
}

// Fixtures returns the total number of fixtures run.
func (s *Summary) Fixtures() int {
	n := 0
	for _, r := range s.Rules {
		n += r.Passed
	}
	return n
}

// Runner evaluates rule fixtures against a plugin.
type Runner struct {
	plugin   *plugin.LinterPlugin
	out      io.Writer
	logger   *slog.Logger
	readFile func(string) ([]byte, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where per-rule tallies are written. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReadFile replaces how rule files are read when locating fixtures.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.readFile = fn
		}
	}
}

// NewRunner creates a runner for the rules of p.
func NewRunner(p *plugin.LinterPlugin, opts ...Option) *Runner {
	r := &Runner{
		plugin:   p,
		out:      io.Discard,
		logger:   slog.New(slog.DiscardHandler),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates every fixture of the selected rules in order and stops at
// the first one that does not meet its expectation.
func (r *Runner) Run(ctx context.Context, sel plugin.Selection) (*Summary, error) {
	rules, err := r.plugin.Select(sel)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, rule := range rules {
		if rule.Tests.Len() == 0 {
			continue
		}
		for _, set := range []struct {
			exp      Expectation
			fixtures []plugin.Fixture
		}{
			{ExpectPass, rule.Tests.Pass},
			{ExpectFail, rule.Tests.Fail},
		} {
			for i := range set.fixtures {
				res, err := r.RunFixture(ctx, rule, set.exp, i)
				if err != nil {
					return summary, err
				}
				if !res.Satisfied() {
					return summary, r.mismatch(rule, res)
				}
			}
		}

		n := rule.Tests.Len()
		summary.Rules = append(summary.Rules, RuleTally{Rule: rule.Name, Passed: n})
		fmt.Fprintf(r.out, "%s passed %d tests successfully.\n", rule.Name, n)
	}
	return summary, nil
}

// RunFixture evaluates fixture index of the given expectation of rule.
// Fixtures that are not valid programs return an *InvalidFixtureError;
// rows with unusable spans return a *plugin.SpanShapeError.
func (r *Runner) RunFixture(ctx context.Context, rule *plugin.Definition, exp Expectation, index int) (*Result, error) {
	fixtures := rule.Tests.Pass
	if exp == ExpectFail {
		fixtures = rule.Tests.Fail
	}
	if index < 0 || index >= len(fixtures) {
		return nil, fmt.Errorf("rule %q has no %s fixture %d", rule.Name, exp, index)
	}
	fixture := fixtures[index]
	res := &Result{Rule: rule.Name, Expectation: exp, Index: index, Fixture: fixture}
	invalid := func(err error, semErrs []*semantic.Error) error {
		return &InvalidFixtureError{Rule: rule.Name, Expectation: exp, Index: index, Code: fixture.Code, Err: err, Errors: semErrs}
	}

	parsed, err := parser.Parse(ctx, fixture.FileName(), []byte(fixture.Code))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, invalid(err, nil)
	}
	defer parsed.Program.Close()

	if parsed.HasErrors() {
		res.Outcome = OutcomeParseFailed
		res.ParseErrors = parsed.Errors
		return res, nil
	}

	built := semantic.Build(parsed.Program)
	if built.HasErrors() {
		return nil, invalid(nil, built.Errors)
	}

	sink := lint.NewContext(parsed.Program.Source, nil)
	a := adapter.New(built.Semantic, fixture.RelativePath)
	_, err = r.plugin.RunRule(ctx, sink, rule, a)

	var qErr *query.Error
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.As(err, &qErr):
		plugin.ReportQueryFailure(sink, rule, qErr)
		res.Outcome = OutcomeQueryFailed
	default:
		return nil, err
	}

	res.Diagnostics = sink.Diagnostics()
	if res.Outcome != OutcomeQueryFailed && len(res.Diagnostics) > 0 {
		res.Outcome = OutcomeDiagnosed
	}
	r.logger.Debug("fixture evaluated",
		slog.String("rule", rule.Name),
		slog.String("expectation", exp.String()),
		slog.Int("index", index),
		slog.String("outcome", res.Outcome.String()))
	return res, nil
}

func (r *Runner) mismatch(rule *plugin.Definition, res *Result) error {
	mErr := &MismatchError{Path: rule.Path, Result: res}

	text, err := r.readFile(rule.Path)
	if err != nil {
		return errors.Join(mErr, fmt.Errorf("reading rule file: %w", err))
	}
	loc, err := LocateFixture(text, res.Expectation, res.Index)
	if err != nil {
		return errors.Join(mErr, fmt.Errorf("locating fixture in %s: %w", rule.Path, err))
	}
	mErr.Location = &loc
	mErr.Source = text
	return mErr
}
