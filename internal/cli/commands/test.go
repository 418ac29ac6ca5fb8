package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/watch"
	"github.com/leapstack-labs/leaplint/pkg/plugintest"
)

// ErrRuleTestsFailed is returned when a rule fixture does not behave as
// declared or a rule file cannot be loaded.
var ErrRuleTestsFailed = errors.New("rule tests failed")

// TestOptions holds options for the test command.
type TestOptions struct {
	Watch bool
}

// NewTestCommand creates the test command.
func NewTestCommand() *cobra.Command {
	opts := &TestOptions{}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check rules against the fixtures embedded in their definitions",
		Long: `Run every rule against its own pass and fail fixtures.

Pass fixtures must produce no diagnostics; fail fixtures must produce at
least one. The run stops at the first fixture that does not, and shows where
that fixture is defined in the rule file.`,
		Example: `  # Test all rules
  leaplint test

  # Test one rule and re-run whenever a rule file changes
  leaplint test --only-rule no_debugger --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTest(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run when rule files change")
	return cmd
}

func runTest(cmd *cobra.Command, opts *TestOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	runErr := testRules(cmd, cc)
	if !opts.Watch {
		return runErr
	}

	r := cc.Renderer
	r.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", cc.Cfg.RulesDir))
	w := watch.New(cc.Cfg.RulesDir, watch.WithLogger(cc.Logger))
	return w.Run(cmd.Context(), func(paths []string) {
		cc.Logger.Debug("re-running rule tests", slog.Int("changed", len(paths)))
		r.Println("")
		r.Muted("Changed: " + strings.Join(paths, ", "))
		if err := testRules(cmd, cc); err != nil && !errors.Is(err, ErrRuleTestsFailed) {
			r.Error(err.Error())
		}
	})
}

// testRules loads the rules and runs their fixtures once.
func testRules(cmd *cobra.Command, cc *CommandContext) error {
	r := cc.Renderer
	jsonMode := r.EffectiveMode() == output.ModeJSON

	rules, err := cc.LoadPlugin(cmd)
	if err != nil {
		return err
	}
	for _, loadErr := range rules.Result.Errors {
		r.Error(loadErr.Error())
	}

	var tallies io.Writer = r.Writer()
	if jsonMode {
		tallies = io.Discard
	}
	runner := plugintest.NewRunner(rules.Plugin,
		plugintest.WithOutput(tallies),
		plugintest.WithLogger(cc.Logger))

	summary, runErr := runner.Run(cmd.Context(), cc.Cfg.Selection())
	if summary == nil {
		summary = &plugintest.Summary{}
	}

	var mismatch *plugintest.MismatchError
	isMismatch := errors.As(runErr, &mismatch)
	if runErr != nil && !isMismatch {
		var invalid *plugintest.InvalidFixtureError
		if !errors.As(runErr, &invalid) {
			return runErr
		}
	}

	if jsonMode {
		out := output.TestOutput{Rules: []output.TestRuleResult{}, Total: summary.Fixtures()}
		for _, t := range summary.Rules {
			out.Rules = append(out.Rules, output.TestRuleResult{Rule: t.Rule, Passed: t.Passed})
		}
		if runErr != nil {
			out.Failure = testFailure(runErr, mismatch)
		}
		_ = r.JSON(out)
	} else {
		renderTestResult(r, summary, runErr, mismatch)
	}

	if runErr != nil || len(rules.Result.Errors) > 0 {
		return ErrRuleTestsFailed
	}
	return nil
}

func testFailure(err error, mismatch *plugintest.MismatchError) *output.TestFailure {
	f := &output.TestFailure{Message: err.Error()}
	var invalid *plugintest.InvalidFixtureError
	switch {
	case mismatch != nil:
		res := mismatch.Result
		f.Rule = res.Rule
		f.Expectation = res.Expectation.String()
		f.Index = res.Index
		f.Path = mismatch.Path
		if mismatch.Location != nil {
			f.Line = mismatch.Location.StartLine
			f.EndLine = mismatch.Location.EndLine
		}
	case errors.As(err, &invalid):
		f.Rule = invalid.Rule
		f.Expectation = invalid.Expectation.String()
		f.Index = invalid.Index
	}
	return f
}

func renderTestResult(r *output.Renderer, summary *plugintest.Summary, err error, mismatch *plugintest.MismatchError) {
	if err == nil {
		r.Success(fmt.Sprintf("%d fixtures passed across %d rules", summary.Fixtures(), len(summary.Rules)))
		return
	}

	r.Println("")
	r.Println(r.Styles().Error.Render("✗ ") + err.Error())
	if mismatch == nil || mismatch.Location == nil {
		return
	}
	loc := mismatch.Location
	r.Println("")
	r.Println(r.Styles().FilePath.Render(fmt.Sprintf("%s:%d", mismatch.Path, loc.StartLine)))
	r.Println(output.Indent(output.Frame(r.Styles(), mismatch.Source, loc.StartLine, 0, loc.EndLine, 0), 2))
}
