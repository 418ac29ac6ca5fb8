package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leaplint/internal/cli/config"
	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/state"
	"github.com/leapstack-labs/leaplint/pkg/adapter"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/parser"
	"github.com/leapstack-labs/leaplint/pkg/plugin"
	"github.com/leapstack-labs/leaplint/pkg/semantic"
)

// Rule IDs for diagnostics that do not come from a rule query.
const (
	SyntaxErrorRule    = "syntax-error"
	RuleDefinitionRule = "rule-definition"
)

// ErrLintIssues is returned when lint reports errors.
var ErrLintIssues = errors.New("lint issues found")

// skippedDirs are never descended into when discovering lint targets.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// LintOptions holds options for the lint command.
type LintOptions struct {
	Paths          []string // Files or directories to lint
	Ignore         []string // Glob patterns of target files to skip
	UpdateBaseline bool     // Record current findings instead of reporting
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [path...]",
		Short: "Run rules against JavaScript and TypeScript files",
		Long: `Run every loaded rule against each file below the given paths.

Files are parsed by extension (.js .mjs .cjs .jsx .ts .mts .cts .tsx).
Rule query failures are reported as error diagnostics of the rule.

With a baseline, findings recorded by --update-baseline are suppressed so
only new problems are reported.

Output adapts to environment:
  - Terminal: Styled output with colors and code frames
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Lint the current directory
  leaplint lint

  # Lint specific paths with a single rule
  leaplint lint src/ test/setup.ts --only-rule no_debugger

  # Record current findings, then report only new ones
  leaplint lint --update-baseline
  leaplint lint --baseline .leaplint/baseline.db

  # Output as JSON
  leaplint lint -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Paths = args
			return runLint(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Ignore, "ignore", nil, "Glob patterns of files to skip")
	cmd.Flags().Int("concurrency", 0, "Files linted in parallel (default: number of CPUs)")
	cmd.Flags().String("baseline", "", "Baseline database suppressing recorded findings")
	cmd.Flags().BoolVar(&opts.UpdateBaseline, "update-baseline", false, "Record current findings in the baseline")

	return cmd
}

// lintFileResult holds lint results for a single file.
type lintFileResult struct {
	Path        string // as given on the command line or discovered
	RelPath     string // slash separated, relative to the project root
	Source      []byte
	Diagnostics []lint.Diagnostic
	Err         error
}

func runLint(cmd *cobra.Command, opts *LintOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, r := cc.Cfg, cc.Renderer
	ctx := cmd.Context()

	for _, p := range opts.Ignore {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid ignore pattern %q", p)
		}
	}

	rules, err := cc.LoadPlugin(cmd)
	if err != nil {
		return err
	}
	lintCfg, err := cfg.LintRules()
	if err != nil {
		return err
	}

	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	targets, err := discoverTargets(paths, opts.Ignore)
	if err != nil {
		return err
	}

	results, err := lintFiles(ctx, cc, rules.Plugin, lintCfg, targets)
	if err != nil {
		return err
	}
	results = append(results, loadErrorResults(rules.Result.Errors, cfg.ProjectRoot)...)
	sort.SliceStable(results, func(i, j int) bool { return results[i].RelPath < results[j].RelPath })

	if opts.UpdateBaseline {
		return updateBaseline(ctx, cc, results)
	}

	suppressed := 0
	if cfg.Baseline != "" {
		if suppressed, err = applyBaseline(ctx, cc, results); err != nil {
			return err
		}
	}

	summary := summarize(results, suppressed)
	renderLintResults(r, results, summary)

	if summary.Errors > 0 || summary.Failed > 0 {
		return ErrLintIssues
	}
	return nil
}

// discoverTargets expands directories into the supported source files below
// them. Explicit file arguments are always linted.
func discoverTargets(paths, ignore []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot lint %s: %w", root, err)
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != root && (skippedDirs[name] || strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if !parser.IsSupported(path) || ignored(root, path, ignore) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

func ignored(root, path string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func lintFiles(ctx context.Context, cc *CommandContext, p *plugin.LinterPlugin, lintCfg *lint.Config, targets []string) ([]*lintFileResult, error) {
	limit := cc.Cfg.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]*lintFileResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range targets {
		g.Go(func() error {
			res, err := lintFile(gctx, p, cc.Cfg.Selection(), lintCfg, path, relPath(cc.Cfg.ProjectRoot, path))
			if err != nil {
				return err
			}
			if res.Err != nil {
				cc.Logger.Debug("file not linted", slog.String("path", path), slog.Any("error", res.Err))
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// lintFile lints one file. Problems with the file itself are recorded in the
// result; the returned error aborts the whole run.
func lintFile(ctx context.Context, p *plugin.LinterPlugin, sel plugin.Selection, lintCfg *lint.Config, path, rel string) (*lintFileResult, error) {
	res := &lintFileResult{Path: path, RelPath: rel}

	src, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res, nil
	}
	res.Source = src

	parsed, err := parser.Parse(ctx, path, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		res.Err = err
		return res, nil
	}
	defer parsed.Program.Close()

	lctx := lint.NewContext(src, lintCfg)
	if parsed.HasErrors() {
		lctx.WithRuleName(SyntaxErrorRule)
		for _, se := range parsed.Errors {
			lctx.Diagnostic(lint.Diagnostic{
				Severity: lint.SeverityError,
				Message:  se.Message,
				Start:    se.Span.Start.Offset,
				End:      se.Span.End.Offset,
			})
		}
		res.Diagnostics = lctx.Sorted()
		return res, nil
	}

	sem := semantic.Build(parsed.Program)
	a := adapter.New(sem.Semantic, strings.Split(rel, "/"))
	if err := p.Run(ctx, lctx, a, sel); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		res.Err = err
	}
	res.Diagnostics = lctx.Sorted()
	return res, nil
}

func relPath(root, path string) string {
	abs, err := filepath.Abs(path)
	if err == nil {
		if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

// loadErrorResults attributes rule loading problems to the rule files.
func loadErrorResults(errs []error, root string) []*lintFileResult {
	var out []*lintFileResult
	for _, err := range errs {
		path := ""
		var loadErr *plugin.LoadError
		var dupErr *plugin.DuplicateRuleError
		switch {
		case errors.As(err, &loadErr):
			path = loadErr.Path
		case errors.As(err, &dupErr):
			path = dupErr.Path
		}
		out = append(out, &lintFileResult{
			Path:    path,
			RelPath: relPath(root, path),
			Diagnostics: []lint.Diagnostic{{
				RuleID:   RuleDefinitionRule,
				Severity: lint.SeverityError,
				Message:  err.Error(),
			}},
		})
	}
	return out
}

func fingerprint(res *lintFileResult, d lint.Diagnostic) string {
	var text []byte
	if d.Start >= 0 && d.Start <= d.End && d.End <= len(res.Source) {
		text = res.Source[d.Start:d.End]
	}
	return state.Fingerprint(d.RuleID, res.RelPath, text)
}

func openBaseline(cc *CommandContext, path string) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open baseline %s: %w", path, err)
	}
	return store, nil
}

func updateBaseline(ctx context.Context, cc *CommandContext, results []*lintFileResult) error {
	path := cc.Cfg.Baseline
	if path == "" {
		path = filepath.Join(cc.Cfg.ProjectRoot, config.DefaultBaselineFile)
	}
	store, err := openBaseline(cc, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var findings []state.Finding
	for _, res := range results {
		for _, d := range res.Diagnostics {
			findings = append(findings, state.Finding{
				Fingerprint: fingerprint(res, d),
				RuleID:      d.RuleID,
				Path:        res.RelPath,
				Line:        d.Pos.Line,
				Message:     d.Message,
			})
		}
	}
	snap, err := store.Record(ctx, cc.Cfg.RulesDir, findings)
	if err != nil {
		return err
	}
	cc.Renderer.Success(fmt.Sprintf("Recorded %d finding(s) in baseline %s", snap.Findings, path))
	return nil
}

// applyBaseline removes baselined diagnostics from results and returns how
// many were removed.
func applyBaseline(ctx context.Context, cc *CommandContext, results []*lintFileResult) (int, error) {
	store, err := openBaseline(cc, cc.Cfg.Baseline)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()

	baseline, err := store.Baseline(ctx)
	if err != nil {
		return 0, err
	}
	if baseline.Snapshot == nil {
		cc.Renderer.Warning("baseline " + cc.Cfg.Baseline + " has no recorded findings")
	}

	suppressed := 0
	for _, res := range results {
		kept := res.Diagnostics[:0]
		for _, d := range res.Diagnostics {
			if baseline.Suppress(fingerprint(res, d)) {
				suppressed++
				continue
			}
			kept = append(kept, d)
		}
		res.Diagnostics = kept
	}
	return suppressed, nil
}

func summarize(results []*lintFileResult, suppressed int) output.LintSummary {
	s := output.LintSummary{Suppressed: suppressed}
	for _, res := range results {
		s.Files++
		if res.Err != nil {
			s.Failed++
		}
		for _, d := range res.Diagnostics {
			switch d.Severity {
			case lint.SeverityError:
				s.Errors++
			case lint.SeverityWarning:
				s.Warnings++
			case lint.SeverityInfo:
				s.Infos++
			case lint.SeverityHint:
				s.Hints++
			}
		}
	}
	return s
}

func renderLintResults(r *output.Renderer, results []*lintFileResult, summary output.LintSummary) {
	if r.EffectiveMode() == output.ModeJSON {
		out := output.LintOutput{Files: []output.LintFileResult{}, Summary: summary}
		for _, res := range results {
			if len(res.Diagnostics) == 0 && res.Err == nil {
				continue
			}
			out.Files = append(out.Files, toLintFileOutput(res))
		}
		_ = r.JSON(out)
		return
	}

	markdown := r.EffectiveMode() == output.ModeMarkdown
	for _, res := range results {
		if len(res.Diagnostics) == 0 && res.Err == nil {
			continue
		}
		if markdown {
			r.Println("### " + res.RelPath)
		} else {
			r.Println(r.Styles().FilePath.Render(res.RelPath))
		}
		if res.Err != nil {
			r.Printf("  %s  %s\n", r.Styles().Error.Render("failed "), res.Err)
		}
		for _, d := range res.Diagnostics {
			renderDiagnostic(r, res, d, markdown)
		}
		r.Println("")
	}

	if summary.Total() == 0 && summary.Failed == 0 {
		r.Success(fmt.Sprintf("No lint issues found in %d files", summary.Files))
		if summary.Suppressed > 0 {
			r.Muted(fmt.Sprintf("%d baselined finding(s) suppressed", summary.Suppressed))
		}
		return
	}
	r.Printf("Summary: %s in %d files\n", summaryLine(summary), summary.Files)
}

func renderDiagnostic(r *output.Renderer, res *lintFileResult, d lint.Diagnostic, markdown bool) {
	loc := "-"
	if d.Pos.IsValid() {
		loc = d.Pos.String()
	}
	if markdown {
		r.Printf("- `%s` **%s** %s: %s\n", loc, d.Severity, d.RuleID, d.Message)
		if d.Label != "" {
			r.Printf("  - %s\n", d.Label)
		}
		return
	}

	r.Printf("  %s  %s  %s  %s\n",
		r.Styles().Muted.Render(fmt.Sprintf("%-7s", loc)),
		severityStyle(r, d.Severity),
		r.Styles().Bold.Render(d.RuleID),
		d.Message,
	)
	if d.Label != "" {
		r.Printf("           %s\n", r.Styles().Muted.Render(d.Label))
	}
	if d.Pos.IsValid() && len(res.Source) > 0 {
		endCol := 0
		if d.EndPos.Line == d.Pos.Line {
			endCol = d.EndPos.Column
		}
		frame := output.Frame(r.Styles(), res.Source, d.Pos.Line, d.Pos.Column, d.EndPos.Line, endCol)
		r.Println(output.Indent(frame, 4))
	}
}

func summaryLine(s output.LintSummary) string {
	parts := []string{fmt.Sprintf("%d issues", s.Total())}
	if s.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.Errors))
	}
	if s.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", s.Warnings))
	}
	if s.Infos > 0 {
		parts = append(parts, fmt.Sprintf("%d info", s.Infos))
	}
	if s.Hints > 0 {
		parts = append(parts, fmt.Sprintf("%d hints", s.Hints))
	}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d files failed", s.Failed))
	}
	if s.Suppressed > 0 {
		parts = append(parts, fmt.Sprintf("%d suppressed", s.Suppressed))
	}
	return strings.Join(parts, ", ")
}

func toLintFileOutput(res *lintFileResult) output.LintFileResult {
	out := output.LintFileResult{Path: res.RelPath, Diagnostics: []output.LintDiagnostic{}}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, output.LintDiagnostic{
			RuleID:    d.RuleID,
			Severity:  d.Severity.String(),
			Message:   d.Message,
			Label:     d.Label,
			Start:     d.Start,
			End:       d.End,
			Line:      d.Pos.Line,
			Column:    d.Pos.Column,
			EndLine:   d.EndPos.Line,
			EndColumn: d.EndPos.Column,
		})
	}
	return out
}

func severityStyle(r *output.Renderer, sev lint.Severity) string {
	switch sev {
	case lint.SeverityError:
		return r.Styles().Error.Render("error  ")
	case lint.SeverityWarning:
		return r.Styles().Warning.Render("warning")
	case lint.SeverityInfo:
		return r.Styles().Info.Render("info   ")
	case lint.SeverityHint:
		return r.Styles().Muted.Render("hint   ")
	default:
		return r.Styles().Muted.Render("unknown")
	}
}
