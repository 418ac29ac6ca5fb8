package commands

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/starlark"
	"github.com/leapstack-labs/leaplint/pkg/plugin"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Category string // Filter by category directory
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-name]",
		Short: "List the rules loaded from the rules directory",
		Long: `List every rule definition found in the rules directory.

Rules are grouped by category, the directory that contains the rule file.
Files that fail to load are listed with their error.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all rules
  leaplint rules

  # Show a rule's query and fixtures
  leaplint rules no_debugger

  # List rules in the style category as JSON
  leaplint rules --category style -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0])
			}
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "Filter by category")
	return cmd
}

func loadDefinitions(cmd *cobra.Command) (*CommandContext, *plugin.LoadResult, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cc.Cfg.ValidateDirectories(); err != nil {
		return nil, nil, err
	}
	opts := append(cc.Cfg.LoaderOptions(), plugin.WithLoaderLogger(cc.Logger))
	res, err := plugin.NewLoader(cc.Cfg.RulesDir, opts...).Load()
	if err != nil {
		return nil, nil, err
	}
	return cc, res, nil
}

func ruleInfo(root string, d *plugin.Definition) output.RuleInfo {
	engine := d.Engine
	if engine == "" {
		engine = starlark.EngineName
	}
	return output.RuleInfo{
		Name:     d.Name,
		Category: d.Category,
		Engine:   engine,
		Severity: d.DiagnosticSeverity().String(),
		Summary:  d.Summary,
		Reason:   d.Reason,
		Path:     relPath(root, d.Path),
		Pass:     len(d.Tests.Pass),
		Fail:     len(d.Tests.Fail),
	}
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	cc, res, err := loadDefinitions(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	var infos []output.RuleInfo
	for _, d := range res.Rules {
		if opts.Category != "" && d.Category != opts.Category {
			continue
		}
		infos = append(infos, ruleInfo(cc.Cfg.ProjectRoot, d))
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := output.RulesOutput{Rules: infos}
		if out.Rules == nil {
			out.Rules = []output.RuleInfo{}
		}
		for _, e := range res.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Rules (%d)", len(infos)))
	if len(infos) == 0 {
		r.Muted("No rules found in " + cc.Cfg.RulesDir)
	} else {
		rows := make([][]any, len(infos))
		for i, info := range infos {
			rows[i] = []any{info.Name, info.Category, info.Severity, info.Engine, fmt.Sprintf("%d/%d", info.Pass, info.Fail), info.Summary}
		}
		renderTable(r, []string{"Rule", "Category", "Severity", "Engine", "Tests", "Summary"}, rows)
	}

	if len(res.Errors) > 0 {
		r.Println("")
		r.Header(2, "Load errors")
		for _, e := range res.Errors {
			r.Println(r.Styles().Error.Render("✗ ") + e.Error())
		}
	}
	return nil
}

func showRule(cmd *cobra.Command, name string) error {
	cc, res, err := loadDefinitions(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	var rule *plugin.Definition
	for _, d := range res.Rules {
		if d.Name == name {
			rule = d
			break
		}
	}
	if rule == nil {
		return fmt.Errorf("%w %q", plugin.ErrUnknownRule, name)
	}

	info := ruleInfo(cc.Cfg.ProjectRoot, rule)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			output.RuleInfo
			Query string         `json:"query"`
			Args  map[string]any `json:"args"`
		}{info, rule.Query, rule.Args})
	}

	markdown := r.EffectiveMode() == output.ModeMarkdown
	s := r.Styles()
	r.Header(1, info.Name)
	field := func(label, value string) {
		if value == "" {
			return
		}
		if markdown {
			r.Printf("- **%s**: %s\n", label, value)
			return
		}
		r.Printf("%s %s\n", s.Bold.Render(fmt.Sprintf("%-9s", label+":")), value)
	}
	field("Summary", info.Summary)
	field("Reason", info.Reason)
	field("Category", info.Category)
	field("Severity", info.Severity)
	field("Engine", info.Engine)
	field("File", filepath.FromSlash(info.Path))
	field("Tests", fmt.Sprintf("%d pass, %d fail", info.Pass, info.Fail))
	r.Println("")

	r.Header(2, "Query")
	if markdown {
		r.Println("```")
		r.Println(rule.Query)
		r.Println("```")
	} else {
		r.Println(s.Muted.Render(rule.Query))
	}

	if len(rule.Args) > 0 {
		r.Println("")
		r.Header(2, "Arguments")
		rows := make([][]any, 0, len(rule.Args))
		for _, k := range sortedKeys(rule.Args) {
			rows = append(rows, []any{k, formatValue(rule.Args[k])})
		}
		renderTable(r, []string{"Name", "Value"}, rows)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
