package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/plugin"
)

// categoryDescriptions provides human-readable descriptions for the rule
// categories shipped in rules/.
var categoryDescriptions = map[string]string{
	"correctness": "Code that is almost certainly a mistake.",
	"suspicious":  "Code that is likely a mistake or works by accident.",
	"style":       "Conventions that keep a codebase consistent.",
}

// generateRuleDocs loads the rule definitions below rulesDir and writes an
// index page plus one page per category.
func generateRuleDocs(rulesDir, outDir string) error {
	log.Printf("Generating rule docs from %s to %s", rulesDir, outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	res, err := plugin.NewLoader(rulesDir).Load()
	if err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("%d rule file(s) failed to load: %w", len(res.Errors), res.Errors[0])
	}

	grouped := groupRulesByCategory(res.Rules)
	categories := make([]string, 0, len(grouped))
	for c := range grouped {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	if err := generateRulesIndex(outDir, categories, grouped); err != nil {
		return err
	}
	log.Printf("  Generated index.md")

	for _, c := range categories {
		if err := generateCategoryPage(outDir, c, grouped[c]); err != nil {
			return err
		}
		log.Printf("  Generated %s.md", c)
	}
	return nil
}

// groupRulesByCategory organizes rules by category, sorted by name. Rules at
// the top of the rules directory are grouped under "general".
func groupRulesByCategory(rules []*plugin.Definition) map[string][]*plugin.Definition {
	grouped := make(map[string][]*plugin.Definition)
	for _, r := range rules {
		c := r.Category
		if c == "" {
			c = "general"
		}
		grouped[c] = append(grouped[c], r)
	}
	for c := range grouped {
		sort.Slice(grouped[c], func(i, j int) bool {
			return grouped[c][i].Name < grouped[c][j].Name
		})
	}
	return grouped
}

// generateRulesIndex generates the rules overview page.
func generateRulesIndex(outDir string, categories []string, grouped map[string][]*plugin.Definition) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Rules", "Lint rules shipped with leaplint")
	w.GeneratedMarker()

	total := 0
	for _, rules := range grouped {
		total += len(rules)
	}

	w.Header(1, "Rules")
	w.Paragraph(fmt.Sprintf("leaplint ships **%d rules** in %d categories. "+
		"Each rule is a YAML file in the rules directory; the directory containing it is its category.", total, len(categories)))

	w.Header(2, "Severity Levels")
	w.Table(
		[]string{"Severity", "Description"},
		[][]string{
			{InlineCode("error"), "Critical issue that should be fixed"},
			{InlineCode("warning"), "Potential issue that should be reviewed (the default)"},
			{InlineCode("info"), "Informational feedback"},
			{InlineCode("hint"), "Suggestion for improvement"},
		},
	)

	w.Header(2, "Configuration")
	w.Paragraph("Rules can be disabled or have their severity changed in `leaplint.yaml`:")
	w.CodeBlock("yaml", `lint:
  disabled: [no_alert]
  severity:
    no_debugger: warning`)

	w.Header(2, "Categories")
	var rows [][]string
	for _, c := range categories {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](/rules/%s)", capitalizeFirst(c), c),
			fmt.Sprint(len(grouped[c])),
			categoryDescriptions[c],
		})
	}
	w.Table([]string{"Category", "Rules", "Description"}, rows)

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

// generateCategoryPage documents every rule of one category.
func generateCategoryPage(outDir, category string, rules []*plugin.Definition) error {
	w := NewMarkdownWriter()

	title := capitalizeFirst(category) + " Rules"
	w.Frontmatter(title, fmt.Sprintf("Lint rules in the %s category", category))
	w.GeneratedMarker()

	w.Header(1, title)
	if desc, ok := categoryDescriptions[category]; ok {
		w.Paragraph(desc)
	}

	for _, rule := range rules {
		writeRuleDoc(w, rule)
	}

	return os.WriteFile(filepath.Join(outDir, category+".md"), w.Bytes(), 0600)
}

// capitalizeFirst capitalizes the first letter of a string.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// writeRuleDoc writes detailed documentation for a single rule.
func writeRuleDoc(w *MarkdownWriter, rule *plugin.Definition) {
	w.Line(fmt.Sprintf("## %s {#%s}", rule.Name, rule.Name))
	w.Newline()

	engine := rule.Engine
	if engine == "" {
		engine = "starlark"
	}
	w.Line(fmt.Sprintf("**Severity:** %s **Engine:** %s",
		InlineCode(rule.DiagnosticSeverity().String()), InlineCode(engine)))
	w.Newline()

	w.Paragraph(cleanDescription(rule.Summary))

	if reason := strings.TrimSpace(rule.Reason); reason != "" {
		w.Header(3, "Why This Matters")
		w.Paragraph(reason)
	}

	if len(rule.Tests.Fail) > 0 {
		w.Header(3, "Bad")
		w.CodeBlock(fixtureLanguage(rule.Tests.Fail[0]), rule.Tests.Fail[0].Code)
	}
	if len(rule.Tests.Pass) > 0 {
		w.Header(3, "Good")
		w.CodeBlock(fixtureLanguage(rule.Tests.Pass[0]), rule.Tests.Pass[0].Code)
	}

	if len(rule.Args) > 0 {
		w.Header(3, "Arguments")
		keys := make([]string, 0, len(rule.Args))
		for k := range rule.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var rows [][]string
		for _, k := range keys {
			rows = append(rows, []string{InlineCode(k), InlineCode(fmt.Sprint(rule.Args[k]))})
		}
		w.Table([]string{"Argument", "Value"}, rows)
	}

	w.Header(3, "Query")
	lang := "python"
	if engine != "starlark" {
		lang = "scheme"
	}
	w.CodeBlock(lang, rule.Query)

	// Horizontal rule between rules for readability
	w.Line("---")
	w.Newline()
}

// fixtureLanguage picks a code fence language from the fixture's file name.
func fixtureLanguage(f plugin.Fixture) string {
	switch filepath.Ext(f.FileName()) {
	case ".ts", ".mts", ".cts":
		return "ts"
	case ".tsx":
		return "tsx"
	case ".jsx":
		return "jsx"
	default:
		return "js"
	}
}
