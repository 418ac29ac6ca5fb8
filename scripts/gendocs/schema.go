package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leaplint/internal/cli/config"
	"github.com/leapstack-labs/leaplint/pkg/adapter"
	"github.com/leapstack-labs/leaplint/pkg/plugin"
	"github.com/leapstack-labs/leaplint/pkg/query"
)

// generateSchemaDocs generates the query schema and configuration reference.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	// Create output directory
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateGraphDoc(outDir, adapter.Schema); err != nil {
		return fmt.Errorf("failed to generate graph.md: %w", err)
	}
	log.Printf("  Generated graph.md")

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	return nil
}

// generateGraphDoc documents every vertex type rule queries can navigate.
func generateGraphDoc(outDir string, schema *query.Schema) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Query Graph", "Vertex types available to rule queries")
	w.GeneratedMarker()

	w.Header(1, "Query Graph")
	w.Paragraph("Rule queries start at the " + InlineCode(adapter.TypeFile) + " vertex of the file being linted. " +
		"Properties are read as attributes; edges are called with optional keyword filters.")
	w.CodeBlock("python", `for n in file.nodes(kind = "debugger_statement"):
    emit(span_start = n.span_start, span_end = n.span_end)`)

	for _, vt := range schema.Types() {
		w.Line(fmt.Sprintf("## %s {#%s}", vt.Name, strings.ToLower(vt.Name)))
		w.Newline()
		if vt.Doc != "" {
			w.Paragraph(vt.Doc)
		}

		if len(vt.Properties) > 0 {
			w.Header(3, "Properties")
			var rows [][]string
			for _, p := range vt.Properties {
				typ := p.Kind.String()
				if p.Nullable {
					typ += " (nullable)"
				}
				rows = append(rows, []string{InlineCode(p.Name), typ, cleanDescription(p.Doc)})
			}
			w.Table([]string{"Property", "Type", "Description"}, rows)
		}

		if len(vt.Edges) > 0 {
			w.Header(3, "Edges")
			var rows [][]string
			for _, e := range vt.Edges {
				target := fmt.Sprintf("[%s](#%s)", e.Target, strings.ToLower(e.Target))
				if e.Many {
					target = "list of " + target
				}
				var params []string
				for _, p := range e.Params {
					params = append(params, InlineCode(p.Name)+": "+p.Kind.String())
				}
				rows = append(rows, []string{InlineCode(e.Name + "()"), target, strings.Join(params, ", "), cleanDescription(e.Doc)})
			}
			w.Table([]string{"Edge", "Target", "Filters", "Description"}, rows)
		}
	}

	return os.WriteFile(filepath.Join(outDir, "graph.md"), w.Bytes(), 0600)
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
}

// getConfigSchema returns the leaplint.yaml keys.
// This is based on internal/cli/config/types.go Config.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "rules_dir", Type: "string", Default: config.DefaultRulesDir, Description: "Directory containing rule definitions"},
		{Name: "include", Type: "[]string", Default: strings.Join(plugin.DefaultInclude, ", "), Description: "Glob patterns selecting rule files"},
		{Name: "exclude", Type: "[]string", Default: strings.Join(plugin.DefaultExclude, ", "), Description: "Glob patterns excluding rule files"},
		{Name: "only_rule", Type: "string", Description: "Run only the named rule"},
		{Name: "print_rows", Type: "bool", Default: "false", Description: "Echo raw query result rows to stderr"},
		{Name: "query.timeout", Type: "duration", Default: config.DefaultTimeout.String(), Description: "Wall clock limit for one query on one file"},
		{Name: "query.max_steps", Type: "int", Default: fmt.Sprint(config.DefaultMaxSteps), Description: "Execution step budget for one query on one file"},
		{Name: "query.max_rows", Type: "int", Default: "0", Description: "Maximum rows one query may produce on one file (0 = unlimited)"},
		{Name: "lint.disabled", Type: "[]string", Description: "Rules whose diagnostics are dropped"},
		{Name: "lint.severity", Type: "map[string]string", Description: "Per-rule severity overrides"},
		{Name: "concurrency", Type: "int", Default: "number of CPUs", Description: "Files linted in parallel"},
		{Name: "baseline", Type: "string", Description: "Baseline database suppressing recorded findings"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Description: "Output format: auto, text, markdown or json"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Debug logging on stderr"},
	}
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	// Frontmatter
	w.Frontmatter("Configuration", "leaplint configuration reference")
	w.GeneratedMarker()

	// Title and intro
	w.Header(1, "Configuration")
	w.Paragraph("leaplint reads `leaplint.yaml` (or `leaplint.yml`) from the project root, " +
		"the nearest directory at or above the working directory that contains one. " +
		"Relative paths in the file are resolved against the project root.")

	w.CodeBlock("yaml", `rules_dir: rules
exclude: ["**/ignore_*/**"]
query:
  timeout: 5s
lint:
  disabled: [no_alert]
  severity:
    no_debugger: warning`)

	w.Header(2, "Reference")
	for _, f := range getConfigSchema() {
		w.Line(fmt.Sprintf("### %s {#%s}", InlineCode(f.Name), configAnchor(f.Name)))
		w.Newline()
		w.Paragraph(f.Description + ".")
		items := []string{Bold("Type") + ": " + f.Type}
		if f.Default != "" {
			items = append(items, Bold("Default")+": "+InlineCode(f.Default))
		}
		if !strings.HasPrefix(f.Type, "map") {
			items = append(items, Bold("Environment")+": "+InlineCode(config.EnvVar(f.Name)))
		}
		w.BulletList(items)
	}

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}
