package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leaplint/internal/cli"
	"github.com/leapstack-labs/leaplint/internal/cli/config"
)

// configDocLink points from CLI pages to the configuration reference.
const configDocLink = "../concepts/configuration.md"

// generateCLIDocs writes index.md plus one page per leaplint command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	keys := configKeys()

	if err := writeDoc(outDir, "index.md", cliIndex(root, keys)); err != nil {
		return err
	}
	for _, cmd := range visibleCommands(root) {
		if err := writeDoc(outDir, cmd.Name()+".md", commandPage(cmd, keys)); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
	}
	return nil
}

func writeDoc(outDir, name string, w *MarkdownWriter) error {
	if err := os.WriteFile(filepath.Join(outDir, name), w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated %s", name)
	return nil
}

func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() && sub.Name() != "help" {
			out = append(out, sub)
		}
	}
	return out
}

// configKeys returns the documented leaplint.yaml keys.
func configKeys() map[string]bool {
	keys := make(map[string]bool)
	for _, f := range getConfigSchema() {
		keys[f.Name] = true
	}
	return keys
}

// flagConfigKey returns the config key a flag overrides, if any.
func flagConfigKey(f *pflag.Flag, keys map[string]bool) (string, bool) {
	key := config.KeyForName(f.Name)
	return key, keys[key]
}

func cliIndex(root *cobra.Command, keys map[string]bool) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for leaplint")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/leaplint/cmd/leaplint@latest\nleaplint <command> [options]")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range visibleCommands(root) {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](%s.md)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags(), keys)

	// Environment variables exist for exactly the keys a global flag can set.
	w.Header(2, "Environment Variables")
	w.Paragraph("Flags take precedence over " + InlineCode(config.EnvPrefix+"*") +
		" variables, which take precedence over `leaplint.yaml`.")
	rows = nil
	root.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagConfigKey(f, keys); ok && !f.Hidden {
			rows = append(rows, []string{InlineCode(config.EnvVar(key)), configRef(key), cleanDescription(f.Usage)})
		}
	})
	w.Table([]string{"Variable", "Config key", "Description"}, rows)

	w.Header(2, "Exit Status")
	w.Paragraph("leaplint exits with status 1 when `lint` reports errors, when a rule fixture " +
		"fails under `test`, or when any command fails; the reason is printed to stderr.")
	return w
}

func commandPage(cmd *cobra.Command, keys map[string]bool) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, "leaplint "+cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.CodeBlock("bash", usageLine(cmd))

	if subs := visibleCommands(cmd); len(subs) > 0 {
		w.Header(2, "Subcommands")
		var rows [][]string
		for _, sub := range subs {
			rows = append(rows, []string{InlineCode(sub.Name()), cleanDescription(sub.Short)})
		}
		w.Table([]string{"Subcommand", "Description"}, rows)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags(), keys)
	}
	if cmd.HasAvailableInheritedFlags() {
		w.Paragraph("Global options are listed in the [CLI reference](index.md#global-options).")
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
	return w
}

func usageLine(cmd *cobra.Command) string {
	if cmd.HasAvailableSubCommands() {
		return cmd.CommandPath() + " <subcommand> [options]"
	}
	return cmd.UseLine()
}

// writeFlagsTable lists flags, linking those that override a config key.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet, keys map[string]bool) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := "--" + f.Name
		if f.Shorthand != "" {
			name = "-" + f.Shorthand + ", " + name
		}
		key := ""
		if k, ok := flagConfigKey(f, keys); ok {
			key = configRef(k)
		}
		rows = append(rows, []string{InlineCode(name), flagDefault(f), key, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Default", "Config key", "Description"}, rows)
}

func configRef(key string) string {
	return fmt.Sprintf("[%s](%s#%s)", InlineCode(key), configDocLink, configAnchor(key))
}

// configAnchor is the heading id configuration.md gives key.
func configAnchor(key string) string {
	return strings.ReplaceAll(key, ".", "-")
}

func flagDefault(f *pflag.Flag) string {
	switch f.DefValue {
	case "", "[]", "0", "0s":
		return ""
	case "true", "false":
		return f.DefValue
	}
	return InlineCode(f.DefValue)
}

// cleanExample strips the indentation shared by all non-blank lines.
func cleanExample(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	prefix, found := "", false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found || len(indent) < len(prefix) {
			prefix, found = indent, true
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
