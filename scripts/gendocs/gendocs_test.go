package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readDoc(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestMarkdownWriter(t *testing.T) {
	w := NewMarkdownWriter()
	w.Frontmatter("Title", `say "hi"`)
	w.Header(2, "Section")
	w.Table([]string{"A", "B"}, [][]string{{"x|y", "1\n2"}})
	w.CodeBlock("js", "debugger;\n")

	want := "---\ntitle: \"Title\"\ndescription: \"say \\\"hi\\\"\"\n---\n\n" +
		"## Section\n\n" +
		"| A | B |\n| --- | --- |\n| x\\|y | 1<br>2 |\n\n" +
		"```js\ndebugger;\n```\n\n"
	assert.Equal(t, want, w.String())
}

func TestGenerateRuleDocs(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, generateRuleDocs(filepath.Join("..", "..", "rules"), out))

	index := readDoc(t, filepath.Join(out, "index.md"))
	assert.Contains(t, index, generatedHeader)
	assert.Contains(t, index, "[Correctness](/rules/correctness)")
	assert.NotContains(t, index, "ignore_experimental")

	page := readDoc(t, filepath.Join(out, "correctness.md"))
	assert.Contains(t, page, "## no_debugger {#no_debugger}")
	assert.Contains(t, page, "### Bad")
	assert.Contains(t, page, "### Query")
}

func TestGenerateRuleDocs_LoadErrors(t *testing.T) {
	rules := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rules, "broken.yml"), []byte("name: broken\n"), 0o600))

	err := generateRuleDocs(rules, t.TempDir())
	assert.ErrorContains(t, err, "1 rule file(s) failed to load")
}

func TestGenerateCLIAndSchemaDocs(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, generateCLIDocs(out))
	index := readDoc(t, filepath.Join(out, "index.md"))
	assert.Contains(t, index, "[`lint`](lint.md)")
	assert.Contains(t, index, "| `LEAPLINT_QUERY_MAX_ROWS` | [`query.max_rows`](../concepts/configuration.md#query-max_rows) |")
	assert.Contains(t, index, "`-v, --verbose`")
	assert.NotContains(t, index, "LEAPLINT_CONFIG", "--config has no config key")

	lint := readDoc(t, filepath.Join(out, "lint.md"))
	assert.Contains(t, lint, "leaplint lint [path...]")
	assert.Contains(t, lint, "`--update-baseline`")
	assert.Contains(t, lint, "[`baseline`](../concepts/configuration.md#baseline)")
	assert.Contains(t, lint, "index.md#global-options")

	require.NoError(t, generateSchemaDocs(out))
	graph := readDoc(t, filepath.Join(out, "graph.md"))
	assert.Contains(t, graph, "## File {#file}")
	assert.Contains(t, graph, "`nodes()`")
	configuration := readDoc(t, filepath.Join(out, "configuration.md"))
	assert.Contains(t, configuration, "### `query.max_steps` {#query-max_steps}")
	assert.Contains(t, configuration, "- **Environment**: `LEAPLINT_QUERY_MAX_STEPS`")
	assert.NotContains(t, configuration, "LEAPLINT_LINT_SEVERITY")
}

func TestCleanExample(t *testing.T) {
	assert.Equal(t, "# a\nleaplint lint\n  nested", cleanExample("  # a\n  leaplint lint\n    nested\n"))
	assert.Equal(t, "a\n\nb", cleanExample("\n    a\n\n    b"))
}
