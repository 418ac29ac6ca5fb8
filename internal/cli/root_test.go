package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/cli/commands"
	"github.com/leapstack-labs/leaplint/internal/testutil"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"lint", "test", "rules", "schema", "query", "version", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("rules-dir"))
	assert.NotNil(t, cmd.PersistentFlags().ShorthandLookup("o"))
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "leaplint v"+Version)
}

func TestCompletion(t *testing.T) {
	stdout, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "leaplint")

	_, _, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestRootCommand_EndToEnd(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{
		"leaplint.yaml": "output: json\n",
		"checks/no_debugger.yml": `name: no_debugger
query: |
  for n in file.nodes(kind = "debugger_statement"):
      emit(span_start = n.span_start, span_end = n.span_end)
args: {}
summary: Unexpected debugger statement
reason: Remove it.
severity: error
tests:
  fail:
    - relative_path: ["a.js"]
      code: "debugger;"
`,
		"src/a.js": "debugger;\n",
	})
	t.Chdir(root)

	stdout, _, err := run(t, "test", "--rules-dir", "checks")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"total": 1`)

	stdout, stderr, err := run(t, "lint", "src", "--rules-dir", "checks", "-v")
	require.ErrorIs(t, err, commands.ErrLintIssues)
	assert.Contains(t, stdout, `"rule_id": "no_debugger"`)
	assert.Contains(t, stderr, "level=DEBUG")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	t.Chdir(testutil.WriteFiles(t, map[string]string{"leaplint.yaml": "concurrency: -1\n"}))

	_, _, err := run(t, "schema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
