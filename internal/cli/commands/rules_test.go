package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/pkg/plugin"
)

func TestRules_List(t *testing.T) {
	newProject(t, map[string]string{
		"rules/correctness/no_debugger.yml": noDebuggerRule,
		"rules/style/no_alert.yml":          noAlertRule,
		"rules/style/broken.yml":            "name: broken\n",
	})

	stdout, _, err := execute(t, NewRulesCommand(), "-o", "json")
	require.NoError(t, err)

	var out output.RulesOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)
	require.Len(t, out.Rules, 2)
	assert.Equal(t, output.RuleInfo{
		Name:     "no_alert",
		Category: "style",
		Engine:   "treesitter",
		Severity: "warning",
		Summary:  "Unexpected alert",
		Reason:   "Use a non-blocking notification instead.",
		Path:     "rules/style/no_alert.yml",
		Pass:     1,
		Fail:     1,
	}, out.Rules[0])
	assert.Equal(t, "starlark", out.Rules[1].Engine)
	assert.Equal(t, "error", out.Rules[1].Severity)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "broken.yml")

	stdout, _, err = execute(t, NewRulesCommand(), "--category", "correctness", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Rules (1)")
	assert.Contains(t, stdout, "no_debugger")
	assert.NotContains(t, stdout, "no_alert")
}

func TestRules_Show(t *testing.T) {
	newProject(t, map[string]string{"rules/style/no_alert.yml": noAlertRule})

	stdout, _, err := execute(t, NewRulesCommand(), "no_alert", "-o", "json")
	require.NoError(t, err)
	var got struct {
		Name  string         `json:"name"`
		Query string         `json:"query"`
		Args  map[string]any `json:"args"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got), stdout)
	assert.Equal(t, "no_alert", got.Name)
	assert.Contains(t, got.Query, "call_expression")
	assert.Equal(t, map[string]any{"name": "alert"}, got.Args)

	stdout, _, err = execute(t, NewRulesCommand(), "no_alert", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# no_alert")
	assert.Contains(t, stdout, "- **Engine**: treesitter")
	assert.Contains(t, stdout, "## Arguments")

	_, _, err = execute(t, NewRulesCommand(), "missing")
	assert.ErrorIs(t, err, plugin.ErrUnknownRule)
}
