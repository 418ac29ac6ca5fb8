package commands

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
)

func TestTest_AllFixturesPass(t *testing.T) {
	newProject(t, map[string]string{
		"rules/correctness/no_debugger.yml": noDebuggerRule,
		"rules/style/no_alert.yml":          noAlertRule,
	})

	stdout, _, err := execute(t, NewTestCommand(), "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "no_alert passed 2 tests successfully.")
	assert.Contains(t, stdout, "no_debugger passed 2 tests successfully.")
	assert.Contains(t, stdout, "4 fixtures passed across 2 rules")

	stdout, _, err = execute(t, NewTestCommand(), "-o", "json", "--only-rule", "no_alert")
	require.NoError(t, err)
	var out output.TestOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, []output.TestRuleResult{{Rule: "no_alert", Passed: 2}}, out.Rules)
	assert.Nil(t, out.Failure)
}

func TestTest_MismatchShowsFixture(t *testing.T) {
	failing := strings.Replace(noDebuggerRule, `code: "debugger;"`, `code: "let ok = 1;"`, 1)
	newProject(t, map[string]string{"rules/no_debugger.yml": failing})

	stdout, _, err := execute(t, NewTestCommand(), "-o", "json")
	require.ErrorIs(t, err, ErrRuleTestsFailed)

	var out output.TestOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)
	require.NotNil(t, out.Failure)
	assert.Equal(t, "no_debugger", out.Failure.Rule)
	assert.Equal(t, "fail", out.Failure.Expectation)
	assert.Equal(t, 0, out.Failure.Index)
	assert.Equal(t, 14, out.Failure.Line)
	assert.Equal(t, 15, out.Failure.EndLine)
	assert.Contains(t, out.Failure.Message, "was expected to fail")

	stdout, _, err = execute(t, NewTestCommand(), "-o", "text")
	require.ErrorIs(t, err, ErrRuleTestsFailed)
	assert.Contains(t, stdout, "no_debugger.yml:14")
	assert.Contains(t, stdout, `15 │       code: "let ok = 1;"`)
}

func TestTest_LoadErrorsFail(t *testing.T) {
	newProject(t, map[string]string{
		"rules/no_debugger.yml": noDebuggerRule,
		"rules/broken.yml":      "name: [\n",
	})

	_, stderr, err := execute(t, NewTestCommand(), "-o", "text")
	require.ErrorIs(t, err, ErrRuleTestsFailed)
	assert.Contains(t, stderr, "invalid rule definition")
}
