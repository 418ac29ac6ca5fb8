package plugintest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/plugin"
)

const debuggerQuery = `query: |
  for n in file.nodes(kind = "debugger_statement"):
      emit(span_start = n.span_start, span_end = n.span_end)
args: {}
summary: debugger statement
reason: Remove it.
`

func loadPlugin(t *testing.T, files map[string]string) *plugin.LinterPlugin {
	t.Helper()
	result, err := plugin.NewLoader(testutil.WriteFiles(t, files)).Load()
	require.NoError(t, err)
	require.NoError(t, result.Err())

	p, err := plugin.New(result.Rules, plugin.Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return p
}

func TestRun_NoDebugger(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"no_debugger.yml": "name: no_debugger\n" + debuggerQuery + `tests:
  pass:
    - relative_path: ["index.js"]
      code: "x = 1;"
  fail:
    - relative_path: ["index.js"]
      code: "debugger;"
`,
	})
	var out bytes.Buffer
	runner := NewRunner(p, WithOutput(&out))

	pass, err := runner.RunFixture(context.Background(), p.Rules()[0], ExpectPass, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeClean, pass.Outcome)
	assert.Empty(t, pass.Diagnostics)

	fail, err := runner.RunFixture(context.Background(), p.Rules()[0], ExpectFail, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDiagnosed, fail.Outcome)
	require.Len(t, fail.Diagnostics, 1)
	assert.Equal(t, 0, fail.Diagnostics[0].Start)
	assert.Equal(t, 9, fail.Diagnostics[0].End)

	summary, err := runner.Run(context.Background(), plugin.All())
	require.NoError(t, err)
	assert.Equal(t, []RuleTally{{Rule: "no_debugger", Passed: 2}}, summary.Rules)
	assert.Equal(t, 2, summary.Fixtures())
	assert.Equal(t, "no_debugger passed 2 tests successfully.\n", out.String())
}

func TestRun_RulesWithoutFixturesAreSkipped(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"a.yml": "name: a\n" + debuggerQuery,
		"b.yml": "name: b\n" + debuggerQuery + "tests: {}\n",
	})
	var out bytes.Buffer

	summary, err := NewRunner(p, WithOutput(&out)).Run(context.Background(), plugin.All())
	require.NoError(t, err)
	assert.Empty(t, summary.Rules)
	assert.Empty(t, out.String())
}

func TestRunFixture_ParseFailure(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"r.yml": "name: r\n" + debuggerQuery + `tests:
  fail:
    - relative_path: ["index.js"]
      code: "let = ;"
`,
	})

	res, err := NewRunner(p).RunFixture(context.Background(), p.Rules()[0], ExpectFail, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeParseFailed, res.Outcome)
	assert.NotEmpty(t, res.ParseErrors)
	assert.Empty(t, res.Diagnostics)
	assert.True(t, res.Satisfied())
}

func TestRun_PassFixtureMismatchIsLocated(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"r.yml": "name: r\n" + debuggerQuery + `tests:
  pass:
    - relative_path: ["index.js"]
      code: "x = 1;"
    - relative_path: ["src", "index.ts"]
      code: "debugger;"
`,
	})
	var out bytes.Buffer

	_, err := NewRunner(p, WithOutput(&out)).Run(context.Background(), plugin.All())

	var mErr *MismatchError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, "r", mErr.Result.Rule)
	assert.Equal(t, ExpectPass, mErr.Result.Expectation)
	assert.Equal(t, 1, mErr.Result.Index)
	assert.Equal(t, OutcomeDiagnosed, mErr.Result.Outcome)
	require.Len(t, mErr.Result.Diagnostics, 1)

	require.NotNil(t, mErr.Location)
	assert.Equal(t, 12, mErr.Location.StartLine)
	assert.Equal(t, 13, mErr.Location.EndLine)
	assert.Equal(t, `      code: "debugger;"`, string(mErr.Source[mErr.Location.Start+1:mErr.Location.End]))
	assert.Contains(t, err.Error(), `rule "r": pass fixture 1 (src/index.ts) was expected to pass but produced 1 diagnostic(s)`)
	assert.Empty(t, out.String())
}

func TestRun_FailFixtureMismatch(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"r.yml": "name: r\n" + debuggerQuery + `tests:
  fail:
    - relative_path: ["index.js"]
      code: "x = 1;"
`,
	})

	_, err := NewRunner(p).Run(context.Background(), plugin.All())

	var mErr *MismatchError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, ExpectFail, mErr.Result.Expectation)
	assert.Equal(t, OutcomeClean, mErr.Result.Outcome)
	require.NotNil(t, mErr.Location)
	assert.Equal(t, 10, mErr.Location.StartLine)
	assert.Contains(t, err.Error(), "was expected to fail but produced no diagnostics")
}

func TestRun_PassFixtureThatDoesNotParse(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"r.yml": "name: r\n" + debuggerQuery + `tests:
  pass:
    - relative_path: ["index.js"]
      code: "let = ;"
`,
	})

	_, err := NewRunner(p).Run(context.Background(), plugin.All())

	var mErr *MismatchError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, OutcomeParseFailed, mErr.Result.Outcome)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestRun_StopsAtFirstMismatch(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"a.yml": "name: a\n" + debuggerQuery + `tests:
  fail:
    - relative_path: ["index.js"]
      code: "x;"
`,
		"b.yml": "name: b\n" + debuggerQuery + `tests:
  pass:
    - relative_path: ["index.js"]
      code: "x;"
`,
	})
	var out bytes.Buffer

	summary, err := NewRunner(p, WithOutput(&out)).Run(context.Background(), plugin.All())

	var mErr *MismatchError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, "a", mErr.Result.Rule)
	assert.Empty(t, summary.Rules)

	summary, err = NewRunner(p, WithOutput(&out)).Run(context.Background(), plugin.Only("b"))
	require.NoError(t, err)
	assert.Equal(t, []RuleTally{{Rule: "b", Passed: 1}}, summary.Rules)
}

func TestRunFixture_SemanticErrorIsFatal(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"r.yml": "name: r\n" + debuggerQuery + `tests:
  pass:
    - relative_path: ["index.js"]
      code: "let a = 1; let a = 2;"
`,
	})

	_, err := NewRunner(p).Run(context.Background(), plugin.All())

	var invalid *InvalidFixtureError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "r", invalid.Rule)
	require.Len(t, invalid.Errors, 1)
	assert.Contains(t, err.Error(), "has already been declared")
	assert.Contains(t, err.Error(), "let a = 1; let a = 2;")
}

func TestRunFixture_MergedEnumsAreValid(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"r.yml": "name: r\n" + debuggerQuery + `tests:
  pass:
    - relative_path: ["a.ts"]
      code: "enum E { A }\nenum E { B }"
`,
	})

	summary, err := NewRunner(p).Run(context.Background(), plugin.All())
	require.NoError(t, err)
	assert.Equal(t, []RuleTally{{Rule: "r", Passed: 1}}, summary.Rules)
}

func TestRunFixture_UnsupportedExtension(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"r.yml": "name: r\n" + debuggerQuery + `tests:
  fail:
    - relative_path: ["main.go"]
      code: "package main"
`,
	})

	_, err := NewRunner(p).RunFixture(context.Background(), p.Rules()[0], ExpectFail, 0)

	var invalid *InvalidFixtureError
	require.True(t, errors.As(err, &invalid))
	assert.ErrorContains(t, err, "main.go")
}

func TestRunFixture_QueryFailure(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"r.yml": `name: r
query: "emit(span_start = file.size, span_end = 0)"
args: {}
summary: s
reason: r
tests:
  fail:
    - relative_path: ["index.js"]
      code: "x;"
`,
	})

	res, err := NewRunner(p).RunFixture(context.Background(), p.Rules()[0], ExpectFail, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueryFailed, res.Outcome)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, `no field "size"`)
}

func TestRunFixture_ShapeErrorIsFatal(t *testing.T) {
	p := loadPlugin(t, map[string]string{
		"r.yml": `name: r
query: "emit(start = 0)"
args: {}
summary: s
reason: r
tests:
  fail:
    - relative_path: ["index.js"]
      code: "x;"
`,
	})

	_, err := NewRunner(p).Run(context.Background(), plugin.All())

	var shapeErr *plugin.SpanShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "r", shapeErr.Rule)
}

func TestRun_UnreadableRuleFile(t *testing.T) {
	def, err := plugin.ParseDefinition("virtual.yml", []byte("name: r\n"+debuggerQuery+`tests:
  fail:
    - relative_path: ["index.js"]
      code: "x;"
`))
	require.NoError(t, err)
	p, err := plugin.New([]*plugin.Definition{def}, plugin.Options{})
	require.NoError(t, err)

	_, err = NewRunner(p, WithReadFile(func(string) ([]byte, error) {
		return nil, os.ErrNotExist
	})).Run(context.Background(), plugin.All())

	var mErr *MismatchError
	require.True(t, errors.As(err, &mErr))
	assert.Nil(t, mErr.Location)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
