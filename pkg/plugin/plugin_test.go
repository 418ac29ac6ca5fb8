package plugin

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/pkg/adapter"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/parser"
	"github.com/leapstack-labs/leaplint/pkg/query"
	"github.com/leapstack-labs/leaplint/pkg/semantic"
)

// stubEngine returns canned results keyed by query text.
type stubEngine struct {
	rows     map[string][]query.Row
	failures map[string]error
	executed []string
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Execute(_ context.Context, _ query.Adapter, src string, _ query.Args, _ query.Limits) (query.Rows, error) {
	e.executed = append(e.executed, src)
	if src == "uncompilable" {
		return nil, query.Errorf("stub", "syntax error")
	}
	return func(yield func(query.Row, error) bool) {
		for _, row := range e.rows[src] {
			if !yield(row, nil) {
				return
			}
		}
		if err := e.failures[src]; err != nil {
			yield(nil, err)
		}
	}, nil
}

func newStubPlugin(t *testing.T, engine *stubEngine, opts Options, rules ...*Definition) *LinterPlugin {
	t.Helper()
	reg, err := query.NewRegistry(engine)
	require.NoError(t, err)
	opts.Engines = reg
	p, err := New(rules, opts)
	require.NoError(t, err)
	return p
}

func rule(name, q string) *Definition {
	return &Definition{Name: name, Query: q, Summary: name + " summary", Reason: name + " reason"}
}

func TestRun_MultipleListRows(t *testing.T) {
	engine := &stubEngine{rows: map[string][]query.Row{
		"lists": {
			{"span_start": []any{int64(1), int64(10)}, "span_end": []any{int64(3), int64(12)}},
			{"span_start": []any{uint64(20), uint64(30)}, "span_end": []any{uint64(22), uint64(32)}},
		},
	}}
	p := newStubPlugin(t, engine, Options{}, rule("lists", "lists"))
	sink := lint.NewContext(make([]byte, 40), nil)

	require.NoError(t, p.Run(context.Background(), sink, nil, All()))

	assert.Equal(t, [][2]int{{1, 3}, {10, 12}, {20, 22}, {30, 32}}, spans(sink.Diagnostics()))
}

func TestRun_QueryFailureBecomesDiagnostic(t *testing.T) {
	engine := &stubEngine{
		rows: map[string][]query.Row{
			"ok": {{"span_start": 0, "span_end": 1}},
		},
		failures: map[string]error{
			"broken": query.Errorf("stub", `type File has no field "size"`),
		},
	}
	p := newStubPlugin(t, engine, Options{},
		rule("a_broken", "broken"), rule("b_uncompilable", "uncompilable"), rule("c_ok", "ok"))
	sink := lint.NewContext([]byte("x;"), nil)

	require.NoError(t, p.Run(context.Background(), sink, nil, All()))

	diags := sink.Diagnostics()
	require.Len(t, diags, 3)
	assert.Equal(t, "a_broken", diags[0].RuleID)
	assert.Equal(t, lint.SeverityError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, `type File has no field "size"`)
	assert.Equal(t, "b_uncompilable", diags[1].RuleID)
	assert.Contains(t, diags[1].Message, "syntax error")
	assert.Equal(t, "c_ok", diags[2].RuleID)
	assert.Equal(t, lint.SeverityWarning, diags[2].Severity)
}

func TestRun_ShapeErrorStopsOnlyThatRule(t *testing.T) {
	engine := &stubEngine{rows: map[string][]query.Row{
		"bad": {
			{"span_start": 0, "span_end": 1},
			{"start": 2},
			{"span_start": 4, "span_end": 5},
		},
		"good": {{"span_start": 6, "span_end": 7}},
	}}
	p := newStubPlugin(t, engine, Options{}, rule("bad", "bad"), rule("good", "good"))
	sink := lint.NewContext(make([]byte, 10), nil)

	err := p.Run(context.Background(), sink, nil, All())

	var shapeErr *SpanShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "bad", shapeErr.Rule)
	assert.Contains(t, err.Error(), `rule "bad"`)
	assert.Equal(t, [][2]int{{0, 1}, {6, 7}}, spans(sink.Diagnostics()))
}

func TestRun_Only(t *testing.T) {
	engine := &stubEngine{rows: map[string][]query.Row{
		"one": {{"span_start": 0, "span_end": 1}},
		"two": {{"span_start": 1, "span_end": 2}},
	}}
	p := newStubPlugin(t, engine, Options{}, rule("one", "one"), rule("two", "two"))
	sink := lint.NewContext([]byte("ab"), nil)

	require.NoError(t, p.Run(context.Background(), sink, nil, Only("two")))

	assert.Equal(t, []string{"two"}, engine.executed)
	require.Len(t, sink.Diagnostics(), 1)
	assert.Equal(t, "two", sink.Diagnostics()[0].RuleID)

	err := p.Run(context.Background(), sink, nil, Only("three"))
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestRun_Cancelled(t *testing.T) {
	engine := &stubEngine{}
	p := newStubPlugin(t, engine, Options{}, rule("one", "one"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, lint.NewContext(nil, nil), nil, All())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, engine.executed)
}

func TestRunRule_MaxRows(t *testing.T) {
	row := query.Row{"span_start": 0, "span_end": 0}
	engine := &stubEngine{rows: map[string][]query.Row{"many": {row, row, row}}}
	p := newStubPlugin(t, engine, Options{MaxRows: 2}, rule("many", "many"))
	sink := lint.NewContext(nil, nil)

	n, err := p.RunRule(context.Background(), sink, p.Rules()[0], nil)

	var qErr *query.Error
	require.True(t, errors.As(err, &qErr))
	assert.Contains(t, err.Error(), "more than 2 rows")
	assert.Equal(t, 2, n)
}

func TestRunRule_PrintRows(t *testing.T) {
	engine := &stubEngine{rows: map[string][]query.Row{
		"q": {{"span_start": 0, "span_end": 3, "name": "foo"}},
	}}
	var out bytes.Buffer
	p := newStubPlugin(t, engine, Options{PrintRows: true, RowWriter: &out}, rule("r", "q"))

	_, err := p.RunRule(context.Background(), lint.NewContext([]byte("foo"), nil), p.Rules()[0], nil)
	require.NoError(t, err)
	assert.Equal(t, "r: name=foo span_end=3 span_start=0\n", out.String())
}

func TestNew_RejectsBadRuleSets(t *testing.T) {
	unknown := rule("a", "q")
	unknown.Engine = "sql"
	_, err := New([]*Definition{unknown}, Options{})
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.ErrorContains(t, err, "available: starlark, treesitter")

	_, err = New([]*Definition{rule("a", "q"), rule("a", "q")}, Options{})
	var dupErr *DuplicateRuleError
	assert.True(t, errors.As(err, &dupErr))
}

func lintSource(t *testing.T, p *LinterPlugin, name, src string, sel Selection) (*lint.Context, error) {
	t.Helper()
	res, err := parser.Parse(context.Background(), name, []byte(src))
	require.NoError(t, err)
	t.Cleanup(res.Program.Close)
	sem := semantic.Build(res.Program).Semantic

	sink := lint.NewContext([]byte(src), nil)
	err = p.Run(context.Background(), sink, adapter.New(sem, []string{name}), sel)
	return sink, err
}

func TestRun_DefaultEngines(t *testing.T) {
	def, err := ParseDefinition("no_debugger.yml", []byte(noDebuggerRule))
	require.NoError(t, err)
	alertRule := &Definition{
		Name:    "no_alert",
		Engine:  "treesitter",
		Query:   `(call_expression function: (identifier) @_fn (#eq? @_fn $name)) @span`,
		Args:    query.Args{"name": "alert"},
		Summary: "alert call",
	}
	p, err := New([]*Definition{alertRule, def}, Options{})
	require.NoError(t, err)

	sink, err := lintSource(t, p, "index.js", "debugger;\nalert(1);", All())
	require.NoError(t, err)

	diags := sink.Sorted()
	require.Len(t, diags, 2)
	assert.Equal(t, "no_debugger", diags[0].RuleID)
	assert.Equal(t, [2]int{0, 9}, [2]int{diags[0].Start, diags[0].End})
	assert.Equal(t, "no_alert", diags[1].RuleID)
	assert.Equal(t, [2]int{10, 18}, [2]int{diags[1].Start, diags[1].End})

	sink, err = lintSource(t, p, "index.js", "x = 1;", All())
	require.NoError(t, err)
	assert.Empty(t, sink.Diagnostics())
}

func TestRun_UnknownSchemaFieldIsReported(t *testing.T) {
	def := rule("bad_field", "emit(span_start = file.size, span_end = 0)")
	p, err := New([]*Definition{def}, Options{})
	require.NoError(t, err)

	sink, err := lintSource(t, p, "index.ts", "let x: number = 1;", All())
	require.NoError(t, err)

	require.Len(t, sink.Diagnostics(), 1)
	assert.Contains(t, sink.Diagnostics()[0].Message, `has no field "size"`)
}
