package starlark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/adapter"
	"github.com/leapstack-labs/leaplint/pkg/parser"
	"github.com/leapstack-labs/leaplint/pkg/query"
	"github.com/leapstack-labs/leaplint/pkg/semantic"
)

func newAdapter(t *testing.T, src string) *adapter.Adapter {
	t.Helper()
	res, err := parser.Parse(context.Background(), "index.js", []byte(src))
	require.NoError(t, err)
	t.Cleanup(res.Program.Close)
	return adapter.New(semantic.Build(res.Program).Semantic, nil)
}

func collect(t *testing.T, rows query.Rows) ([]query.Row, error) {
	t.Helper()
	var out []query.Row
	for row, err := range rows {
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
	return out, nil
}

func run(t *testing.T, src, q string, args query.Args, limits query.Limits) ([]query.Row, error) {
	t.Helper()
	e := NewEngine(WithLogger(testutil.NewTestLogger(t)))
	rows, err := e.Execute(context.Background(), newAdapter(t, src), q, args, limits)
	if err != nil {
		return nil, err
	}
	return collect(t, rows)
}

const debuggerQuery = `
for n in file.nodes(kind = "debugger_statement"):
    emit(span_start = n.span_start, span_end = n.span_end)
`

func TestExecute_EmitsRows(t *testing.T) {
	rows, err := run(t, "debugger;\nfoo();\ndebugger;", debuggerQuery, nil, query.Limits{})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, query.Row{"span_start": int64(0), "span_end": int64(9)}, rows[0])
	assert.Equal(t, query.Row{"span_start": int64(17), "span_end": int64(26)}, rows[1])
}

func TestExecute_NoMatches(t *testing.T) {
	rows, err := run(t, "x = 1;", debuggerQuery, nil, query.Limits{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecute_Args(t *testing.T) {
	q := `
for ref in file.unresolved_references():
    if ref.name in args["names"]:
        emit(span_start = ref.span_start, span_end = ref.span_end, name = ref.name)
`
	rows, err := run(t, "alert(1); confirm(2); print(3);", q,
		query.Args{"names": []any{"alert", "confirm"}}, query.Limits{})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "alert", rows[0]["name"])
	assert.Equal(t, "confirm", rows[1]["name"])
}

func TestExecute_ListFields(t *testing.T) {
	q := `
starts = []
ends = []
for n in file.nodes(kind = "number"):
    starts.append(n.span_start)
    ends.append(n.span_end)
emit(span_start = starts, span_end = ends)
`
	rows, err := run(t, "f(1, 22);", q, nil, query.Limits{})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, []any{int64(2), int64(5)}, rows[0]["span_start"])
	assert.Equal(t, []any{int64(3), int64(7)}, rows[0]["span_end"])
}

func TestExecute_LargeIntegersBecomeUnsigned(t *testing.T) {
	rows, err := run(t, "x;", "emit(span_start = 1 << 63, span_end = 1 << 63)", nil, query.Limits{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(1<<63), rows[0]["span_start"])
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		limits  query.Limits
		compile bool
		wantMsg string
	}{
		{
			name:    "syntax error",
			query:   "for n in",
			compile: true,
			wantMsg: "query.star",
		},
		{
			name:    "undefined name",
			query:   "emit(span_start = nodes)",
			compile: true,
			wantMsg: "undefined: nodes",
		},
		{
			name:    "unknown schema field",
			query:   "emit(span_start = file.size)",
			wantMsg: `type File has no field "size"`,
		},
		{
			name:    "unknown edge parameter",
			query:   "file.nodes(type = 'x')",
			wantMsg: "unknown parameter",
		},
		{
			name:    "positional emit",
			query:   "emit(1, 2)",
			wantMsg: "keyword arguments",
		},
		{
			name:    "runtime error",
			query:   "x = 1 // 0",
			wantMsg: "division by zero",
		},
		{
			name:    "step budget",
			query:   "while True:\n    pass",
			limits:  query.Limits{MaxSteps: 10000},
			wantMsg: "too many steps",
		},
		{
			name:    "timeout",
			query:   "while True:\n    pass",
			limits:  query.Limits{Timeout: 20 * time.Millisecond},
			wantMsg: "timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			rows, err := e.Execute(context.Background(), newAdapter(t, "x;"), tt.query, nil, tt.limits)
			if tt.compile {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				_, err = collect(t, rows)
				require.Error(t, err)
			}

			var qErr *query.Error
			require.True(t, errors.As(err, &qErr))
			assert.Equal(t, EngineName, qErr.Engine)
			assert.Contains(t, qErr.Error(), tt.wantMsg)
		})
	}
}

func TestExecute_ConsumerStopsEarly(t *testing.T) {
	q := `
for i in range(1000):
    emit(span_start = i, span_end = i)
`
	e := NewEngine()
	rows, err := e.Execute(context.Background(), newAdapter(t, "x;"), q, nil, query.Limits{})
	require.NoError(t, err)

	count := 0
	for _, err := range rows {
		require.NoError(t, err)
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewEngine()
	rows, err := e.Execute(ctx, newAdapter(t, "x;"), "while True:\n    pass", nil, query.Limits{})
	require.NoError(t, err)

	cancel()
	_, err = collect(t, rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVertex_EqualityAndHashing(t *testing.T) {
	q := `
seen = set()
for ref in file.references():
    sym = ref.symbol()
    if sym != None:
        seen.add(sym)
decl = file.symbols(name = "a")[0]
emit(count = len(seen), same = decl in seen, root = file.root().parent() == None)
`
	rows, err := run(t, "let a = 1; a; a; let b = a;", q, nil, query.Limits{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["count"])
	assert.Equal(t, true, rows[0]["same"])
	assert.Equal(t, true, rows[0]["root"])
}

func TestVertex_AttrNames(t *testing.T) {
	a := newAdapter(t, "x;")
	v := NewVertex(a, a.Root())

	assert.Contains(t, v.AttrNames(), "nodes")
	assert.Contains(t, v.AttrNames(), "path")
	assert.Equal(t, "File", v.Type())
	assert.Equal(t, "<File File>", v.String())
}
