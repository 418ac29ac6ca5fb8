package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/pkg/parser"
	"github.com/leapstack-labs/leaplint/pkg/query"
	"github.com/leapstack-labs/leaplint/pkg/semantic"
)

func newAdapter(t *testing.T, name, src string) *Adapter {
	t.Helper()
	res, err := parser.Parse(context.Background(), name, []byte(src))
	require.NoError(t, err)
	t.Cleanup(res.Program.Close)
	sem := semantic.Build(res.Program)
	require.Empty(t, sem.Errors)
	return New(sem.Semantic, nil)
}

func prop(t *testing.T, a *Adapter, v query.Vertex, name string) any {
	t.Helper()
	got, err := query.ResolveProperty(a, v, name)
	require.NoError(t, err)
	return got
}

func edge(t *testing.T, a *Adapter, v query.Vertex, name string, params map[string]any) []query.Vertex {
	t.Helper()
	got, err := query.ResolveNeighbors(a, v, name, params)
	require.NoError(t, err)
	return got
}

func TestFileProperties(t *testing.T) {
	a := newAdapter(t, "src/app/index.tsx", "const a = <b/>;\n")

	tests := []struct {
		name string
		want any
	}{
		{"path", "src/app/index.tsx"},
		{"name", "index.tsx"},
		{"extension", ".tsx"},
		{"language", "typescript"},
		{"jsx", true},
		{"module", true},
		{"line_count", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, prop(t, a, a.Root(), tt.name))
		})
	}
}

func TestNodesByKind(t *testing.T) {
	src := "foo();\ndebugger;\nif (x) { debugger; }\n"
	a := newAdapter(t, "index.js", src)

	nodes := edge(t, a, a.Root(), "nodes", map[string]any{"kind": "debugger_statement"})
	require.Len(t, nodes, 2)
	assert.Equal(t, 7, prop(t, a, nodes[0], "span_start"))
	assert.Equal(t, 16, prop(t, a, nodes[0], "span_end"))
	assert.Equal(t, 2, prop(t, a, nodes[0], "start_line"))
	assert.Equal(t, "debugger;", prop(t, a, nodes[0], "text"))

	both := edge(t, a, a.Root(), "nodes", map[string]any{"kind": []any{"debugger_statement", "call_expression"}})
	assert.Len(t, both, 3)

	ancestors := edge(t, a, nodes[1], "ancestors", map[string]any{"kind": "if_statement"})
	require.Len(t, ancestors, 1)
	assert.Equal(t, "if_statement", prop(t, a, ancestors[0], "kind"))

	root := edge(t, a, a.Root(), "root", nil)
	require.Len(t, root, 1)
	assert.Empty(t, edge(t, a, root[0], "parent", nil))
}

func TestNodeFieldsAndChildren(t *testing.T) {
	a := newAdapter(t, "index.js", "call(1, two);")

	calls := edge(t, a, a.Root(), "nodes", map[string]any{"kind": "call_expression"})
	require.Len(t, calls, 1)

	fn := edge(t, a, calls[0], "field", map[string]any{"name": "function"})
	require.Len(t, fn, 1)
	assert.Equal(t, "call", prop(t, a, fn[0], "text"))

	assert.Empty(t, edge(t, a, calls[0], "field", map[string]any{"name": "nope"}))

	args := edge(t, a, calls[0], "field", map[string]any{"name": "arguments"})
	require.Len(t, args, 1)
	assert.Len(t, edge(t, a, args[0], "named_children", nil), 2)
	assert.Len(t, edge(t, a, args[0], "children", nil), 5, "parens and comma are anonymous children")

	first := edge(t, a, args[0], "named_children", nil)[0]
	next := edge(t, a, first, "next_sibling", nil)
	require.Len(t, next, 1)
	assert.Equal(t, "two", prop(t, a, next[0], "text"))
	assert.Empty(t, edge(t, a, first, "prev_sibling", nil))

	_, err := query.ResolveNeighbors(a, calls[0], "field", nil)
	assert.ErrorContains(t, err, "missing required parameter")
}

func TestSemanticEdges(t *testing.T) {
	src := "let used = 1;\nlet unused = 2;\nconsole.log(used);\n"
	a := newAdapter(t, "index.js", src)

	syms := edge(t, a, a.Root(), "symbols", map[string]any{"kind": "let"})
	require.Len(t, syms, 2)
	assert.Equal(t, "used", prop(t, a, syms[0], "name"))
	assert.Equal(t, 1, prop(t, a, syms[0], "reference_count"))
	assert.Equal(t, 0, prop(t, a, syms[1], "reference_count"))
	assert.Equal(t, 18, prop(t, a, syms[1], "span_start"))

	refs := edge(t, a, syms[0], "references", nil)
	require.Len(t, refs, 1)
	assert.Equal(t, true, prop(t, a, refs[0], "is_read"))
	assert.Equal(t, false, prop(t, a, refs[0], "is_write"))

	back := edge(t, a, refs[0], "symbol", nil)
	require.Len(t, back, 1)
	assert.Equal(t, "used", prop(t, a, back[0], "name"))

	node := edge(t, a, refs[0], "node", nil)[0]
	assert.Len(t, edge(t, a, node, "reference", nil), 1)
	assert.Empty(t, edge(t, a, node, "symbol", nil))

	decl := edge(t, a, syms[0], "declaration", nil)[0]
	assert.Len(t, edge(t, a, decl, "symbol", nil), 1)

	unresolved := edge(t, a, a.Root(), "unresolved_references", nil)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "console", prop(t, a, unresolved[0], "name"))
	assert.Equal(t, false, prop(t, a, unresolved[0], "resolved"))
	assert.Empty(t, edge(t, a, unresolved[0], "symbol", nil))
}

func TestScopeEdges(t *testing.T) {
	a := newAdapter(t, "index.js", "function f(p) { return p; }")

	scopes := edge(t, a, a.Root(), "scopes", map[string]any{"kind": "function"})
	require.Len(t, scopes, 1)
	fn := scopes[0]

	assert.Equal(t, 1, prop(t, a, fn, "symbol_count"))
	assert.Equal(t, 0, prop(t, a, fn, "span_start"))
	assert.Len(t, edge(t, a, fn, "symbols", map[string]any{"name": "p"}), 1)
	assert.Len(t, edge(t, a, fn, "references", nil), 1)

	parent := edge(t, a, fn, "parent", nil)
	require.Len(t, parent, 1)
	assert.Equal(t, "program", prop(t, a, parent[0], "kind"))
	assert.Empty(t, edge(t, a, parent[0], "parent", nil))
	assert.Len(t, edge(t, a, parent[0], "children", nil), 1)

	node := edge(t, a, fn, "node", nil)[0]
	assert.Equal(t, "function_declaration", prop(t, a, node, "kind"))
}

func TestUnknownFieldsRejected(t *testing.T) {
	a := newAdapter(t, "index.js", "x;")

	_, err := query.ResolveProperty(a, a.Root(), "size")
	var fieldErr *query.FieldError
	assert.ErrorAs(t, err, &fieldErr)

	_, err = query.ResolveNeighbors(a, a.Root(), "nodes", map[string]any{"type": "x"})
	assert.ErrorContains(t, err, "unknown parameter")
}
