package adapter

import "github.com/leapstack-labs/leaplint/pkg/query"

// Vertex type names.
const (
	TypeFile      = "File"
	TypeNode      = "Node"
	TypeSymbol    = "Symbol"
	TypeScope     = "Scope"
	TypeReference = "Reference"
)

var kindFilter = query.Param{Name: "kind", Kind: query.KindStringList, Doc: "only vertices of these kinds"}
var nameFilter = query.Param{Name: "name", Kind: query.KindString, Doc: "only vertices with this name"}

func spanProps(what string) []query.Property {
	return []query.Property{
		{Name: "span_start", Kind: query.KindInt, Doc: "byte offset where the " + what + " starts"},
		{Name: "span_end", Kind: query.KindInt, Doc: "byte offset where the " + what + " ends"},
	}
}

// Schema is the graph schema exposed to rule queries.
var Schema = query.MustSchema(TypeFile,
	&query.VertexType{
		Name: TypeFile,
		Doc:  "The linted file. Entry point of every query.",
		Properties: []query.Property{
			{Name: "path", Kind: query.KindString, Doc: "relative path, slash separated"},
			{Name: "name", Kind: query.KindString, Doc: "last path element"},
			{Name: "extension", Kind: query.KindString, Doc: "file extension including the dot"},
			{Name: "language", Kind: query.KindString, Doc: "javascript or typescript"},
			{Name: "jsx", Kind: query.KindBool, Doc: "whether JSX syntax is enabled"},
			{Name: "module", Kind: query.KindBool, Doc: "false for CommonJS sources"},
			{Name: "line_count", Kind: query.KindInt},
			{Name: "text", Kind: query.KindString, Doc: "full source text"},
		},
		Edges: []query.Edge{
			{Name: "root", Target: TypeNode, Doc: "the program node"},
			{Name: "nodes", Target: TypeNode, Many: true, Params: []query.Param{kindFilter}, Doc: "named nodes in source order"},
			{Name: "symbols", Target: TypeSymbol, Many: true, Params: []query.Param{nameFilter, kindFilter}},
			{Name: "scopes", Target: TypeScope, Many: true, Params: []query.Param{kindFilter}},
			{Name: "references", Target: TypeReference, Many: true, Params: []query.Param{nameFilter}},
			{Name: "unresolved_references", Target: TypeReference, Many: true, Params: []query.Param{nameFilter}, Doc: "references with no visible declaration"},
		},
	},
	&query.VertexType{
		Name: TypeNode,
		Doc:  "A syntax tree node.",
		Properties: append([]query.Property{
			{Name: "kind", Kind: query.KindString, Doc: "grammar node type, e.g. call_expression"},
			{Name: "named", Kind: query.KindBool, Doc: "false for anonymous tokens"},
			{Name: "text", Kind: query.KindString},
			{Name: "start_line", Kind: query.KindInt, Doc: "1-based"},
			{Name: "start_column", Kind: query.KindInt, Doc: "1-based"},
			{Name: "end_line", Kind: query.KindInt},
			{Name: "end_column", Kind: query.KindInt},
			{Name: "child_count", Kind: query.KindInt},
			{Name: "has_error", Kind: query.KindBool},
		}, spanProps("node")...),
		Edges: []query.Edge{
			{Name: "parent", Target: TypeNode},
			{Name: "children", Target: TypeNode, Many: true, Params: []query.Param{kindFilter}, Doc: "all children including anonymous tokens"},
			{Name: "named_children", Target: TypeNode, Many: true, Params: []query.Param{kindFilter}},
			{Name: "field", Target: TypeNode, Params: []query.Param{{Name: "name", Kind: query.KindString, Required: true}}, Doc: "the child stored under a grammar field"},
			{Name: "ancestors", Target: TypeNode, Many: true, Params: []query.Param{kindFilter}, Doc: "innermost first"},
			{Name: "descendants", Target: TypeNode, Many: true, Params: []query.Param{kindFilter}, Doc: "named descendants in source order"},
			{Name: "next_sibling", Target: TypeNode, Doc: "next named sibling"},
			{Name: "prev_sibling", Target: TypeNode, Doc: "previous named sibling"},
			{Name: "scope", Target: TypeScope, Doc: "innermost enclosing scope"},
			{Name: "symbol", Target: TypeSymbol, Doc: "symbol declared by this binding identifier"},
			{Name: "reference", Target: TypeReference, Doc: "reference made by this identifier"},
		},
	},
	&query.VertexType{
		Name: TypeSymbol,
		Doc:  "A declared binding.",
		Properties: append([]query.Property{
			{Name: "name", Kind: query.KindString},
			{Name: "kind", Kind: query.KindString, Doc: "var, let, const, function, class, parameter, import, catch_parameter or enum"},
			{Name: "reference_count", Kind: query.KindInt},
		}, spanProps("binding identifier")...),
		Edges: []query.Edge{
			{Name: "declaration", Target: TypeNode, Doc: "binding identifier"},
			{Name: "references", Target: TypeReference, Many: true},
			{Name: "scope", Target: TypeScope},
		},
	},
	&query.VertexType{
		Name: TypeScope,
		Doc:  "A lexical scope.",
		Properties: append([]query.Property{
			{Name: "kind", Kind: query.KindString, Doc: "program, function, block, class, catch or for"},
			{Name: "symbol_count", Kind: query.KindInt},
		}, spanProps("scope")...),
		Edges: []query.Edge{
			{Name: "parent", Target: TypeScope},
			{Name: "children", Target: TypeScope, Many: true},
			{Name: "symbols", Target: TypeSymbol, Many: true, Params: []query.Param{nameFilter}},
			{Name: "references", Target: TypeReference, Many: true, Doc: "references made directly in this scope"},
			{Name: "node", Target: TypeNode, Doc: "node that introduced the scope"},
		},
	},
	&query.VertexType{
		Name: TypeReference,
		Doc:  "A use of an identifier as a value.",
		Properties: append([]query.Property{
			{Name: "name", Kind: query.KindString},
			{Name: "is_read", Kind: query.KindBool},
			{Name: "is_write", Kind: query.KindBool},
			{Name: "resolved", Kind: query.KindBool},
		}, spanProps("identifier")...),
		Edges: []query.Edge{
			{Name: "symbol", Target: TypeSymbol, Doc: "resolved declaration, if any"},
			{Name: "node", Target: TypeNode},
			{Name: "scope", Target: TypeScope, Doc: "scope the reference was made in"},
		},
	},
)
