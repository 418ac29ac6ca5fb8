// Package adapter exposes one file's syntax tree and semantic snapshot as a
// typed graph that rule queries traverse.
//
// Every Adapter wraps exactly one immutable semantic snapshot. Adapters are
// cheap and not shared across goroutines; create one per linted file.
package adapter

import (
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/leapstack-labs/leaplint/pkg/parser"
	"github.com/leapstack-labs/leaplint/pkg/query"
	"github.com/leapstack-labs/leaplint/pkg/semantic"
)

// =============================================================================
// Vertices
// =============================================================================

// File is the root vertex.
type File struct{}

// TypeName implements query.Vertex.
func (File) TypeName() string { return TypeFile }

// Key implements query.Keyed.
func (File) Key() any { return TypeFile }

// Node wraps a syntax node.
type Node struct{ N *sitter.Node }

// TypeName implements query.Vertex.
func (Node) TypeName() string { return TypeNode }

type nodeKey struct {
	start, end uint32
	kind       string
}

// Key implements query.Keyed.
func (n Node) Key() any { return nodeKey{n.N.StartByte(), n.N.EndByte(), n.N.Type()} }

// Symbol wraps a semantic symbol.
type Symbol struct{ S *semantic.Symbol }

// TypeName implements query.Vertex.
func (Symbol) TypeName() string { return TypeSymbol }

// Key implements query.Keyed.
func (s Symbol) Key() any { return s.S.ID }

// Scope wraps a semantic scope.
type Scope struct{ S *semantic.Scope }

// TypeName implements query.Vertex.
func (Scope) TypeName() string { return TypeScope }

// Key implements query.Keyed.
func (s Scope) Key() any { return s.S.ID }

// Reference wraps a semantic reference.
type Reference struct{ R *semantic.Reference }

// TypeName implements query.Vertex.
func (Reference) TypeName() string { return TypeReference }

// Key implements query.Keyed.
func (r Reference) Key() any { return r.R.ID }

// =============================================================================
// Adapter
// =============================================================================

// Adapter implements query.Adapter over a semantic snapshot.
type Adapter struct {
	sem  *semantic.Semantic
	prog *parser.Program
	path []string
}

var _ query.Adapter = (*Adapter)(nil)

// New creates an adapter for sem. pathParts is the file's relative path;
// when empty, the program path is split on slashes.
func New(sem *semantic.Semantic, pathParts []string) *Adapter {
	prog := sem.Program()
	if len(pathParts) == 0 {
		pathParts = strings.Split(prog.Path, "/")
	}
	return &Adapter{sem: sem, prog: prog, path: pathParts}
}

// Schema implements query.Adapter.
func (a *Adapter) Schema() *query.Schema { return Schema }

// Root implements query.Adapter.
func (a *Adapter) Root() query.Vertex { return File{} }

// Semantic returns the wrapped snapshot.
func (a *Adapter) Semantic() *semantic.Semantic { return a.sem }

// SyntaxRoot returns the root of the syntax tree.
func (a *Adapter) SyntaxRoot() *sitter.Node { return a.prog.Root() }

// SourceText returns the source the tree was parsed from.
func (a *Adapter) SourceText() []byte { return a.prog.Source }

// Grammar returns the tree-sitter language of the source.
func (a *Adapter) Grammar() *sitter.Language { return a.prog.Grammar() }

// Property implements query.Adapter.
func (a *Adapter) Property(v query.Vertex, name string) (any, error) {
	switch v := v.(type) {
	case File:
		return a.fileProperty(name)
	case Node:
		return a.nodeProperty(v.N, name)
	case Symbol:
		return a.symbolProperty(v.S, name)
	case Scope:
		return a.scopeProperty(v.S, name)
	case Reference:
		return a.referenceProperty(v.R, name)
	default:
		return nil, fmt.Errorf("adapter: unexpected vertex %T", v)
	}
}

// Neighbors implements query.Adapter.
func (a *Adapter) Neighbors(v query.Vertex, edge string, params map[string]any) ([]query.Vertex, error) {
	switch v := v.(type) {
	case File:
		return a.fileEdge(edge, params)
	case Node:
		return a.nodeEdge(v.N, edge, params)
	case Symbol:
		return a.symbolEdge(v.S, edge, params)
	case Scope:
		return a.scopeEdge(v.S, edge, params)
	case Reference:
		return a.referenceEdge(v.R, edge)
	default:
		return nil, fmt.Errorf("adapter: unexpected vertex %T", v)
	}
}

func unknownField(typeName, name string) error {
	return fmt.Errorf("adapter: %s has no field %q", typeName, name)
}

// =============================================================================
// File
// =============================================================================

func (a *Adapter) fileProperty(name string) (any, error) {
	st := a.prog.SourceType
	switch name {
	case "path":
		return strings.Join(a.path, "/"), nil
	case "name":
		return a.path[len(a.path)-1], nil
	case "extension":
		return path.Ext(a.path[len(a.path)-1]), nil
	case "language":
		return st.Language.String(), nil
	case "jsx":
		return st.JSX, nil
	case "module":
		return st.Module, nil
	case "line_count":
		return a.prog.Lines().LineCount(), nil
	case "text":
		return string(a.prog.Source), nil
	}
	return nil, unknownField(TypeFile, name)
}

func (a *Adapter) fileEdge(edge string, params map[string]any) ([]query.Vertex, error) {
	switch edge {
	case "root":
		return []query.Vertex{Node{a.prog.Root()}}, nil
	case "nodes":
		return a.descendants(a.prog.Root(), true, kinds(params)), nil
	case "symbols":
		name, _ := params["name"].(string)
		want := kinds(params)
		var out []query.Vertex
		for _, s := range a.sem.Symbols() {
			if (name == "" || s.Name == name) && want.match(s.Kind.String()) {
				out = append(out, Symbol{s})
			}
		}
		return out, nil
	case "scopes":
		want := kinds(params)
		var out []query.Vertex
		for _, s := range a.sem.Scopes() {
			if want.match(s.Kind.String()) {
				out = append(out, Scope{s})
			}
		}
		return out, nil
	case "references":
		return referencesNamed(a.sem.References(), params), nil
	case "unresolved_references":
		return referencesNamed(a.sem.UnresolvedReferences(), params), nil
	}
	return nil, unknownField(TypeFile, edge)
}

func referencesNamed(refs []*semantic.Reference, params map[string]any) []query.Vertex {
	name, _ := params["name"].(string)
	var out []query.Vertex
	for _, r := range refs {
		if name == "" || r.Name == name {
			out = append(out, Reference{r})
		}
	}
	return out
}

// =============================================================================
// Node
// =============================================================================

func (a *Adapter) nodeProperty(n *sitter.Node, name string) (any, error) {
	switch name {
	case "kind":
		return n.Type(), nil
	case "named":
		return n.IsNamed(), nil
	case "text":
		return a.prog.Text(n), nil
	case "span_start":
		return int(n.StartByte()), nil
	case "span_end":
		return int(n.EndByte()), nil
	case "start_line":
		return a.prog.SpanOf(n).Start.Line, nil
	case "start_column":
		return a.prog.SpanOf(n).Start.Column, nil
	case "end_line":
		return a.prog.SpanOf(n).End.Line, nil
	case "end_column":
		return a.prog.SpanOf(n).End.Column, nil
	case "child_count":
		return int(n.ChildCount()), nil
	case "has_error":
		return n.HasError(), nil
	}
	return nil, unknownField(TypeNode, name)
}

func (a *Adapter) nodeEdge(n *sitter.Node, edge string, params map[string]any) ([]query.Vertex, error) {
	switch edge {
	case "parent":
		return optionalNode(n.Parent()), nil
	case "children":
		return children(n, false, kinds(params)), nil
	case "named_children":
		return children(n, true, kinds(params)), nil
	case "field":
		name, _ := params["name"].(string)
		return optionalNode(n.ChildByFieldName(name)), nil
	case "ancestors":
		want := kinds(params)
		var out []query.Vertex
		for p := n.Parent(); p != nil; p = p.Parent() {
			if want.match(p.Type()) {
				out = append(out, Node{p})
			}
		}
		return out, nil
	case "descendants":
		return a.descendants(n, false, kinds(params)), nil
	case "next_sibling":
		return optionalNode(n.NextNamedSibling()), nil
	case "prev_sibling":
		return optionalNode(n.PrevNamedSibling()), nil
	case "scope":
		return []query.Vertex{Scope{a.sem.ScopeOf(n)}}, nil
	case "symbol":
		if s, ok := a.sem.SymbolAt(n); ok {
			return []query.Vertex{Symbol{s}}, nil
		}
		return nil, nil
	case "reference":
		if r, ok := a.sem.ReferenceAt(n); ok {
			return []query.Vertex{Reference{r}}, nil
		}
		return nil, nil
	}
	return nil, unknownField(TypeNode, edge)
}

func optionalNode(n *sitter.Node) []query.Vertex {
	if n == nil {
		return nil
	}
	return []query.Vertex{Node{n}}
}

func children(n *sitter.Node, namedOnly bool, want kindSet) []query.Vertex {
	var out []query.Vertex
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if namedOnly && !c.IsNamed() {
			continue
		}
		if want.match(c.Type()) {
			out = append(out, Node{c})
		}
	}
	return out
}

// descendants lists the named nodes below n in pre-order.
func (a *Adapter) descendants(n *sitter.Node, includeSelf bool, want kindSet) []query.Vertex {
	var out []query.Vertex
	var walk func(c *sitter.Node)
	walk = func(c *sitter.Node) {
		if want.match(c.Type()) {
			out = append(out, Node{c})
		}
		for i := 0; i < int(c.NamedChildCount()); i++ {
			walk(c.NamedChild(i))
		}
	}
	if includeSelf {
		walk(n)
		return out
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i))
	}
	return out
}

// =============================================================================
// Symbol, Scope, Reference
// =============================================================================

func (a *Adapter) symbolProperty(s *semantic.Symbol, name string) (any, error) {
	switch name {
	case "name":
		return s.Name, nil
	case "kind":
		return s.Kind.String(), nil
	case "reference_count":
		return len(s.References), nil
	case "span_start":
		return s.Span.Start.Offset, nil
	case "span_end":
		return s.Span.End.Offset, nil
	}
	return nil, unknownField(TypeSymbol, name)
}

func (a *Adapter) symbolEdge(s *semantic.Symbol, edge string, _ map[string]any) ([]query.Vertex, error) {
	switch edge {
	case "declaration":
		return []query.Vertex{Node{s.Node}}, nil
	case "references":
		out := make([]query.Vertex, 0, len(s.References))
		for _, id := range s.References {
			out = append(out, Reference{a.sem.Reference(id)})
		}
		return out, nil
	case "scope":
		return []query.Vertex{Scope{a.sem.Scope(s.Scope)}}, nil
	}
	return nil, unknownField(TypeSymbol, edge)
}

func (a *Adapter) scopeProperty(s *semantic.Scope, name string) (any, error) {
	switch name {
	case "kind":
		return s.Kind.String(), nil
	case "symbol_count":
		return len(s.Symbols), nil
	case "span_start":
		return int(s.Node.StartByte()), nil
	case "span_end":
		return int(s.Node.EndByte()), nil
	}
	return nil, unknownField(TypeScope, name)
}

func (a *Adapter) scopeEdge(s *semantic.Scope, edge string, params map[string]any) ([]query.Vertex, error) {
	switch edge {
	case "parent":
		if p := a.sem.Scope(s.Parent); p != nil {
			return []query.Vertex{Scope{p}}, nil
		}
		return nil, nil
	case "children":
		out := make([]query.Vertex, 0, len(s.Children))
		for _, id := range s.Children {
			out = append(out, Scope{a.sem.Scope(id)})
		}
		return out, nil
	case "symbols":
		name, _ := params["name"].(string)
		var out []query.Vertex
		for _, id := range s.Symbols {
			sym := a.sem.Symbol(id)
			if name == "" || sym.Name == name {
				out = append(out, Symbol{sym})
			}
		}
		return out, nil
	case "references":
		var out []query.Vertex
		for _, r := range a.sem.References() {
			if r.Scope == s.ID {
				out = append(out, Reference{r})
			}
		}
		return out, nil
	case "node":
		return []query.Vertex{Node{s.Node}}, nil
	}
	return nil, unknownField(TypeScope, edge)
}

func (a *Adapter) referenceProperty(r *semantic.Reference, name string) (any, error) {
	switch name {
	case "name":
		return r.Name, nil
	case "is_read":
		return r.IsRead(), nil
	case "is_write":
		return r.IsWrite(), nil
	case "resolved":
		return r.IsResolved(), nil
	case "span_start":
		return r.Span.Start.Offset, nil
	case "span_end":
		return r.Span.End.Offset, nil
	}
	return nil, unknownField(TypeReference, name)
}

func (a *Adapter) referenceEdge(r *semantic.Reference, edge string) ([]query.Vertex, error) {
	switch edge {
	case "symbol":
		if s := a.sem.Symbol(r.Symbol); s != nil {
			return []query.Vertex{Symbol{s}}, nil
		}
		return nil, nil
	case "node":
		return []query.Vertex{Node{r.Node}}, nil
	case "scope":
		return []query.Vertex{Scope{a.sem.Scope(r.Scope)}}, nil
	}
	return nil, unknownField(TypeReference, edge)
}

// =============================================================================
// Filters
// =============================================================================

// kindSet is an optional kind filter; nil matches everything.
type kindSet map[string]bool

func kinds(params map[string]any) kindSet {
	v, ok := params["kind"]
	if !ok {
		return nil
	}
	set := make(kindSet)
	for _, k := range query.StringList(v) {
		set[k] = true
	}
	return set
}

func (s kindSet) match(kind string) bool {
	return s == nil || s[kind]
}
