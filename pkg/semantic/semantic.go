// Package semantic builds the scope, symbol and reference tables of a parsed
// JavaScript or TypeScript program.
//
// A Semantic value is an immutable snapshot: once Build returns, nothing
// mutates it, so a snapshot can be shared by any number of readers.
package semantic

import (
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/leapstack-labs/leaplint/pkg/parser"
	"github.com/leapstack-labs/leaplint/pkg/token"
)

// =============================================================================
// Identifiers
// =============================================================================

// ScopeID indexes Semantic.Scopes.
type ScopeID int

// SymbolID indexes Semantic.Symbols.
type SymbolID int

// ReferenceID indexes Semantic.References.
type ReferenceID int

// Sentinels for absent links.
const (
	NoScope  ScopeID  = -1
	NoSymbol SymbolID = -1
)

// =============================================================================
// Scopes
// =============================================================================

// ScopeKind classifies what introduced a scope.
type ScopeKind int

// Scope kinds.
const (
	ScopeProgram ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeClass
	ScopeCatch
	ScopeFor
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeProgram:
		return "program"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeClass:
		return "class"
	case ScopeCatch:
		return "catch"
	case ScopeFor:
		return "for"
	default:
		return "unknown"
	}
}

// Scope is a lexical scope.
type Scope struct {
	ID       ScopeID
	Kind     ScopeKind
	Parent   ScopeID
	Node     *sitter.Node
	Children []ScopeID
	// Symbols lists the bindings declared directly in this scope in
	// declaration order.
	Symbols []SymbolID

	bindings map[string]SymbolID
}

// Lookup finds a binding declared directly in this scope.
func (s *Scope) Lookup(name string) (SymbolID, bool) {
	id, ok := s.bindings[name]
	return id, ok
}

// =============================================================================
// Symbols
// =============================================================================

// SymbolKind classifies how a binding was declared.
type SymbolKind int

// Symbol kinds.
const (
	SymbolVar SymbolKind = iota
	SymbolLet
	SymbolConst
	SymbolFunction
	SymbolClass
	SymbolParameter
	SymbolImport
	SymbolCatchParameter
	SymbolEnum
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVar:
		return "var"
	case SymbolLet:
		return "let"
	case SymbolConst:
		return "const"
	case SymbolFunction:
		return "function"
	case SymbolClass:
		return "class"
	case SymbolParameter:
		return "parameter"
	case SymbolImport:
		return "import"
	case SymbolCatchParameter:
		return "catch_parameter"
	case SymbolEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// IsLexical reports whether the binding may not be redeclared in its scope.
func (k SymbolKind) IsLexical() bool {
	switch k {
	case SymbolLet, SymbolConst, SymbolClass, SymbolImport, SymbolEnum:
		return true
	default:
		return false
	}
}

// Merges reports whether a second declaration of kind other extends the
// binding instead of conflicting with it. TypeScript enums merge with enums.
func (k SymbolKind) Merges(other SymbolKind) bool {
	return k == SymbolEnum && other == SymbolEnum
}

// Symbol is a declared binding. Node is the binding identifier of the first
// declaration.
type Symbol struct {
	ID         SymbolID
	Name       string
	Kind       SymbolKind
	Scope      ScopeID
	Node       *sitter.Node
	Span       token.Span
	References []ReferenceID
}

// =============================================================================
// References
// =============================================================================

// ReferenceFlags describe how a reference uses its binding.
type ReferenceFlags uint8

// Reference flags.
const (
	FlagRead ReferenceFlags = 1 << iota
	FlagWrite
)

// Reference is a use of an identifier as a value.
type Reference struct {
	ID     ReferenceID
	Name   string
	Node   *sitter.Node
	Span   token.Span
	Scope  ScopeID
	Symbol SymbolID
	Flags  ReferenceFlags
}

// IsRead reports whether the reference reads its binding.
func (r *Reference) IsRead() bool { return r.Flags&FlagRead != 0 }

// IsWrite reports whether the reference assigns its binding.
func (r *Reference) IsWrite() bool { return r.Flags&FlagWrite != 0 }

// IsResolved reports whether the reference was bound to a declaration.
func (r *Reference) IsResolved() bool { return r.Symbol != NoSymbol }

// =============================================================================
// Errors
// =============================================================================

// Error is a semantic error such as a conflicting redeclaration.
type Error struct {
	Message string
	Span    token.Span
}

func (e *Error) Error() string {
	return fmt.Sprintf("semantic error at line %d, column %d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// =============================================================================
// Snapshot
// =============================================================================

// nodeKey identifies a syntax node independently of its Go wrapper.
type nodeKey struct {
	start, end uint32
	kind       string
}

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
}

// Semantic is the semantic snapshot of one program.
type Semantic struct {
	program    *parser.Program
	scopes     []*Scope
	symbols    []*Symbol
	references []*Reference

	scopeByNode  map[nodeKey]ScopeID
	symbolByNode map[nodeKey]SymbolID
	refByNode    map[nodeKey]ReferenceID
}

// Program returns the parsed program the snapshot describes.
func (s *Semantic) Program() *parser.Program { return s.program }

// RootScope returns the program scope.
func (s *Semantic) RootScope() *Scope { return s.scopes[0] }

// Scopes returns all scopes in creation order.
func (s *Semantic) Scopes() []*Scope { return s.scopes }

// Scope returns the scope with the given id.
func (s *Semantic) Scope(id ScopeID) *Scope {
	if id < 0 || int(id) >= len(s.scopes) {
		return nil
	}
	return s.scopes[id]
}

// Symbols returns all symbols in declaration order.
func (s *Semantic) Symbols() []*Symbol { return s.symbols }

// Symbol returns the symbol with the given id.
func (s *Semantic) Symbol(id SymbolID) *Symbol {
	if id < 0 || int(id) >= len(s.symbols) {
		return nil
	}
	return s.symbols[id]
}

// SymbolsNamed returns the symbols called name.
func (s *Semantic) SymbolsNamed(name string) []*Symbol {
	var out []*Symbol
	for _, sym := range s.symbols {
		if sym.Name == name {
			out = append(out, sym)
		}
	}
	return out
}

// References returns all references in source order.
func (s *Semantic) References() []*Reference { return s.references }

// Reference returns the reference with the given id.
func (s *Semantic) Reference(id ReferenceID) *Reference {
	if id < 0 || int(id) >= len(s.references) {
		return nil
	}
	return s.references[id]
}

// UnresolvedReferences returns the references with no visible declaration.
func (s *Semantic) UnresolvedReferences() []*Reference {
	var out []*Reference
	for _, ref := range s.references {
		if !ref.IsResolved() {
			out = append(out, ref)
		}
	}
	return out
}

// SymbolAt returns the symbol declared by the binding identifier n.
func (s *Semantic) SymbolAt(n *sitter.Node) (*Symbol, bool) {
	id, ok := s.symbolByNode[keyOf(n)]
	if !ok {
		return nil, false
	}
	return s.symbols[id], true
}

// ReferenceAt returns the reference made by the identifier n.
func (s *Semantic) ReferenceAt(n *sitter.Node) (*Reference, bool) {
	id, ok := s.refByNode[keyOf(n)]
	if !ok {
		return nil, false
	}
	return s.references[id], true
}

// ScopeOf returns the innermost scope enclosing n.
func (s *Semantic) ScopeOf(n *sitter.Node) *Scope {
	for cur := n; cur != nil; cur = cur.Parent() {
		if id, ok := s.scopeByNode[keyOf(cur)]; ok {
			return s.scopes[id]
		}
	}
	return s.RootScope()
}

// ScopeForNode returns the scope introduced by n, if any.
func (s *Semantic) ScopeForNode(n *sitter.Node) (*Scope, bool) {
	id, ok := s.scopeByNode[keyOf(n)]
	if !ok {
		return nil, false
	}
	return s.scopes[id], true
}

// Result is the outcome of Build.
type Result struct {
	Semantic *Semantic
	Errors   []*Error
}

// HasErrors reports whether Build found semantic errors.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// sortErrors orders errors by position.
func sortErrors(errs []*Error) {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Span.Start.Offset < errs[j].Span.Start.Offset
	})
}
