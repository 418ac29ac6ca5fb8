package semantic

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/leapstack-labs/leaplint/pkg/parser"
)

// skipped holds type-level nodes whose identifiers are not value references.
var skipped = map[string]bool{
	"type_annotation":           true,
	"type_arguments":            true,
	"type_parameters":           true,
	"interface_declaration":     true,
	"type_alias_declaration":    true,
	"ambient_declaration":       true,
	"comment":                   true,
	"property_signature":        true,
	"index_signature":           true,
	"abstract_method_signature": true,
}

var jsxNameParents = map[string]bool{
	"jsx_opening_element":      true,
	"jsx_closing_element":      true,
	"jsx_self_closing_element": true,
}

type builder struct {
	sem    *Semantic
	prog   *parser.Program
	errors []*Error
}

// Build computes the semantic snapshot of prog. Programs with syntax errors
// still produce a snapshot; the builder skips ERROR subtrees.
func Build(prog *parser.Program) *Result {
	b := &builder{
		prog: prog,
		sem: &Semantic{
			program:      prog,
			scopeByNode:  make(map[nodeKey]ScopeID),
			symbolByNode: make(map[nodeKey]SymbolID),
			refByNode:    make(map[nodeKey]ReferenceID),
		},
	}

	root := prog.Root()
	scope := b.newScope(ScopeProgram, NoScope, root)
	b.visitChildren(root, scope)
	b.resolve()

	sortErrors(b.errors)
	return &Result{Semantic: b.sem, Errors: b.errors}
}

// =============================================================================
// Tables
// =============================================================================

func (b *builder) newScope(kind ScopeKind, parent ScopeID, n *sitter.Node) ScopeID {
	id := ScopeID(len(b.sem.scopes))
	b.sem.scopes = append(b.sem.scopes, &Scope{
		ID:       id,
		Kind:     kind,
		Parent:   parent,
		Node:     n,
		bindings: make(map[string]SymbolID),
	})
	if parent != NoScope {
		p := b.sem.scopes[parent]
		p.Children = append(p.Children, id)
	}
	b.sem.scopeByNode[keyOf(n)] = id
	return id
}

// hoistTarget returns the nearest function or program scope.
func (b *builder) hoistTarget(scope ScopeID) ScopeID {
	for id := scope; id != NoScope; id = b.sem.scopes[id].Parent {
		switch b.sem.scopes[id].Kind {
		case ScopeFunction, ScopeProgram:
			return id
		}
	}
	return 0
}

func (b *builder) declare(n *sitter.Node, kind SymbolKind, scope ScopeID) {
	name := b.prog.Text(n)
	if kind == SymbolVar {
		scope = b.hoistTarget(scope)
	}
	s := b.sem.scopes[scope]

	if existing, ok := s.bindings[name]; ok {
		prev := b.sem.symbols[existing]
		if !prev.Kind.Merges(kind) && (prev.Kind.IsLexical() || kind.IsLexical()) {
			b.errorf(n, "Identifier `%s` has already been declared", name)
		}
		b.sem.symbolByNode[keyOf(n)] = existing
		return
	}

	id := SymbolID(len(b.sem.symbols))
	b.sem.symbols = append(b.sem.symbols, &Symbol{
		ID:    id,
		Name:  name,
		Kind:  kind,
		Scope: scope,
		Node:  n,
		Span:  b.prog.SpanOf(n),
	})
	s.bindings[name] = id
	s.Symbols = append(s.Symbols, id)
	b.sem.symbolByNode[keyOf(n)] = id
}

func (b *builder) reference(n *sitter.Node, scope ScopeID, flags ReferenceFlags) {
	id := ReferenceID(len(b.sem.references))
	b.sem.references = append(b.sem.references, &Reference{
		ID:     id,
		Name:   b.prog.Text(n),
		Node:   n,
		Span:   b.prog.SpanOf(n),
		Scope:  scope,
		Symbol: NoSymbol,
		Flags:  flags,
	})
	b.sem.refByNode[keyOf(n)] = id
}

// resolve binds every reference to the nearest visible declaration.
func (b *builder) resolve() {
	for _, ref := range b.sem.references {
		for id := ref.Scope; id != NoScope; id = b.sem.scopes[id].Parent {
			if sym, ok := b.sem.scopes[id].bindings[ref.Name]; ok {
				ref.Symbol = sym
				s := b.sem.symbols[sym]
				s.References = append(s.References, ref.ID)
				break
			}
		}
	}
}

func (b *builder) errorf(n *sitter.Node, format string, args ...any) {
	b.errors = append(b.errors, &Error{
		Message: fmt.Sprintf(format, args...),
		Span:    b.prog.SpanOf(n),
	})
}

// =============================================================================
// Traversal
// =============================================================================

func (b *builder) visitChildren(n *sitter.Node, scope ScopeID) {
	for i := 0; i < int(n.ChildCount()); i++ {
		b.visit(n.Child(i), scope)
	}
}

func (b *builder) visit(n *sitter.Node, scope ScopeID) {
	if n == nil || n.IsMissing() {
		return
	}
	kind := n.Type()
	if kind == "ERROR" || skipped[kind] {
		return
	}

	switch kind {
	case "identifier":
		if b.isJSXTagName(n) {
			return
		}
		b.reference(n, scope, FlagRead)

	case "shorthand_property_identifier":
		b.reference(n, scope, FlagRead)

	case "shorthand_property_identifier_pattern":
		// Destructuring assignment target outside of a declaration.
		b.reference(n, scope, FlagWrite)

	case "function_declaration", "generator_function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(name, SymbolFunction, scope)
		}
		b.visitFunction(n, scope, false)

	case "function_expression", "function", "generator_function":
		b.visitFunction(n, scope, true)

	case "arrow_function":
		b.visitArrow(n, scope)

	case "method_definition":
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "computed_property_name" {
			b.visit(name, scope)
		}
		b.visitFunction(n, scope, false)

	case "class_declaration", "abstract_class_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(name, SymbolClass, scope)
		}
		b.visitClass(n, scope, false)

	case "class":
		b.visitClass(n, scope, true)

	case "enum_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(name, SymbolEnum, scope)
		}

	case "statement_block", "switch_body":
		b.visitChildren(n, b.newScope(ScopeBlock, scope, n))

	case "for_statement":
		b.visitChildren(n, b.newScope(ScopeFor, scope, n))

	case "for_in_statement":
		b.visitForIn(n, scope)

	case "catch_clause":
		inner := b.newScope(ScopeCatch, scope, n)
		if param := n.ChildByFieldName("parameter"); param != nil {
			b.declarePattern(param, SymbolCatchParameter, inner)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.visitChildren(body, inner)
		}

	case "variable_declaration":
		b.visitDeclarators(n, SymbolVar, scope)

	case "lexical_declaration":
		b.visitDeclarators(n, lexicalKind(n), scope)

	case "import_statement":
		b.visitImport(n, scope)

	case "export_specifier":
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			b.reference(name, scope, FlagRead)
		}

	case "assignment_expression":
		b.visitTarget(n.ChildByFieldName("left"), scope, FlagWrite)
		b.visit(n.ChildByFieldName("right"), scope)

	case "augmented_assignment_expression":
		b.visitTarget(n.ChildByFieldName("left"), scope, FlagRead|FlagWrite)
		b.visit(n.ChildByFieldName("right"), scope)

	case "update_expression":
		b.visitTarget(n.ChildByFieldName("argument"), scope, FlagRead|FlagWrite)

	default:
		b.visitChildren(n, scope)
	}
}

func (b *builder) isJSXTagName(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil || !jsxNameParents[parent.Type()] {
		return false
	}
	r, _ := utf8.DecodeRuneInString(b.prog.Text(n))
	return unicode.IsLower(r)
}

// visitFunction handles every function-like node. Named function
// expressions bind their own name inside the function scope.
func (b *builder) visitFunction(n *sitter.Node, scope ScopeID, bindsOwnName bool) {
	inner := b.newScope(ScopeFunction, scope, n)
	if bindsOwnName {
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(name, SymbolFunction, inner)
		}
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		b.declareParameters(params, inner)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		// The body block shares the function scope so that parameters and
		// lexical declarations of the body conflict.
		b.visitChildren(body, inner)
	}
}

func (b *builder) visitArrow(n *sitter.Node, scope ScopeID) {
	inner := b.newScope(ScopeFunction, scope, n)
	if param := n.ChildByFieldName("parameter"); param != nil {
		b.declare(param, SymbolParameter, inner)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		b.declareParameters(params, inner)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	if body.Type() == "statement_block" {
		b.visitChildren(body, inner)
		return
	}
	b.visit(body, inner)
}

func (b *builder) visitClass(n *sitter.Node, scope ScopeID, bindsOwnName bool) {
	inner := b.newScope(ScopeClass, scope, n)
	if bindsOwnName {
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(name, SymbolClass, inner)
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "class_heritage":
			b.visitChildren(child, scope)
		case "class_body":
			b.visitChildren(child, inner)
		}
	}
}

func (b *builder) visitForIn(n *sitter.Node, scope ScopeID) {
	inner := b.newScope(ScopeFor, scope, n)
	left := n.ChildByFieldName("left")
	kind, declared := forInKind(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if left != nil && keyOf(child) == keyOf(left) {
			if declared {
				b.declarePattern(child, kind, inner)
			} else {
				b.visitTarget(child, inner, FlagWrite)
			}
			continue
		}
		b.visit(child, inner)
	}
}

func (b *builder) visitDeclarators(n *sitter.Node, kind SymbolKind, scope ScopeID) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		decl := n.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			b.visit(decl, scope)
			continue
		}
		name := decl.ChildByFieldName("name")
		value := decl.ChildByFieldName("value")
		if name != nil {
			b.declarePattern(name, kind, scope)
		}
		if value != nil {
			b.visit(value, scope)
		} else if kind == SymbolConst && !inForInHead(n) {
			b.errorf(decl, "Missing initializer in const declaration")
		}
	}
}

func (b *builder) visitImport(n *sitter.Node, scope ScopeID) {
	var walk func(c *sitter.Node)
	walk = func(c *sitter.Node) {
		switch c.Type() {
		case "identifier":
			b.declare(c, SymbolImport, scope)
		case "import_specifier":
			if alias := c.ChildByFieldName("alias"); alias != nil {
				b.declare(alias, SymbolImport, scope)
			} else if name := c.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
				b.declare(name, SymbolImport, scope)
			}
		case "import_clause", "named_imports", "namespace_import":
			for i := 0; i < int(c.NamedChildCount()); i++ {
				walk(c.NamedChild(i))
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i))
	}
}

// =============================================================================
// Patterns
// =============================================================================

func (b *builder) declareParameters(params *sitter.Node, scope ScopeID) {
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "required_parameter", "optional_parameter":
			if pattern := p.ChildByFieldName("pattern"); pattern != nil {
				b.declarePattern(pattern, SymbolParameter, scope)
			}
			if value := p.ChildByFieldName("value"); value != nil {
				b.visit(value, scope)
			}
		default:
			b.declarePattern(p, SymbolParameter, scope)
		}
	}
}

// declarePattern declares every binding identifier of a destructuring
// pattern and visits default values as expressions.
func (b *builder) declarePattern(n *sitter.Node, kind SymbolKind, scope ScopeID) {
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		b.declare(n, kind, scope)
	case "object_pattern", "array_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.declarePattern(n.NamedChild(i), kind, scope)
		}
	case "pair_pattern":
		if key := n.ChildByFieldName("key"); key != nil && key.Type() == "computed_property_name" {
			b.visit(key, scope)
		}
		if value := n.ChildByFieldName("value"); value != nil {
			b.declarePattern(value, kind, scope)
		}
	case "assignment_pattern", "object_assignment_pattern":
		if left := n.ChildByFieldName("left"); left != nil {
			b.declarePattern(left, kind, scope)
		}
		if right := n.ChildByFieldName("right"); right != nil {
			b.visit(right, scope)
		}
	case "rest_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.declarePattern(n.NamedChild(i), kind, scope)
		}
	case "comment", "ERROR":
	default:
		b.visit(n, scope)
	}
}

// visitTarget records the identifiers assigned by an assignment target.
func (b *builder) visitTarget(n *sitter.Node, scope ScopeID, flags ReferenceFlags) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		b.reference(n, scope, flags)
	case "parenthesized_expression", "object_pattern", "array_pattern", "rest_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.visitTarget(n.NamedChild(i), scope, flags)
		}
	case "pair_pattern":
		if key := n.ChildByFieldName("key"); key != nil && key.Type() == "computed_property_name" {
			b.visit(key, scope)
		}
		b.visitTarget(n.ChildByFieldName("value"), scope, flags)
	case "assignment_pattern", "object_assignment_pattern":
		b.visitTarget(n.ChildByFieldName("left"), scope, flags)
		b.visit(n.ChildByFieldName("right"), scope)
	default:
		b.visit(n, scope)
	}
}

// =============================================================================
// Declaration kinds
// =============================================================================

func lexicalKind(n *sitter.Node) SymbolKind {
	kind := n.ChildByFieldName("kind")
	if kind == nil && n.ChildCount() > 0 {
		kind = n.Child(0)
	}
	if kind != nil && kind.Type() == "const" {
		return SymbolConst
	}
	return SymbolLet
}

// forInKind returns the declaration keyword of a for-in/for-of head.
func forInKind(n *sitter.Node) (SymbolKind, bool) {
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "var":
			return SymbolVar, true
		case "let":
			return SymbolLet, true
		case "const":
			return SymbolConst, true
		}
	}
	return SymbolVar, false
}

func inForInHead(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "for_in_statement"
}
