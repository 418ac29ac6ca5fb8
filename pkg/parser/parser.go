// Package parser parses JavaScript and TypeScript sources into concrete
// syntax trees using tree-sitter grammars.
package parser

import (
	"context"
	"fmt"
	"path"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/leapstack-labs/leaplint/pkg/token"
)

// Program is a parsed source file. The tree is owned by the program and
// released by Close.
type Program struct {
	Path       string
	Source     []byte
	SourceType SourceType

	tree  *sitter.Tree
	lines *token.LineIndex
}

// Root returns the root node of the syntax tree.
func (p *Program) Root() *sitter.Node {
	return p.tree.RootNode()
}

// Grammar returns the tree-sitter language the program was parsed with.
func (p *Program) Grammar() *sitter.Language {
	return p.SourceType.grammar()
}

// Text returns the source text covered by n.
func (p *Program) Text(n *sitter.Node) string {
	return n.Content(p.Source)
}

// Lines returns the line index of the source.
func (p *Program) Lines() *token.LineIndex {
	return p.lines
}

// SpanOf resolves the byte range of n.
func (p *Program) SpanOf(n *sitter.Node) token.Span {
	return p.lines.Span(int(n.StartByte()), int(n.EndByte()))
}

// Close releases the syntax tree.
func (p *Program) Close() {
	if p.tree != nil {
		p.tree.Close()
		p.tree = nil
	}
}

// SyntaxError describes a region the grammar could not parse.
type SyntaxError struct {
	Message string
	Span    token.Span
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// Result is the outcome of parsing one file. Program is always set; Errors
// lists the recovered syntax errors in source order.
type Result struct {
	Program *Program
	Errors  []*SyntaxError
}

// HasErrors reports whether parsing recovered from any syntax error.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Parse parses source as the file called name. Syntax errors are reported in
// the result; the returned error is reserved for unsupported file types and
// cancellation.
func Parse(ctx context.Context, name string, source []byte) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	st, err := SourceTypeFromPath(path.Base(name))
	if err != nil {
		return nil, err
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(st.grammar())

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	prog := &Program{
		Path:       name,
		Source:     source,
		SourceType: st,
		tree:       tree,
		lines:      token.NewLineIndex(source),
	}
	return &Result{Program: prog, Errors: collectErrors(prog)}, nil
}

// collectErrors walks the subtrees flagged with errors and reports the
// outermost ERROR nodes and every MISSING node.
func collectErrors(prog *Program) []*SyntaxError {
	root := prog.Root()
	if !root.HasError() {
		return nil
	}

	var errs []*SyntaxError
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			errs = append(errs, &SyntaxError{
				Message: fmt.Sprintf("expected %q", n.Type()),
				Span:    prog.SpanOf(n),
			})
			return
		case n.Type() == "ERROR":
			errs = append(errs, &SyntaxError{
				Message: unexpectedMessage(prog, n),
				Span:    prog.SpanOf(n),
			})
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.HasError() || child.IsMissing() {
				walk(child)
			}
		}
	}
	walk(root)
	return errs
}

func unexpectedMessage(prog *Program, n *sitter.Node) string {
	text := prog.Text(n)
	if text == "" {
		return "unexpected token"
	}
	const maxLen = 24
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return fmt.Sprintf("unexpected %q", text)
}
