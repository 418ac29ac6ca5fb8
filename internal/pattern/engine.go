// Package pattern runs rule queries written in the tree-sitter query
// language directly against a file's syntax tree.
//
// Each match becomes one row. The capture @span contributes span_start and
// span_end as unsigned byte offsets (lists when captured more than once in a
// match); @spans always contributes lists. Other captures add their source
// text as a field, except names starting with an underscore, which are
// reserved for predicates. Rule arguments are spliced into the pattern where
// $name appears, as quoted strings.
package pattern

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/leapstack-labs/leaplint/pkg/query"
)

// EngineName is the name rule definitions use to select this engine.
const EngineName = "treesitter"

// SyntaxSource is implemented by adapters that expose a tree-sitter tree.
type SyntaxSource interface {
	SyntaxRoot() *sitter.Node
	SourceText() []byte
	Grammar() *sitter.Language
}

// Engine implements query.Engine.
type Engine struct{}

var _ query.Engine = (*Engine)(nil)

// NewEngine creates a tree-sitter pattern engine.
func NewEngine() *Engine { return &Engine{} }

// Name implements query.Engine.
func (e *Engine) Name() string { return EngineName }

// Execute implements query.Engine.
func (e *Engine) Execute(ctx context.Context, adapter query.Adapter, src string, args query.Args, limits query.Limits) (query.Rows, error) {
	source, ok := adapter.(SyntaxSource)
	if !ok {
		return nil, query.Errorf(EngineName, "adapter %T does not expose a syntax tree", adapter)
	}

	text, err := Expand(src, args)
	if err != nil {
		return nil, err
	}
	q, err := sitter.NewQuery([]byte(text), source.Grammar())
	if err != nil {
		return nil, &query.Error{Engine: EngineName, Message: compileMessage(err), Err: err}
	}

	return func(yield func(query.Row, error) bool) {
		defer q.Close()

		runCtx := ctx
		if limits.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, limits.Timeout)
			defer cancel()
		}

		qc := sitter.NewQueryCursor()
		defer qc.Close()
		qc.Exec(q, source.SyntaxRoot())

		input := source.SourceText()
		for {
			if err := runCtx.Err(); err != nil {
				yield(nil, &query.Error{Engine: EngineName, Message: "query cancelled", Err: err})
				return
			}
			m, ok := qc.NextMatch()
			if !ok {
				return
			}
			m = qc.FilterPredicates(m, input)
			if len(m.Captures) == 0 {
				continue
			}
			if !yield(matchRow(q, m, input), nil) {
				return
			}
		}
	}, nil
}

func matchRow(q *sitter.Query, m *sitter.QueryMatch, input []byte) query.Row {
	row := make(query.Row)
	var starts, ends []any
	spanCaptures := 0
	forceList := false

	for _, c := range m.Captures {
		name := q.CaptureNameForId(c.Index)
		switch {
		case name == "span" || name == "spans":
			spanCaptures++
			forceList = forceList || name == "spans"
			starts = append(starts, uint64(c.Node.StartByte()))
			ends = append(ends, uint64(c.Node.EndByte()))
		case strings.HasPrefix(name, "_"):
		default:
			row[name] = c.Node.Content(input)
		}
	}

	switch {
	case spanCaptures == 1 && !forceList:
		row["span_start"] = starts[0]
		row["span_end"] = ends[0]
	case spanCaptures > 0:
		row["span_start"] = starts
		row["span_end"] = ends
	}
	return row
}

func compileMessage(err error) string {
	return "invalid pattern: " + err.Error()
}

var placeholder = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// Expand replaces $name placeholders in src with the quoted rule argument.
// List arguments expand to space separated quoted items.
func Expand(src string, args query.Args) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(src, func(m string) string {
		name := m[1:]
		v, ok := args[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return quote(v)
	})
	if len(missing) > 0 {
		return "", query.Errorf(EngineName, "unbound argument(s): %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func quote(v any) string {
	switch val := v.(type) {
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = quote(item)
		}
		return strings.Join(parts, " ")
	case []string:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = strconv.Quote(item)
		}
		return strings.Join(parts, " ")
	case string:
		return strconv.Quote(val)
	default:
		return strconv.Quote(fmt.Sprint(val))
	}
}
