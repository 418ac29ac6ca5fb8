package starlark

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/leaplint/pkg/query"
)

// Vertex exposes a graph vertex to Starlark. Properties are attributes and
// edges are methods:
//
//	for n in file.nodes(kind = "debugger_statement"):
//	    emit(span_start = n.span_start, span_end = n.span_end)
type Vertex struct {
	adapter query.Adapter
	v       query.Vertex
}

var (
	_ starlark.HasAttrs   = (*Vertex)(nil)
	_ starlark.Comparable = (*Vertex)(nil)
)

// NewVertex wraps v for use in Starlark.
func NewVertex(adapter query.Adapter, v query.Vertex) *Vertex {
	return &Vertex{adapter: adapter, v: v}
}

func (x *Vertex) String() string {
	if k, ok := x.v.(query.Keyed); ok {
		return fmt.Sprintf("<%s %v>", x.v.TypeName(), k.Key())
	}
	return fmt.Sprintf("<%s>", x.v.TypeName())
}

// Type implements starlark.Value.
func (x *Vertex) Type() string { return x.v.TypeName() }

// Freeze implements starlark.Value. Vertices are immutable.
func (x *Vertex) Freeze() {}

// Truth implements starlark.Value.
func (x *Vertex) Truth() starlark.Bool { return starlark.True }

// Hash implements starlark.Value so vertices can be set members and dict keys.
func (x *Vertex) Hash() (uint32, error) {
	k, ok := x.v.(query.Keyed)
	if !ok {
		return 0, fmt.Errorf("unhashable type: %s", x.Type())
	}
	return starlark.String(fmt.Sprintf("%s/%v", x.v.TypeName(), k.Key())).Hash()
}

// CompareSameType implements starlark.Comparable for == and !=.
func (x *Vertex) CompareSameType(op syntax.Token, y starlark.Value, _ int) (bool, error) {
	other := y.(*Vertex)
	switch op {
	case syntax.EQL:
		return query.SameVertex(x.v, other.v), nil
	case syntax.NEQ:
		return !query.SameVertex(x.v, other.v), nil
	default:
		return false, fmt.Errorf("%s %s %s not implemented", x.Type(), op, y.Type())
	}
}

// Attr implements starlark.HasAttrs.
func (x *Vertex) Attr(name string) (starlark.Value, error) {
	prop, edge, err := query.LookupField(x.adapter, x.v, name)
	if err != nil {
		return nil, starlark.NoSuchAttrError(err.Error())
	}
	if prop != nil {
		val, err := x.adapter.Property(x.v, name)
		if err != nil {
			return nil, err
		}
		return GoToStarlark(val)
	}
	return x.edgeMethod(edge), nil
}

// AttrNames implements starlark.HasAttrs.
func (x *Vertex) AttrNames() []string {
	t, ok := x.adapter.Schema().Type(x.v.TypeName())
	if !ok {
		return nil
	}
	return t.FieldNames()
}

// edgeMethod returns a bound builtin that follows edge. Parameters may be
// passed by keyword, or positionally in schema order.
func (x *Vertex) edgeMethod(edge *query.Edge) *starlark.Builtin {
	return starlark.NewBuiltin(edge.Name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) > len(edge.Params) {
			return nil, fmt.Errorf("%s: got %d positional arguments, want at most %d", b.Name(), len(args), len(edge.Params))
		}
		params := make(map[string]any, len(args)+len(kwargs))
		for i, arg := range args {
			v, err := ToGo(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", b.Name(), err)
			}
			params[edge.Params[i].Name] = v
		}
		for _, kv := range kwargs {
			key := string(kv[0].(starlark.String))
			if _, dup := params[key]; dup {
				return nil, fmt.Errorf("%s: got multiple values for parameter %q", b.Name(), key)
			}
			v, err := ToGo(kv[1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", b.Name(), err)
			}
			params[key] = v
		}

		neighbors, err := query.ResolveNeighbors(x.adapter, x.v, edge.Name, params)
		if err != nil {
			return nil, err
		}
		if !edge.Many {
			if len(neighbors) == 0 {
				return starlark.None, nil
			}
			return NewVertex(x.adapter, neighbors[0]), nil
		}
		elems := make([]starlark.Value, len(neighbors))
		for i, n := range neighbors {
			elems[i] = NewVertex(x.adapter, n)
		}
		return starlark.NewList(elems), nil
	}).BindReceiver(x)
}
