package query

import (
	"fmt"
	"sort"
	"strings"
)

// Vertex is a value an adapter hands out. TypeName names its schema type.
type Vertex interface {
	TypeName() string
}

// Keyed vertices expose a comparable identity. Two vertices with equal keys
// denote the same graph element.
type Keyed interface {
	Key() any
}

// SameVertex reports whether a and b denote the same graph element.
func SameVertex(a, b Vertex) bool {
	if a.TypeName() != b.TypeName() {
		return false
	}
	ka, okA := a.(Keyed)
	kb, okB := b.(Keyed)
	if okA && okB {
		return ka.Key() == kb.Key()
	}
	return a == b
}

// Adapter resolves the properties and edges of the vertices of one schema.
// Engines do not call an adapter directly; they go through ResolveProperty
// and ResolveNeighbors, which check the request against the schema first.
type Adapter interface {
	Schema() *Schema
	Root() Vertex
	Property(v Vertex, name string) (any, error)
	Neighbors(v Vertex, edge string, params map[string]any) ([]Vertex, error)
}

// FieldError reports a field that does not exist on a vertex type.
type FieldError struct {
	Type  string
	Field string
	Known []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("type %s has no field %q (known fields: %s)", e.Type, e.Field, strings.Join(e.Known, ", "))
}

// ParamError reports an invalid edge parameter.
type ParamError struct {
	Type    string
	Edge    string
	Message string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Type, e.Edge, e.Message)
}

func vertexType(a Adapter, v Vertex) (*VertexType, error) {
	t, ok := a.Schema().Type(v.TypeName())
	if !ok {
		return nil, fmt.Errorf("vertex type %q is not part of the schema", v.TypeName())
	}
	return t, nil
}

// LookupField reports whether name is a property or an edge of v's type.
// It returns a FieldError for unknown names.
func LookupField(a Adapter, v Vertex, name string) (*Property, *Edge, error) {
	t, err := vertexType(a, v)
	if err != nil {
		return nil, nil, err
	}
	if p, ok := t.Property(name); ok {
		return p, nil, nil
	}
	if e, ok := t.Edge(name); ok {
		return nil, e, nil
	}
	return nil, nil, &FieldError{Type: t.Name, Field: name, Known: t.FieldNames()}
}

// ResolveProperty resolves a schema-checked property of v.
func ResolveProperty(a Adapter, v Vertex, name string) (any, error) {
	p, _, err := LookupField(a, v, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%s.%s is an edge, not a property", v.TypeName(), name)
	}
	return a.Property(v, name)
}

// ResolveNeighbors resolves a schema-checked edge of v.
func ResolveNeighbors(a Adapter, v Vertex, name string, params map[string]any) ([]Vertex, error) {
	_, e, err := LookupField(a, v, name)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%s.%s is a property, not an edge", v.TypeName(), name)
	}
	if err := checkParams(v.TypeName(), e, params); err != nil {
		return nil, err
	}
	return a.Neighbors(v, name, params)
}

func checkParams(typeName string, e *Edge, params map[string]any) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p, ok := e.Param(name)
		if !ok {
			return &ParamError{Type: typeName, Edge: e.Name, Message: fmt.Sprintf("unknown parameter %q", name)}
		}
		if !kindMatches(p.Kind, params[name]) {
			return &ParamError{Type: typeName, Edge: e.Name, Message: fmt.Sprintf("parameter %q must be %s, got %T", name, p.Kind, params[name])}
		}
	}
	for _, p := range e.Params {
		if _, ok := params[p.Name]; p.Required && !ok {
			return &ParamError{Type: typeName, Edge: e.Name, Message: fmt.Sprintf("missing required parameter %q", p.Name)}
		}
	}
	return nil
}

func kindMatches(kind ValueKind, v any) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindInt:
		_, ok := AsInt64(v)
		return ok
	case KindStringList:
		switch list := v.(type) {
		case string, []string:
			return true
		case []any:
			for _, item := range list {
				if _, ok := item.(string); !ok {
					return false
				}
			}
			return true
		}
	}
	return false
}

// AsInt64 converts any Go integer type to int64.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// StringList converts a KindStringList parameter value to []string.
func StringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{list}
	default:
		return nil
	}
}
