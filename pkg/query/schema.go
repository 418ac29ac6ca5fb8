package query

import (
	"fmt"
	"sort"
)

// ValueKind is the type of a property or edge parameter.
type ValueKind int

// Value kinds.
const (
	KindString ValueKind = iota
	KindInt
	KindBool
	KindStringList
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindBool:
		return "Boolean"
	case KindStringList:
		return "[String]"
	default:
		return "Unknown"
	}
}

// Property is a scalar field of a vertex type.
type Property struct {
	Name     string
	Kind     ValueKind
	Nullable bool
	Doc      string
}

// Param is a parameter accepted by an edge.
type Param struct {
	Name     string
	Kind     ValueKind
	Required bool
	Doc      string
}

// Edge links a vertex to zero or more vertices of the Target type.
type Edge struct {
	Name   string
	Target string
	Many   bool
	Params []Param
	Doc    string
}

// Param looks up an edge parameter by name.
func (e *Edge) Param(name string) (*Param, bool) {
	for i := range e.Params {
		if e.Params[i].Name == name {
			return &e.Params[i], true
		}
	}
	return nil, false
}

// VertexType describes the fields of one kind of vertex.
type VertexType struct {
	Name       string
	Doc        string
	Properties []Property
	Edges      []Edge
}

// Property looks up a property by name.
func (t *VertexType) Property(name string) (*Property, bool) {
	for i := range t.Properties {
		if t.Properties[i].Name == name {
			return &t.Properties[i], true
		}
	}
	return nil, false
}

// Edge looks up an edge by name.
func (t *VertexType) Edge(name string) (*Edge, bool) {
	for i := range t.Edges {
		if t.Edges[i].Name == name {
			return &t.Edges[i], true
		}
	}
	return nil, false
}

// FieldNames returns the names of all properties and edges, sorted.
func (t *VertexType) FieldNames() []string {
	names := make([]string, 0, len(t.Properties)+len(t.Edges))
	for _, p := range t.Properties {
		names = append(names, p.Name)
	}
	for _, e := range t.Edges {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Schema is the fixed set of vertex types an adapter exposes.
type Schema struct {
	root  string
	types map[string]*VertexType
	order []string
}

// NewSchema validates and builds a schema whose entry point is the vertex
// type named root.
func NewSchema(root string, types ...*VertexType) (*Schema, error) {
	s := &Schema{root: root, types: make(map[string]*VertexType, len(types))}
	for _, t := range types {
		if _, dup := s.types[t.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate vertex type %q", t.Name)
		}
		s.types[t.Name] = t
		s.order = append(s.order, t.Name)
	}
	if _, ok := s.types[root]; !ok {
		return nil, fmt.Errorf("schema: root type %q is not defined", root)
	}
	for _, t := range types {
		seen := make(map[string]bool)
		for _, name := range t.FieldNames() {
			if seen[name] {
				return nil, fmt.Errorf("schema: type %s defines field %q twice", t.Name, name)
			}
			seen[name] = true
		}
		for _, e := range t.Edges {
			if _, ok := s.types[e.Target]; !ok {
				return nil, fmt.Errorf("schema: edge %s.%s targets unknown type %q", t.Name, e.Name, e.Target)
			}
		}
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on an invalid definition.
func MustSchema(root string, types ...*VertexType) *Schema {
	s, err := NewSchema(root, types...)
	if err != nil {
		panic(err)
	}
	return s
}

// Root returns the name of the entry-point vertex type.
func (s *Schema) Root() string { return s.root }

// Type looks up a vertex type by name.
func (s *Schema) Type(name string) (*VertexType, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Types returns the vertex types in definition order.
func (s *Schema) Types() []*VertexType {
	out := make([]*VertexType, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.types[name])
	}
	return out
}
