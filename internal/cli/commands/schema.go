package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/pkg/adapter"
	"github.com/leapstack-labs/leaplint/pkg/query"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [type]",
		Short: "Show the graph schema available to rule queries",
		Long: `Show the vertex types rule queries can navigate.

Properties are read as attributes (node.span_start); edges are called as
methods (file.nodes(kind = "debugger_statement")). Every query starts at the
File vertex.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			types := adapter.Schema.Types()
			if len(args) > 0 {
				vt, ok := adapter.Schema.Type(args[0])
				if !ok {
					return fmt.Errorf("unknown vertex type %q", args[0])
				}
				types = []*query.VertexType{vt}
			}
			return renderSchema(cc.Renderer, types)
		},
	}
}

type schemaField struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Type   string   `json:"type"`
	Params []string `json:"params,omitempty"`
	Doc    string   `json:"doc,omitempty"`
}

type schemaType struct {
	Name   string        `json:"name"`
	Doc    string        `json:"doc,omitempty"`
	Fields []schemaField `json:"fields"`
}

func describeType(vt *query.VertexType) schemaType {
	st := schemaType{Name: vt.Name, Doc: vt.Doc}
	for _, p := range vt.Properties {
		typ := p.Kind.String()
		if p.Nullable {
			typ += "?"
		}
		st.Fields = append(st.Fields, schemaField{Name: p.Name, Kind: "property", Type: typ, Doc: p.Doc})
	}
	for _, e := range vt.Edges {
		typ := e.Target
		if e.Many {
			typ = "[" + typ + "]"
		}
		f := schemaField{Name: e.Name, Kind: "edge", Type: typ, Doc: e.Doc}
		for _, p := range e.Params {
			param := p.Name + ": " + p.Kind.String()
			if p.Required {
				param += "!"
			}
			f.Params = append(f.Params, param)
		}
		st.Fields = append(st.Fields, f)
	}
	return st
}

func renderSchema(r *output.Renderer, types []*query.VertexType) error {
	described := make([]schemaType, len(types))
	for i, vt := range types {
		described[i] = describeType(vt)
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(described)
	}

	for _, st := range described {
		r.Header(2, st.Name)
		if st.Doc != "" {
			r.Println(st.Doc)
			r.Println("")
		}
		rows := make([][]any, len(st.Fields))
		for i, f := range st.Fields {
			name := f.Name
			if f.Kind == "edge" {
				name += "(" + strings.Join(f.Params, ", ") + ")"
			}
			rows[i] = []any{name, f.Type, f.Doc}
		}
		renderTable(r, []string{"Field", "Type", "Description"}, rows)
		r.Println("")
	}
	return nil
}
