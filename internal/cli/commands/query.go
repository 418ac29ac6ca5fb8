package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/pkg/adapter"
	"github.com/leapstack-labs/leaplint/pkg/parser"
	"github.com/leapstack-labs/leaplint/pkg/plugin"
	"github.com/leapstack-labs/leaplint/pkg/query"
	"github.com/leapstack-labs/leaplint/pkg/semantic"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Engine string
	Args   map[string]string
	Expr   string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}
	cmd := &cobra.Command{
		Use:   "query <source-file> [query-file]",
		Short: "Run an ad-hoc query against one source file",
		Long: `Run a query against a source file and print the rows it produces.

The query is read from query-file, from --expr, or from stdin when the
query file is "-". Use this to develop a rule's query before adding it to
a rule definition.`,
		Example: `  # Run a Starlark query file
  leaplint query src/index.ts unused.star

  # Run a tree-sitter pattern inline
  leaplint query src/app.js --engine treesitter -e '(debugger_statement) @span'

  # Pass rule arguments
  leaplint query src/app.js globals.star --arg names=alert,confirm`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Engine, "engine", "", "Query engine (default: starlark)")
	cmd.Flags().StringToStringVar(&opts.Args, "arg", nil, "Query argument name=value; commas make a list")
	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "Query text")
	return cmd
}

func readQuery(cmd *cobra.Command, args []string, opts *QueryOptions) (string, error) {
	switch {
	case opts.Expr != "" && len(args) > 1:
		return "", fmt.Errorf("use either --expr or a query file, not both")
	case opts.Expr != "":
		return opts.Expr, nil
	case len(args) < 2:
		return "", fmt.Errorf("a query file or --expr is required")
	case args[1] == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read query from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(args[1])
		if err != nil {
			return "", fmt.Errorf("failed to read query: %w", err)
		}
		return string(data), nil
	}
}

// queryArgs converts flag values to rule arguments. Values containing commas
// become lists.
func queryArgs(raw map[string]string) query.Args {
	args := make(query.Args, len(raw))
	for k, v := range raw {
		if strings.Contains(v, ",") {
			parts := strings.Split(v, ",")
			list := make([]any, len(parts))
			for i, p := range parts {
				list[i] = strings.TrimSpace(p)
			}
			args[k] = list
			continue
		}
		args[k] = v
	}
	return args
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer
	ctx := cmd.Context()

	text, err := readQuery(cmd, args, opts)
	if err != nil {
		return err
	}

	engines := plugin.DefaultEngines(cc.Logger)
	engine, ok := engines.Lookup(opts.Engine)
	if !ok {
		return fmt.Errorf("%w %q (available: %s)", plugin.ErrUnknownEngine, opts.Engine, strings.Join(engines.Names(), ", "))
	}

	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	parsed, err := parser.Parse(ctx, path, src)
	if err != nil {
		return err
	}
	defer parsed.Program.Close()
	for _, se := range parsed.Errors {
		r.Warning(se.Error())
	}

	built := semantic.Build(parsed.Program)
	for _, se := range built.Errors {
		r.Warning(se.Error())
	}
	a := adapter.New(built.Semantic, strings.Split(relPath(cc.Cfg.ProjectRoot, path), "/"))

	rows, err := engine.Execute(ctx, a, text, queryArgs(opts.Args), cc.Cfg.Query.Limits())
	if err != nil {
		return err
	}
	var results []query.Row
	for row, err := range rows {
		if err != nil {
			return err
		}
		results = append(results, row)
		if limit := cc.Cfg.Query.MaxRows; limit > 0 && len(results) > limit {
			return query.Errorf(engine.Name(), "query produced more than %d rows", limit)
		}
	}
	return renderRows(r, results)
}

func renderRows(r *output.Renderer, rows []query.Row) error {
	if r.EffectiveMode() == output.ModeJSON {
		if rows == nil {
			rows = []query.Row{}
		}
		return r.JSON(rows)
	}
	if len(rows) == 0 {
		r.Println("(0 rows)")
		return nil
	}

	// Columns in order of first appearance, span fields first.
	var cols []string
	seen := map[string]bool{}
	for _, key := range []string{plugin.FieldSpanStart, plugin.FieldSpanEnd} {
		for _, row := range rows {
			if _, ok := row[key]; ok && !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
		}
	}
	for _, row := range rows {
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}

	table := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(cols))
		for j, c := range cols {
			cells[j] = formatValue(row[c])
		}
		table[i] = cells
	}
	renderTable(r, cols, table)
	r.Printf("(%d rows)\n", len(rows))
	return nil
}
