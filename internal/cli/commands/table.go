package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
)

// renderTable writes rows as a table in the renderer's mode. Markdown output
// uses pipe tables; text output uses box drawing.
func renderTable(r *output.Renderer, header []string, rows [][]any) {
	t := newTable(r.Writer(), header, rows)
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
		r.Println("")
		return
	}
	t.Render()
}

func newTable(w io.Writer, header []string, rows [][]any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, col := range header {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	return t
}

// formatValue renders a query value for a table cell.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		if len(val) > 60 {
			return val[:57] + "..."
		}
		return strings.ReplaceAll(val, "\n", `\n`)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}
