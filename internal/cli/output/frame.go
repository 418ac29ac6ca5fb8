package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Frame renders the source lines from startLine to endLine (1-based,
// inclusive) with a line number gutter. When endCol is positive, a marker
// line underlines columns startCol..endCol of a single-line range.
func Frame(styles *Styles, src []byte, startLine, startCol, endLine, endCol int) string {
	lines := strings.Split(string(src), "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if endLine < startLine {
		return ""
	}

	width := len(strconv.Itoa(endLine))
	var b strings.Builder
	for n := startLine; n <= endLine; n++ {
		text := strings.TrimRight(lines[n-1], "\r")
		gutter := styles.Gutter.Render(fmt.Sprintf("%*d │", width, n))
		fmt.Fprintf(&b, "%s %s\n", gutter, text)
	}

	if startLine == endLine && endCol > startCol && startCol >= 1 {
		pad := strings.Repeat(" ", width+2+startCol)
		marker := styles.Marker.Render(strings.Repeat("^", endCol-startCol))
		b.WriteString(pad + marker + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Indent prefixes every line of s with n spaces.
func Indent(s string, n int) string {
	return lipgloss.NewStyle().PaddingLeft(n).Render(s)
}
