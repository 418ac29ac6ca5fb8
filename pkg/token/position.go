// Package token provides source positions and byte-offset spans shared by
// the parser, the semantic model and diagnostics.
package token

import (
	"fmt"
	"sort"
)

// Position represents a location in the source code.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number, counted in bytes
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// IsValid returns true if both start and end positions are valid.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid()
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// LineIndex maps byte offsets of a source text to line and column positions.
type LineIndex struct {
	// lineStarts holds the offset of the first byte of every line.
	lineStarts []int
	size       int
}

// NewLineIndex builds an index over src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{lineStarts: starts, size: len(src)}
}

// LineCount returns the number of lines in the indexed text.
func (li *LineIndex) LineCount() int {
	return len(li.lineStarts)
}

// Position resolves a byte offset. Offsets past the end clamp to the end of
// the text.
func (li *LineIndex) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > li.size {
		offset = li.size
	}
	line := sort.Search(len(li.lineStarts), func(i int) bool {
		return li.lineStarts[i] > offset
	}) - 1
	return Position{
		Line:   line + 1,
		Column: offset - li.lineStarts[line] + 1,
		Offset: offset,
	}
}

// Span resolves a pair of byte offsets.
func (li *LineIndex) Span(start, end int) Span {
	return Span{Start: li.Position(start), End: li.Position(end)}
}

// LineBounds returns the byte range of the given 1-based line, excluding
// its line terminator.
func (li *LineIndex) LineBounds(line int) (start, end int, ok bool) {
	if line < 1 || line > len(li.lineStarts) {
		return 0, 0, false
	}
	start = li.lineStarts[line-1]
	if line < len(li.lineStarts) {
		end = li.lineStarts[line] - 1
	} else {
		end = li.size
	}
	return start, end, true
}
