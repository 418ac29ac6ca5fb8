package plugin

import (
	"fmt"
	"math"

	"github.com/leapstack-labs/leaplint/pkg/query"
)

// Row fields every rule query must produce.
const (
	FieldSpanStart = "span_start"
	FieldSpanEnd   = "span_end"
)

// SpanResult is the decoded location of one result row: either Single or
// Multiple.
type SpanResult interface {
	// Len returns the number of byte ranges.
	Len() int
	spanResult()
}

// Single is one byte range.
type Single struct {
	Start int
	End   int
}

// Multiple is a list of byte ranges aligned by index.
// len(Starts) == len(Ends) > 0.
type Multiple struct {
	Starts []int
	Ends   []int
}

func (Single) spanResult()   {}
func (Multiple) spanResult() {}

// Len implements SpanResult.
func (Single) Len() int { return 1 }

// Len implements SpanResult.
func (m Multiple) Len() int { return len(m.Starts) }

// DecodeSpan reads the span fields of row. Both fields must be integers, or
// both must be integer lists of the same non-zero length. Integers may have
// any signed or unsigned Go type; offsets must be non-negative and no range
// may end before it starts. Any other shape is a *SpanShapeError.
func DecodeSpan(row query.Row) (SpanResult, error) {
	rawStart, hasStart := row[FieldSpanStart]
	rawEnd, hasEnd := row[FieldSpanEnd]
	fail := func(reason string) error {
		return &SpanShapeError{
			Start:  describeShape(rawStart, hasStart),
			End:    describeShape(rawEnd, hasEnd),
			Reason: reason,
		}
	}
	if !hasStart || !hasEnd {
		return nil, fail("")
	}

	if start, ok := toOffset(rawStart); ok {
		end, ok := toOffset(rawEnd)
		if !ok {
			return nil, fail("")
		}
		if start > end {
			return nil, fail("range ends before it starts")
		}
		return Single{Start: start, End: end}, nil
	}

	starts, ok := toOffsets(rawStart)
	if !ok {
		return nil, fail("")
	}
	ends, ok := toOffsets(rawEnd)
	if !ok {
		return nil, fail("")
	}
	if len(starts) == 0 || len(starts) != len(ends) {
		return nil, fail("")
	}
	for i := range starts {
		if starts[i] > ends[i] {
			return nil, fail(fmt.Sprintf("range %d ends before it starts", i))
		}
	}
	return Multiple{Starts: starts, Ends: ends}, nil
}

// toOffset converts an integer value of any width to a byte offset.
func toOffset(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return signed(int64(n))
	case int8:
		return signed(int64(n))
	case int16:
		return signed(int64(n))
	case int32:
		return signed(int64(n))
	case int64:
		return signed(n)
	case uint:
		return unsigned(uint64(n))
	case uint8:
		return unsigned(uint64(n))
	case uint16:
		return unsigned(uint64(n))
	case uint32:
		return unsigned(uint64(n))
	case uint64:
		return unsigned(n)
	default:
		return 0, false
	}
}

func signed(n int64) (int, bool) {
	if n < 0 || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func unsigned(n uint64) (int, bool) {
	if n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func toOffsets(v any) ([]int, bool) {
	switch list := v.(type) {
	case []any:
		return convertAll(list)
	case []int:
		return convertAll(list)
	case []int64:
		return convertAll(list)
	case []uint64:
		return convertAll(list)
	default:
		return nil, false
	}
}

func convertAll[T any](list []T) ([]int, bool) {
	out := make([]int, len(list))
	for i, item := range list {
		n, ok := toOffset(item)
		if !ok {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// describeShape renders the runtime shape of a span field for errors.
func describeShape(v any, present bool) string {
	if !present {
		return "missing"
	}
	if v == nil {
		return "null"
	}
	if _, ok := toOffset(v); ok {
		return "integer"
	}
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("integer %v (not a valid offset)", v)
	}

	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []int, []int64, []uint64:
		offsets, ok := toOffsets(list)
		if ok {
			return fmt.Sprintf("list of %d integers", len(offsets))
		}
		return fmt.Sprintf("list containing invalid offsets %v", list)
	default:
		return fmt.Sprintf("%T", v)
	}

	if len(items) == 0 {
		return "empty list"
	}
	for i, item := range items {
		if _, ok := toOffset(item); !ok {
			return fmt.Sprintf("list of %d with %s at index %d", len(items), describeShape(item, true), i)
		}
	}
	return fmt.Sprintf("list of %d integers", len(items))
}
