package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/pkg/query"
)

func TestDecodeSpan(t *testing.T) {
	tests := []struct {
		name string
		row  query.Row
		want SpanResult
	}{
		{
			name: "signed integers",
			row:  query.Row{"span_start": int64(5), "span_end": int64(10)},
			want: Single{Start: 5, End: 10},
		},
		{
			name: "unsigned integers",
			row:  query.Row{"span_start": uint64(5), "span_end": uint64(10)},
			want: Single{Start: 5, End: 10},
		},
		{
			name: "mixed integer widths",
			row:  query.Row{"span_start": int(0), "span_end": uint32(0)},
			want: Single{Start: 0, End: 0},
		},
		{
			name: "lists",
			row:  query.Row{"span_start": []any{int64(1), uint64(10)}, "span_end": []any{uint64(3), int64(12)}},
			want: Multiple{Starts: []int{1, 10}, Ends: []int{3, 12}},
		},
		{
			name: "typed lists",
			row:  query.Row{"span_start": []uint64{4}, "span_end": []int{8}},
			want: Multiple{Starts: []int{4}, Ends: []int{8}},
		},
		{
			name: "extra fields are ignored",
			row:  query.Row{"span_start": 1, "span_end": 2, "name": "x"},
			want: Single{Start: 1, End: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSpan(tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeSpan_ShapeErrors(t *testing.T) {
	tests := []struct {
		name      string
		row       query.Row
		wantStart string
		wantEnd   string
		wantMsg   string
	}{
		{
			name:      "both missing",
			row:       query.Row{"name": "x"},
			wantStart: "missing",
			wantEnd:   "missing",
		},
		{
			name:      "end missing",
			row:       query.Row{"span_start": 1},
			wantStart: "integer",
			wantEnd:   "missing",
		},
		{
			name:      "scalar and list",
			row:       query.Row{"span_start": 1, "span_end": []any{2}},
			wantStart: "integer",
			wantEnd:   "list of 1 integers",
		},
		{
			name:      "list lengths differ",
			row:       query.Row{"span_start": []any{1, 2}, "span_end": []any{3}},
			wantStart: "list of 2 integers",
			wantEnd:   "list of 1 integers",
		},
		{
			name:      "empty lists",
			row:       query.Row{"span_start": []any{}, "span_end": []any{}},
			wantStart: "empty list",
			wantEnd:   "empty list",
		},
		{
			name:      "string value",
			row:       query.Row{"span_start": "0", "span_end": 1},
			wantStart: "string",
			wantEnd:   "integer",
		},
		{
			name:      "float value",
			row:       query.Row{"span_start": 1.5, "span_end": 2},
			wantStart: "float64",
			wantEnd:   "integer",
		},
		{
			name:      "list with a string",
			row:       query.Row{"span_start": []any{1, "b"}, "span_end": []any{2, 3}},
			wantStart: "list of 2 with string at index 1",
			wantEnd:   "list of 2 integers",
		},
		{
			name:      "negative offset",
			row:       query.Row{"span_start": int64(-1), "span_end": 2},
			wantStart: "integer -1 (not a valid offset)",
			wantEnd:   "integer",
		},
		{
			name:      "null",
			row:       query.Row{"span_start": nil, "span_end": 2},
			wantStart: "null",
			wantEnd:   "integer",
		},
		{
			name:      "reversed range",
			row:       query.Row{"span_start": 9, "span_end": 2},
			wantStart: "integer",
			wantEnd:   "integer",
			wantMsg:   "range ends before it starts",
		},
		{
			name:      "reversed pair in list",
			row:       query.Row{"span_start": []any{1, 9}, "span_end": []any{2, 3}},
			wantStart: "list of 2 integers",
			wantEnd:   "list of 2 integers",
			wantMsg:   "range 1 ends before it starts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSpan(tt.row)
			require.Error(t, err)

			var shapeErr *SpanShapeError
			require.True(t, errors.As(err, &shapeErr))
			assert.Equal(t, tt.wantStart, shapeErr.Start)
			assert.Equal(t, tt.wantEnd, shapeErr.End)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestSpanShapeError_Message(t *testing.T) {
	err := &SpanShapeError{Rule: "no_debugger", Start: "missing", End: "integer"}
	assert.Equal(t,
		`rule "no_debugger": expected span_start and span_end to be two integers or two integer lists of the same non-zero length, got span_start: missing, span_end: integer`,
		err.Error())
}
