package plugin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/pkg/lint"
)

var testRule = &Definition{
	Name:    "no_debugger",
	Summary: "debugger statement",
	Reason:  "remove before committing",
}

func spans(diags []lint.Diagnostic) [][2]int {
	out := make([][2]int, len(diags))
	for i, d := range diags {
		out[i] = [2]int{d.Start, d.End}
	}
	return out
}

func TestEmit_Single(t *testing.T) {
	sink := lint.NewContext([]byte(strings.Repeat("x", 20)), nil)

	n := Emit(sink, testRule, Single{Start: 5, End: 10})

	assert.Equal(t, 1, n)
	require.Len(t, sink.Diagnostics(), 1)
	d := sink.Diagnostics()[0]
	assert.Equal(t, [2]int{5, 10}, [2]int{d.Start, d.End})
	assert.Equal(t, "no_debugger", d.RuleID)
	assert.Equal(t, "debugger statement", d.Message)
	assert.Equal(t, "remove before committing", d.Label)
	assert.Equal(t, lint.SeverityWarning, d.Severity)
}

func TestEmit_MultipleInIndexOrder(t *testing.T) {
	sink := lint.NewContext([]byte(strings.Repeat("x", 20)), nil)

	n := Emit(sink, testRule, Multiple{Starts: []int{1, 10}, Ends: []int{3, 12}})

	assert.Equal(t, 2, n)
	assert.Equal(t, [][2]int{{1, 3}, {10, 12}}, spans(sink.Diagnostics()))
}

func TestEmit_AttributesEachRule(t *testing.T) {
	sink := lint.NewContext([]byte("debugger;"), nil)
	other := &Definition{Name: "other", Summary: "s", Severity: "error"}

	Emit(sink, testRule, Single{Start: 0, End: 9})
	Emit(sink, other, Single{Start: 0, End: 8})

	diags := sink.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, "no_debugger", diags[0].RuleID)
	assert.Equal(t, "other", diags[1].RuleID)
	assert.Equal(t, lint.SeverityError, diags[1].Severity)
}

func TestEmit_ResolvesPositions(t *testing.T) {
	sink := lint.NewContext([]byte("x = 1;\ndebugger;"), nil)

	Emit(sink, testRule, Single{Start: 7, End: 16})

	d := sink.Diagnostics()[0]
	assert.Equal(t, 2, d.Pos.Line)
	assert.Equal(t, 1, d.Pos.Column)
	assert.Equal(t, 10, d.EndPos.Column)
}
