// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
)

// TestRenderer wraps a renderer writing to buffers.
type TestRenderer struct {
	*output.Renderer
	Out *bytes.Buffer
	Err *bytes.Buffer
}

// NewTestRenderer creates a renderer in the given mode. Buffers are never
// terminals, so ModeAuto resolves to markdown.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		Err:      errOut,
	}
}

// Output returns everything written to the output stream.
func (tr *TestRenderer) Output() string { return tr.Out.String() }

// ErrorOutput returns everything written to the error stream.
func (tr *TestRenderer) ErrorOutput() string { return tr.Err.String() }

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails the test if s contains ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if loc := ansiPattern.FindStringIndex(s); loc != nil {
		t.Errorf("output contains ANSI escape code at %d: %q", loc[0], s)
	}
}
