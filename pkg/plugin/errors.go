package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrUnknownEngine is returned for a rule that names an unregistered engine.
	ErrUnknownEngine = errors.New("unknown query engine")
	// ErrUnknownRule is returned when a selection names a rule that is not loaded.
	ErrUnknownRule = errors.New("unknown rule")
)

// LoadError is an invalid rule definition: a rule file that could not be
// read, parsed or validated.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("invalid rule definition %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// DuplicateRuleError reports a rule whose name is already taken by a rule
// loaded from another file. The duplicate is not loaded.
type DuplicateRuleError struct {
	Name      string
	Path      string
	FirstPath string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("duplicate rule %q in %s (first defined in %s)", e.Name, e.Path, e.FirstPath)
}

// SpanShapeError reports a result row whose span fields do not have a
// usable shape. Start and End describe the observed values.
type SpanShapeError struct {
	Rule   string
	Start  string
	End    string
	Reason string
}

func (e *SpanShapeError) Error() string {
	var b strings.Builder
	if e.Rule != "" {
		fmt.Fprintf(&b, "rule %q: ", e.Rule)
	}
	b.WriteString("expected span_start and span_end to be two integers or two integer lists of the same non-zero length")
	fmt.Fprintf(&b, ", got span_start: %s, span_end: %s", e.Start, e.End)
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	return b.String()
}
