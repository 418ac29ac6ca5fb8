package plugintest

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/semantic"
)

// MismatchError reports a fixture whose outcome did not meet its
// expectation.
type MismatchError struct {
	// Path is the rule file.
	Path   string
	Result *Result
	// Location is where the fixture sits in the rule file. It is nil when
	// the rule file could not be read or located.
	Location *Location
	// Source is the rule file text Location refers to.
	Source []byte
}

func (e *MismatchError) Error() string {
	r := e.Result
	var b strings.Builder
	fmt.Fprintf(&b, "rule %q: %s fixture %d (%s) ", r.Rule, r.Expectation, r.Index, r.Fixture.Path())
	if r.Expectation == ExpectPass {
		b.WriteString("was expected to pass but ")
		switch r.Outcome {
		case OutcomeParseFailed:
			fmt.Fprintf(&b, "failed to parse with %d error(s)", len(r.ParseErrors))
		case OutcomeQueryFailed:
			b.WriteString("the query failed")
		default:
			fmt.Fprintf(&b, "produced %d diagnostic(s)", len(r.Diagnostics))
		}
	} else {
		b.WriteString("was expected to fail but produced no diagnostics")
	}
	if e.Location != nil {
		fmt.Fprintf(&b, " at %s:%d", e.Path, e.Location.StartLine)
	}

	for _, pe := range r.ParseErrors {
		fmt.Fprintf(&b, "\n  %s", pe.Error())
	}
	for _, d := range r.Diagnostics {
		fmt.Fprintf(&b, "\n  %s %s: %s", d.Pos, d.RuleID, d.Message)
	}
	return b.String()
}

// InvalidFixtureError reports a fixture that is not a valid program: its
// file name has no supported extension or the semantic model rejects it.
type InvalidFixtureError struct {
	Rule        string
	Expectation Expectation
	Index       int
	Code        string
	// Err is set when the fixture could not be parsed at all.
	Err error
	// Errors lists semantic errors.
	Errors []*semantic.Error
}

func (e *InvalidFixtureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rule %q: %s fixture %d is invalid", e.Rule, e.Expectation, e.Index)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, se := range e.Errors {
		fmt.Fprintf(&b, "\n  %s", se.Error())
	}
	fmt.Fprintf(&b, "\ncode:\n%s", e.Code)
	return b.String()
}

func (e *InvalidFixtureError) Unwrap() error {
	return e.Err
}
