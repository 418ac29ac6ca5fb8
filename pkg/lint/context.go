package lint

import (
	"sort"

	"github.com/leapstack-labs/leaplint/pkg/token"
)

// Context collects the diagnostics reported for a single file.
// It is not safe for concurrent use; lint each file with its own Context.
type Context struct {
	config   *Config
	index    *token.LineIndex
	ruleName string

	diagnostics []Diagnostic
}

var _ Sink = (*Context)(nil)

// NewContext creates a sink for one file with the given source text.
// cfg may be nil.
func NewContext(source []byte, cfg *Config) *Context {
	return &Context{
		config: cfg,
		index:  token.NewLineIndex(source),
	}
}

// WithRuleName sets the rule attributed to subsequent diagnostics.
func (c *Context) WithRuleName(name string) {
	c.ruleName = name
}

// Diagnostic records d. An empty RuleID is filled from the current rule
// name. Diagnostics of disabled rules are dropped.
func (c *Context) Diagnostic(d Diagnostic) {
	if d.RuleID == "" {
		d.RuleID = c.ruleName
	}
	if c.config.IsDisabled(d.RuleID) {
		return
	}
	d.Severity = c.config.GetSeverity(d.RuleID, d.Severity)
	d.Pos = c.index.Position(d.Start)
	d.EndPos = c.index.Position(d.End)
	c.diagnostics = append(c.diagnostics, d)
}

// Diagnostics returns the recorded diagnostics in report order.
func (c *Context) Diagnostics() []Diagnostic {
	return c.diagnostics
}

// Sorted returns the recorded diagnostics ordered by position, then rule.
func (c *Context) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}
