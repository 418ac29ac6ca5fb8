package lint

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/token"
)

// Severity indicates the importance of a diagnostic.
type Severity int

// Severity levels for diagnostics.
const (
	// SeverityError indicates a critical issue that should be fixed.
	SeverityError Severity = iota
	// SeverityWarning indicates a potential issue that should be reviewed.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
	SeverityInfo
	// SeverityHint indicates a suggestion for improvement.
	SeverityHint
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityWarning and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	case "hint":
		return SeverityHint, true
	default:
		return SeverityWarning, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic represents a lint finding.
type Diagnostic struct {
	RuleID   string
	Severity Severity
	Message  string // one-line summary
	Label    string // explanation attached to the highlighted range

	// Start and End are byte offsets into the linted source.
	Start int
	End   int

	// Pos and EndPos are resolved by the Context from Start and End.
	Pos    token.Position
	EndPos token.Position
}

// Span returns the diagnostic range as a token span.
func (d Diagnostic) Span() token.Span {
	return token.Span{Start: d.Pos, End: d.EndPos}
}

// Sink receives diagnostics from a rule engine. WithRuleName tags every
// subsequent diagnostic with the given rule.
type Sink interface {
	WithRuleName(name string)
	Diagnostic(d Diagnostic)
}
