package plugin

import "github.com/leapstack-labs/leaplint/pkg/lint"

// Emit reports span to sink as diagnostics of rule: one for Single, one per
// index in order for Multiple. It returns the number of diagnostics reported.
func Emit(sink lint.Sink, rule *Definition, span SpanResult) int {
	sink.WithRuleName(rule.Name)
	report := func(start, end int) {
		sink.Diagnostic(lint.Diagnostic{
			RuleID:   rule.Name,
			Severity: rule.DiagnosticSeverity(),
			Message:  rule.Summary,
			Label:    rule.Reason,
			Start:    start,
			End:      end,
		})
	}

	switch s := span.(type) {
	case Single:
		report(s.Start, s.End)
	case Multiple:
		for i := range s.Starts {
			report(s.Starts[i], s.Ends[i])
		}
	}
	return span.Len()
}
