package output

// LintDiagnostic is one diagnostic in JSON output.
type LintDiagnostic struct {
	RuleID    string `json:"rule_id"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Label     string `json:"label,omitempty"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
}

// LintFileResult groups diagnostics by file.
type LintFileResult struct {
	Path        string           `json:"path"`
	Error       string           `json:"error,omitempty"`
	Diagnostics []LintDiagnostic `json:"diagnostics"`
}

// LintSummary counts diagnostics by severity.
type LintSummary struct {
	Files      int `json:"files"`
	Errors     int `json:"errors"`
	Warnings   int `json:"warnings"`
	Infos      int `json:"infos"`
	Hints      int `json:"hints"`
	Suppressed int `json:"suppressed"`
	Failed     int `json:"failed_files"`
}

// Total returns the number of reported diagnostics.
func (s LintSummary) Total() int {
	return s.Errors + s.Warnings + s.Infos + s.Hints
}

// LintOutput is the JSON document produced by the lint command.
type LintOutput struct {
	Files   []LintFileResult `json:"files"`
	Summary LintSummary      `json:"summary"`
}

// RuleInfo describes a loaded rule in JSON output.
type RuleInfo struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Engine   string `json:"engine"`
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Reason   string `json:"reason,omitempty"`
	Path     string `json:"path"`
	Pass     int    `json:"pass_fixtures"`
	Fail     int    `json:"fail_fixtures"`
}

// RulesOutput is the JSON document produced by the rules command.
type RulesOutput struct {
	Rules  []RuleInfo `json:"rules"`
	Errors []string   `json:"errors,omitempty"`
}

// TestRuleResult is one rule's self-test tally in JSON output.
type TestRuleResult struct {
	Rule   string `json:"rule"`
	Passed int    `json:"passed"`
}

// TestFailure describes the first mismatching fixture.
type TestFailure struct {
	Rule        string `json:"rule"`
	Expectation string `json:"expectation"`
	Index       int    `json:"index"`
	Path        string `json:"path"`
	Line        int    `json:"line,omitempty"`
	EndLine     int    `json:"end_line,omitempty"`
	Message     string `json:"message"`
}

// TestOutput is the JSON document produced by the test command.
type TestOutput struct {
	Rules   []TestRuleResult `json:"rules"`
	Total   int              `json:"total"`
	Failure *TestFailure     `json:"failure,omitempty"`
}
