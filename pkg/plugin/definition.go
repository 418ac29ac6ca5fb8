package plugin

import (
	"path"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/query"
)

// Definition is one declarative rule as loaded from its YAML file.
// Definitions are never modified after loading.
type Definition struct {
	Name     string     `yaml:"name"`
	Query    string     `yaml:"query"`
	Args     query.Args `yaml:"args"`
	Summary  string     `yaml:"summary"`
	Reason   string     `yaml:"reason"`
	Engine   string     `yaml:"engine,omitempty"`
	Severity string     `yaml:"severity,omitempty"`
	Tests    TestSuite  `yaml:"tests,omitempty"`

	// Path is the file the rule was loaded from.
	Path string `yaml:"-"`
	// Category is the name of the directory containing the rule file.
	Category string `yaml:"-"`
}

// TestSuite holds the fixtures embedded in a rule.
type TestSuite struct {
	Pass []Fixture `yaml:"pass,omitempty"`
	Fail []Fixture `yaml:"fail,omitempty"`
}

// Len returns the total number of fixtures.
func (s TestSuite) Len() int { return len(s.Pass) + len(s.Fail) }

// Fixture is a source snippet checked against a rule. RelativePath is a
// virtual path whose last segment selects the language.
type Fixture struct {
	RelativePath []string `yaml:"relative_path"`
	Code         string   `yaml:"code"`
}

// FileName returns the last path segment.
func (f Fixture) FileName() string {
	if len(f.RelativePath) == 0 {
		return ""
	}
	return f.RelativePath[len(f.RelativePath)-1]
}

// Path joins the segments with slashes.
func (f Fixture) Path() string {
	return path.Join(f.RelativePath...)
}

// DiagnosticSeverity returns the severity attached to the rule's findings.
// Rules without a severity report warnings.
func (d *Definition) DiagnosticSeverity() lint.Severity {
	sev, _ := lint.ParseSeverity(d.Severity)
	return sev
}
