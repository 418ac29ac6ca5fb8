package plugin

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed rule.cue
var ruleSchema []byte

// SchemaError lists the problems found when checking a rule document
// against the rule schema.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	if len(e.Issues) == 1 {
		return "schema violation: " + e.Issues[0]
	}
	return fmt.Sprintf("%d schema violations:\n  %s", len(e.Issues), strings.Join(e.Issues, "\n  "))
}

// validator checks decoded rule documents against the embedded CUE schema.
// It is not safe for concurrent use.
type validator struct {
	ctx  *cue.Context
	rule cue.Value
}

func newValidator() (*validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(ruleSchema, cue.Filename("rule.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling rule schema: %w", err)
	}
	rule := schema.LookupPath(cue.ParsePath("#Rule"))
	if !rule.Exists() {
		return nil, fmt.Errorf("rule schema has no #Rule definition")
	}
	return &validator{ctx: ctx, rule: rule}, nil
}

func (v *validator) validate(doc map[string]any) error {
	data := v.ctx.Encode(doc)
	if err := data.Err(); err != nil {
		return fmt.Errorf("encoding rule document: %w", err)
	}

	unified := v.rule.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return schemaError(err)
	}
	return nil
}

func schemaError(err error) *SchemaError {
	var issues []string
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		msg := strings.TrimPrefix(e.Error(), "#Rule.")
		if !seen[msg] {
			seen[msg] = true
			issues = append(issues, msg)
		}
	}
	if len(issues) == 0 {
		issues = append(issues, err.Error())
	}
	return &SchemaError{Issues: issues}
}
