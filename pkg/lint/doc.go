// Package lint defines the shared lint contracts: severities, diagnostics,
// per-rule configuration and the diagnostic sink that rules report into.
//
// # Diagnostic Sink
//
// Rules never build diagnostic lists themselves. A caller creates one
// Context per linted file and hands it to the rule engine, which tags the
// context with the name of the rule being evaluated before reporting:
//
//	ctx := lint.NewContext(source, cfg)
//	ctx.WithRuleName("no_debugger")
//	ctx.Diagnostic(lint.Diagnostic{Message: "debugger statement", Start: 0, End: 9})
//	diags := ctx.Diagnostics()
//
// The context applies the rule name, severity overrides and disabled rules
// from Config, and resolves line/column positions from byte offsets.
package lint
