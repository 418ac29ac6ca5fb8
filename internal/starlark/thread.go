package starlark

import (
	"log/slog"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/leaplint/pkg/query"
)

// fileOptions are the dialect options for query programs. Top-level loops
// are allowed because a query is a flat script; unbounded loops are tamed by
// the execution step limit.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// newThread creates a Starlark thread for one query execution. print()
// output goes to the debug log.
func newThread(name string, limits query.Limits, logger *slog.Logger) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Debug("query print", "query", name, "msg", msg)
		},
	}
	if limits.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(limits.MaxSteps)
	}
	return thread
}
