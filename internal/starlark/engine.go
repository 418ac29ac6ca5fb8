// Package starlark runs rule queries written in Starlark against a graph
// adapter.
//
// A query is a Starlark program evaluated once per file with three
// predeclared names: file, the root vertex of the adapter's schema; args,
// a frozen dict of the rule's arguments; and emit, which produces one result
// row from its keyword arguments. Rows are handed to the consumer as they are
// emitted, so a consumer that stops early also stops the program.
package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/leaplint/pkg/query"
)

// EngineName is the name rule definitions use to select this engine.
const EngineName = "starlark"

const queryFile = "query.star"

var predeclaredNames = starlark.StringDict{
	"file":   starlark.None,
	"args":   starlark.None,
	"emit":   starlark.None,
	"struct": starlark.None,
}

// Engine implements query.Engine.
type Engine struct {
	logger *slog.Logger
}

var _ query.Engine = (*Engine)(nil)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger that receives print() output.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a Starlark query engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements query.Engine.
func (e *Engine) Name() string { return EngineName }

// Compile checks that src is a valid query program.
func (e *Engine) Compile(src string) (*starlark.Program, error) {
	_, prog, err := starlark.SourceProgramOptions(fileOptions, queryFile, src, predeclaredNames.Has)
	if err != nil {
		return nil, &query.Error{Engine: EngineName, Message: err.Error(), Err: err}
	}
	return prog, nil
}

// Execute implements query.Engine.
func (e *Engine) Execute(ctx context.Context, adapter query.Adapter, src string, args query.Args, limits query.Limits) (query.Rows, error) {
	prog, err := e.Compile(src)
	if err != nil {
		return nil, err
	}

	argv, err := GoToStarlark(map[string]any(args))
	if err != nil {
		return nil, query.Errorf(EngineName, "binding args: %v", err)
	}
	argv.Freeze()

	return func(yield func(query.Row, error) bool) {
		runCtx := ctx
		if limits.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, limits.Timeout)
			defer cancel()
		}

		thread := newThread(queryFile, limits, e.logger)
		stop := context.AfterFunc(runCtx, func() {
			thread.Cancel(context.Cause(runCtx).Error())
		})
		defer stop()

		stopped := false
		emit := starlark.NewBuiltin("emit", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if len(args) > 0 {
				return nil, fmt.Errorf("%s: fields must be passed as keyword arguments", b.Name())
			}
			row := make(query.Row, len(kwargs))
			for _, kv := range kwargs {
				key := string(kv[0].(starlark.String))
				v, err := ToGo(kv[1])
				if err != nil {
					return nil, fmt.Errorf("%s: field %q: %w", b.Name(), key, err)
				}
				row[key] = v
			}
			if !yield(row, nil) {
				stopped = true
				return nil, query.ErrStopped
			}
			return starlark.None, nil
		})

		globals := starlark.StringDict{
			"file":   NewVertex(adapter, adapter.Root()),
			"args":   argv,
			"emit":   emit,
			"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		}

		_, err := prog.Init(thread, globals)
		if err == nil || stopped {
			return
		}
		yield(nil, e.wrapError(runCtx, err))
	}, nil
}

func (e *Engine) wrapError(ctx context.Context, err error) *query.Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		msg := "query cancelled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = "query timed out"
		}
		return &query.Error{Engine: EngineName, Message: msg, Err: ctxErr}
	}

	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return &query.Error{Engine: EngineName, Message: describe(evalErr), Err: err}
	}
	return &query.Error{Engine: EngineName, Message: err.Error(), Err: err}
}

// describe formats an evaluation error with the innermost source position.
func describe(err *starlark.EvalError) string {
	for i := range err.CallStack {
		frame := err.CallStack.At(i)
		if frame.Pos.IsValid() {
			return fmt.Sprintf("%s: %s", frame.Pos, err.Msg)
		}
	}
	return err.Msg
}
