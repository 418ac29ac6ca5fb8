// Package query defines the contracts between rule definitions, query
// engines and the graph adapters they run against.
//
// An Engine compiles a query text and evaluates it against an Adapter, which
// exposes one file's syntax and semantic data as typed vertices connected by
// named edges. Results are produced lazily as rows of dynamically typed
// fields.
package query

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"
)

// Row is one result of a query: field name to value. Values are nil, bool,
// string, float64, any signed or unsigned integer type, or []any of those.
type Row map[string]any

// Keys returns the field names of the row in sorted order.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Rows is a lazy sequence of rows. A non-nil error ends the sequence.
type Rows = iter.Seq2[Row, error]

// Args are the named arguments bound into a query.
type Args map[string]any

// Limits bounds the resources a single query execution may use.
// Zero values mean unlimited.
type Limits struct {
	Timeout  time.Duration
	MaxSteps uint64
}

// Engine executes query texts against an adapter.
type Engine interface {
	// Name identifies the engine in rule definitions.
	Name() string
	// Execute compiles src and returns its result rows. Compilation errors
	// are returned immediately; evaluation errors are yielded by the sequence.
	Execute(ctx context.Context, adapter Adapter, src string, args Args, limits Limits) (Rows, error)
}

// ErrStopped is used by engines to unwind evaluation when the consumer of
// a row sequence stops early.
var ErrStopped = errors.New("query: row consumer stopped")

// Error is a query that failed to compile or evaluate.
type Error struct {
	Engine  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s query failed: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("%s query failed: %s", e.Engine, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds a query error for engine.
func Errorf(engine string, format string, args ...any) *Error {
	return &Error{Engine: engine, Message: fmt.Sprintf(format, args...)}
}
