// Package plugin loads declarative lint rules and runs them against a file.
//
// A rule is a YAML document holding a query, its arguments, the text shown
// for each finding and a set of embedded fixtures. The Loader discovers rule
// files below a directory; a LinterPlugin executes their queries through a
// query engine, decodes the span fields of every result row into a SpanResult
// and reports one diagnostic per span pair to a lint.Sink.
package plugin
