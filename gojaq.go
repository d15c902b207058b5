// Package gojaq runs jq filters on Go values.
//
// A filter maps one input to any number of outputs. gojaq follows the jaq
// dialect of jq: filters are compiled once and evaluated lazily, paths are
// first-class so that `.a[] |= f` and `del(.x)` work on any path expression,
// and errors are values that `try ... catch` can inspect.
//
// # Quick Start
//
//	// Simple evaluation
//	out, err := gojaq.Eval(".items[] | .name", data)
//
//	// Compile once, run many times
//	prog, err := gojaq.Compile(".items[] | select(.price > 100)")
//	out1, _ := prog.Eval(ctx, data1)
//	out2, _ := prog.Eval(ctx, data2)
//
//	// With options
//	out, err := gojaq.Eval(".items", data,
//	    gojaq.WithCaching(true),
//	    gojaq.WithTimeout(5*time.Second),
//	)
//
// Inputs are plain Go values as produced by encoding/json (maps, slices,
// float64, json.Number, string, bool, nil) or pkg/value values; outputs
// are converted back to plain Go values. Use pkg/evaluator directly to keep
// values in their ordered form and to consume outputs lazily.
//
// # More Information
//
//   - Parser: github.com/sandrolain/gojaq/pkg/parser
//   - Evaluator: github.com/sandrolain/gojaq/pkg/evaluator
//   - Values: github.com/sandrolain/gojaq/pkg/value
//   - Functions: github.com/sandrolain/gojaq/pkg/functions
//   - Extensions: github.com/sandrolain/gojaq/pkg/ext
package gojaq

import (
	"context"
	"fmt"

	"github.com/sandrolain/gojaq/pkg/evaluator"
	"github.com/sandrolain/gojaq/pkg/value"
)

// Version returns the current version of gojaq.
func Version() string {
	return "v0.1.0-dev"
}

// Program is a compiled filter bound to the Evaluator that compiled it.
// It is safe for concurrent use.
type Program struct {
	ev   *evaluator.Evaluator
	prog *evaluator.Program
}

// String returns the source of the filter.
func (p *Program) String() string { return p.prog.String() }

// Eval runs the filter on data and returns all its outputs. The first
// uncaught error ends the evaluation.
func (p *Program) Eval(ctx context.Context, data any) ([]any, error) {
	return p.EvalWithVars(ctx, data, nil)
}

// EvalWithVars is Eval with values for the variables named at compile time.
// Variables missing from vars are null.
func (p *Program) EvalWithVars(ctx context.Context, data any, vars map[string]any) ([]any, error) {
	in, err := value.FromGo(data)
	if err != nil {
		return nil, fmt.Errorf("gojaq: input: %w", err)
	}
	bound := make(map[string]value.Value, len(vars))
	for k, v := range vars {
		if bound[k], err = value.FromGo(v); err != nil {
			return nil, fmt.Errorf("gojaq: variable $%s: %w", k, err)
		}
	}
	outs, err := evaluator.Collect(p.ev.Run(ctx, p.prog, in, evaluator.WithVariables(bound)))
	if err != nil {
		return nil, err
	}
	res := make([]any, len(outs))
	for i, v := range outs {
		res[i] = value.ToGo(v)
	}
	return res, nil
}

// Compile compiles a filter for repeated evaluation.
//
// Example:
//
//	prog, err := gojaq.Compile(".items[] | select(.price > 100)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, _ := prog.Eval(ctx, data)
func Compile(query string, opts ...EvalOption) (*Program, error) {
	return CompileWithVars(query, nil, opts...)
}

// CompileWithVars compiles a filter that references the global variables
// named by vars, with or without the leading $. Their values are given to
// Program.EvalWithVars.
func CompileWithVars(query string, vars []string, opts ...EvalOption) (*Program, error) {
	ev := evaluator.New(opts...)
	prog, err := ev.Compile(query, vars...)
	if err != nil {
		return nil, err
	}
	return &Program{ev: ev, prog: prog}, nil
}

// MustCompile is like Compile but panics if the filter cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(query string, opts ...EvalOption) *Program {
	p, err := Compile(query, opts...)
	if err != nil {
		panic(fmt.Sprintf("gojaq: Compile(%q): %v", query, err))
	}
	return p
}

// Eval is a convenience function that compiles and runs a filter in a
// single call.
//
// For repeated evaluations of the same filter, use Compile instead.
//
// Example:
//
//	out, err := gojaq.Eval(".name", data)
func Eval(query string, data any, opts ...EvalOption) ([]any, error) {
	return EvalWithContext(context.Background(), query, data, opts...)
}

// EvalWithContext evaluates a filter with a custom context.
func EvalWithContext(ctx context.Context, query string, data any, opts ...EvalOption) ([]any, error) {
	p, err := Compile(query, opts...)
	if err != nil {
		return nil, err
	}
	return p.Eval(ctx, data)
}

// EvalFirst returns the first output of the filter, or nil when it has
// none.
func EvalFirst(query string, data any, opts ...EvalOption) (any, error) {
	outs, err := Eval(query, data, opts...)
	if err != nil || len(outs) == 0 {
		return nil, err
	}
	return outs[0], nil
}
