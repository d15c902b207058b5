// Package extfunc embeds github.com/expr-lang/expr expressions in filters.
//
//	expr($src)         runs $src with the input as environment
//	expr($src; $vars)  adds the members of the $vars object to it
//
// When the input is an object its members are variables of the expression;
// the whole input is also available as `input`. Compiled expressions are
// kept in an LRU cache keyed by source.
//
//	{"a": 2, "b": 3} | expr("a * b + 1")   # 7
package extfunc

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sandrolain/gojaq/pkg/cache"
	"github.com/sandrolain/gojaq/pkg/ext/extutil"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

var programs = cache.New[*vm.Program](128)

// All returns the functions of the package.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		Expr(),
		ExprWith(),
	}
}

// AllEntries returns All as entries for evaluator.WithFunctions.
func AllEntries() []functions.FunctionEntry {
	return extutil.Entries(All()...)
}

// Expr returns expr($src).
func Expr() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "expr",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			return run(in, args[0], value.NullValue)
		},
	}
}

// ExprWith returns expr($src; $vars).
func ExprWith() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "expr",
		Arity: 2,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			return run(in, args[0], args[1])
		},
	}
}

func run(in, src, vars value.Value) (value.Value, error) {
	s, err := extutil.String("expr", src)
	if err != nil {
		return nil, err
	}
	env := map[string]any{}
	if o, ok := in.(*value.Object); ok {
		for _, e := range o.Entries() {
			env[e.Key] = value.ToGo(e.Value)
		}
	}
	switch vars := vars.(type) {
	case value.Null:
	case *value.Object:
		for _, e := range vars.Entries() {
			env[e.Key] = value.ToGo(e.Value)
		}
	default:
		return nil, value.NewTypeError("expr: %s cannot be used as variables, object required", value.Describe(vars))
	}
	env["input"] = value.ToGo(in)

	prg, err := programs.GetOrCompile(s, func() (*vm.Program, error) {
		return expr.Compile(s, expr.AllowUndefinedVariables())
	})
	if err != nil {
		return nil, value.Thrown(value.String("expr: " + err.Error()))
	}
	out, err := expr.Run(prg, env)
	if err != nil {
		return nil, value.Thrown(value.String("expr: " + err.Error()))
	}
	v, err := value.FromGo(out)
	if err != nil {
		return nil, value.Thrown(value.String("expr: " + err.Error()))
	}
	return v, nil
}
