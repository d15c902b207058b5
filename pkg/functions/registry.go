// Package functions provides types for registering custom Go functions with
// the evaluator.
//
// A registered function is called from filters like any builtin, by name and
// arity. Value arguments are evaluated before the call, once per combination
// of their outputs; advanced functions receive their arguments unevaluated
// and run them through a Caller.
//
// # Example
//
//	out, err := gojaq.Eval(`greet("Hello")`, data,
//	    gojaq.WithCustomFunction("greet", 1, func(ctx context.Context, in value.Value, args ...value.Value) (value.Value, error) {
//	        return value.String(fmt.Sprintf("%s, %s!", args[0], in)), nil
//	    }),
//	)
package functions

import (
	"context"

	"github.com/sandrolain/gojaq/pkg/value"
)

// CustomFunc is the signature of a function with value arguments and one
// output. A nil result is turned into null.
type CustomFunc func(ctx context.Context, input value.Value, args ...value.Value) (value.Value, error)

// CustomFunctionDef registers a CustomFunc as name/Arity.
type CustomFunctionDef struct {
	// Name is the name used in filters.
	Name string
	// Arity is the number of arguments.
	Arity int
	// Fn is the implementation.
	Fn CustomFunc
}

// GeneratorFunc is like CustomFunc but yields any number of outputs.
type GeneratorFunc func(ctx context.Context, input value.Value, args ...value.Value) ([]value.Value, error)

// GeneratorFunctionDef registers a GeneratorFunc as name/Arity.
type GeneratorFunctionDef struct {
	Name  string
	Arity int
	Fn    GeneratorFunc
}

// Caller runs the filter arguments of an advanced function.
type Caller interface {
	// Call runs argument i on input and returns all its outputs. Errors
	// raised by the argument are returned as is and should be passed on.
	Call(i int, input value.Value) ([]value.Value, error)
}

// AdvancedCustomFunc receives its arguments as filters.
type AdvancedCustomFunc func(ctx context.Context, caller Caller, input value.Value) ([]value.Value, error)

// AdvancedCustomFunctionDef registers an AdvancedCustomFunc as name/Arity.
type AdvancedCustomFunctionDef struct {
	Name  string
	Arity int
	Fn    AdvancedCustomFunc
}

// Definitions contributes filter definitions written in the query language,
// compiled together with the standard library. Source holds `def` items only.
type Definitions struct {
	// Name identifies the source in error messages.
	Name   string
	Source string
}

// FunctionEntry is implemented by every kind of registration, so they can
// be mixed in a single call to WithFunctions.
type FunctionEntry interface {
	isFunctionEntry()
}

func (CustomFunctionDef) isFunctionEntry()         {}
func (GeneratorFunctionDef) isFunctionEntry()      {}
func (AdvancedCustomFunctionDef) isFunctionEntry() {}
func (Definitions) isFunctionEntry()               {}
