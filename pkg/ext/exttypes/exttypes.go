// Package exttypes provides type conversions and feature probes:
// toboolean, isblank, have_literal_numbers and have_decnum.
package exttypes

import (
	"context"

	"github.com/sandrolain/gojaq/pkg/ext/extutil"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

// All returns the functions of the package.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		ToBoolean(),
		IsBlank(),
		constant("have_literal_numbers", value.False),
		constant("have_decnum", value.False),
	}
}

// AllEntries returns All as entries for evaluator.WithFunctions.
func AllEntries() []functions.FunctionEntry {
	return extutil.Entries(All()...)
}

func constant(name string, v value.Value) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: name,
		Fn: func(context.Context, value.Value, ...value.Value) (value.Value, error) {
			return v, nil
		},
	}
}

// ToBoolean returns toboolean: booleans pass through, the strings "true"
// and "false" are parsed.
func ToBoolean() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "toboolean",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			switch v := in.(type) {
			case value.Bool:
				return v, nil
			case value.String:
				switch v {
				case "true":
					return value.True, nil
				case "false":
					return value.False, nil
				}
				return nil, value.NewTypeError("%s cannot be parsed as a boolean", value.Describe(in))
			}
			return nil, value.NewTypeError("%s cannot be parsed as a boolean", value.Describe(in))
		},
	}
}

// IsBlank returns isblank: true for null, "", [] and {}.
func IsBlank() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "isblank",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			switch v := in.(type) {
			case value.Null:
				return value.True, nil
			case value.String:
				return value.FromBool(v == ""), nil
			case value.Array:
				return value.FromBool(len(v) == 0), nil
			case *value.Object:
				return value.FromBool(v.Len() == 0), nil
			}
			return value.False, nil
		},
	}
}
