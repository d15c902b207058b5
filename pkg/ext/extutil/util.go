// Package extutil provides shared helpers for the ext sub-packages.
package extutil

import (
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

// String returns v as a Go string, or a type error naming fn.
func String(fn string, v value.Value) (string, error) {
	s, ok := v.(value.String)
	if !ok {
		return "", value.NewTypeError("%s cannot be used with %s, string required", fn, value.Describe(v))
	}
	return string(s), nil
}

// OptString is String that accepts null as the empty string.
func OptString(fn string, v value.Value) (string, error) {
	if v.Kind() == value.KindNull {
		return "", nil
	}
	return String(fn, v)
}

// Float returns v as a float64, or a type error naming fn.
func Float(fn string, v value.Value) (float64, error) {
	f, ok := value.ToFloat(v)
	if !ok {
		return 0, value.NewTypeError("%s cannot be used with %s, number required", fn, value.Describe(v))
	}
	return f, nil
}

// Int returns v as an int, truncating floats.
func Int(fn string, v value.Value) (int, error) {
	if !value.IsNumber(v) {
		return 0, value.NewTypeError("%s cannot be used with %s, number required", fn, value.Describe(v))
	}
	return value.ToInt(v)
}

// Entries converts definitions of one kind into FunctionEntry values.
func Entries[T functions.FunctionEntry](defs ...T) []functions.FunctionEntry {
	out := make([]functions.FunctionEntry, len(defs))
	for i, d := range defs {
		out[i] = d
	}
	return out
}
