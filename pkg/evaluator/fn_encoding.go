package evaluator

import (
	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/value"
)

func fnToJSON(v value.Value) (value.Value, error) {
	return value.String(value.ToJSON(v)), nil
}

func fnFromJSON(v value.Value) (value.Value, error) {
	s, ok := v.(value.String)
	if !ok {
		return nil, value.NewTypeError("%s cannot be parsed as JSON", value.Describe(v))
	}
	out, err := codec.ParseJSON(string(s))
	if err != nil {
		return nil, value.NewTypeError("%s (while parsing '%s')", err.Error(), value.Truncate(string(s)))
	}
	return out, nil
}
