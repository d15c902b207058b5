package evaluator

import (
	"math"
	"strings"

	"github.com/sandrolain/gojaq/pkg/value"
)

func fnType(v value.Value) (value.Value, error) {
	return value.String(value.TypeName(v)), nil
}

func fnUtf8ByteLength(v value.Value) (value.Value, error) {
	s, ok := v.(value.String)
	if !ok {
		return nil, value.NewTypeError("%s only strings have UTF-8 byte length", value.Describe(v))
	}
	return value.Int(len(s)), nil
}

func fnToString(v value.Value) (value.Value, error) {
	return value.String(value.ToString(v)), nil
}

func fnToNumber(v value.Value) (value.Value, error) {
	switch v := v.(type) {
	case value.Int, value.Float:
		return v, nil
	case value.String:
		s := string(v)
		if s == "" || strings.TrimSpace(s) != s {
			break
		}
		n, err := value.ParseNumber(s)
		if err != nil {
			break
		}
		return n, nil
	}
	return nil, value.NewTypeError("cannot parse %s as number", value.Describe(v))
}

func fnToArray(v value.Value) (value.Value, error) {
	if a, ok := v.(value.Array); ok {
		return a, nil
	}
	return value.Array{v}, nil
}

func fnInfinite(value.Value) (value.Value, error) { return value.Float(math.Inf(1)), nil }
func fnNaN(value.Value) (value.Value, error)      { return value.Float(math.NaN()), nil }

func number(name string, v value.Value) (float64, error) {
	f, ok := value.ToFloat(v)
	if !ok {
		return 0, value.NewTypeError("%s: %s is not a number", name, value.Describe(v))
	}
	return f, nil
}

func fnIsInfinite(v value.Value) (value.Value, error) {
	f, err := number("isinfinite", v)
	if err != nil {
		return nil, err
	}
	return value.FromBool(math.IsInf(f, 0)), nil
}

func fnIsNaN(v value.Value) (value.Value, error) {
	f, err := number("isnan", v)
	if err != nil {
		return nil, err
	}
	return value.FromBool(math.IsNaN(f)), nil
}

func fnIsNormal(v value.Value) (value.Value, error) {
	f, err := number("isnormal", v)
	if err != nil {
		return nil, err
	}
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return value.False, nil
	}
	return value.FromBool(math.Abs(f) >= 0x1p-1022), nil
}
