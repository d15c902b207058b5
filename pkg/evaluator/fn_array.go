package evaluator

import (
	"math"
	"slices"

	"github.com/sandrolain/gojaq/pkg/value"
)

func arrayInput(name string, v value.Value) (value.Array, error) {
	a, ok := v.(value.Array)
	if !ok {
		return nil, value.NewTypeError("%s cannot be %s, as it is not an array", value.Describe(v), name)
	}
	return a, nil
}

func fnSort(v value.Value) (value.Value, error) {
	a, err := arrayInput("sorted", v)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(a)
	slices.SortStableFunc(out, value.Compare)
	return out, nil
}

func fnUnique(v value.Value) (value.Value, error) {
	a, err := arrayInput("sorted", v)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(a)
	slices.SortStableFunc(out, value.Compare)
	return slices.CompactFunc(out, value.Equal), nil
}

func fnReverse(v value.Value) (value.Value, error) {
	switch v := v.(type) {
	case value.Null:
		return value.Array{}, nil
	case value.Array:
		out := slices.Clone(v)
		slices.Reverse(out)
		return out, nil
	case value.String:
		rs := []rune(string(v))
		slices.Reverse(rs)
		return value.String(rs), nil
	}
	return nil, value.NewTypeError("cannot reverse %s", value.Describe(v))
}

func fnFlatten0(v value.Value) (value.Value, error) {
	return flatten(v, math.MaxInt)
}

func fnFlatten(in value.Value, args []value.Value) (value.Value, error) {
	depth, err := value.ToInt(args[0])
	if err != nil {
		return nil, err
	}
	if depth < 0 {
		return nil, value.NewTypeError("flatten depth must not be negative")
	}
	return flatten(in, depth)
}

func flatten(v value.Value, depth int) (value.Value, error) {
	a, ok := v.(value.Array)
	if !ok {
		return nil, value.NewTypeError("cannot flatten %s", value.Describe(v))
	}
	out := value.Array{}
	var walk func(a value.Array, depth int)
	walk = func(a value.Array, depth int) {
		for _, x := range a {
			if sub, ok := x.(value.Array); ok && depth > 0 {
				walk(sub, depth-1)
				continue
			}
			out = append(out, x)
		}
	}
	walk(a, depth)
	return out, nil
}
