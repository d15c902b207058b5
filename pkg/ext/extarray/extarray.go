// Package extarray provides array helpers: bsearch, chunks, windows, sum,
// product, mean and the filter-taking count_by and sum_by.
package extarray

import (
	"context"
	"sort"

	"github.com/sandrolain/gojaq/pkg/ext/extutil"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

// All returns the functions with value arguments.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		Bsearch(),
		Chunks(),
		Windows(),
		fold("sum", value.Int(0), value.Add),
		fold("product", value.Int(1), value.Mul),
		Mean(),
	}
}

// AllAdvanced returns the functions taking filters.
func AllAdvanced() []functions.AdvancedCustomFunctionDef {
	return []functions.AdvancedCustomFunctionDef{
		CountBy(),
		SumBy(),
	}
}

// AllEntries returns All and AllAdvanced as entries for
// evaluator.WithFunctions.
func AllEntries() []functions.FunctionEntry {
	return append(extutil.Entries(All()...), extutil.Entries(AllAdvanced()...)...)
}

func array(fn string, v value.Value) (value.Array, error) {
	a, ok := v.(value.Array)
	if !ok {
		return nil, value.NewTypeError("%s cannot be used with %s, array required", fn, value.Describe(v))
	}
	return a, nil
}

func size(fn string, v value.Value) (int, error) {
	n, err := extutil.Int(fn, v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, value.NewTypeError("%s: size must be a positive integer, got %d", fn, n)
	}
	return n, nil
}

// Bsearch returns bsearch($x): the index of $x in the sorted input, or
// (-1 - insertion point) when it is absent.
func Bsearch() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "bsearch",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			a, err := array("bsearch", in)
			if err != nil {
				return nil, err
			}
			i := sort.Search(len(a), func(i int) bool {
				return value.Compare(a[i], args[0]) >= 0
			})
			if i < len(a) && value.Compare(a[i], args[0]) == 0 {
				return value.Int(i), nil
			}
			return value.Int(-1 - i), nil
		},
	}
}

// Chunks returns chunks($n): the input split into arrays of $n elements;
// the last one may be shorter.
func Chunks() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "chunks",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			a, err := array("chunks", in)
			if err != nil {
				return nil, err
			}
			n, err := size("chunks", args[0])
			if err != nil {
				return nil, err
			}
			out := make(value.Array, 0, (len(a)+n-1)/n)
			for i := 0; i < len(a); i += n {
				out = append(out, a[i:min(i+n, len(a)):min(i+n, len(a))])
			}
			return out, nil
		},
	}
}

// Windows returns windows($n): every run of $n consecutive elements.
func Windows() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "windows",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			a, err := array("windows", in)
			if err != nil {
				return nil, err
			}
			n, err := size("windows", args[0])
			if err != nil {
				return nil, err
			}
			out := value.Array{}
			for i := 0; i+n <= len(a); i++ {
				out = append(out, a[i:i+n:i+n])
			}
			return out, nil
		},
	}
}

func fold(name string, init value.Value, op func(a, b value.Value) (value.Value, error)) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: name,
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			a, err := array(name, in)
			if err != nil {
				return nil, err
			}
			acc := init
			for _, v := range a {
				if !value.IsNumber(v) {
					return nil, value.NewTypeError("%s: %s is not a number", name, value.Describe(v))
				}
				if acc, err = op(acc, v); err != nil {
					return nil, err
				}
			}
			return acc, nil
		},
	}
}

// Mean returns mean: the arithmetic mean of an array of numbers, null for
// an empty array.
func Mean() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "mean",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			a, err := array("mean", in)
			if err != nil {
				return nil, err
			}
			if len(a) == 0 {
				return value.NullValue, nil
			}
			sum := 0.0
			for _, v := range a {
				f, err := extutil.Float("mean", v)
				if err != nil {
					return nil, err
				}
				sum += f
			}
			return value.Float(sum / float64(len(a))), nil
		},
	}
}

// CountBy returns count_by(f): an object counting the elements of the
// input by the string that f yields for them. Every output of f counts.
func CountBy() functions.AdvancedCustomFunctionDef {
	return functions.AdvancedCustomFunctionDef{
		Name:  "count_by",
		Arity: 1,
		Fn: func(_ context.Context, c functions.Caller, in value.Value) ([]value.Value, error) {
			a, err := array("count_by", in)
			if err != nil {
				return nil, err
			}
			var order []string
			counts := map[string]int{}
			for _, v := range a {
				keys, err := c.Call(0, v)
				if err != nil {
					return nil, err
				}
				for _, k := range keys {
					s, err := extutil.String("count_by", k)
					if err != nil {
						return nil, err
					}
					if _, ok := counts[s]; !ok {
						order = append(order, s)
					}
					counts[s]++
				}
			}
			entries := make([]value.Entry, len(order))
			for i, k := range order {
				entries[i] = value.Entry{Key: k, Value: value.Int(counts[k])}
			}
			return []value.Value{value.NewObject(entries...)}, nil
		},
	}
}

// SumBy returns sum_by(f): the sum of the outputs of f over the elements
// of the input.
func SumBy() functions.AdvancedCustomFunctionDef {
	return functions.AdvancedCustomFunctionDef{
		Name:  "sum_by",
		Arity: 1,
		Fn: func(_ context.Context, c functions.Caller, in value.Value) ([]value.Value, error) {
			a, err := array("sum_by", in)
			if err != nil {
				return nil, err
			}
			var acc value.Value = value.Int(0)
			for _, v := range a {
				outs, err := c.Call(0, v)
				if err != nil {
					return nil, err
				}
				for _, o := range outs {
					if !value.IsNumber(o) {
						return nil, value.NewTypeError("sum_by: %s is not a number", value.Describe(o))
					}
					if acc, err = value.Add(acc, o); err != nil {
						return nil, err
					}
				}
			}
			return []value.Value{acc}, nil
		},
	}
}
