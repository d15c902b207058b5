package evaluator

import (
	"math"

	"github.com/sandrolain/gojaq/pkg/value"
)

var (
	mathFloor = math.Floor
	mathCeil  = math.Ceil
	// math.Round rounds half away from zero.
	mathRound = math.Round
)

// rounder converts floats to integers with round; integers pass through.
// Results that do not fit into an int stay floats.
func rounder(name string, round func(float64) float64) func(value.Value) (value.Value, error) {
	return func(v value.Value) (value.Value, error) {
		switch v := v.(type) {
		case value.Int:
			return v, nil
		case value.Float:
			f := round(float64(v))
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return value.Float(f), nil
			}
			return value.FloatToNumber(f), nil
		}
		return nil, value.NewTypeError("%s: %s is not a number", name, value.Describe(v))
	}
}

func fnAbs(v value.Value) (value.Value, error) {
	switch v := v.(type) {
	case value.Int:
		if v < 0 {
			return value.Neg(v)
		}
		return v, nil
	case value.Float:
		return value.Float(math.Abs(float64(v))), nil
	}
	return nil, value.NewTypeError("%s has no absolute value", value.Describe(v))
}
