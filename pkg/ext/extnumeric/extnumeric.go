// Package extnumeric provides the libm functions of jq: sqrt, pow, log,
// the trigonometric family, frexp, modf, ldexp and friends.
//
// Functions of one number take it as input (`4 | sqrt`); functions of two
// or three numbers take them as arguments and ignore the input
// (`pow(2; 10)`). Results are floats, except for ilogb and the exponent
// of frexp.
package extnumeric

import (
	"context"
	"math"

	"github.com/sandrolain/gojaq/pkg/ext/extutil"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

// All returns the Go functions of the package.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		unary("acos", math.Acos),
		unary("acosh", math.Acosh),
		unary("asin", math.Asin),
		unary("asinh", math.Asinh),
		unary("atan", math.Atan),
		unary("atanh", math.Atanh),
		unary("cbrt", math.Cbrt),
		unary("cos", math.Cos),
		unary("cosh", math.Cosh),
		unary("erf", math.Erf),
		unary("erfc", math.Erfc),
		unary("exp", math.Exp),
		unary("exp10", exp10),
		unary("exp2", math.Exp2),
		unary("expm1", math.Expm1),
		unary("fabs", math.Abs),
		unary("j0", math.J0),
		unary("j1", math.J1),
		unary("lgamma", lgamma),
		unary("log", math.Log),
		unary("log10", math.Log10),
		unary("log1p", math.Log1p),
		unary("log2", math.Log2),
		unary("logb", math.Logb),
		unary("gamma", lgamma),
		unary("nearbyint", math.RoundToEven),
		unary("rint", math.RoundToEven),
		unary("significand", significand),
		unary("sin", math.Sin),
		unary("sinh", math.Sinh),
		unary("sqrt", math.Sqrt),
		unary("tan", math.Tan),
		unary("tanh", math.Tanh),
		unary("tgamma", math.Gamma),
		unary("trunc", math.Trunc),
		unary("y0", math.Y0),
		unary("y1", math.Y1),
		Frexp(),
		Modf(),
		Ilogb(),
		LgammaR(),
		binary("atan2", math.Atan2),
		binary("copysign", math.Copysign),
		binary("drem", math.Remainder),
		binary("fdim", math.Dim),
		binary("fmax", fmax),
		binary("fmin", fmin),
		binary("fmod", math.Mod),
		binary("hypot", math.Hypot),
		binary("nextafter", math.Nextafter),
		binary("nexttoward", math.Nextafter),
		binary("pow", math.Pow),
		binary("remainder", math.Remainder),
		binary("scalb", scalb),
		withExp("ldexp", math.Ldexp),
		withExp("scalbln", math.Ldexp),
		withOrder("jn", math.Jn),
		withOrder("yn", math.Yn),
		Fma(),
	}
}

// AllEntries returns All as entries for evaluator.WithFunctions.
func AllEntries() []functions.FunctionEntry {
	return extutil.Entries(All()...)
}

func unary(name string, f func(float64) float64) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: name,
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			x, err := extutil.Float(name, in)
			if err != nil {
				return nil, err
			}
			return value.Float(f(x)), nil
		},
	}
}

func binary(name string, f func(x, y float64) float64) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  name,
		Arity: 2,
		Fn: func(_ context.Context, _ value.Value, args ...value.Value) (value.Value, error) {
			x, err := extutil.Float(name, args[0])
			if err != nil {
				return nil, err
			}
			y, err := extutil.Float(name, args[1])
			if err != nil {
				return nil, err
			}
			return value.Float(f(x, y)), nil
		},
	}
}

// withExp builds f(x; e) where e is an integer exponent.
func withExp(name string, f func(float64, int) float64) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  name,
		Arity: 2,
		Fn: func(_ context.Context, _ value.Value, args ...value.Value) (value.Value, error) {
			x, err := extutil.Float(name, args[0])
			if err != nil {
				return nil, err
			}
			e, err := extutil.Int(name, args[1])
			if err != nil {
				return nil, err
			}
			return value.Float(f(x, e)), nil
		},
	}
}

// withOrder builds f(n; x) where n is an integer order.
func withOrder(name string, f func(int, float64) float64) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  name,
		Arity: 2,
		Fn: func(_ context.Context, _ value.Value, args ...value.Value) (value.Value, error) {
			n, err := extutil.Int(name, args[0])
			if err != nil {
				return nil, err
			}
			x, err := extutil.Float(name, args[1])
			if err != nil {
				return nil, err
			}
			return value.Float(f(n, x)), nil
		},
	}
}

// Frexp returns frexp: [mantissa, exponent] with the mantissa in [0.5, 1).
func Frexp() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "frexp",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			x, err := extutil.Float("frexp", in)
			if err != nil {
				return nil, err
			}
			frac, exp := math.Frexp(x)
			return value.Array{value.Float(frac), value.Int(exp)}, nil
		},
	}
}

// Modf returns modf: [fractional part, integral part].
func Modf() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "modf",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			x, err := extutil.Float("modf", in)
			if err != nil {
				return nil, err
			}
			ip, frac := math.Modf(x)
			if math.IsInf(x, 0) {
				frac = 0
			}
			return value.Array{value.Float(frac), value.Float(ip)}, nil
		},
	}
}

// Ilogb returns ilogb, the binary exponent of the input as an integer.
func Ilogb() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "ilogb",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			x, err := extutil.Float("ilogb", in)
			if err != nil {
				return nil, err
			}
			return value.Int(math.Ilogb(x)), nil
		},
	}
}

// LgammaR returns lgamma_r: [lgamma, sign of gamma].
func LgammaR() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "lgamma_r",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			x, err := extutil.Float("lgamma_r", in)
			if err != nil {
				return nil, err
			}
			lg, sign := math.Lgamma(x)
			return value.Array{value.Float(lg), value.Float(float64(sign))}, nil
		},
	}
}

// Fma returns fma(x; y; z) = x*y + z with a single rounding.
func Fma() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "fma",
		Arity: 3,
		Fn: func(_ context.Context, _ value.Value, args ...value.Value) (value.Value, error) {
			var xs [3]float64
			for i, a := range args {
				x, err := extutil.Float("fma", a)
				if err != nil {
					return nil, err
				}
				xs[i] = x
			}
			return value.Float(math.FMA(xs[0], xs[1], xs[2])), nil
		},
	}
}

func exp10(x float64) float64 { return math.Pow(10, x) }

func lgamma(x float64) float64 {
	lg, _ := math.Lgamma(x)
	return lg
}

func significand(x float64) float64 {
	if x == 0 || math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	frac, _ := math.Frexp(x)
	return frac * 2
}

func scalb(x, e float64) float64 { return x * math.Pow(2, e) }

// fmax and fmin return the other operand when one is NaN.
func fmax(x, y float64) float64 {
	switch {
	case math.IsNaN(x):
		return y
	case math.IsNaN(y):
		return x
	}
	return math.Max(x, y)
}

func fmin(x, y float64) float64 {
	switch {
	case math.IsNaN(x):
		return y
	case math.IsNaN(y):
		return x
	}
	return math.Min(x, y)
}
