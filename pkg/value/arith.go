package value

import (
	"math"
	"strings"
)

// Op is a binary arithmetic operator.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

// String returns the operator symbol.
func (op Op) String() string {
	return [...]string{"+", "-", "*", "/", "%"}[op]
}

// Apply applies op to a and b.
func (op Op) Apply(a, b Value) (Value, error) {
	switch op {
	case OpAdd:
		return Add(a, b)
	case OpSub:
		return Sub(a, b)
	case OpMul:
		return Mul(a, b)
	case OpDiv:
		return Div(a, b)
	default:
		return Mod(a, b)
	}
}

func opError(a, b Value, verb string) error {
	return NewTypeError("%s and %s cannot be %s", Describe(a), Describe(b), verb)
}

// numeric applies an integer operation when both operands are Int and a
// float operation otherwise. ok=false from iop means overflow, in which case
// the float operation is used.
func numeric(a, b Value, iop func(x, y int) (int, bool), fop func(x, y float64) float64) (Value, bool) {
	if x, ok := a.(Int); ok {
		if y, ok := b.(Int); ok {
			if r, ok := iop(int(x), int(y)); ok {
				return Int(r), true
			}
			return Float(fop(float64(x), float64(y))), true
		}
	}
	x, ok1 := ToFloat(a)
	y, ok2 := ToFloat(b)
	if !ok1 || !ok2 {
		return nil, false
	}
	return Float(fop(x, y)), true
}

func addInt(x, y int) (int, bool) {
	s := x + y
	if (x > 0 && y > 0 && s < 0) || (x < 0 && y < 0 && s >= 0) {
		return 0, false
	}
	return s, true
}

func subInt(x, y int) (int, bool) {
	s := x - y
	if (y > 0 && s > x) || (y < 0 && s < x) {
		return 0, false
	}
	return s, true
}

func mulInt(x, y int) (int, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	p := x * y
	if p/y != x || (x == -1 && y == math.MinInt) || (y == -1 && x == math.MinInt) {
		return 0, false
	}
	return p, true
}

// Add implements `+`.
func Add(a, b Value) (Value, error) {
	if _, ok := a.(Null); ok {
		return b, nil
	}
	if _, ok := b.(Null); ok {
		return a, nil
	}
	if r, ok := numeric(a, b, addInt, func(x, y float64) float64 { return x + y }); ok {
		return r, nil
	}
	switch x := a.(type) {
	case String:
		if y, ok := b.(String); ok {
			return x + y, nil
		}
	case Array:
		if y, ok := b.(Array); ok {
			if len(x) == 0 {
				return y, nil
			}
			if len(y) == 0 {
				return x, nil
			}
			out := make(Array, 0, len(x)+len(y))
			return append(append(out, x...), y...), nil
		}
	case *Object:
		if y, ok := b.(*Object); ok {
			return x.Merge(y), nil
		}
	}
	return nil, opError(a, b, "added")
}

// Sub implements `-`.
func Sub(a, b Value) (Value, error) {
	if r, ok := numeric(a, b, subInt, func(x, y float64) float64 { return x - y }); ok {
		return r, nil
	}
	if x, ok := a.(Array); ok {
		if y, ok := b.(Array); ok {
			out := make(Array, 0, len(x))
		outer:
			for _, e := range x {
				for _, r := range y {
					if Equal(e, r) {
						continue outer
					}
				}
				out = append(out, e)
			}
			return out, nil
		}
	}
	return nil, opError(a, b, "subtracted")
}

// Mul implements `*`.
func Mul(a, b Value) (Value, error) {
	if r, ok := numeric(a, b, mulInt, func(x, y float64) float64 { return x * y }); ok {
		return r, nil
	}
	switch x := a.(type) {
	case String:
		if IsNumber(b) {
			return repeat(x, b), nil
		}
	case Int, Float:
		if s, ok := b.(String); ok {
			return repeat(s, a), nil
		}
	case *Object:
		if y, ok := b.(*Object); ok {
			return x.DeepMerge(y), nil
		}
	}
	return nil, opError(a, b, "multiplied")
}

// repeat concatenates n copies of s; n <= 0 yields null.
func repeat(s String, n Value) Value {
	f, _ := ToFloat(n)
	if f <= 0 || math.IsNaN(f) {
		return NullValue
	}
	count := int(math.Ceil(f))
	if count < 1 {
		count = 1
	}
	return String(strings.Repeat(string(s), count))
}

// Div implements `/`. Numbers always divide as floats; division by zero
// yields nan or an infinity. Strings are split by the divisor.
func Div(a, b Value) (Value, error) {
	if x, ok := ToFloat(a); ok {
		if y, ok := ToFloat(b); ok {
			return Float(x / y), nil
		}
	}
	if x, ok := a.(String); ok {
		if y, ok := b.(String); ok {
			return Split(x, y), nil
		}
	}
	return nil, opError(a, b, "divided")
}

// Split splits s by sep. An empty s yields an empty array.
func Split(s, sep String) Array {
	if s == "" {
		return Array{}
	}
	parts := strings.Split(string(s), string(sep))
	out := make(Array, len(parts))
	for i, p := range parts {
		out[i] = String(p)
	}
	return out
}

// Mod implements `%`. Integer modulo by zero is an error; floats use
// math.Mod.
func Mod(a, b Value) (Value, error) {
	if x, ok := a.(Int); ok {
		if y, ok := b.(Int); ok {
			if y == 0 {
				return nil, NewTypeError("%s and %s cannot be divided because the divisor is zero", Describe(a), Describe(b))
			}
			return x % y, nil
		}
	}
	x, ok1 := ToFloat(a)
	y, ok2 := ToFloat(b)
	if ok1 && ok2 {
		return Float(math.Mod(x, y)), nil
	}
	return nil, opError(a, b, "divided")
}

// Neg implements unary minus.
func Neg(v Value) (Value, error) {
	switch v := v.(type) {
	case Int:
		if v == math.MinInt {
			return Float(-float64(v)), nil
		}
		return -v, nil
	case Float:
		return -v, nil
	}
	return nil, NewTypeError("%s cannot be negated", Describe(v))
}
