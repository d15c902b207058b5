// Package value defines the immutable data model shared by the parser, the
// evaluator and the codecs.
//
// A Value is one of Null, Bool, Int, Float, String, Array or *Object. Values
// are never mutated after construction: every operation that "changes" a value
// returns a new one, so values can be shared freely between branches of an
// evaluation and between goroutines.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Kind identifies the jq type of a value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the name reported by the type builtin.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a JSON-like value.
type Value interface {
	Kind() Kind
}

// Null is the JSON null.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Int is an integer number. Arithmetic between two Ints stays integral
// unless it overflows.
type Int int

// Float is an IEEE-754 double.
type Float float64

// String is UTF-8 text.
type String string

// Array is an ordered sequence of values. Arrays must not be modified once
// they have been handed to the evaluator.
type Array []Value

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBoolean }
func (Int) Kind() Kind    { return KindNumber }
func (Float) Kind() Kind  { return KindNumber }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind  { return KindArray }

var (
	// NullValue is the singleton null.
	NullValue Value = Null{}
	True      Value = Bool(true)
	False     Value = Bool(false)
)

// FromBool returns True or False.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Truthy reports whether v counts as true in conditions.
// Only null and false are falsy.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// TypeName returns the jq type name of v.
func TypeName(v Value) string {
	return v.Kind().String()
}

// IsNumber reports whether v is an Int or a Float.
func IsNumber(v Value) bool {
	return v.Kind() == KindNumber
}

// ToFloat returns the numeric value of v as a float64.
func ToFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Int:
		return float64(v), true
	case Float:
		return float64(v), true
	default:
		return 0, false
	}
}

// ToIndex converts v into an integer index. Only Int values are accepted:
// floats fail even when integral, so that `.[1.0]` is rejected the same way
// as `.[1.5]`.
func ToIndex(v Value) (int, error) {
	switch v := v.(type) {
	case Int:
		return int(v), nil
	case Float:
		return 0, NewTypeError("cannot use %s as integer", ToJSON(v))
	default:
		return 0, NewTypeError("cannot use %s (%s) as integer", TypeName(v), Truncate(ToJSON(v)))
	}
}

// ToInt converts v into an integer, accepting integral floats.
func ToInt(v Value) (int, error) {
	switch v := v.(type) {
	case Int:
		return int(v), nil
	case Float:
		f := float64(v)
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, NewTypeError("cannot use %s as integer", ToJSON(v))
		}
		if f >= math.MaxInt64 {
			return math.MaxInt, nil
		}
		if f <= math.MinInt64 {
			return math.MinInt, nil
		}
		return int(f), nil
	default:
		return 0, NewTypeError("cannot use %s (%s) as integer", TypeName(v), Truncate(ToJSON(v)))
	}
}

// FloatToNumber converts an integral float into an Int when it fits,
// otherwise it returns the Float unchanged.
func FloatToNumber(f float64) Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int(f))
	}
	return Float(f)
}

// FromGo converts a Go value into a Value.
//
// Supported inputs are the shapes produced by encoding/json (nil, bool,
// float64, json.Number, string, []any, map[string]any), Go integer and
// float types, string slices and maps, and Values themselves. Any other
// type is round-tripped through encoding/json.
func FromGo(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return NullValue, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int8:
		return Int(int(x)), nil
	case int16:
		return Int(int(x)), nil
	case int32:
		return Int(int(x)), nil
	case int64:
		return Int(int(x)), nil
	case uint8:
		return Int(int(x)), nil
	case uint16:
		return Int(int(x)), nil
	case uint32:
		return Int(int(x)), nil
	case uint:
		if x > math.MaxInt {
			return Float(float64(x)), nil
		}
		return Int(int(x)), nil
	case uint64:
		if x > math.MaxInt {
			return Float(float64(x)), nil
		}
		return Int(int(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		return ParseNumber(string(x))
	case string:
		return String(x), nil
	case []any:
		arr := make(Array, len(x))
		for i, e := range x {
			v, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case []string:
		arr := make(Array, len(x))
		for i, e := range x {
			arr[i] = String(e)
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, len(keys))
		for i, k := range keys {
			v, err := FromGo(x[k])
			if err != nil {
				return nil, err
			}
			entries[i] = Entry{Key: k, Value: v}
		}
		return NewObject(entries...), nil
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, len(keys))
		for i, k := range keys {
			entries[i] = Entry{Key: k, Value: String(x[k])}
		}
		return NewObject(entries...), nil
	}

	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return NullValue, nil
	}
	data, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T: %w", x, err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return FromGo(generic)
}

// ToGo converts v into plain Go values: nil, bool, int, float64, string,
// []any and map[string]any.
func ToGo(v Value) any {
	switch v := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(v)
	case Int:
		return int(v)
	case Float:
		return float64(v)
	case String:
		return string(v)
	case Array:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = ToGo(e)
		}
		return out
	case *Object:
		out := make(map[string]any, v.Len())
		for _, e := range v.entries {
			out[e.Key] = ToGo(e.Value)
		}
		return out
	default:
		return nil
	}
}

// ParseNumber parses a JSON number literal. Literals without a fraction or
// exponent become Int when they fit into an int, Float otherwise.
func ParseNumber(s string) (Value, error) {
	isInt := true
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', 'e', 'E':
			isInt = false
		}
	}
	if isInt {
		if i, err := strconv.ParseInt(s, 10, 0); err == nil {
			return Int(int(i)), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Float(f), nil
		}
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return Float(f), nil
}
