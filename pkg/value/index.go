package value

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Index returns v[k]. Missing keys and out of range positions yield null;
// null yields null for any key.
func Index(v, k Value) (Value, error) {
	switch v := v.(type) {
	case Null:
		return NullValue, nil
	case *Object:
		s, ok := k.(String)
		if !ok {
			return nil, NewTypeError("cannot index object with %s", Describe(k))
		}
		if x, ok := v.Get(string(s)); ok {
			return x, nil
		}
		return NullValue, nil
	case Array:
		switch k := k.(type) {
		case Int, Float:
			i, err := ToIndex(k)
			if err != nil {
				return nil, err
			}
			if i < 0 {
				i += len(v)
			}
			if i < 0 || i >= len(v) {
				return NullValue, nil
			}
			return v[i], nil
		case Array:
			return Indices(v, k), nil
		}
		return nil, NewTypeError("cannot index array with %s", Describe(k))
	}
	return nil, NewTypeError("cannot index %s with %s", Describe(v), Describe(k))
}

// Indices returns the positions at which sub occurs in v.
func Indices(v, sub Array) Value {
	if len(sub) == 0 {
		return NullValue
	}
	out := Array{}
	for i := 0; i+len(sub) <= len(v); i++ {
		match := true
		for j := range sub {
			if !Equal(v[i+j], sub[j]) {
				match = false
				break
			}
		}
		if match {
			out = append(out, Int(i))
		}
	}
	return out
}

// SliceBounds resolves from and to (null for an open end) against a
// sequence of length n, clamping the result into [0, n].
func SliceBounds(from, to Value, n int) (int, int, error) {
	bound := func(b Value, def int) (int, error) {
		if _, ok := b.(Null); ok {
			return def, nil
		}
		i, err := ToIndex(b)
		if err != nil {
			return 0, err
		}
		if i < 0 {
			i += n
		}
		return min(max(i, 0), n), nil
	}
	lo, err := bound(from, 0)
	if err != nil {
		return 0, 0, err
	}
	hi, err := bound(to, n)
	if err != nil {
		return 0, 0, err
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi, nil
}

// Slice returns v[from:to] for arrays, strings (by codepoint) and null.
func Slice(v, from, to Value) (Value, error) {
	switch v := v.(type) {
	case Null:
		return NullValue, nil
	case Array:
		lo, hi, err := SliceBounds(from, to, len(v))
		if err != nil {
			return nil, err
		}
		return v[lo:hi:hi], nil
	case String:
		s := string(v)
		n := utf8.RuneCountInString(s)
		lo, hi, err := SliceBounds(from, to, n)
		if err != nil {
			return nil, err
		}
		return String(runeSlice(s, lo, hi)), nil
	}
	return nil, NewTypeError("cannot slice %s", Describe(v))
}

func runeSlice(s string, lo, hi int) string {
	start, i := len(s), 0
	for pos := range s {
		if i == lo {
			start = pos
		}
		if i == hi {
			return s[start:pos]
		}
		i++
	}
	if lo >= i {
		return ""
	}
	return s[start:]
}

// Values returns the elements of an array or the values of an object.
func Values(v Value) ([]Value, error) {
	switch v := v.(type) {
	case Array:
		return v, nil
	case *Object:
		return v.Values(), nil
	}
	return nil, NewTypeError("cannot iterate over %s", Describe(v))
}

// Length implements `length`.
func Length(v Value) (Value, error) {
	switch v := v.(type) {
	case Null:
		return Int(0), nil
	case Int:
		if v < 0 {
			if v == math.MinInt {
				return Float(-float64(v)), nil
			}
			return -v, nil
		}
		return v, nil
	case Float:
		return Float(math.Abs(float64(v))), nil
	case String:
		return Int(utf8.RuneCountInString(string(v))), nil
	case Array:
		return Int(len(v)), nil
	case *Object:
		return Int(v.Len()), nil
	}
	return nil, NewTypeError("%s has no length", Describe(v))
}

// Has reports whether an object has key k or an array has position k.
func Has(v, k Value) (bool, error) {
	switch v := v.(type) {
	case *Object:
		if s, ok := k.(String); ok {
			return v.Has(string(s)), nil
		}
	case Array:
		if IsNumber(k) {
			i, err := ToIndex(k)
			if err != nil {
				return false, err
			}
			return i >= 0 && i < len(v), nil
		}
	}
	return false, NewTypeError("cannot check whether %s has a key %s", Describe(v), Describe(k))
}

// Contains implements `contains`: substrings for strings, recursive
// containment for arrays and objects, equality otherwise.
func Contains(a, b Value) (bool, error) {
	if a.Kind() != b.Kind() {
		return false, NewTypeError("%s and %s cannot have their containment checked", Describe(a), Describe(b))
	}
	switch a := a.(type) {
	case String:
		return strings.Contains(string(a), string(b.(String))), nil
	case Array:
		for _, y := range b.(Array) {
			found := false
			for _, x := range a {
				if x.Kind() != y.Kind() {
					continue
				}
				ok, err := Contains(x, y)
				if err != nil {
					return false, err
				}
				if ok {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		}
		return true, nil
	case *Object:
		for _, e := range b.(*Object).Entries() {
			x, ok := a.Get(e.Key)
			if !ok || x.Kind() != e.Value.Kind() {
				return false, nil
			}
			ok, err := Contains(x, e.Value)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return Equal(a, b), nil
}
