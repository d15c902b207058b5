package value

import (
	"math"
	"strings"
)

// kindRank orders kinds: null < false < true < numbers < strings < arrays < objects.
func kindRank(v Value) int {
	switch v := v.(type) {
	case Null:
		return 0
	case Bool:
		if v {
			return 2
		}
		return 1
	case Int, Float:
		return 3
	case String:
		return 4
	case Array:
		return 5
	case *Object:
		return 6
	default:
		return 7
	}
}

// Compare returns -1, 0 or +1 following the total order of values.
//
// Numbers compare by mathematical value, without converting large integers
// to floats. NaN sorts below every other number and compares equal to
// itself, so that sorting stays a total order.
func Compare(a, b Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch a := a.(type) {
	case Int, Float:
		return compareNumbers(a, b)
	case String:
		return strings.Compare(string(a), string(b.(String)))
	case Array:
		bb := b.(Array)
		for i := 0; i < len(a) && i < len(bb); i++ {
			if c := Compare(a[i], bb[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(a), len(bb))
	case *Object:
		return compareObjects(a, b.(*Object))
	}
	return 0
}

func compareObjects(a, b *Object) int {
	ka, kb := a.SortedKeys(), b.SortedKeys()
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := strings.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
	}
	if c := cmpInt(len(ka), len(kb)); c != 0 {
		return c
	}
	for _, k := range ka {
		va, _ := a.Get(k)
		vb, _ := b.Get(k)
		if c := Compare(va, vb); c != 0 {
			return c
		}
	}
	return 0
}

func compareNumbers(a, b Value) int {
	switch a := a.(type) {
	case Int:
		switch b := b.(type) {
		case Int:
			return cmpInt(int(a), int(b))
		case Float:
			return cmpIntFloat(int(a), float64(b))
		}
	case Float:
		switch b := b.(type) {
		case Int:
			return -cmpIntFloat(int(b), float64(a))
		case Float:
			return cmpFloat(float64(a), float64(b))
		}
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// cmpIntFloat compares an integer with a float exactly.
func cmpIntFloat(i int, f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= 9223372036854775808.0:
		return -1
	case f < -9223372036854775808.0:
		return 1
	}
	t := math.Trunc(f)
	if c := cmpInt(i, int(t)); c != 0 {
		return c
	}
	switch frac := f - t; {
	case frac > 0:
		return -1
	case frac < 0:
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b are equal. Unlike Compare, NaN is not equal
// to anything, itself included.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Int:
		switch b := b.(type) {
		case Int:
			return a == b
		case Float:
			return cmpIntFloat(int(a), float64(b)) == 0
		}
		return false
	case Float:
		switch b := b.(type) {
		case Int:
			return cmpIntFloat(int(b), float64(a)) == 0
		case Float:
			return a == b
		}
		return false
	case String:
		bb, ok := b.(String)
		return ok && a == bb
	case Array:
		bb, ok := b.(Array)
		if !ok || len(a) != len(bb) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bb[i]) {
				return false
			}
		}
		return true
	case *Object:
		bb, ok := b.(*Object)
		if !ok || a.Len() != bb.Len() {
			return false
		}
		for _, e := range a.Entries() {
			v, ok := bb.Get(e.Key)
			if !ok || !Equal(e.Value, v) {
				return false
			}
		}
		return true
	}
	return false
}
