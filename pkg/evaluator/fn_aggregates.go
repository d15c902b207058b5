package evaluator

import (
	"github.com/sandrolain/gojaq/pkg/value"
)

// keyed pairs an element with the array of outputs of a key filter.
type keyed struct {
	key value.Value
	v   value.Value
}

// keys runs f on every element of in and collects its outputs as the
// element's key.
func (m *machine) keys(name string, in value.Value, f *closure) ([]keyed, error) {
	a, err := arrayInput(name, in)
	if err != nil {
		return nil, err
	}
	out := make([]keyed, len(a))
	for i, x := range a {
		k, err := collect(m.eval(f, x))
		if err != nil {
			return nil, err
		}
		out[i] = keyed{key: value.Array(k), v: x}
	}
	return out, nil
}

// extreme returns the element with the smallest key, or the largest one.
// Ties go to the first element for the smallest and the last for the
// largest.
func extreme(ks []keyed, largest bool) value.Value {
	if len(ks) == 0 {
		return value.NullValue
	}
	best := ks[0]
	for _, k := range ks[1:] {
		c := value.Compare(k.key, best.key)
		if (largest && c >= 0) || (!largest && c < 0) {
			best = k
		}
	}
	return best.v
}

func identityKeys(name string, v value.Value) ([]keyed, error) {
	a, err := arrayInput(name, v)
	if err != nil {
		return nil, err
	}
	out := make([]keyed, len(a))
	for i, x := range a {
		out[i] = keyed{key: x, v: x}
	}
	return out, nil
}

func fnMin(v value.Value) (value.Value, error) {
	ks, err := identityKeys("iterated", v)
	if err != nil {
		return nil, err
	}
	return extreme(ks, false), nil
}

func fnMax(v value.Value) (value.Value, error) {
	ks, err := identityKeys("iterated", v)
	if err != nil {
		return nil, err
	}
	return extreme(ks, true), nil
}

func fnMinBy(m *machine, in value.Value, args []*closure) Iter {
	return lazy(func() Iter {
		ks, err := m.keys("iterated", in, args[0])
		if err != nil {
			return failed(err)
		}
		return one(extreme(ks, false))
	})
}

func fnMaxBy(m *machine, in value.Value, args []*closure) Iter {
	return lazy(func() Iter {
		ks, err := m.keys("iterated", in, args[0])
		if err != nil {
			return failed(err)
		}
		return one(extreme(ks, true))
	})
}
