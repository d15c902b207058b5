package evaluator

import (
	"slices"

	"github.com/sandrolain/gojaq/pkg/value"
)

func fnSortBy(m *machine, in value.Value, args []*closure) Iter {
	return lazy(func() Iter {
		ks, err := m.keys("sorted", in, args[0])
		if err != nil {
			return failed(err)
		}
		slices.SortStableFunc(ks, func(a, b keyed) int { return value.Compare(a.key, b.key) })
		out := make(value.Array, len(ks))
		for i, k := range ks {
			out[i] = k.v
		}
		return one(out)
	})
}

func fnGroupBy(m *machine, in value.Value, args []*closure) Iter {
	return lazy(func() Iter {
		ks, err := m.keys("grouped", in, args[0])
		if err != nil {
			return failed(err)
		}
		slices.SortStableFunc(ks, func(a, b keyed) int { return value.Compare(a.key, b.key) })
		out := value.Array{}
		for i, k := range ks {
			if i == 0 || !value.Equal(k.key, ks[i-1].key) {
				out = append(out, value.Array{k.v})
				continue
			}
			last := out[len(out)-1].(value.Array)
			out[len(out)-1] = append(last, k.v)
		}
		return one(out)
	})
}

func fnRange2(m *machine, in value.Value, args []*closure) Iter {
	return m.argValues(in, args, func(vs []value.Value) Iter {
		return m.rangeOf(vs[0], vs[1], value.Int(1))
	})
}

func fnRange3(m *machine, in value.Value, args []*closure) Iter {
	return m.argValues(in, args, func(vs []value.Value) Iter {
		return m.rangeOf(vs[0], vs[1], vs[2])
	})
}

// rangeOf yields from, from+by, ... while the values stay before upto. A
// zero step yields nothing.
func (m *machine) rangeOf(from, upto, by value.Value) Iter {
	if !value.IsNumber(from) || !value.IsNumber(upto) || !value.IsNumber(by) {
		return failed(value.NewTypeError("Range bounds must be numeric"))
	}
	dir := value.Compare(by, value.Int(0))
	if dir == 0 {
		return none()
	}
	cur := from
	return seqFunc[value.Value](func() (value.Value, error) {
		if value.Compare(cur, upto)*dir >= 0 {
			return nil, Done
		}
		if err := m.tick(); err != nil {
			return nil, err
		}
		v := cur
		next, err := value.Add(cur, by)
		if err != nil {
			return nil, err
		}
		cur = next
		return v, nil
	})
}

func fnLimit(m *machine, in value.Value, args []*closure) Iter {
	return flatMap(m.eval(args[0], in), func(nv value.Value) Iter {
		n, err := value.ToInt(nv)
		if err != nil {
			return failed(err)
		}
		if n <= 0 {
			return none()
		}
		return take(m.eval(args[1], in), n)
	})
}

func fnFirst(m *machine, in value.Value, args []*closure) Iter {
	return lazy(func() Iter {
		return take(m.eval(args[0], in), 1)
	})
}

func fnLast(m *machine, in value.Value, args []*closure) Iter {
	return lazy(func() Iter {
		it := m.eval(args[0], in)
		var last value.Value
		for {
			v, err := it.Next()
			switch {
			case err == Done:
				if last == nil {
					return none()
				}
				return one(last)
			case err != nil:
				return failed(err)
			}
			last = v
		}
	})
}
