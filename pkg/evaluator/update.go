package evaluator

import (
	"github.com/sandrolain/gojaq/pkg/value"
)

// tombstone marks an array element deleted by an update. Elements are only
// removed once the update is complete, so that positions visited later in
// the same update still refer to the original elements.
type tombstone struct{}

func (tombstone) Kind() value.Kind { return value.KindNull }

// update runs `path |= f`.
func (m *machine) update(f *updateNode, e env, in value.Value) Iter {
	upd := func(v value.Value) Iter {
		if m.tombstones {
			v = sweep(v)
		}
		return mapErrors(m.run(f.f, e, v, nil), func(err error) error {
			return &updError{err: err}
		})
	}
	it := m.run(f.path, e, in, upd)
	return seqFunc[value.Value](func() (value.Value, error) {
		v, err := it.Next()
		if err == nil {
			if m.tombstones {
				v = sweep(v)
			}
			return v, nil
		}
		if u, ok := err.(*updError); ok {
			return nil, u.err
		}
		return nil, err
	})
}

// mapErrors replaces the error outcomes of src.
func mapErrors(src Iter, f func(error) error) Iter {
	return seqFunc[value.Value](func() (value.Value, error) {
		v, err := src.Next()
		if err != nil && err != Done {
			return nil, f(err)
		}
		return v, err
	})
}

// sweep removes tombstones from v.
func sweep(v value.Value) value.Value {
	out, _ := sweepValue(v)
	return out
}

func sweepValue(v value.Value) (value.Value, bool) {
	switch v := v.(type) {
	case value.Array:
		var out value.Array
		for i, x := range v {
			if _, dead := x.(tombstone); dead {
				if out == nil {
					out = append(make(value.Array, 0, len(v)), v[:i]...)
				}
				continue
			}
			y, changed := sweepValue(x)
			if changed && out == nil {
				out = append(make(value.Array, 0, len(v)), v[:i]...)
			}
			if out != nil {
				out = append(out, y)
			}
		}
		if out == nil {
			return v, false
		}
		return out, true
	case *value.Object:
		var o *value.Object
		for _, entry := range v.Entries() {
			if y, changed := sweepValue(entry.Value); changed {
				if o == nil {
					o = v
				}
				o = o.Set(entry.Key, y)
			}
		}
		if o == nil {
			return v, false
		}
		return o, true
	}
	return v, false
}

// view returns the value a condition evaluated during an update observes:
// deleted elements read as null.
func (m *machine) view(v value.Value, upd updater) value.Value {
	if upd == nil || !m.tombstones {
		return v
	}
	out, _ := nullify(v)
	return out
}

func nullify(v value.Value) (value.Value, bool) {
	switch v := v.(type) {
	case tombstone:
		return value.NullValue, true
	case value.Array:
		var out value.Array
		for i, x := range v {
			y, changed := nullify(x)
			if changed && out == nil {
				out = append(value.Array(nil), v...)
			}
			if out != nil {
				out[i] = y
			}
		}
		if out == nil {
			return v, false
		}
		return out, true
	case *value.Object:
		var o *value.Object
		for _, entry := range v.Entries() {
			if y, changed := nullify(entry.Value); changed {
				if o == nil {
					o = v
				}
				o = o.Set(entry.Key, y)
			}
		}
		if o == nil {
			return v, false
		}
		return o, true
	}
	return v, false
}

// updateParts applies the remaining parts of a path in update mode. Key and
// bound filters run on root, the input of the path.
func (m *machine) updateParts(parts []part, e env, root, v value.Value, upd updater) Iter {
	if len(parts) == 0 {
		return upd(v)
	}
	p := parts[0]
	next := func(x value.Value) Iter {
		return m.updateParts(parts[1:], e, root, x, upd)
	}
	switch p.kind {
	case partIterate:
		return m.updateIterate(v, p.opt, next)
	case partIndex:
		return lazy(func() Iter {
			keys := collectAll(m.run(p.from, e, m.view(root, upd), nil))
			return m.sequential(v, keys, p.opt, func(cur, k value.Value) Iter {
				return m.updateIndex(cur, k, p.opt, next)
			})
		})
	}
	return lazy(func() Iter {
		view := m.view(root, upd)
		froms := m.bounds(p.from, e, view)
		var pairs []outcome[value.Value]
		for _, from := range froms {
			if from.err != nil {
				pairs = append(pairs, from)
				continue
			}
			for _, to := range m.bounds(p.to, e, view) {
				if to.err != nil {
					pairs = append(pairs, to)
					continue
				}
				pairs = append(pairs, outcome[value.Value]{v: value.Array{from.v, to.v}})
			}
		}
		return m.sequential(v, pairs, p.opt, func(cur, b value.Value) Iter {
			bs := b.(value.Array)
			return m.updateSlice(cur, bs[0], bs[1], p.opt, next)
		})
	})
}

func (m *machine) bounds(f node, e env, in value.Value) []outcome[value.Value] {
	if f == nil {
		return []outcome[value.Value]{{v: value.NullValue}}
	}
	return collectAll(m.run(f, e, in, nil))
}

// sequential applies one update per key, each on the results of the
// previous one. Key errors end the update unless the part is optional.
func (m *machine) sequential(v value.Value, keys []outcome[value.Value], opt bool, apply func(cur, k value.Value) Iter) Iter {
	it := one(v)
	for _, k := range keys {
		if k.err != nil {
			if _, ok := caught(k.err); ok && opt {
				continue
			}
			return failed(k.err)
		}
		it = flatMap(it, func(cur value.Value) Iter {
			return apply(cur, k.v)
		})
	}
	return it
}

// structural returns v unchanged for optional parts and err otherwise.
func structural(v value.Value, opt bool, err error) Iter {
	if opt {
		return one(v)
	}
	return failed(err)
}

func (m *machine) updateIndex(v, k value.Value, opt bool, next updater) Iter {
	switch cur := v.(type) {
	case *value.Object:
		key, ok := k.(value.String)
		if !ok {
			return structural(v, opt, value.NewTypeError("cannot index object with %s", value.Describe(k)))
		}
		old, ok := cur.Get(string(key))
		if !ok {
			old = value.NullValue
		}
		return lazy(func() Iter {
			x, err := next(old).Next()
			switch {
			case err == Done:
				return one(cur.Delete(string(key)))
			case err != nil:
				return failed(err)
			}
			return one(cur.Set(string(key), x))
		})

	case value.Null:
		if key, ok := k.(value.String); ok {
			return lazy(func() Iter {
				x, err := next(value.NullValue).Next()
				switch {
				case err == Done:
					return one(v)
				case err != nil:
					return failed(err)
				}
				return one(value.NewObject(value.Entry{Key: string(key), Value: x}))
			})
		}
		if value.IsNumber(k) {
			if _, err := value.ToIndex(k); err != nil {
				return structural(v, opt, err)
			}
			return structural(v, opt, value.NewIndexError("cannot update null at index %s", value.ToJSON(k)))
		}

	case value.Array:
		if !value.IsNumber(k) {
			break
		}
		i, err := value.ToIndex(k)
		if err != nil {
			return structural(v, opt, err)
		}
		if i < 0 {
			i += len(cur)
		}
		if i < 0 || i >= len(cur) {
			return structural(v, opt, value.NewIndexError("index %s is out of bounds for array of length %d", value.ToJSON(k), len(cur)))
		}
		if _, dead := cur[i].(tombstone); dead {
			return one(v)
		}
		return m.forkArray(cur, i, next(cur[i]))
	}
	return structural(v, opt, value.NewTypeError("cannot index %s with %s", value.Describe(v), value.Describe(k)))
}

// forkArray yields a copy of arr with arr[i] replaced by every output of
// outs. If there are none, the element is deleted.
func (m *machine) forkArray(arr value.Array, i int, outs Iter) Iter {
	n := 0
	return seqFunc[value.Value](func() (value.Value, error) {
		if n < 0 {
			return nil, Done
		}
		x, err := outs.Next()
		switch {
		case err == Done:
			if n > 0 {
				return nil, Done
			}
			n = -1
			m.tombstones = true
			x = tombstone{}
		case err != nil:
			n++
			return nil, err
		}
		n++
		out := append(value.Array(nil), arr...)
		out[i] = x
		return out, nil
	})
}

// updateIterate updates every element of an array or object. Object values
// take the first output of next; array elements fork.
func (m *machine) updateIterate(v value.Value, opt bool, next updater) Iter {
	switch cur := v.(type) {
	case *value.Object:
		return lazy(func() Iter {
			o := cur
			for _, entry := range cur.Entries() {
				x, err := next(entry.Value).Next()
				switch {
				case err == Done:
					o = o.Delete(entry.Key)
				case err != nil:
					return failed(err)
				default:
					o = o.Set(entry.Key, x)
				}
			}
			return one(o)
		})

	case value.Array:
		return lazy(func() Iter {
			outs := make([][]outcome[value.Value], len(cur))
			single := true
			for i, x := range cur {
				if _, dead := x.(tombstone); dead {
					continue
				}
				outs[i] = collectAll(next(x))
				if len(outs[i]) != 1 || outs[i][0].err != nil {
					single = false
				}
			}
			if single {
				out := make(value.Array, len(cur))
				for i, x := range cur {
					out[i] = x
					if outs[i] != nil {
						out[i] = outs[i][0].v
					}
				}
				return one(out)
			}
			return m.product(cur, outs, 0, make(value.Array, 0, len(cur)))
		})
	}
	return structural(v, opt, value.NewTypeError("cannot iterate over %s", value.Describe(v)))
}

// product yields one array per combination of element outputs; the first
// element varies slowest.
func (m *machine) product(arr value.Array, outs [][]outcome[value.Value], i int, acc value.Array) Iter {
	for ; i < len(arr); i++ {
		if _, dead := arr[i].(tombstone); dead {
			acc = append(acc, arr[i])
			continue
		}
		if len(outs[i]) == 0 {
			m.tombstones = true
			acc = append(acc, tombstone{})
			continue
		}
		if len(outs[i]) == 1 && outs[i][0].err == nil {
			acc = append(acc, outs[i][0].v)
			continue
		}
		break
	}
	if i == len(arr) {
		return one(acc)
	}
	return flatMap(replay(outs[i]), func(x value.Value) Iter {
		next := append(acc[:len(acc):len(acc)], x)
		return m.product(arr, outs, i+1, next)
	})
}

// updateSlice replaces arr[from:to] with the outputs of next, which must be
// arrays. If there are none, the elements of the range are deleted.
func (m *machine) updateSlice(v, from, to value.Value, opt bool, next updater) Iter {
	var arr value.Array
	switch cur := v.(type) {
	case value.Null:
	case value.Array:
		arr = cur
	case value.String:
		return structural(v, opt, value.NewTypeError("cannot update slice of %s", value.Describe(v)))
	default:
		return structural(v, opt, value.NewTypeError("cannot slice %s", value.Describe(v)))
	}
	lo, hi, err := value.SliceBounds(from, to, len(arr))
	if err != nil {
		return structural(v, opt, err)
	}
	outs := next(arr[lo:hi:hi])
	n := 0
	return seqFunc[value.Value](func() (value.Value, error) {
		if n < 0 {
			return nil, Done
		}
		x, err := outs.Next()
		switch {
		case err == Done:
			if n != 0 {
				return nil, Done
			}
			n = -1
			if lo == hi {
				return v, nil
			}
			m.tombstones = true
			out := append(value.Array(nil), arr...)
			for i := lo; i < hi; i++ {
				out[i] = tombstone{}
			}
			return out, nil
		case err != nil:
			n++
			return nil, err
		}
		n++
		repl, ok := x.(value.Array)
		if !ok {
			return nil, value.NewTypeError("cannot update slice with %s", value.Describe(x))
		}
		out := make(value.Array, 0, len(arr)-(hi-lo)+len(repl))
		out = append(out, arr[:lo]...)
		out = append(out, repl...)
		return append(out, arr[hi:]...), nil
	})
}

// updatePath updates the location at path, given as a list of keys in the
// form produced by path(f).
func (m *machine) updatePath(v value.Value, path value.Array, upd updater) Iter {
	if len(path) == 0 {
		return upd(v)
	}
	next := func(x value.Value) Iter {
		return m.updatePath(x, path[1:], upd)
	}
	if o, ok := path[0].(*value.Object); ok {
		from, _ := o.Get("start")
		to, _ := o.Get("end")
		return m.updateSlice(v, orNull(from), orNull(to), false, next)
	}
	return m.updateIndex(v, path[0], false, next)
}

// nativeUpdate updates through a native filter: with its own update
// function if it has one, otherwise through the paths it visits.
func (m *machine) nativeUpdate(fn *native, in value.Value, args []*closure, upd updater) Iter {
	if fn.update != nil {
		return fn.update(m, in, args, upd)
	}
	if fn.paths == nil {
		return failed(notAPath(&nativeNode{fn: fn}))
	}
	return lazy(func() Iter {
		it := one(in)
		for _, p := range collectAll(fn.paths(m, pathVal{v: in}, args)) {
			if p.err != nil {
				return failed(p.err)
			}
			path := p.v.path.array()
			it = flatMap(it, func(cur value.Value) Iter {
				return m.updatePath(cur, path, upd)
			})
		}
		return it
	})
}
