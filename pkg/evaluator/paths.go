package evaluator

import (
	"github.com/sandrolain/gojaq/pkg/value"
)

// pathList is a path in reverse order; paths share their prefixes.
type pathList struct {
	key  value.Value
	next *pathList
	n    int
}

func (p *pathList) push(k value.Value) *pathList {
	n := 1
	if p != nil {
		n = p.n + 1
	}
	return &pathList{key: k, next: p, n: n}
}

func (p *pathList) array() value.Array {
	if p == nil {
		return value.Array{}
	}
	out := make(value.Array, p.n)
	for i := p.n - 1; p != nil; i, p = i-1, p.next {
		out[i] = p.key
	}
	return out
}

// pathVal is a location reached by path(f) and the value found there.
type pathVal struct {
	v    value.Value
	path *pathList
}

func pathOf(v value.Value, p value.Array) pathVal {
	var l *pathList
	for _, k := range p {
		l = l.push(k)
	}
	return pathVal{v: v, path: l}
}

// getParts applies path parts in getter mode. Key and bound filters run
// on root, the input of the path.
func (m *machine) getParts(parts []part, e env, root, v value.Value) Iter {
	if len(parts) == 0 {
		return one(v)
	}
	p := parts[0]
	var it Iter
	switch p.kind {
	case partIterate:
		vs, err := value.Values(v)
		if err != nil {
			it = failed(err)
		} else {
			it = values(vs)
		}
	case partIndex:
		it = flatMap(m.run(p.from, e, root, nil), func(k value.Value) Iter {
			return result(value.Index(v, k))
		})
	case partSlice:
		it = m.sliceBounds(p, e, root, func(from, to value.Value) Iter {
			return result(value.Slice(v, from, to))
		})
	}
	if p.opt {
		it = dropCaught(it)
	}
	if len(parts) == 1 {
		return it
	}
	return flatMap(it, func(x value.Value) Iter {
		return m.getParts(parts[1:], e, root, x)
	})
}

// sliceBounds runs f for every pair of slice bounds; the lower bound
// varies slowest.
func (m *machine) sliceBounds(p part, e env, root value.Value, f func(from, to value.Value) Iter) Iter {
	bound := func(b node) Iter {
		if b == nil {
			return one(value.NullValue)
		}
		return m.run(b, e, root, nil)
	}
	return flatMap(bound(p.from), func(from value.Value) Iter {
		return flatMap(bound(p.to), func(to value.Value) Iter {
			return f(from, to)
		})
	})
}

func dropCaught[T any](it seq[T]) seq[T] {
	return filterSeq(it, func(err error) bool {
		_, ok := caught(err)
		return ok
	})
}

// paths runs f in path mode: it yields the locations f visits in pv.v,
// together with the value found at each.
func (m *machine) paths(f node, e env, pv pathVal) seq[pathVal] {
	switch f := f.(type) {
	case idNode:
		return once(pv)

	case *pathNode:
		return flatMap(m.paths(f.head, e, pv), func(x pathVal) seq[pathVal] {
			return m.pathParts(f.parts, e, pv.v, x)
		})

	case *pipeNode:
		return flatMap(m.paths(f.l, e, pv), func(x pathVal) seq[pathVal] {
			return m.paths(f.r, e, x)
		})

	case *commaNode:
		return chain(m.paths(f.l, e, pv), func() seq[pathVal] {
			return m.paths(f.r, e, pv)
		})

	case *ifNode:
		return flatMap(m.run(f.cond, e, pv.v, nil), func(c value.Value) seq[pathVal] {
			if value.Truthy(c) {
				return m.paths(f.then, e, pv)
			}
			return m.paths(f.els, e, pv)
		})

	case *altNode:
		return lazy(func() seq[pathVal] {
			it := m.paths(f.l, e, pv)
			first, err := nextTruthy(it)
			if err == Done {
				return m.paths(f.r, e, pv)
			}
			return chain(&onceSeq[pathVal]{v: first, err: err}, func() seq[pathVal] {
				return truthyPaths(it)
			})
		})

	case *tryNode:
		if f.catch != nil {
			return fail[pathVal](notAPath(f))
		}
		return untilCaught(m.paths(f.body, e, pv), nil)

	case *bindNode:
		return flatMap(m.run(f.src, e, pv.v, nil), func(x value.Value) seq[pathVal] {
			return flatMap(m.destructure(f.pat, e, pv.v, x), func(e env) seq[pathVal] {
				return m.paths(f.body, e, pv)
			})
		})

	case *labelNode:
		m.labels++
		id := m.labels
		return untilBreak(id, m.paths(f.body, e.bindLabel(id), pv))

	case *breakNode:
		return fail[pathVal](&breakError{id: e.at(f.idx).label, name: f.name})

	case *callNode:
		ce, err := m.callEnv(f, e)
		if err != nil {
			return fail[pathVal](err)
		}
		return m.paths(m.defs[f.fn].body, ce, pv)

	case *closureNode:
		c := e.at(f.idx).clo
		return m.paths(c.f, c.env, pv)

	case *nativeNode:
		if f.fn.paths == nil {
			return fail[pathVal](notAPath(f))
		}
		return f.fn.paths(m, pv, m.closures(f.args, e))
	}
	return fail[pathVal](notAPath(f))
}

func nextTruthy(it seq[pathVal]) (pathVal, error) {
	for {
		p, err := it.Next()
		if err != nil || value.Truthy(p.v) {
			return p, err
		}
	}
}

func truthyPaths(it seq[pathVal]) seq[pathVal] {
	return seqFunc[pathVal](func() (pathVal, error) {
		return nextTruthy(it)
	})
}

// pathParts applies path parts in path mode.
func (m *machine) pathParts(parts []part, e env, root value.Value, pv pathVal) seq[pathVal] {
	if len(parts) == 0 {
		return once(pv)
	}
	p := parts[0]
	var it seq[pathVal]
	switch p.kind {
	case partIterate:
		it = iteratePaths(pv)
	case partIndex:
		it = flatMap(m.run(p.from, e, root, nil), func(k value.Value) seq[pathVal] {
			x, err := value.Index(pv.v, k)
			if err != nil {
				return fail[pathVal](err)
			}
			return once(pathVal{v: x, path: pv.path.push(k)})
		})
	case partSlice:
		it = flatMap(m.sliceBounds(p, e, root, func(from, to value.Value) Iter {
			return one(value.Array{from, to})
		}), func(b value.Value) seq[pathVal] {
			bs := b.(value.Array)
			x, err := value.Slice(pv.v, bs[0], bs[1])
			if err != nil {
				return fail[pathVal](err)
			}
			key := value.NewObject(
				value.Entry{Key: "start", Value: bs[0]},
				value.Entry{Key: "end", Value: bs[1]},
			)
			return once(pathVal{v: x, path: pv.path.push(key)})
		})
	}
	if p.opt {
		it = dropCaught(it)
	}
	return flatMap(it, func(x pathVal) seq[pathVal] {
		return m.pathParts(parts[1:], e, root, x)
	})
}

// iteratePaths yields the elements of an array or object with their paths.
func iteratePaths(pv pathVal) seq[pathVal] {
	switch v := pv.v.(type) {
	case value.Array:
		out := make([]pathVal, len(v))
		for i, x := range v {
			out[i] = pathVal{v: x, path: pv.path.push(value.Int(i))}
		}
		return fromSlice(out)
	case *value.Object:
		entries := v.Entries()
		out := make([]pathVal, len(entries))
		for i, entry := range entries {
			out[i] = pathVal{v: entry.Value, path: pv.path.push(value.String(entry.Key))}
		}
		return fromSlice(out)
	}
	return fail[pathVal](value.NewTypeError("cannot iterate over %s", value.Describe(pv.v)))
}

// getPath walks path from v; a missing location yields null.
func getPath(v value.Value, path value.Array) (value.Value, error) {
	for _, k := range path {
		if _, ok := v.(value.Null); ok {
			return v, nil
		}
		var err error
		if o, ok := k.(*value.Object); ok {
			from, _ := o.Get("start")
			to, _ := o.Get("end")
			v, err = value.Slice(v, orNull(from), orNull(to))
		} else {
			v, err = value.Index(v, k)
		}
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func orNull(v value.Value) value.Value {
	if v == nil {
		return value.NullValue
	}
	return v
}
