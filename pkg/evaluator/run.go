package evaluator

import (
	"github.com/sandrolain/gojaq/pkg/types"
	"github.com/sandrolain/gojaq/pkg/value"
)

// run evaluates f on in. With a nil updater it yields the outputs of f;
// otherwise f is used as a path and run yields in with every location of f
// replaced by the outputs of upd.
func (m *machine) run(f node, e env, in value.Value, upd updater) Iter {
	switch f := f.(type) {
	case idNode:
		if upd != nil {
			return upd(in)
		}
		return one(in)

	case *constNode:
		if upd != nil {
			return failed(notAPath(f))
		}
		return one(f.v)

	case *pathNode:
		if upd != nil {
			return m.run(f.head, e, in, func(v value.Value) Iter {
				return m.updateParts(f.parts, e, in, v, upd)
			})
		}
		return flatMap(m.run(f.head, e, in, nil), func(v value.Value) Iter {
			return m.getParts(f.parts, e, in, v)
		})

	case *pipeNode:
		if upd != nil {
			return m.run(f.l, e, in, func(v value.Value) Iter {
				return m.run(f.r, e, v, upd)
			})
		}
		return flatMap(m.run(f.l, e, in, nil), func(v value.Value) Iter {
			return m.run(f.r, e, v, nil)
		})

	case *commaNode:
		if upd != nil {
			return flatMap(m.run(f.l, e, in, upd), func(v value.Value) Iter {
				return m.run(f.r, e, v, upd)
			})
		}
		return chain(m.run(f.l, e, in, nil), func() Iter {
			return m.run(f.r, e, in, nil)
		})

	case *ifNode:
		cond := m.run(f.cond, e, m.view(in, upd), nil)
		return flatMap(cond, func(c value.Value) Iter {
			if value.Truthy(c) {
				return m.run(f.then, e, in, upd)
			}
			return m.run(f.els, e, in, upd)
		})

	case *altNode:
		return m.alt(f, e, in, upd)

	case *tryNode:
		if upd != nil {
			if f.catch != nil {
				return failed(notAPath(f))
			}
			return m.tryUpdate(f, e, in, upd)
		}
		return m.try(f, e, in)

	case *bindNode:
		if upd != nil {
			return m.bindUpdate(f, e, in, upd)
		}
		return flatMap(m.run(f.src, e, in, nil), func(x value.Value) Iter {
			return flatMap(m.destructure(f.pat, e, in, x), func(e env) Iter {
				return m.run(f.body, e, in, nil)
			})
		})

	case *labelNode:
		m.labels++
		id := m.labels
		return untilBreak(id, m.run(f.body, e.bindLabel(id), in, upd))

	case *breakNode:
		return failed(&breakError{id: e.at(f.idx).label, name: f.name})

	case *callNode:
		ce, err := m.callEnv(f, e)
		if err != nil {
			return failed(err)
		}
		return m.run(m.defs[f.fn].body, ce, in, upd)

	case *closureNode:
		c := e.at(f.idx).clo
		return m.run(c.f, c.env, in, upd)

	case *nativeNode:
		args := m.closures(f.args, e)
		if upd != nil {
			return m.nativeUpdate(f.fn, in, args, upd)
		}
		return f.fn.run(m, in, args)
	}

	if upd != nil {
		return failed(notAPath(f))
	}

	switch f := f.(type) {
	case *varNode:
		return one(e.at(f.idx).val)

	case *arrayNode:
		if f.f == nil {
			return one(value.Array{})
		}
		return lazy(func() Iter {
			vs, err := collect(m.run(f.f, e, in, nil))
			if err != nil {
				return failed(err)
			}
			if vs == nil {
				vs = value.Array{}
			}
			return one(value.Array(vs))
		})

	case *objectNode:
		return m.object(f.entries, e, in, make([]value.Entry, 0, len(f.entries)))

	case *negNode:
		return mapSeq(m.run(f.f, e, in, nil), value.Neg)

	case *mathNode:
		return m.cartesian(f.l, f.r, e, in, func(l, r value.Value) (value.Value, error) {
			return f.op.Apply(l, r)
		})

	case *cmpNode:
		return m.cartesian(f.l, f.r, e, in, func(l, r value.Value) (value.Value, error) {
			return value.FromBool(f.op.apply(l, r)), nil
		})

	case *andNode:
		return flatMap(m.run(f.l, e, in, nil), func(l value.Value) Iter {
			if !value.Truthy(l) {
				return one(value.False)
			}
			return mapSeq(m.run(f.r, e, in, nil), truthy)
		})

	case *orNode:
		return flatMap(m.run(f.l, e, in, nil), func(l value.Value) Iter {
			if value.Truthy(l) {
				return one(value.True)
			}
			return mapSeq(m.run(f.r, e, in, nil), truthy)
		})

	case *reduceNode:
		return m.fold(f.src, f.pat, f.init, f.update, nil, false, e, in)

	case *foreachNode:
		return m.fold(f.src, f.pat, f.init, f.update, f.extract, true, e, in)

	case *updateNode:
		return m.update(f, e, in)

	case *interpNode:
		return m.interp(f.parts, e, in, "")
	}
	return failed(types.NewError(types.ErrSyntaxError, "cannot evaluate "+f.describe(), -1))
}

func truthy(v value.Value) (value.Value, error) {
	return value.FromBool(value.Truthy(v)), nil
}

// cartesian applies op to every pair of outputs of l and r. The outputs of
// r are collected first; r varies fastest.
func (m *machine) cartesian(l, r node, e env, in value.Value, op func(l, r value.Value) (value.Value, error)) Iter {
	return lazy(func() Iter {
		rs := collectAll(m.run(r, e, in, nil))
		return flatMap(m.run(l, e, in, nil), func(lv value.Value) Iter {
			if len(rs) == 1 {
				if rs[0].err != nil {
					return failed(rs[0].err)
				}
				return result(op(lv, rs[0].v))
			}
			return mapSeq(replay(rs), func(rv value.Value) (value.Value, error) {
				return op(lv, rv)
			})
		})
	})
}

// object builds objects from the remaining entries; the first entry varies
// slowest and, within an entry, the key varies slower than the value.
func (m *machine) object(entries []objEntry, e env, in value.Value, acc []value.Entry) Iter {
	if len(entries) == 0 {
		return one(value.NewObject(acc...))
	}
	entry, rest := entries[0], entries[1:]
	withKey := func(k value.Value) Iter {
		key, ok := k.(value.String)
		if !ok {
			return failed(value.NewTypeError("object keys must be strings, got %s", value.Describe(k)))
		}
		return flatMap(m.run(entry.val, e, in, nil), func(v value.Value) Iter {
			next := append(acc[:len(acc):len(acc)], value.Entry{Key: string(key), Value: v})
			return m.object(rest, e, in, next)
		})
	}
	if k, ok := entry.key.(*constNode); ok {
		return withKey(k.v)
	}
	return flatMap(m.run(entry.key, e, in, nil), withKey)
}

// interp concatenates the parts of an interpolated string. Literal parts
// are constant strings; the other parts are already formatted.
func (m *machine) interp(parts []node, e env, in value.Value, acc string) Iter {
	if len(parts) == 0 {
		return one(value.String(acc))
	}
	p, rest := parts[0], parts[1:]
	if k, ok := p.(*constNode); ok {
		if s, ok := k.v.(value.String); ok {
			return m.interp(rest, e, in, acc+string(s))
		}
	}
	return flatMap(m.run(p, e, in, nil), func(v value.Value) Iter {
		s, ok := v.(value.String)
		if !ok {
			return failed(value.NewTypeError("cannot interpolate %s", value.Describe(v)))
		}
		return m.interp(rest, e, in, acc+string(s))
	})
}

// alt implements `l // r`: the truthy outputs and errors of l, or the
// outputs of r when l has none.
func (m *machine) alt(f *altNode, e env, in value.Value, upd updater) Iter {
	if upd != nil {
		return lazy(func() Iter {
			for it := m.run(f.l, e, m.view(in, upd), nil); ; {
				v, err := it.Next()
				if err == Done {
					return m.run(f.r, e, in, upd)
				}
				if err == nil && value.Truthy(v) {
					return m.run(f.l, e, in, upd)
				}
			}
		})
	}
	return lazy(func() Iter {
		l := filterValues(m.run(f.l, e, in, nil), value.Truthy)
		v, err := l.Next()
		if err == Done {
			return m.run(f.r, e, in, nil)
		}
		return chain(&onceSeq[value.Value]{v: v, err: err}, func() Iter { return l })
	})
}

// filterValues keeps the values accepted by keep, and every error.
func filterValues(src Iter, keep func(value.Value) bool) Iter {
	return seqFunc[value.Value](func() (value.Value, error) {
		for {
			v, err := src.Next()
			if err != nil || keep(v) {
				return v, err
			}
		}
	})
}

// try yields the outputs of the body up to its first error, then the
// outputs of the handler run on the error payload.
func (m *machine) try(f *tryNode, e env, in value.Value) Iter {
	var handler func(value.Value) Iter
	if f.catch != nil {
		handler = func(payload value.Value) Iter {
			return m.run(f.catch, e, payload, nil)
		}
	}
	return untilCaught(m.run(f.body, e, in, nil), handler)
}

// untilCaught yields the outcomes of src up to its first catchable error,
// then the outputs of handler on the error payload, if handler is set.
func untilCaught[T any](src seq[T], handler func(value.Value) seq[T]) seq[T] {
	var rest seq[T]
	return seqFunc[T](func() (T, error) {
		if rest != nil {
			return rest.Next()
		}
		v, err := src.Next()
		if err == nil || err == Done {
			return v, err
		}
		payload, ok := caught(err)
		if !ok {
			return v, err
		}
		rest = empty[T]()
		if handler != nil {
			rest = handler(payload)
		}
		return rest.Next()
	})
}

// untilBreak yields the outcomes of src until a break to label id.
func untilBreak[T any](id uint64, src seq[T]) seq[T] {
	stopped := false
	return seqFunc[T](func() (T, error) {
		if !stopped {
			v, err := src.Next()
			b, ok := err.(*breakError)
			if !ok || b.id != id {
				return v, err
			}
			stopped = true
		}
		var zero T
		return zero, Done
	})
}

// callEnv builds the environment of a call to a definition: the
// definition site followed by the arguments.
func (m *machine) callEnv(f *callNode, e env) (env, error) {
	if err := m.tick(); err != nil {
		return env{}, err
	}
	if e.calls >= m.maxDepth {
		return env{}, types.NewError(types.ErrStackOverflow, "maximum recursion depth exceeded in "+f.name, -1)
	}
	ce := e.skip(f.skip)
	for _, a := range f.args {
		ce = ce.bindClosure(&closure{f: a, env: e})
	}
	ce.calls = e.calls + 1
	return ce, nil
}

func (m *machine) closures(fs []node, e env) []*closure {
	if len(fs) == 0 {
		return nil
	}
	out := make([]*closure, len(fs))
	for i, f := range fs {
		out[i] = &closure{f: f, env: e}
	}
	return out
}

// tryUpdate runs an update through `try p`: an error in the traversal
// ends the update; if nothing was produced yet, the input is kept.
func (m *machine) tryUpdate(f *tryNode, e env, in value.Value, upd updater) Iter {
	it := m.run(f.body, e, in, upd)
	yielded, done := false, false
	return seqFunc[value.Value](func() (value.Value, error) {
		if done {
			return nil, Done
		}
		v, err := it.Next()
		switch {
		case err == nil:
			yielded = true
			return v, nil
		case err == Done:
			return nil, Done
		}
		if _, ok := caught(err); !ok {
			return nil, err
		}
		done = true
		if !yielded {
			return in, nil
		}
		return nil, Done
	})
}

// bindUpdate updates through `src as $x | body`: the body is applied for
// every output of src in turn, each on the result of the previous one.
func (m *machine) bindUpdate(f *bindNode, e env, in value.Value, upd updater) Iter {
	return lazy(func() Iter {
		view := m.view(in, upd)
		it := one(in)
		for _, x := range collectAll(m.run(f.src, e, view, nil)) {
			if x.err != nil {
				return failed(x.err)
			}
			it = flatMap(it, func(v value.Value) Iter {
				return flatMap(m.destructure(f.pat, e, view, x.v), func(e env) Iter {
					return m.run(f.body, e, v, upd)
				})
			})
		}
		return it
	})
}

// destructure binds v to p, yielding one environment per combination of
// object pattern keys.
func (m *machine) destructure(p *pattern, e env, in, v value.Value) seq[env] {
	switch {
	case p.bind:
		return once(e.bind(v))
	case p.elems != nil:
		if _, ok := v.(value.Array); !ok && v.Kind() != value.KindNull {
			return fail[env](value.NewTypeError("cannot index %s with number", value.Describe(v)))
		}
		envs := once(e)
		for i, sub := range p.elems {
			x, err := value.Index(v, value.Int(i))
			if err != nil {
				return fail[env](err)
			}
			envs = flatMap(envs, func(e env) seq[env] {
				return m.destructure(sub, e, in, x)
			})
		}
		return envs
	}
	if _, ok := v.(*value.Object); !ok && v.Kind() != value.KindNull {
		return fail[env](value.NewTypeError("cannot index %s with string", value.Describe(v)))
	}
	envs := once(e)
	for _, entry := range p.entries {
		envs = flatMap(envs, func(cur env) seq[env] {
			return flatMap(m.run(entry.key, e, in, nil), func(k value.Value) seq[env] {
				if _, ok := k.(value.String); !ok {
					return fail[env](value.NewTypeError("cannot index object with %s", value.Describe(k)))
				}
				x, err := value.Index(v, k)
				if err != nil {
					return fail[env](err)
				}
				next := cur
				if entry.keyVar {
					next = next.bind(x)
				}
				if entry.val == nil {
					return once(next)
				}
				return m.destructure(entry.val, next, in, x)
			})
		})
	}
	return envs
}
