package evaluator

import (
	"slices"

	"github.com/sandrolain/gojaq/pkg/value"
)

func fnPath(m *machine, in value.Value, args []*closure) Iter {
	c := args[0]
	return mapSeq(m.paths(c.f, c.env, pathVal{v: in}), func(pv pathVal) (value.Value, error) {
		return pv.path.array(), nil
	})
}

func pathArg(v value.Value) (value.Array, error) {
	p, ok := v.(value.Array)
	if !ok {
		return nil, value.NewTypeError("Path must be specified as an array, got %s", value.Describe(v))
	}
	return p, nil
}

func fnGetpath(m *machine, in value.Value, args []*closure) Iter {
	return mapSeq(m.eval(args[0], in), func(pv value.Value) (value.Value, error) {
		p, err := pathArg(pv)
		if err != nil {
			return nil, err
		}
		return getPath(in, p)
	})
}

func pathsGetpath(m *machine, pv pathVal, args []*closure) seq[pathVal] {
	return mapSeq(m.eval(args[0], pv.v), func(x value.Value) (pathVal, error) {
		p, err := pathArg(x)
		if err != nil {
			return pathVal{}, err
		}
		v, err := getPath(pv.v, p)
		if err != nil {
			return pathVal{}, err
		}
		path := pv.path
		for _, k := range p {
			path = path.push(k)
		}
		return pathVal{v: v, path: path}, nil
	})
}

func updateGetpath(m *machine, in value.Value, args []*closure, upd updater) Iter {
	return lazy(func() Iter {
		ps := collectAll(m.eval(args[0], m.view(in, upd)))
		return m.sequential(in, ps, false, func(cur, p value.Value) Iter {
			path, err := pathArg(p)
			if err != nil {
				return failed(err)
			}
			return m.updatePath(cur, path, upd)
		})
	})
}

func fnSetpath(m *machine, in value.Value, args []*closure) Iter {
	return m.argValues(in, args, func(vs []value.Value) Iter {
		p, err := pathArg(vs[0])
		if err != nil {
			return failed(err)
		}
		return result(setPath(in, p, vs[1]))
	})
}

// setPath sets the location at path to x. Missing objects and arrays are
// created; arrays are padded with null.
func setPath(v value.Value, path value.Array, x value.Value) (value.Value, error) {
	if len(path) == 0 {
		return x, nil
	}
	k, rest := path[0], path[1:]
	switch key := k.(type) {
	case value.String:
		var o *value.Object
		switch cur := v.(type) {
		case value.Null:
			o = value.NewObject()
		case *value.Object:
			o = cur
		default:
			return nil, value.NewTypeError("cannot index %s with %s", value.Describe(v), value.Describe(k))
		}
		old, ok := o.Get(string(key))
		if !ok {
			old = value.NullValue
		}
		y, err := setPath(old, rest, x)
		if err != nil {
			return nil, err
		}
		return o.Set(string(key), y), nil

	case value.Int, value.Float:
		var arr value.Array
		switch cur := v.(type) {
		case value.Null:
		case value.Array:
			arr = cur
		default:
			return nil, value.NewTypeError("cannot index %s with %s", value.Describe(v), value.Describe(k))
		}
		i, err := value.ToIndex(k)
		if err != nil {
			return nil, err
		}
		if i < 0 {
			i += len(arr)
			if i < 0 {
				return nil, value.NewIndexError("Out of bounds negative array index")
			}
		}
		old := value.NullValue
		if i < len(arr) {
			old = arr[i]
		}
		y, err := setPath(old, rest, x)
		if err != nil {
			return nil, err
		}
		out := make(value.Array, max(len(arr), i+1))
		copy(out, arr)
		for j := len(arr); j < i; j++ {
			out[j] = value.NullValue
		}
		out[i] = y
		return out, nil

	case *value.Object:
		var arr value.Array
		switch cur := v.(type) {
		case value.Null:
		case value.Array:
			arr = cur
		default:
			return nil, value.NewTypeError("cannot update slice of %s", value.Describe(v))
		}
		from, _ := key.Get("start")
		to, _ := key.Get("end")
		lo, hi, err := value.SliceBounds(orNull(from), orNull(to), len(arr))
		if err != nil {
			return nil, err
		}
		y, err := setPath(arr[lo:hi:hi], rest, x)
		if err != nil {
			return nil, err
		}
		repl, ok := y.(value.Array)
		if !ok {
			return nil, value.NewTypeError("A slice of an array can only be assigned another array")
		}
		out := make(value.Array, 0, len(arr)-(hi-lo)+len(repl))
		out = append(out, arr[:lo]...)
		out = append(out, repl...)
		return append(out, arr[hi:]...), nil
	}
	return nil, value.NewTypeError("invalid path component %s", value.Describe(k))
}

func fnDelpaths(m *machine, in value.Value, args []*closure) Iter {
	return mapSeq(m.eval(args[0], in), func(psv value.Value) (value.Value, error) {
		ps, ok := psv.(value.Array)
		if !ok {
			return nil, value.NewTypeError("Paths must be specified as an array, got %s", value.Describe(psv))
		}
		return delPaths(in, ps)
	})
}

// delPaths deletes every path of ps from v, longest and rightmost first so
// that earlier deletions do not move later locations.
func delPaths(v value.Value, ps value.Array) (value.Value, error) {
	sorted := slices.Clone(ps)
	slices.SortFunc(sorted, func(a, b value.Value) int { return value.Compare(b, a) })
	for _, p := range sorted {
		path, err := pathArg(p)
		if err != nil {
			return nil, err
		}
		if v, err = delPath(v, path); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func delPath(v value.Value, path value.Array) (value.Value, error) {
	if len(path) == 0 {
		return value.NullValue, nil
	}
	if _, ok := v.(value.Null); ok {
		return v, nil
	}
	k, rest := path[0], path[1:]
	if len(rest) == 0 {
		return deleteKey(v, k)
	}
	child, err := getPath(v, value.Array{k})
	if err != nil {
		return nil, err
	}
	if _, ok := child.(value.Null); ok {
		return v, nil
	}
	child, err = delPath(child, rest)
	if err != nil {
		return nil, err
	}
	return setPath(v, value.Array{k}, child)
}

func deleteKey(v, k value.Value) (value.Value, error) {
	switch cur := v.(type) {
	case *value.Object:
		s, ok := k.(value.String)
		if !ok {
			return nil, value.NewTypeError("cannot delete field at index %s of object", value.Describe(k))
		}
		return cur.Delete(string(s)), nil
	case value.Array:
		switch key := k.(type) {
		case value.Int, value.Float:
			i, err := value.ToIndex(key)
			if err != nil {
				return nil, err
			}
			if i < 0 {
				i += len(cur)
			}
			if i < 0 || i >= len(cur) {
				return v, nil
			}
			return slices.Delete(slices.Clone(cur), i, i+1), nil
		case *value.Object:
			from, _ := key.Get("start")
			to, _ := key.Get("end")
			lo, hi, err := value.SliceBounds(orNull(from), orNull(to), len(cur))
			if err != nil {
				return nil, err
			}
			return slices.Delete(slices.Clone(cur), lo, hi), nil
		}
	}
	return nil, value.NewTypeError("cannot delete field at index %s of %s", value.Describe(k), value.Describe(v))
}

func fnKeys(v value.Value) (value.Value, error) {
	if o, ok := v.(*value.Object); ok {
		keys := o.SortedKeys()
		out := make(value.Array, len(keys))
		for i, k := range keys {
			out[i] = value.String(k)
		}
		return out, nil
	}
	return fnKeysUnsorted(v)
}

func fnKeysUnsorted(v value.Value) (value.Value, error) {
	switch v := v.(type) {
	case *value.Object:
		keys := v.Keys()
		out := make(value.Array, len(keys))
		for i, k := range keys {
			out[i] = value.String(k)
		}
		return out, nil
	case value.Array:
		out := make(value.Array, len(v))
		for i := range v {
			out[i] = value.Int(i)
		}
		return out, nil
	}
	return nil, value.NewTypeError("%s has no keys", value.Describe(v))
}

func fnHas(in value.Value, args []value.Value) (value.Value, error) {
	ok, err := value.Has(in, args[0])
	if err != nil {
		return nil, err
	}
	return value.FromBool(ok), nil
}

func fnContains(in value.Value, args []value.Value) (value.Value, error) {
	ok, err := value.Contains(in, args[0])
	if err != nil {
		return nil, err
	}
	return value.FromBool(ok), nil
}
