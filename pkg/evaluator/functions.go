package evaluator

import (
	"slices"
	"sync"

	"github.com/sandrolain/gojaq/pkg/value"
)

// native is a builtin implemented in Go. Arguments are passed as closures;
// natives with value parameters evaluate them with argValues.
type native struct {
	name  string
	arity int
	run   func(m *machine, in value.Value, args []*closure) Iter
	// paths makes the native usable in path(f) and, through paths, on the
	// left of assignments.
	paths func(m *machine, pv pathVal, args []*closure) seq[pathVal]
	// update, when set, is used for assignments instead of paths.
	update func(m *machine, in value.Value, args []*closure, upd updater) Iter
	// pathArgs lists the arguments that must themselves be paths.
	pathArgs []int
}

var (
	builtinNatives     map[string]*native
	builtinNativesOnce sync.Once
)

// initBuiltinNatives initializes the builtin registry.
func initBuiltinNatives() {
	builtinNativesOnce.Do(func() {
		all := []*native{
			// Core
			{name: "empty", run: fnEmpty, paths: pathsEmpty},
			{name: "error", run: fnError0, paths: pathsError0},
			{name: "error", arity: 1, run: fnError1},
			{name: "path", arity: 1, run: fnPath, pathArgs: []int{0}},
			{name: "getpath", arity: 1, run: fnGetpath, paths: pathsGetpath, update: updateGetpath},
			{name: "setpath", arity: 2, run: fnSetpath},
			{name: "delpaths", arity: 1, run: fnDelpaths},

			// Types
			{name: "type", run: simple(fnType)},
			{name: "length", run: simple(value.Length)},
			{name: "utf8bytelength", run: simple(fnUtf8ByteLength)},
			{name: "tostring", run: simple(fnToString)},
			{name: "tonumber", run: simple(fnToNumber)},
			{name: "toarray", run: simple(fnToArray)},
			{name: "infinite", run: simple(fnInfinite)},
			{name: "nan", run: simple(fnNaN)},
			{name: "isinfinite", run: simple(fnIsInfinite)},
			{name: "isnan", run: simple(fnIsNaN)},
			{name: "isnormal", run: simple(fnIsNormal)},

			// Objects
			{name: "keys", run: simple(fnKeys)},
			{name: "keys_unsorted", run: simple(fnKeysUnsorted)},
			{name: "has", arity: 1, run: withArgs(fnHas)},
			{name: "contains", arity: 1, run: withArgs(fnContains)},

			// Strings
			{name: "explode", run: simple(fnExplode)},
			{name: "implode", run: simple(fnImplode)},
			{name: "split", arity: 1, run: withArgs(fnSplit)},
			{name: "join", arity: 1, run: withArgs(fnJoin)},
			{name: "ltrimstr", arity: 1, run: withArgs(fnLtrimstr)},
			{name: "rtrimstr", arity: 1, run: withArgs(fnRtrimstr)},
			{name: "startswith", arity: 1, run: withArgs(fnStartswith)},
			{name: "endswith", arity: 1, run: withArgs(fnEndswith)},
			{name: "trim", run: simple(trimmer("trim", trimBoth))},
			{name: "ltrim", run: simple(trimmer("ltrim", trimLeft))},
			{name: "rtrim", run: simple(trimmer("rtrim", trimRight))},
			{name: "ascii_downcase", run: simple(fnASCIIDowncase)},
			{name: "ascii_upcase", run: simple(fnASCIIUpcase)},
			{name: "_strindices", arity: 1, run: withArgs(fnStrIndices)},

			// Encoding
			{name: "tojson", run: simple(fnToJSON)},
			{name: "fromjson", run: simple(fnFromJSON)},
			{name: "@text", run: simple(fnToString)},
			{name: "@json", run: simple(fnToJSON)},
			{name: "format", arity: 1, run: fnFormat},

			// Numbers
			{name: "floor", run: simple(rounder("floor", mathFloor))},
			{name: "round", run: simple(rounder("round", mathRound))},
			{name: "ceil", run: simple(rounder("ceil", mathCeil))},
			{name: "abs", run: simple(fnAbs)},

			// Arrays
			{name: "sort", run: simple(fnSort)},
			{name: "sort_by", arity: 1, run: fnSortBy},
			{name: "group_by", arity: 1, run: fnGroupBy},
			{name: "unique", run: simple(fnUnique)},
			{name: "min", run: simple(fnMin)},
			{name: "max", run: simple(fnMax)},
			{name: "min_by", arity: 1, run: fnMinBy},
			{name: "max_by", arity: 1, run: fnMaxBy},
			{name: "reverse", run: simple(fnReverse)},
			{name: "flatten", run: simple(fnFlatten0)},
			{name: "flatten", arity: 1, run: withArgs(fnFlatten)},

			// Generators
			{name: "range", arity: 2, run: fnRange2},
			{name: "range", arity: 3, run: fnRange3},
			{name: "limit", arity: 2, run: fnLimit},
			{name: "first", arity: 1, run: fnFirst},
			{name: "last", arity: 1, run: fnLast},

			// I/O and environment
			{name: "input", run: fnInput},
			{name: "inputs", run: fnInputs},
			{name: "debug", run: fnDebug},
			{name: "stderr", run: fnStderr},
			{name: "input_filename", run: fnInputFilename},
			{name: "builtins", run: fnBuiltins},
			{name: "halt", run: fnHalt},
			{name: "halt_error", arity: 1, run: fnHaltError},
			{name: "$ENV", run: fnEnv},
		}
		builtinNatives = make(map[string]*native, len(all))
		for _, fn := range all {
			builtinNatives[nativeKey(fn.name, fn.arity)] = fn
		}
	})
}

// nativeNames returns "name/arity" for every native whose name is not
// internal.
func nativeNames(natives ...map[string]*native) []string {
	var out []string
	for _, m := range natives {
		for key, fn := range m {
			if fn.name[0] == '_' || fn.name[0] == '$' || fn.name[0] == '@' {
				continue
			}
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// simple adapts a function of the input alone.
func simple(f func(value.Value) (value.Value, error)) func(*machine, value.Value, []*closure) Iter {
	return func(_ *machine, in value.Value, _ []*closure) Iter {
		return result(f(in))
	}
}

// withArgs adapts a function of the input and the values of its arguments.
// Every combination of argument values is used; the first argument varies
// slowest.
func withArgs(f func(in value.Value, args []value.Value) (value.Value, error)) func(*machine, value.Value, []*closure) Iter {
	return func(m *machine, in value.Value, args []*closure) Iter {
		return m.argValues(in, args, func(vs []value.Value) Iter {
			return result(f(in, vs))
		})
	}
}

func (m *machine) argValues(in value.Value, args []*closure, f func([]value.Value) Iter) Iter {
	return m.argProduct(in, args, make([]value.Value, 0, len(args)), f)
}

func (m *machine) argProduct(in value.Value, args []*closure, acc []value.Value, f func([]value.Value) Iter) Iter {
	if len(acc) == len(args) {
		return f(acc)
	}
	return flatMap(m.eval(args[len(acc)], in), func(v value.Value) Iter {
		return m.argProduct(in, args, append(acc[:len(acc):len(acc)], v), f)
	})
}
