// Package extobject provides document patching on top of
// github.com/evanphx/json-patch, plus a few object helpers.
//
//	jsonpatch($ops)   applies an RFC 6902 patch (an array of operations)
//	mergepatch($p)    applies an RFC 7386 merge patch
//	mergediff($new)   the merge patch turning the input into $new
//	omit($keys)       the input without the given keys
//	rename($mapping)  renames keys by a {"old": "new"} object
//
// Patched documents come back with sorted object keys.
package extobject

import (
	"context"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/ext/extutil"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

// All returns the functions of the package.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		JSONPatch(),
		MergePatch(),
		MergeDiff(),
		Omit(),
		Rename(),
	}
}

// AllEntries returns All as entries for evaluator.WithFunctions.
func AllEntries() []functions.FunctionEntry {
	return extutil.Entries(All()...)
}

func patchError(fn string, err error) error {
	return value.Thrown(value.String(fn + ": " + err.Error()))
}

func decode(fn string, b []byte) (value.Value, error) {
	v, err := codec.ParseJSONBytes(b)
	if err != nil {
		return nil, patchError(fn, err)
	}
	return v, nil
}

// JSONPatch returns jsonpatch($ops).
func JSONPatch() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "jsonpatch",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			if args[0].Kind() != value.KindArray {
				return nil, value.NewTypeError("jsonpatch: %s is not an array of operations", value.Describe(args[0]))
			}
			patch, err := jsonpatch.DecodePatch([]byte(value.ToJSON(args[0])))
			if err != nil {
				return nil, patchError("jsonpatch", err)
			}
			out, err := patch.Apply([]byte(value.ToJSON(in)))
			if err != nil {
				return nil, patchError("jsonpatch", err)
			}
			return decode("jsonpatch", out)
		},
	}
}

// MergePatch returns mergepatch($p). Null members of $p delete keys.
func MergePatch() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "mergepatch",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			out, err := jsonpatch.MergePatch([]byte(value.ToJSON(in)), []byte(value.ToJSON(args[0])))
			if err != nil {
				return nil, patchError("mergepatch", err)
			}
			return decode("mergepatch", out)
		},
	}
}

// MergeDiff returns mergediff($new). Both documents must be objects or
// both arrays.
func MergeDiff() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "mergediff",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			if in.Kind() != args[0].Kind() || (in.Kind() != value.KindObject && in.Kind() != value.KindArray) {
				return nil, value.NewTypeError("mergediff: %s and %s cannot be diffed", value.Describe(in), value.Describe(args[0]))
			}
			out, err := jsonpatch.CreateMergePatch([]byte(value.ToJSON(in)), []byte(value.ToJSON(args[0])))
			if err != nil {
				return nil, patchError("mergediff", err)
			}
			return decode("mergediff", out)
		},
	}
}

func object(fn string, v value.Value) (*value.Object, error) {
	o, ok := v.(*value.Object)
	if !ok {
		return nil, value.NewTypeError("%s cannot be used with %s, object required", fn, value.Describe(v))
	}
	return o, nil
}

// Omit returns omit($keys). $keys is a key or an array of keys.
func Omit() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "omit",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			o, err := object("omit", in)
			if err != nil {
				return nil, err
			}
			keys, ok := args[0].(value.Array)
			if !ok {
				keys = value.Array{args[0]}
			}
			for _, k := range keys {
				s, err := extutil.String("omit", k)
				if err != nil {
					return nil, err
				}
				o = o.Delete(s)
			}
			return o, nil
		},
	}
}

// Rename returns rename($mapping). Keys keep their position; a renamed key
// replaces an existing key of the same name.
func Rename() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "rename",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			o, err := object("rename", in)
			if err != nil {
				return nil, err
			}
			mapping, err := object("rename", args[0])
			if err != nil {
				return nil, err
			}
			entries := make([]value.Entry, 0, o.Len())
			for _, e := range o.Entries() {
				if to, ok := mapping.Get(e.Key); ok {
					s, err := extutil.String("rename", to)
					if err != nil {
						return nil, err
					}
					e.Key = s
				}
				entries = append(entries, e)
			}
			return value.NewObject(entries...), nil
		},
	}
}
