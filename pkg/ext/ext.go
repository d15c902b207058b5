// Package ext provides optional builtins beyond the core language.
//
// The functions live in sub-packages grouped by category:
//   - extstring   – test, match, capture, scan, split/2, splits, sub, gsub, ascii
//   - extnumeric  – sqrt, pow, log, exp, the trigonometric family, frexp, modf, ...
//   - extarray    – bsearch, chunks, windows, sum, product, mean, count_by, sum_by
//   - extobject   – jsonpatch, mergepatch, mergediff, omit, rename
//   - exttypes    – toboolean, isblank, have_literal_numbers, have_decnum
//   - extdatetime – now, mktime, gmtime, localtime, strftime, strptime, todate, ...
//   - extcrypto   – md5, sha1, sha256, sha512, hash, hmac, uuid
//   - extformat   – @csv, @tsv, @html, @uri, @sh, @base64, @base64d, @base32, @base32d, fromcsv
//   - extfunc     – expr, expr-lang expressions inside filters
//
// # Integration – all extensions at once
//
//	import "github.com/sandrolain/gojaq/pkg/ext"
//
//	out, err := gojaq.Eval(`.name | test("^a")`, data, ext.WithAll())
//
// # Integration – by category
//
//	out, err := gojaq.Eval(query, data,
//	    ext.WithString(),
//	    ext.WithNumeric(),
//	)
//
// # Integration – single function from a sub-package
//
//	import "github.com/sandrolain/gojaq/pkg/ext/extcrypto"
//
//	out, err := gojaq.Eval(".id | sha256", data,
//	    gojaq.WithFunctions(extcrypto.Hash(), extcrypto.UUID()),
//	)
package ext

import (
	"github.com/sandrolain/gojaq/pkg/evaluator"
	"github.com/sandrolain/gojaq/pkg/ext/extarray"
	"github.com/sandrolain/gojaq/pkg/ext/extcrypto"
	"github.com/sandrolain/gojaq/pkg/ext/extdatetime"
	"github.com/sandrolain/gojaq/pkg/ext/extformat"
	"github.com/sandrolain/gojaq/pkg/ext/extfunc"
	"github.com/sandrolain/gojaq/pkg/ext/extnumeric"
	"github.com/sandrolain/gojaq/pkg/ext/extobject"
	"github.com/sandrolain/gojaq/pkg/ext/extstring"
	"github.com/sandrolain/gojaq/pkg/ext/exttypes"
	"github.com/sandrolain/gojaq/pkg/functions"
)

// AllEntries returns every extension function and definition, suitable
// for spreading into [evaluator.WithFunctions]:
//
//	gojaq.WithFunctions(ext.AllEntries()...)
func AllEntries() []functions.FunctionEntry {
	var all []functions.FunctionEntry
	for _, group := range [][]functions.FunctionEntry{
		extstring.AllEntries(),
		extnumeric.AllEntries(),
		extarray.AllEntries(),
		extobject.AllEntries(),
		exttypes.AllEntries(),
		extdatetime.AllEntries(),
		extcrypto.AllEntries(),
		extformat.AllEntries(),
		extfunc.AllEntries(),
	} {
		all = append(all, group...)
	}
	return all
}

// WithAll returns an EvalOption that registers all extension functions.
func WithAll() evaluator.EvalOption {
	return evaluator.WithFunctions(AllEntries()...)
}

// WithString returns an EvalOption for the regular expression functions.
func WithString() evaluator.EvalOption {
	return evaluator.WithFunctions(extstring.AllEntries()...)
}

// WithNumeric returns an EvalOption for the math functions.
func WithNumeric() evaluator.EvalOption {
	return evaluator.WithFunctions(extnumeric.AllEntries()...)
}

// WithArray returns an EvalOption for the array helpers.
func WithArray() evaluator.EvalOption {
	return evaluator.WithFunctions(extarray.AllEntries()...)
}

// WithObject returns an EvalOption for the patch and object functions.
func WithObject() evaluator.EvalOption {
	return evaluator.WithFunctions(extobject.AllEntries()...)
}

// WithTypes returns an EvalOption for the type conversion functions.
func WithTypes() evaluator.EvalOption {
	return evaluator.WithFunctions(exttypes.AllEntries()...)
}

// WithDateTime returns an EvalOption for the date functions.
func WithDateTime() evaluator.EvalOption {
	return evaluator.WithFunctions(extdatetime.AllEntries()...)
}

// WithCrypto returns an EvalOption for the hashing functions.
func WithCrypto() evaluator.EvalOption {
	return evaluator.WithFunctions(extcrypto.AllEntries()...)
}

// WithFormat returns an EvalOption for the string formats.
func WithFormat() evaluator.EvalOption {
	return evaluator.WithFunctions(extformat.AllEntries()...)
}

// WithExpr returns an EvalOption for the expr-lang bridge.
func WithExpr() evaluator.EvalOption {
	return evaluator.WithFunctions(extfunc.AllEntries()...)
}
