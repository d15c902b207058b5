// Package extstring provides the regular expression builtins: test, match,
// capture, scan, split/2, splits, sub and gsub, plus ascii. Register them
// with evaluator.WithFunctions or the top-level ext.WithString helper.
//
// Patterns use Go's RE2 syntax; named groups may be written (?<name>...).
// Flags are a string of:
//
//	g  all matches
//	i  case-insensitive
//	x  extended: whitespace and # comments in the pattern are ignored
//	n  ignore empty matches
//	s  single line: . matches newlines
//	l  leftmost-longest matching
package extstring

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sandrolain/gojaq/pkg/ext/extutil"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

// All returns the Go functions of the package.
func All() []functions.FunctionEntry {
	return []functions.FunctionEntry{
		Match(),
		Test(),
		Split(),
		Sub(),
		Definitions(),
	}
}

// AllEntries is All; it mirrors the other ext packages.
func AllEntries() []functions.FunctionEntry {
	return All()
}

// Definitions returns the builtins written on top of the Go functions.
func Definitions() functions.Definitions {
	return functions.Definitions{Name: "extstring", Source: `
def match($re): match($re; null);
def test($re): test($re; null);
def capture($re; $flags): match($re; $flags)
  | reduce (.captures[] | select(.name != null)) as $c ({}; . + {($c.name): $c.string});
def capture($re): capture($re; null);
def scan($re; $flags): match($re; "g" + ($flags // ""))
  | if (.captures | length) > 0 then [.captures[].string] else .string end;
def scan($re): scan($re; null);
def splits($re; $flags): split($re; $flags) | .[];
def splits($re): splits($re; null);
def sub($re; str): sub($re; str; "");
def gsub($re; str; $flags): sub($re; str; $flags + "g");
def gsub($re; str): sub($re; str; "g");
def ascii: [.] | implode;
`}
}

// regexCache holds compiled patterns by flags and source. Compiled
// expressions are immutable and shared by all goroutines.
var regexCache sync.Map // map[string]*regexp.Regexp

type flags struct {
	global, ignoreEmpty bool
}

func compile(pattern, fl string) (*regexp.Regexp, flags, error) {
	var f flags
	var prefix strings.Builder
	longest, extended := false, false
	for _, c := range fl {
		switch c {
		case 'g':
			f.global = true
		case 'n':
			f.ignoreEmpty = true
		case 'i':
			prefix.WriteString("i")
		case 's':
			prefix.WriteString("s")
		case 'x':
			extended = true
		case 'l':
			longest = true
		case 'p':
			f.ignoreEmpty = true
			prefix.WriteString("s")
		default:
			return nil, f, fmt.Errorf("%s is not a valid modifier string", fl)
		}
	}
	key := fl + "\x00" + pattern
	if re, ok := regexCache.Load(key); ok {
		return re.(*regexp.Regexp), f, nil
	}
	src := pattern
	if extended {
		src = stripExtended(src)
	}
	if prefix.Len() > 0 {
		src = "(?" + prefix.String() + ")" + src
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, f, fmt.Errorf("%s (at offset 0) is not a valid regex: %v", pattern, err)
	}
	if longest {
		re.Longest()
	}
	regexCache.Store(key, re)
	return re, f, nil
}

// stripExtended removes unescaped whitespace and # comments outside of
// character classes.
func stripExtended(s string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
			b.WriteByte(c)
		case c == '[':
			inClass = true
			b.WriteByte(c)
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		case c == '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func reArgs(fn string, in value.Value, args []value.Value) (string, *regexp.Regexp, flags, error) {
	s, err := extutil.String(fn, in)
	if err != nil {
		return "", nil, flags{}, err
	}
	pattern, err := extutil.String(fn, args[0])
	if err != nil {
		return "", nil, flags{}, err
	}
	fl, err := extutil.OptString(fn, args[1])
	if err != nil {
		return "", nil, flags{}, err
	}
	re, f, err := compile(pattern, fl)
	if err != nil {
		return "", nil, flags{}, value.Thrown(value.String(err.Error()))
	}
	return s, re, f, nil
}

// matches returns the submatch byte offsets of the matches of re in s.
func matches(s string, re *regexp.Regexp, f flags) [][]int {
	n := 1
	if f.global {
		n = -1
	}
	all := re.FindAllStringSubmatchIndex(s, n)
	if !f.ignoreEmpty {
		return all
	}
	out := all[:0]
	for _, m := range all {
		if m[1] > m[0] {
			out = append(out, m)
		}
	}
	return out
}

// matchObject builds {offset, length, string, captures} with offsets and
// lengths in codepoints.
func matchObject(s string, re *regexp.Regexp, m []int) value.Value {
	cps := func(from, to int) int { return utf8.RuneCountInString(s[from:to]) }
	names := re.SubexpNames()
	captures := make(value.Array, 0, len(names)-1)
	for i := 1; i < len(names); i++ {
		var name value.Value = value.NullValue
		if names[i] != "" {
			name = value.String(names[i])
		}
		start, end := m[2*i], m[2*i+1]
		if start < 0 {
			captures = append(captures, value.NewObject(
				value.Entry{Key: "offset", Value: value.Int(-1)},
				value.Entry{Key: "length", Value: value.Int(0)},
				value.Entry{Key: "string", Value: value.NullValue},
				value.Entry{Key: "name", Value: name},
			))
			continue
		}
		captures = append(captures, value.NewObject(
			value.Entry{Key: "offset", Value: value.Int(cps(0, start))},
			value.Entry{Key: "length", Value: value.Int(cps(start, end))},
			value.Entry{Key: "string", Value: value.String(s[start:end])},
			value.Entry{Key: "name", Value: name},
		))
	}
	return value.NewObject(
		value.Entry{Key: "offset", Value: value.Int(cps(0, m[0]))},
		value.Entry{Key: "length", Value: value.Int(cps(m[0], m[1]))},
		value.Entry{Key: "string", Value: value.String(s[m[0]:m[1]])},
		value.Entry{Key: "captures", Value: captures},
	)
}

// Match returns match($re; $flags), one output per match.
func Match() functions.GeneratorFunctionDef {
	return functions.GeneratorFunctionDef{
		Name:  "match",
		Arity: 2,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) ([]value.Value, error) {
			s, re, f, err := reArgs("match", in, args)
			if err != nil {
				return nil, err
			}
			ms := matches(s, re, f)
			out := make([]value.Value, len(ms))
			for i, m := range ms {
				out[i] = matchObject(s, re, m)
			}
			return out, nil
		},
	}
}

// Test returns test($re; $flags).
func Test() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "test",
		Arity: 2,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			s, re, f, err := reArgs("test", in, args)
			if err != nil {
				return nil, err
			}
			return value.FromBool(len(matches(s, re, flags{global: true, ignoreEmpty: f.ignoreEmpty})) > 0), nil
		},
	}
}

// Split returns split($re; $flags): the parts of the input between the
// matches of $re, which is always applied globally.
func Split() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "split",
		Arity: 2,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			s, re, f, err := reArgs("split", in, args)
			if err != nil {
				return nil, err
			}
			f.global = true
			out := value.Array{}
			prev := 0
			for _, m := range matches(s, re, f) {
				out = append(out, value.String(s[prev:m[0]]))
				prev = m[1]
			}
			return append(out, value.String(s[prev:])), nil
		},
	}
}

// Sub returns sub($re; str; $flags). The replacement filter runs on an
// object of the named captures of each match; when it has several outputs,
// every combination is produced.
func Sub() functions.AdvancedCustomFunctionDef {
	return functions.AdvancedCustomFunctionDef{
		Name:  "sub",
		Arity: 3,
		Fn: func(_ context.Context, c functions.Caller, in value.Value) ([]value.Value, error) {
			res, err := c.Call(0, in)
			if err != nil {
				return nil, err
			}
			fls, err := c.Call(2, in)
			if err != nil {
				return nil, err
			}
			var out []value.Value
			for _, re := range res {
				for _, fl := range fls {
					vs, err := substitute(c, in, re, fl)
					if err != nil {
						return nil, err
					}
					out = append(out, vs...)
				}
			}
			return out, nil
		},
	}
}

func substitute(c functions.Caller, in, pattern, fl value.Value) ([]value.Value, error) {
	s, re, f, err := reArgs("sub", in, []value.Value{pattern, fl})
	if err != nil {
		return nil, err
	}
	names := re.SubexpNames()
	acc := []string{""}
	prev := 0
	for _, m := range matches(s, re, f) {
		var entries []value.Entry
		for i := 1; i < len(names); i++ {
			if names[i] == "" {
				continue
			}
			var v value.Value = value.NullValue
			if m[2*i] >= 0 {
				v = value.String(s[m[2*i]:m[2*i+1]])
			}
			entries = append(entries, value.Entry{Key: names[i], Value: v})
		}
		reps, err := c.Call(1, value.NewObject(entries...))
		if err != nil {
			return nil, err
		}
		next := make([]string, 0, len(acc)*len(reps))
		for _, a := range acc {
			for _, r := range reps {
				rs, ok := r.(value.String)
				if !ok {
					return nil, value.NewTypeError("%s cannot be added to a string", value.Describe(r))
				}
				next = append(next, a+s[prev:m[0]]+string(rs))
			}
		}
		acc = next
		prev = m[1]
	}
	out := make([]value.Value, len(acc))
	for i, a := range acc {
		out[i] = value.String(a + s[prev:])
	}
	return out, nil
}
