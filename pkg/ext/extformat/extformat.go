// Package extformat provides the string formats of jq (@csv, @tsv, @html,
// @uri, @sh, @base64, @base64d, @base32, @base32d) and the CSV readers
// fromcsv and fromtsv.
//
// A format is used as a filter (`[1, "a"] | @csv`) or in front of a string
// interpolation (`@uri "q=\(.q)"`), where it applies to every interpolated
// value. Formats are registered under their @ name with arity 0.
package extformat

import (
	"context"
	"encoding/base32"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/sandrolain/gojaq/pkg/ext/extutil"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

// All returns the functions of the package.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		CSV(),
		TSV(),
		format("@html", html),
		format("@uri", uri),
		Sh(),
		format("@base64", func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }),
		decoder("@base64d", "base64", base64.StdEncoding),
		format("@base32", func(s string) string { return base32.StdEncoding.EncodeToString([]byte(s)) }),
		decoder("@base32d", "base32", base32.StdEncoding),
		FromCSV(),
		FromTSV(),
	}
}

// AllEntries returns All as entries for evaluator.WithFunctions.
func AllEntries() []functions.FunctionEntry {
	return extutil.Entries(All()...)
}

// format builds a format that escapes the string form of its input.
func format(name string, escape func(string) string) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: name,
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			return value.String(escape(value.ToString(in))), nil
		},
	}
}

type encoding interface {
	DecodeString(s string) ([]byte, error)
}

// decoder builds a decoding format. Missing padding is accepted.
func decoder(name, kind string, enc encoding) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: name,
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			s := value.ToString(in)
			trimmed := strings.TrimRight(s, "=")
			var b []byte
			var err error
			switch kind {
			case "base64":
				b, err = base64.RawStdEncoding.DecodeString(trimmed)
			default:
				if pad := len(trimmed) % 8; pad != 0 {
					trimmed += strings.Repeat("=", 8-pad)
				}
				b, err = enc.DecodeString(trimmed)
			}
			if err != nil {
				return nil, value.NewTypeError("%s is not valid %s data", value.Describe(in), kind)
			}
			return value.String(b), nil
		},
	}
}

var htmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	"'", "&#39;",
	`"`, "&quot;",
)

func html(s string) string { return htmlEscaper.Replace(s) }

// uri percent-encodes every byte except the unreserved characters.
func uri(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// row formats the input array with one escaping function per field.
func row(name, what string, in value.Value, sep string, quote func(string) string) (value.Value, error) {
	a, ok := in.(value.Array)
	if !ok {
		return nil, value.NewTypeError("%s cannot be %s-formatted, only an array can be", value.Describe(in), what)
	}
	var b strings.Builder
	for i, v := range a {
		if i > 0 {
			b.WriteString(sep)
		}
		switch v := v.(type) {
		case value.Null:
		case value.Bool, value.Int, value.Float:
			b.WriteString(value.ToJSON(v))
		case value.String:
			b.WriteString(quote(string(v)))
		default:
			return nil, value.NewTypeError("%s is not valid in a %s row", value.Describe(v), what)
		}
	}
	return value.String(b.String()), nil
}

var tsvEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\t", `\t`,
	"\n", `\n`,
	"\r", `\r`,
)

// CSV returns @csv: an array as a comma-separated row with quoted strings.
func CSV() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "@csv",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			return row("@csv", "csv", in, ",", func(s string) string {
				return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
			})
		},
	}
}

// TSV returns @tsv: an array as a tab-separated row.
func TSV() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "@tsv",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			return row("@tsv", "tsv", in, "\t", tsvEscaper.Replace)
		},
	}
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Sh returns @sh: strings quoted for a POSIX shell. Arrays become
// space-separated words.
func Sh() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "@sh",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			words, ok := in.(value.Array)
			if !ok {
				words = value.Array{in}
			}
			parts := make([]string, len(words))
			for i, w := range words {
				switch w := w.(type) {
				case value.String:
					parts[i] = shQuote(string(w))
				case value.Array, *value.Object:
					return nil, value.NewTypeError("%s can not be escaped for shell", value.Describe(w))
				default:
					parts[i] = value.ToJSON(w)
				}
			}
			return value.String(strings.Join(parts, " ")), nil
		},
	}
}

// FromCSV returns fromcsv: the rows of a CSV document as arrays of strings.
func FromCSV() functions.CustomFunctionDef {
	return reader("fromcsv", ',')
}

// FromTSV returns fromtsv, fromcsv with tab separators.
func FromTSV() functions.CustomFunctionDef {
	return reader("fromtsv", '\t')
}

func reader(name string, sep rune) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: name,
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			src, err := extutil.String(name, in)
			if err != nil {
				return nil, err
			}
			r := csv.NewReader(strings.NewReader(src))
			r.Comma = sep
			r.FieldsPerRecord = -1
			r.LazyQuotes = sep == '\t'
			records, err := r.ReadAll()
			if err != nil {
				return nil, value.Thrown(value.String(fmt.Sprintf("%s: %v", name, err)))
			}
			out := make(value.Array, len(records))
			for i, rec := range records {
				fields := make(value.Array, len(rec))
				for j, f := range rec {
					fields[j] = value.String(f)
				}
				out[i] = fields
			}
			return out, nil
		},
	}
}
