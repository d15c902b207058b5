package codec

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/gojaq/pkg/value"
)

// Encoder writes values as text, one result per call to Encode.
type Encoder struct {
	w        io.Writer
	format   Format
	indent   string
	sortKeys bool
	ascii    bool
	raw      bool
	join     bool
	colors   *Colors
	count    int
	buf      []byte
}

// EncodeOption configures an Encoder.
type EncodeOption func(*Encoder)

// WithIndent sets the number of spaces per level. Zero writes compact output.
func WithIndent(n int) EncodeOption {
	return func(e *Encoder) { e.indent = strings.Repeat(" ", min(n, 7)) }
}

// WithTab indents with one tab per level.
func WithTab() EncodeOption {
	return func(e *Encoder) { e.indent = "\t" }
}

// WithSortKeys writes object keys in sorted order.
func WithSortKeys(sort bool) EncodeOption {
	return func(e *Encoder) { e.sortKeys = sort }
}

// WithASCII escapes every non-ASCII character.
func WithASCII(ascii bool) EncodeOption {
	return func(e *Encoder) { e.ascii = ascii }
}

// WithRawStrings writes top-level strings without quotes.
func WithRawStrings(raw bool) EncodeOption {
	return func(e *Encoder) { e.raw = raw }
}

// WithJoin omits the newline after each value.
func WithJoin(join bool) EncodeOption {
	return func(e *Encoder) {
		e.join = join
		if join {
			e.raw = true
		}
	}
}

// WithColors colors JSON output. A nil palette disables colors.
func WithColors(c *Colors) EncodeOption {
	return func(e *Encoder) { e.colors = c }
}

// WithFormat selects the output format.
func WithFormat(f Format) EncodeOption {
	return func(e *Encoder) { e.format = f }
}

// NewEncoder returns an encoder writing pretty JSON with two spaces per level.
func NewEncoder(w io.Writer, opts ...EncodeOption) *Encoder {
	e := &Encoder{w: w, indent: "  "}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode writes v followed by a newline.
func (e *Encoder) Encode(v value.Value) error {
	e.buf = e.buf[:0]
	switch {
	case e.raw && v.Kind() == value.KindString:
		e.buf = append(e.buf, string(v.(value.String))...)
	case e.format == YAML:
		doc, err := MarshalYAML(v, len(e.indent), e.sortKeys)
		if err != nil {
			return err
		}
		if e.count > 0 {
			e.buf = append(e.buf, "---\n"...)
		}
		e.buf = append(e.buf, strings.TrimSuffix(string(doc), "\n")...)
	case e.format == TOML:
		doc, err := MarshalTOML(v)
		if err != nil {
			return err
		}
		e.buf = append(e.buf, strings.TrimSuffix(string(doc), "\n")...)
	default:
		e.buf = e.appendValue(e.buf, v, 0)
	}
	if !e.join {
		e.buf = append(e.buf, '\n')
	}
	e.count++
	_, err := e.w.Write(e.buf)
	return err
}

func (e *Encoder) appendValue(buf []byte, v value.Value, depth int) []byte {
	switch v := v.(type) {
	case value.Array:
		if len(v) == 0 {
			return e.appendColored(buf, value.KindArray, SepColor, "[]")
		}
		buf = e.appendColored(buf, value.KindArray, SepColor, "[")
		for i, x := range v {
			if i > 0 {
				buf = e.appendColored(buf, value.KindArray, SepColor, ",")
			}
			buf = e.newline(buf, depth+1)
			buf = e.appendValue(buf, x, depth+1)
		}
		buf = e.newline(buf, depth)
		return e.appendColored(buf, value.KindArray, SepColor, "]")
	case *value.Object:
		if v.Len() == 0 {
			return e.appendColored(buf, value.KindObject, SepColor, "{}")
		}
		keys := v.Keys()
		if e.sortKeys {
			keys = v.SortedKeys()
		}
		buf = e.appendColored(buf, value.KindObject, SepColor, "{")
		for i, k := range keys {
			if i > 0 {
				buf = e.appendColored(buf, value.KindObject, SepColor, ",")
			}
			buf = e.newline(buf, depth+1)
			buf = e.appendColored(buf, value.KindObject, FieldColor, e.quote(k))
			buf = e.appendColored(buf, value.KindObject, SepColor, ":")
			if e.indent != "" {
				buf = append(buf, ' ')
			}
			x, _ := v.Get(k)
			buf = e.appendValue(buf, x, depth+1)
		}
		buf = e.newline(buf, depth)
		return e.appendColored(buf, value.KindObject, SepColor, "}")
	case value.String:
		return e.appendColored(buf, value.KindString, ValueColor, e.quote(string(v)))
	}
	return e.appendColored(buf, v.Kind(), ValueColor, value.ToJSON(v))
}

func (e *Encoder) appendColored(buf []byte, k value.Kind, a ColorAttr, s string) []byte {
	if e.colors == nil {
		return append(buf, s...)
	}
	return append(buf, e.colors.Color(k, a, s)...)
}

func (e *Encoder) newline(buf []byte, depth int) []byte {
	if e.indent == "" {
		return buf
	}
	buf = append(buf, '\n')
	for range depth {
		buf = append(buf, e.indent...)
	}
	return buf
}

func (e *Encoder) quote(s string) string {
	q := value.AppendString(nil, s)
	if !e.ascii {
		return string(q)
	}
	return escapeASCII(q)
}

// escapeASCII replaces every non-ASCII character of a JSON text with its
// \u escape, using surrogate pairs outside the basic plane.
func escapeASCII(q []byte) string {
	var sb strings.Builder
	for len(q) > 0 {
		r, size := utf8.DecodeRune(q)
		q = q[size:]
		switch {
		case r < utf8.RuneSelf:
			sb.WriteRune(r)
		case r > 0xffff:
			r -= 0x10000
			writeEscape(&sb, 0xd800+(r>>10))
			writeEscape(&sb, 0xdc00+(r&0x3ff))
		default:
			writeEscape(&sb, r)
		}
	}
	return sb.String()
}

func writeEscape(sb *strings.Builder, r rune) {
	const hex = "0123456789abcdef"
	sb.WriteString(`\u`)
	sb.WriteByte(hex[r>>12&0xf])
	sb.WriteByte(hex[r>>8&0xf])
	sb.WriteByte(hex[r>>4&0xf])
	sb.WriteByte(hex[r&0xf])
}
