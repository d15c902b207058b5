package value

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// ToJSON returns the compact JSON encoding of v.
func ToJSON(v Value) string {
	return string(AppendJSON(nil, v))
}

// ToString implements tostring: strings are returned as is, everything else
// is encoded as compact JSON.
func ToString(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	return ToJSON(v)
}

// AppendJSON appends the compact JSON encoding of v to buf.
func AppendJSON(buf []byte, v Value) []byte {
	switch v := v.(type) {
	case Null:
		return append(buf, "null"...)
	case Bool:
		if v {
			return append(buf, "true"...)
		}
		return append(buf, "false"...)
	case Int:
		return strconv.AppendInt(buf, int64(v), 10)
	case Float:
		return AppendFloat(buf, float64(v))
	case String:
		return AppendString(buf, string(v))
	case Array:
		buf = append(buf, '[')
		for i, e := range v {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = AppendJSON(buf, e)
		}
		return append(buf, ']')
	case *Object:
		buf = append(buf, '{')
		for i, e := range v.Entries() {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = AppendString(buf, e.Key)
			buf = append(buf, ':')
			buf = AppendJSON(buf, e.Value)
		}
		return append(buf, '}')
	}
	return append(buf, "null"...)
}

// AppendFloat appends a float the way it is printed in output: integral
// values keep a ".0" suffix, very large or small magnitudes use an exponent,
// NaN prints as null and infinities saturate to the largest double.
func AppendFloat(buf []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		return append(buf, "null"...)
	case math.IsInf(f, 1):
		return append(buf, "1.7976931348623157e308"...)
	case math.IsInf(f, -1):
		return append(buf, "-1.7976931348623157e308"...)
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		exp = strings.TrimPrefix(exp, "+")
		neg := strings.HasPrefix(exp, "-")
		exp = strings.TrimLeft(strings.TrimPrefix(exp, "-"), "0")
		buf = append(buf, mant...)
		buf = append(buf, 'e')
		if neg {
			buf = append(buf, '-')
		}
		return append(buf, exp...)
	}
	start := len(buf)
	buf = strconv.AppendFloat(buf, f, 'f', -1, 64)
	for _, c := range buf[start:] {
		if c == '.' {
			return buf
		}
	}
	return append(buf, ".0"...)
}

// AppendString appends s as a quoted JSON string.
func AppendString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' && c != 0x7f {
			if c < utf8.RuneSelf {
				i++
				continue
			}
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				buf = append(buf, s[start:i]...)
				buf = append(buf, "�"...)
				i += size
				start = i
				continue
			}
			i += size
			continue
		}
		buf = append(buf, s[start:i]...)
		switch c {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\t':
			buf = append(buf, '\\', 't')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		default:
			buf = append(buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
		i++
		start = i
	}
	buf = append(buf, s[start:]...)
	return append(buf, '"')
}
