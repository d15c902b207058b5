package evaluator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/gojaq/pkg/value"
)

func fnExplode(v value.Value) (value.Value, error) {
	s, ok := v.(value.String)
	if !ok {
		return nil, value.NewTypeError("%s cannot be exploded", value.Describe(v))
	}
	out := make(value.Array, 0, len(s))
	for _, r := range string(s) {
		out = append(out, value.Int(r))
	}
	return out, nil
}

func fnImplode(v value.Value) (value.Value, error) {
	a, ok := v.(value.Array)
	if !ok {
		return nil, value.NewTypeError("%s cannot be imploded", value.Describe(v))
	}
	b := acquireBuf()
	defer releaseBuf(b)
	for _, x := range a {
		i, ok := x.(value.Int)
		if !ok {
			return nil, value.NewTypeError("cannot implode %s: codepoints must be integers", value.Describe(x))
		}
		r := rune(i)
		if int(r) != int(i) || !utf8.ValidRune(r) {
			return nil, value.NewTypeError("cannot use %d as character", int(i))
		}
		b.WriteRune(r)
	}
	return value.String(b.String()), nil
}

func bothStrings(name string, in, arg value.Value) (string, string, error) {
	s, ok1 := in.(value.String)
	t, ok2 := arg.(value.String)
	if !ok1 || !ok2 {
		return "", "", value.NewTypeError("%s requires string inputs, got %s and %s", name, value.Describe(in), value.Describe(arg))
	}
	return string(s), string(t), nil
}

func fnSplit(in value.Value, args []value.Value) (value.Value, error) {
	s, sep, err := bothStrings("split", in, args[0])
	if err != nil {
		return nil, err
	}
	return value.Split(value.String(s), value.String(sep)), nil
}

// fnJoin concatenates the elements of an array, separated by the
// argument. Scalars other than strings, null included, are written as JSON.
func fnJoin(in value.Value, args []value.Value) (value.Value, error) {
	a, ok := in.(value.Array)
	if !ok {
		return nil, value.NewTypeError("cannot iterate over %s", value.Describe(in))
	}
	sep, ok := args[0].(value.String)
	if !ok {
		return nil, value.NewTypeError("join separator must be a string, got %s", value.Describe(args[0]))
	}
	b := acquireBuf()
	defer releaseBuf(b)
	for i, x := range a {
		if i > 0 {
			b.WriteString(string(sep))
		}
		switch x := x.(type) {
		case value.String:
			b.WriteString(string(x))
		case value.Array, *value.Object:
			return nil, value.NewTypeError("cannot join %s", value.Describe(x))
		default:
			b.WriteString(value.ToJSON(x))
		}
	}
	return value.String(b.String()), nil
}

func fnLtrimstr(in value.Value, args []value.Value) (value.Value, error) {
	s, ok1 := in.(value.String)
	p, ok2 := args[0].(value.String)
	if ok1 && ok2 {
		return value.String(strings.TrimPrefix(string(s), string(p))), nil
	}
	return in, nil
}

func fnRtrimstr(in value.Value, args []value.Value) (value.Value, error) {
	s, ok1 := in.(value.String)
	p, ok2 := args[0].(value.String)
	if ok1 && ok2 {
		return value.String(strings.TrimSuffix(string(s), string(p))), nil
	}
	return in, nil
}

func fnStartswith(in value.Value, args []value.Value) (value.Value, error) {
	s, p, err := bothStrings("startswith", in, args[0])
	if err != nil {
		return nil, err
	}
	return value.FromBool(strings.HasPrefix(s, p)), nil
}

func fnEndswith(in value.Value, args []value.Value) (value.Value, error) {
	s, p, err := bothStrings("endswith", in, args[0])
	if err != nil {
		return nil, err
	}
	return value.FromBool(strings.HasSuffix(s, p)), nil
}

func trimBoth(s string) string  { return strings.TrimSpace(s) }
func trimLeft(s string) string  { return strings.TrimLeftFunc(s, unicode.IsSpace) }
func trimRight(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }

func trimmer(name string, trim func(string) string) func(value.Value) (value.Value, error) {
	return func(v value.Value) (value.Value, error) {
		s, ok := v.(value.String)
		if !ok {
			return nil, value.NewTypeError("%s input must be a string, got %s", name, value.Describe(v))
		}
		return value.String(trim(string(s))), nil
	}
}

func fnASCIIDowncase(v value.Value) (value.Value, error) {
	return mapASCII("ascii_downcase", v, 'A', 'Z', 'a'-'A')
}

func fnASCIIUpcase(v value.Value) (value.Value, error) {
	return mapASCII("ascii_upcase", v, 'a', 'z', 'A'-'a')
}

func mapASCII(name string, v value.Value, lo, hi byte, delta int) (value.Value, error) {
	s, ok := v.(value.String)
	if !ok {
		return nil, value.NewTypeError("%s input must be a string, got %s", name, value.Describe(v))
	}
	b := []byte(s)
	for i, c := range b {
		if c >= lo && c <= hi {
			b[i] = byte(int(c) + delta)
		}
	}
	return value.String(b), nil
}

// fnStrIndices returns the codepoint offsets at which the argument occurs,
// overlapping matches included.
func fnStrIndices(in value.Value, args []value.Value) (value.Value, error) {
	s, sub, err := bothStrings("_strindices", in, args[0])
	if err != nil {
		return nil, err
	}
	out := value.Array{}
	if sub == "" {
		return out, nil
	}
	pos := 0
	for i := 0; i <= len(s)-len(sub); {
		if strings.HasPrefix(s[i:], sub) {
			out = append(out, value.Int(pos))
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		pos++
	}
	return out, nil
}
