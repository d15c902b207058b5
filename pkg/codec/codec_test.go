package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sandrolain/gojaq/pkg/value"
)

func decodeAll(t *testing.T, f Format, src string) []string {
	t.Helper()
	vs, err := DecodeAll(NewDecoder(f, strings.NewReader(src)))
	if err != nil {
		t.Fatalf("decode %s: %v", f, err)
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = value.ToJSON(v)
	}
	return out
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"scalar", `1`, []string{`1`}},
		{"stream", "1 \"a\"\n[true,null]", []string{`1`, `"a"`, `[true,null]`}},
		{"key order", `{"b":1,"a":{"z":2,"y":3}}`, []string{`{"b":1,"a":{"z":2,"y":3}}`}},
		{"float", `1.5 1e2`, []string{`1.5`, `100.0`}},
		{"empty", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeAll(t, JSON, tt.src)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		src     string
		want    string
		wantErr bool
	}{
		{src: `{"a":[1,2]}`, want: `{"a":[1,2]}`},
		{src: ` "x" `, want: `"x"`},
		{src: `1 2`, wantErr: true},
		{src: `[1,`, wantErr: true},
		{src: ``, wantErr: true},
		{src: `{1:2}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := ParseJSON(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseJSON(%q) = %s, want error", tt.src, value.ToJSON(v))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseJSON(%q): %v", tt.src, err)
			}
			if got := value.ToJSON(v); got != tt.want {
				t.Errorf("ParseJSON(%q) = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	src := "b: 1\na:\n  - x\n  - 2.5\n---\nname: second\nok: true\n"
	got := decodeAll(t, YAML, src)
	want := []string{`{"b":1,"a":["x",2.5]}`, `{"name":"second","ok":true}`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTOML(t *testing.T) {
	src := "title = \"x\"\nzeta = 1\n\n[owner]\nname = \"n\"\nage = 3\n\n[[items]]\nid = 1\n\n[[items]]\nid = 2\n"
	got := decodeAll(t, TOML, src)
	want := []string{`{"title":"x","zeta":1,"owner":{"name":"n","age":3},"items":[{"id":1},{"id":2}]}`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEncoder(t *testing.T) {
	obj := value.NewObject(
		value.Entry{Key: "b", Value: value.Array{value.Int(1), value.String("é")}},
		value.Entry{Key: "a", Value: value.NewObject()},
	)
	tests := []struct {
		name string
		opts []EncodeOption
		in   []value.Value
		want string
	}{
		{"pretty", nil, []value.Value{obj}, "{\n  \"b\": [\n    1,\n    \"é\"\n  ],\n  \"a\": {}\n}\n"},
		{"compact", []EncodeOption{WithIndent(0)}, []value.Value{obj}, "{\"b\":[1,\"é\"],\"a\":{}}\n"},
		{"tab", []EncodeOption{WithTab()}, []value.Value{value.Array{value.NullValue}}, "[\n\tnull\n]\n"},
		{"sorted", []EncodeOption{WithIndent(0), WithSortKeys(true)}, []value.Value{obj}, "{\"a\":{},\"b\":[1,\"é\"]}\n"},
		{"ascii", []EncodeOption{WithIndent(0), WithASCII(true)}, []value.Value{value.String("é😀")}, "\"\\u00e9\\ud83d\\ude00\"\n"},
		{"raw", []EncodeOption{WithRawStrings(true)}, []value.Value{value.String("a\tb"), value.Int(1)}, "a\tb\n1\n"},
		{"join", []EncodeOption{WithJoin(true)}, []value.Value{value.String("a"), value.String("b")}, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			enc := NewEncoder(&buf, tt.opts...)
			for _, v := range tt.in {
				if err := enc.Encode(v); err != nil {
					t.Fatalf("Encode: %v", err)
				}
			}
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncoderColors(t *testing.T) {
	colors := &Colors{
		Default: colorDefault,
		Map: map[Colorable]func(a ...any) string{
			{Kind: value.KindString, Attr: ValueColor}: func(a ...any) string { return "<" + a[0].(string) + ">" },
			{Kind: value.KindObject, Attr: FieldColor}: func(a ...any) string { return "[" + a[0].(string) + "]" },
		},
	}
	var buf bytes.Buffer
	enc := NewEncoder(&buf, WithIndent(0), WithColors(colors))
	v := value.NewObject(value.Entry{Key: "k", Value: value.String("v")})
	if err := enc.Encode(v); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "{[\"k\"]:<\"v\">}\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	docs := []value.Value{
		value.NewObject(
			value.Entry{Key: "z", Value: value.Array{value.Int(1), value.String("two")}},
			value.Entry{Key: "a", Value: value.NewObject(value.Entry{Key: "n", Value: value.NullValue})},
		),
		value.Int(2),
	}
	var buf bytes.Buffer
	enc := NewEncoder(&buf, WithFormat(YAML))
	for _, v := range docs {
		if err := enc.Encode(v); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	got := decodeAll(t, YAML, buf.String())
	want := []string{`{"z":[1,"two"],"a":{"n":null}}`, `2`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalTOMLRejectsScalars(t *testing.T) {
	if _, err := MarshalTOML(value.Int(1)); err == nil {
		t.Error("expected an error for a non-object document")
	}
}
