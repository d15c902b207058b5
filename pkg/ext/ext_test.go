package ext_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sandrolain/gojaq"
	"github.com/sandrolain/gojaq/pkg/ext"
	"github.com/sandrolain/gojaq/pkg/ext/extcrypto"
	"github.com/sandrolain/gojaq/pkg/ext/extstring"
)

type extCase struct {
	query string
	data  any
	want  []any
}

func runCases(t *testing.T, tests []extCase, opts ...gojaq.EvalOption) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := gojaq.Eval(tt.query, tt.data, opts...)
			if err != nil {
				t.Fatalf("Eval(%q) error: %v", tt.query, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Eval(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func one(v any) []any { return []any{v} }

func TestString(t *testing.T) {
	runCases(t, []extCase{
		{`test("B"; "i")`, "abc", one(true)},
		{`test("x")`, "abc", one(false)},
		{`[match("foo"; "g") | .offset]`, "foo bar foo", one([]any{0, 8})},
		{`match("(a)(x)?") | .captures | map(.offset)`, "a", one([]any{0, -1})},
		{`capture("(?<a>[a-z]+)-(?<n>[0-9]+)")`, "xyz-123", one(map[string]any{"a": "xyz", "n": "123"})},
		{`[scan("[0-9]+")]`, "a1b22c", one([]any{"1", "22"})},
		{`[scan("([a-z])([0-9])")]`, "a1b2", one([]any{[]any{"a", "1"}, []any{"b", "2"}})},
		{`split(", *"; null)`, "a, b,c", one([]any{"a", "b", "c"})},
		{`[splits("-")]`, "a-b", one([]any{"a", "b"})},
		{`sub("b"; "X")`, "abcabc", one("aXcabc")},
		{`gsub("b"; "X")`, "abcabc", one("aXcaXc")},
		{`gsub("(?<l>[a-z])"; "\(.l | ascii_upcase)")`, "abc", one("ABC")},
		{`[sub("a"; "x", "y")]`, "aaa", one([]any{"xaa", "yaa"})},
		{`gsub("\\s+"; " "; "x")`, "a   b", one("a b")},
		{`ascii`, 65, one("A")},
		{`try test("(") catch "bad"`, "x", one("bad")},
		{`try test("a"; "q") catch .`, "x", one("q is not a valid modifier string")},
	}, ext.WithString())
}

func TestNumeric(t *testing.T) {
	runCases(t, []extCase{
		{`sqrt`, 4, one(2.0)},
		{`pow(2; 10)`, nil, one(1024.0)},
		{`frexp`, 8, one([]any{0.5, 4})},
		{`modf`, 3.5, one([]any{0.5, 3.0})},
		{`ilogb`, 8, one(3)},
		{`fma(2; 3; 4)`, nil, one(10.0)},
		{`fmax(nan; 1)`, nil, one(1.0)},
		{`fabs`, -2, one(2.0)},
		{`ldexp(3; 2)`, nil, one(12.0)},
		{`[.[] | trunc]`, []any{1.5, -1.5}, one([]any{1.0, -1.0})},
		{`try sqrt catch "nan"`, "x", one("nan")},
	}, ext.WithNumeric())
}

func TestArray(t *testing.T) {
	runCases(t, []extCase{
		{`bsearch(3)`, []any{1, 3, 5}, one(1)},
		{`bsearch(4)`, []any{1, 3, 5}, one(-3)},
		{`chunks(2)`, []any{1, 2, 3, 4, 5}, one([]any{[]any{1, 2}, []any{3, 4}, []any{5}})},
		{`windows(2)`, []any{1, 2, 3}, one([]any{[]any{1, 2}, []any{2, 3}})},
		{`sum`, []any{1, 2, 3}, one(6)},
		{`product`, []any{1, 2, 3}, one(6)},
		{`mean`, []any{1, 2, 3, 4}, one(2.5)},
		{`mean`, []any{}, one(nil)},
		{`count_by(.)`, []any{"a", "b", "a"}, one(map[string]any{"a": 2, "b": 1})},
		{`sum_by(.n)`, []any{map[string]any{"n": 1}, map[string]any{"n": 2}}, one(3)},
	}, ext.WithArray())
}

func TestObject(t *testing.T) {
	runCases(t, []extCase{
		{`jsonpatch([{"op": "add", "path": "/b", "value": 2}])`, map[string]any{"a": 1}, one(map[string]any{"a": 1, "b": 2})},
		{`jsonpatch([{"op": "remove", "path": "/a/0"}])`, map[string]any{"a": []any{1, 2}}, one(map[string]any{"a": []any{2}})},
		{`mergepatch({"b": null, "c": 3})`, map[string]any{"a": 1, "b": 2}, one(map[string]any{"a": 1, "c": 3})},
		{`mergediff({"a": 1, "b": 3})`, map[string]any{"a": 1, "b": 2}, one(map[string]any{"b": 3})},
		{`omit(["a", "c"])`, map[string]any{"a": 1, "b": 2, "c": 3}, one(map[string]any{"b": 2})},
		{`rename({"a": "z"}) | keys_unsorted`, map[string]any{"a": 1, "b": 2}, one([]any{"z", "b"})},
		{`try jsonpatch([{"op": "test", "path": "/a", "value": 2}]) catch "failed"`, map[string]any{"a": 1}, one("failed")},
	}, ext.WithObject())
}

func TestTypes(t *testing.T) {
	runCases(t, []extCase{
		{`toboolean`, "true", one(true)},
		{`map(toboolean)`, []any{false, "false"}, one([]any{false, false})},
		{`map(isblank)`, []any{nil, "", []any{}, map[string]any{}, 0}, one([]any{true, true, true, true, false})},
		{`have_decnum`, nil, one(false)},
		{`try toboolean catch "no"`, 1, one("no")},
	}, ext.WithTypes())
}

func TestDateTime(t *testing.T) {
	runCases(t, []extCase{
		{`todate`, 0, one("1970-01-01T00:00:00Z")},
		{`fromdate`, "2015-03-05T23:51:47Z", one(1425599507)},
		{`gmtime`, 1425599507, one([]any{2015, 2, 5, 23, 51, 47, 4, 63})},
		{`mktime`, []any{2015, 2, 5, 23, 51, 47, 4, 63}, one(1425599507)},
		{`strftime("%A, %B %d, %Y")`, 0, one("Thursday, January 01, 1970")},
		{`strptime("%Y-%m-%d") | mktime`, "1970-01-02", one(86400)},
		{`dateadd("seconds"; 60)`, 0, one(60)},
		{`try mktime catch "bad"`, []any{1970}, one("bad")},
	}, ext.WithDateTime())
}

func TestCrypto(t *testing.T) {
	runCases(t, []extCase{
		{`md5`, "abc", one("900150983cd24fb0d6963f7d28e17f72")},
		{`sha256`, "abc", one("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")},
		{`hash("SHA1")`, "abc", one("a9993e364706816aba3e25717850c26c9cd0d89d")},
		{`hmac("key"; "sha256")`, "The quick brown fox jumps over the lazy dog", one("f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8")},
		{`uuid | length`, nil, one(36)},
		{`try hash("crc") catch "unsupported"`, "abc", one("unsupported")},
	}, ext.WithCrypto())
}

func TestFormat(t *testing.T) {
	runCases(t, []extCase{
		{`@csv`, []any{1, `a"b`, nil, true}, one(`1,"a""b",,true`)},
		{`@tsv`, []any{"a\tb", "c"}, one("a\\tb\tc")},
		{`@html`, "<a href='x'>", one("&lt;a href=&#39;x&#39;&gt;")},
		{`@uri`, "a b&c", one("a%20b%26c")},
		{`@sh`, "it's", one(`'it'\''s'`)},
		{`@sh`, []any{"a b", 1}, one(`'a b' 1`)},
		{`@base64`, "hello", one("aGVsbG8=")},
		{`@base64d`, "aGVsbG8", one("hello")},
		{`@base32`, "hi", one("NBUQ====")},
		{`@base32d`, "NBUQ", one("hi")},
		{`@csv "row: \(.)"`, []any{1, 2}, one("row: 1,2")},
		{`format("html")`, "&", one("&amp;")},
		{`fromcsv`, "a,b\n1,2", one([]any{[]any{"a", "b"}, []any{"1", "2"}})},
		{`try @csv catch "not an array"`, "x", one("not an array")},
	}, ext.WithFormat())
}

func TestExpr(t *testing.T) {
	runCases(t, []extCase{
		{`expr("a * b + 1")`, map[string]any{"a": 2, "b": 3}, one(7)},
		{`expr("x + 1"; {"x": 1})`, nil, one(2)},
		{`expr("input.a")`, map[string]any{"a": "s"}, one("s")},
		{`expr("len(input)")`, []any{1, 2, 3}, one(3)},
		{`try expr("1 +") catch "syntax"`, nil, one("syntax")},
	}, ext.WithExpr())
}

func TestWithAll(t *testing.T) {
	runCases(t, []extCase{
		{`.name | test("^a") and (sha1 | length == 40)`, map[string]any{"name": "ann"}, one(true)},
		{`.ts | todate | sub("T.*"; "")`, map[string]any{"ts": 0}, one("1970-01-01")},
	}, ext.WithAll())
}

func TestSingleFunction(t *testing.T) {
	got, err := gojaq.Eval(`sha256 | length`, "x", gojaq.WithFunctions(extcrypto.Hash(), extcrypto.All()[2]))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(one(64), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	_, err = gojaq.Eval(`md5`, "x", gojaq.WithFunctions(extcrypto.Hash()))
	if err == nil || !strings.Contains(err.Error(), "md5") {
		t.Errorf("expected undefined md5, got %v", err)
	}
}

func TestDefinitionsNeedGoFunctions(t *testing.T) {
	_, err := gojaq.Compile(`.`, gojaq.WithFunctions(extstring.Definitions()))
	if err == nil {
		t.Fatal("expected an error compiling definitions without the regex functions")
	}
}
