package value

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func obj(kv ...any) *Object {
	entries := make([]Entry, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		entries = append(entries, Entry{Key: kv[i].(string), Value: kv[i+1].(Value)})
	}
	return NewObject(entries...)
}

func TestKindOrder(t *testing.T) {
	ordered := []Value{
		NullValue,
		False,
		True,
		Float(math.NaN()),
		Int(-5),
		Float(-1.5),
		Int(0),
		Float(0.5),
		Int(1),
		String(""),
		String("a"),
		String("b"),
		Array{},
		Array{Int(1)},
		Array{Int(1), Int(2)},
		Array{Int(2)},
		NewObject(),
		obj("a", Int(2)),
		obj("a", Int(1), "b", Int(1)),
		obj("b", Int(0)),
	}
	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j])
			want := cmpInt(i, j)
			if got != want {
				t.Errorf("Compare(%s, %s) = %d, want %d", ToJSON(ordered[i]), ToJSON(ordered[j]), got, want)
			}
		}
	}
}

func TestCompareMixedNumbers(t *testing.T) {
	big := Int(math.MaxInt64)
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"int float equal", Int(1), Float(1), 0},
		{"int below fraction", Int(1), Float(1.5), -1},
		{"negative fraction", Int(-1), Float(-1.5), 1},
		{"max int vs 2^63", big, Float(9223372036854775808.0), -1},
		{"max int minus one", Int(math.MaxInt64 - 1), Float(9223372036854775807.0), -1},
		{"min int", Int(math.MinInt64), Float(-9223372036854775808.0), 0},
		{"inf", Int(0), Float(math.Inf(1)), -1},
		{"-inf", Int(0), Float(math.Inf(-1)), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare = %d, want %d", got, tt.want)
			}
			if got := Compare(tt.b, tt.a); got != -tt.want {
				t.Errorf("reverse Compare = %d, want %d", got, -tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	nan := Float(math.NaN())
	if Equal(nan, nan) {
		t.Error("nan must not equal itself")
	}
	if !Equal(Int(3), Float(3)) {
		t.Error("3 == 3.0")
	}
	a := obj("a", Int(1), "b", Array{NullValue})
	b := obj("b", Array{NullValue}, "a", Int(1))
	if !Equal(a, b) {
		t.Error("objects with the same entries in different order must be equal")
	}
	if Compare(a, b) != 0 {
		t.Error("objects with the same entries must compare equal")
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		a, b Value
		want Value
	}{
		{"int add", OpAdd, Int(1), Int(2), Int(3)},
		{"float add", OpAdd, Float(1), Int(2), Float(3)},
		{"int sub", OpSub, Int(1), Int(2), Int(-1)},
		{"int mul", OpMul, Int(3), Int(4), Int(12)},
		{"int mod", OpMod, Int(7), Int(3), Int(1)},
		{"negative mod", OpMod, Int(-7), Int(3), Int(-1)},
		{"int div", OpDiv, Int(4), Int(2), Float(2)},
		{"div zero", OpDiv, Int(1), Int(0), Float(math.Inf(1))},
		{"div neg zero", OpDiv, Int(-1), Int(0), Float(math.Inf(-1))},
		{"add overflow", OpAdd, Int(math.MaxInt), Int(1), Float(float64(math.MaxInt) + 1)},
		{"mul overflow", OpMul, Int(math.MaxInt), Int(2), Float(float64(math.MaxInt) * 2)},
		{"null add", OpAdd, NullValue, Int(1), Int(1)},
		{"add null", OpAdd, String("a"), NullValue, String("a")},
		{"string add", OpAdd, String("a"), String("b"), String("ab")},
		{"array add", OpAdd, Array{Int(1)}, Array{Int(2)}, Array{Int(1), Int(2)}},
		{"array sub", OpSub, Array{Int(1), Int(2), Int(1), Int(3)}, Array{Int(1)}, Array{Int(2), Int(3)}},
		{"object add", OpAdd, obj("a", Int(1), "b", Int(2)), obj("a", Int(3)), obj("a", Int(3), "b", Int(2))},
		{"deep merge", OpMul, obj("a", obj("b", Int(1))), obj("a", obj("c", Int(2))), obj("a", obj("b", Int(1), "c", Int(2)))},
		{"repeat", OpMul, String("ab"), Int(3), String("ababab")},
		{"repeat zero", OpMul, String("ab"), Int(0), NullValue},
		{"split", OpDiv, String("a,b"), String(","), Array{String("a"), String("b")}},
		{"split empty", OpDiv, String(""), String(","), Array{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.Apply(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !Equal(got, tt.want) || got.Kind() != tt.want.Kind() {
				t.Errorf("got %s, want %s", ToJSON(got), ToJSON(tt.want))
			}
			if _, isInt := tt.want.(Int); isInt {
				if _, ok := got.(Int); !ok {
					t.Errorf("got %T, want Int", got)
				}
			}
		})
	}
}

func TestDivZeroNaN(t *testing.T) {
	got, err := Div(Int(0), Int(0))
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := got.(Float); !ok || !math.IsNaN(float64(f)) {
		t.Errorf("0/0 = %v, want nan", got)
	}
}

func TestArithmeticErrors(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		a, b Value
		msg  string
	}{
		{"string plus number", OpAdd, String("a"), Int(1), `string ("a") and number (1) cannot be added`},
		{"mod zero", OpMod, Int(1), Int(0), `number (1) and number (0) cannot be divided because the divisor is zero`},
		{"object minus", OpSub, NewObject(), NewObject(), `object ({}) and object ({}) cannot be subtracted`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op.Apply(tt.a, tt.b)
			var ve *Error
			if !errors.As(err, &ve) || ve.Kind != TypeError {
				t.Fatalf("want TypeError, got %v", err)
			}
			if err.Error() != tt.msg {
				t.Errorf("message = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestNeg(t *testing.T) {
	got, err := Neg(Int(math.MinInt))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(Float); !ok {
		t.Errorf("negating min int should promote, got %T", got)
	}
	if _, err := Neg(String("x")); err == nil {
		t.Error("negating a string must fail")
	}
}

func TestToIndex(t *testing.T) {
	if i, err := ToIndex(Int(2)); err != nil || i != 2 {
		t.Errorf("ToIndex(2) = %d, %v", i, err)
	}
	_, err := ToIndex(Float(1.0000000000000001))
	if err == nil || err.Error() != "cannot use 1.0 as integer" {
		t.Errorf("ToIndex(1.0) error = %v", err)
	}
	if i, err := ToInt(Float(3)); err != nil || i != 3 {
		t.Errorf("ToInt(3.0) = %d, %v", i, err)
	}
	if _, err := ToInt(Float(3.5)); err == nil {
		t.Error("ToInt(3.5) must fail")
	}
}

func TestObjectCopyOnWrite(t *testing.T) {
	base := obj("a", Int(1), "b", Int(2))
	set := base.Set("a", Int(9))
	del := base.Delete("b")
	added := base.Set("c", Int(3))

	if v, _ := base.Get("a"); !Equal(v, Int(1)) {
		t.Error("Set mutated the receiver")
	}
	if base.Len() != 2 {
		t.Error("Delete or Set mutated the receiver")
	}
	if diff := cmp.Diff([]string{"a", "b"}, set.Keys()); diff != "" {
		t.Errorf("Set changed key order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, del.Keys()); diff != "" {
		t.Errorf("Delete keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, added.Keys()); diff != "" {
		t.Errorf("Set new key order (-want +got):\n%s", diff)
	}
}

func TestObjectIndexed(t *testing.T) {
	entries := make([]Entry, 0, 20)
	for i := 0; i < 20; i++ {
		entries = append(entries, Entry{Key: string(rune('a' + i)), Value: Int(i)})
	}
	o := NewObject(entries...)
	if o.index == nil {
		t.Fatal("large objects should be indexed")
	}
	o2 := o.Delete("c").Set("z", Int(100))
	if v, ok := o2.Get("t"); !ok || !Equal(v, Int(19)) {
		t.Errorf("Get(t) = %v, %v", v, ok)
	}
	if o2.Has("c") {
		t.Error("deleted key still present")
	}
	keys := o2.Keys()
	if keys[len(keys)-1] != "z" {
		t.Errorf("new key not appended: %v", keys)
	}
}

func TestNewObjectDuplicates(t *testing.T) {
	o := NewObject(Entry{"a", Int(1)}, Entry{"b", Int(2)}, Entry{"a", Int(3)})
	if diff := cmp.Diff([]string{"a", "b"}, o.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if v, _ := o.Get("a"); !Equal(v, Int(3)) {
		t.Errorf("a = %s, want 3", ToJSON(v))
	}
}

func TestToJSON(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NullValue, "null"},
		{Int(-3), "-3"},
		{Float(3), "3.0"},
		{Float(1.5), "1.5"},
		{Float(1e17), "1e17"},
		{Float(1.5e-7), "1.5e-7"},
		{Float(math.NaN()), "null"},
		{Float(math.Inf(1)), "1.7976931348623157e308"},
		{String("a\"b\\\n\u0001é"), `"a\"b\\\n\u0001é"`},
		{Array{Int(1), obj("x", True)}, `[1,{"x":true}]`},
	}
	for _, tt := range tests {
		if got := ToJSON(tt.v); got != tt.want {
			t.Errorf("ToJSON = %s, want %s", got, tt.want)
		}
	}
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{"b": []any{1, 2.5, "x", nil, true}, "a": map[string]string{"k": "v"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":{"k":"v"},"b":[1,2.5,"x",null,true]}`
	if got := ToJSON(v); got != want {
		t.Errorf("FromGo = %s, want %s", got, want)
	}
	type point struct {
		X int `json:"x"`
	}
	v, err = FromGo(point{X: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got := ToJSON(v); got != `{"x":3.0}` && got != `{"x":3}` {
		t.Errorf("FromGo(struct) = %s", got)
	}
	back := ToGo(Array{Int(1), String("s")})
	if diff := cmp.Diff([]any{1, "s"}, back); diff != "" {
		t.Errorf("ToGo (-want +got):\n%s", diff)
	}
}

func TestSortIsTotal(t *testing.T) {
	vals := []Value{String("b"), Int(2), NullValue, Float(math.NaN()), Array{}, False, Float(1.5), NewObject()}
	sort.SliceStable(vals, func(i, j int) bool { return Compare(vals[i], vals[j]) < 0 })
	got := make([]string, len(vals))
	for i, v := range vals {
		got[i] = ToJSON(v)
	}
	want := []string{"null", "false", "null", "1.5", "2", `"b"`, "[]", "{}"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sorted (-want +got):\n%s", diff)
	}
}
