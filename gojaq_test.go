package gojaq_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sandrolain/gojaq"
	"github.com/sandrolain/gojaq/pkg/types"
	"github.com/sandrolain/gojaq/pkg/value"
)

var testData = map[string]any{
	"name": "Alice",
	"age":  30,
	"items": []any{
		map[string]any{"name": "foo", "price": 10},
		map[string]any{"name": "bar", "price": 200},
	},
}

func TestEval(t *testing.T) {
	tests := []struct {
		query string
		want  []any
	}{
		{`.name`, []any{"Alice"}},
		{`.age + 1`, []any{31}},
		{`.items[] | select(.price > 100) | .name`, []any{"bar"}},
		{`[.items[].price] | add`, []any{210}},
		{`.items | map(.name)`, []any{[]any{"foo", "bar"}}},
		{`.items[0]`, []any{map[string]any{"name": "foo", "price": 10}}},
		{`.items[] | .price / 10`, []any{1.0, 20.0}},
		{`.missing`, []any{nil}},
		{`empty`, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := gojaq.Eval(tt.query, testData)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Eval(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestEvalJSONNumbers(t *testing.T) {
	var data any
	if err := json.Unmarshal([]byte(`{"n": 3, "f": 1.5}`), &data); err != nil {
		t.Fatal(err)
	}
	got, err := gojaq.Eval(`.n * 2, .f * 2`, data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{6.0, 3.0}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalFirst(t *testing.T) {
	got, err := gojaq.EvalFirst(`.items[].name`, testData)
	if err != nil {
		t.Fatal(err)
	}
	if got != "foo" {
		t.Errorf("EvalFirst = %v, want foo", got)
	}
	got, err = gojaq.EvalFirst(`empty`, testData)
	if err != nil || got != nil {
		t.Errorf("EvalFirst(empty) = %v, %v; want nil, nil", got, err)
	}
}

func TestEvalErrors(t *testing.T) {
	_, err := gojaq.Eval(`.name |`, testData)
	var terr *types.Error
	if !errors.As(err, &terr) || terr.Code != types.ErrUnexpectedEnd {
		t.Errorf("parse error = %v, want %s", err, types.ErrUnexpectedEnd)
	}

	_, err = gojaq.Eval(`.name + 1`, testData)
	var verr *value.Error
	if !errors.As(err, &verr) || verr.Kind != value.TypeError {
		t.Errorf("run error = %v, want a TypeError", err)
	}

	_, err = gojaq.Eval(`error("custom")`, nil)
	if err == nil || err.Error() != "custom" {
		t.Errorf("error(\"custom\") = %v", err)
	}

	_, err = gojaq.Eval(`.`, make(chan int))
	if err == nil {
		t.Error("want an error for an unsupported input type")
	}
}

func TestCompile(t *testing.T) {
	prog, err := gojaq.Compile(`.items | length`)
	if err != nil {
		t.Fatal(err)
	}
	if prog.String() != `.items | length` {
		t.Errorf("String() = %q", prog.String())
	}
	for i, data := range []any{testData, map[string]any{"items": []any{1}}} {
		got, err := prog.Eval(context.Background(), data)
		if err != nil {
			t.Fatal(err)
		}
		want := []any{[]int{2, 1}[i]}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("run %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestCompileWithVars(t *testing.T) {
	prog, err := gojaq.CompileWithVars(`.items[] | select(.price >= $min) | .name`, []string{"$min"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := prog.EvalWithVars(context.Background(), testData, map[string]any{"min": 50})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{"bar"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Unbound variables are null.
	got, err = prog.Eval(context.Background(), testData)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{"foo", "bar"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := gojaq.Compile(`$min`); err == nil {
		t.Error("want an error for an undefined variable")
	}
}

func TestMustCompile(t *testing.T) {
	if p := gojaq.MustCompile(`.`); p == nil {
		t.Fatal("MustCompile returned nil")
	}
	defer func() {
		if recover() == nil {
			t.Error("MustCompile did not panic on a bad filter")
		}
	}()
	gojaq.MustCompile(`.[`)
}

func TestOptions(t *testing.T) {
	double := func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
		n, ok := in.(value.Int)
		if !ok {
			return nil, fmt.Errorf("double: want an integer")
		}
		return n * 2, nil
	}
	got, err := gojaq.Eval(`.age | double`, testData, gojaq.WithCustomFunction("double", 0, double))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{60}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prog := gojaq.MustCompile(`last(range(1e9))`)
	if _, err := prog.Eval(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled run: err = %v", err)
	}

	_, err = gojaq.Eval(`last(range(1e12))`, nil, gojaq.WithTimeout(20*time.Millisecond))
	var terr *types.Error
	if !errors.As(err, &terr) || terr.Code != types.ErrTimeout {
		t.Errorf("timeout: err = %v", err)
	}
}

func TestProgramConcurrentUse(t *testing.T) {
	prog := gojaq.MustCompile(`[.items[].price] | add`, gojaq.WithCaching(true))
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Go(func() {
			got, err := prog.Eval(context.Background(), testData)
			if err != nil {
				errs <- err
				return
			}
			if len(got) != 1 || got[0] != 210 {
				errs <- fmt.Errorf("got %v", got)
			}
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestVersion(t *testing.T) {
	if gojaq.Version() == "" {
		t.Error("empty version")
	}
}
