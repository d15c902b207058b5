package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/evaluator"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/types"
	"github.com/sandrolain/gojaq/pkg/value"
)

func toJSON(vs []value.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = value.ToJSON(v)
	}
	return out
}

func TestCustomFunctions(t *testing.T) {
	double := func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
		return value.Mul(in, value.Int(2))
	}
	pad := func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
		return value.String(fmt.Sprintf("%s%s", args[0], in)), nil
	}
	fail := func(context.Context, value.Value, ...value.Value) (value.Value, error) {
		return nil, errors.New("boom")
	}
	nothing := func(context.Context, value.Value, ...value.Value) (value.Value, error) {
		return nil, nil
	}
	length := func(context.Context, value.Value, ...value.Value) (value.Value, error) {
		return value.Int(42), nil
	}

	runEvalCases(t, []evalCase{
		{`double`, `21`, []string{`42`}},
		{`[.[] | double]`, `[1,2]`, []string{`[2,4]`}},
		{`pad("> ", ">> ")`, `"x"`, []string{`"> x"`, `">> x"`}},
		{`try fail catch .`, ``, []string{`"boom"`}},
		{`nothing`, `1`, []string{`null`}},
		{`length`, `[]`, []string{`42`}},
	},
		evaluator.WithCustomFunction("double", 0, double),
		evaluator.WithCustomFunction("pad", 1, pad),
		evaluator.WithCustomFunction("fail", 0, fail),
		evaluator.WithCustomFunction("nothing", 0, nothing),
		evaluator.WithCustomFunction("length", 0, length),
	)
}

func TestFunctionEntries(t *testing.T) {
	chars := functions.GeneratorFunctionDef{
		Name: "chars",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) ([]value.Value, error) {
			s, ok := in.(value.String)
			if !ok {
				return nil, fmt.Errorf("chars: %s is not a string", value.Describe(in))
			}
			var out []value.Value
			for _, r := range string(s) {
				out = append(out, value.String(string(r)))
			}
			return out, nil
		},
	}
	twice := functions.AdvancedCustomFunctionDef{
		Name:  "twice",
		Arity: 1,
		Fn: func(_ context.Context, c functions.Caller, in value.Value) ([]value.Value, error) {
			first, err := c.Call(0, in)
			if err != nil {
				return nil, err
			}
			var out []value.Value
			for _, v := range first {
				vs, err := c.Call(0, v)
				if err != nil {
					return nil, err
				}
				out = append(out, vs...)
			}
			return out, nil
		},
	}
	defs := functions.Definitions{
		Name:   "extra",
		Source: `def inc: . + 1; def incn($n): reduce range($n) as $_ (.; inc);`,
	}

	runEvalCases(t, []evalCase{
		{`[chars]`, `"abc"`, []string{`["a","b","c"]`}},
		{`try chars catch .`, `1`, []string{`"chars: number (1) is not a string"`}},
		{`twice(. * 3)`, `2`, []string{`18`}},
		{`[twice(., . + 1)]`, `0`, []string{`[0,1,1,2]`}},
		{`try twice(error("x")) catch .`, `0`, []string{`"x"`}},
		{`inc, incn(3)`, `1`, []string{`2`, `4`}},
	}, evaluator.WithFunctions(chars, twice, defs))
}

func TestInvalidDefinitions(t *testing.T) {
	ev := evaluator.New(evaluator.WithFunctions(functions.Definitions{Name: "bad", Source: `def f: ;`}))
	_, err := ev.Compile(`.`)
	var terr *types.Error
	if !errors.As(err, &terr) || terr.Code != types.ErrModuleInvalid {
		t.Fatalf("Compile error = %v, want %s", err, types.ErrModuleInvalid)
	}
}

func TestRunVariables(t *testing.T) {
	ev := evaluator.New()
	p, err := ev.Compile(`[$x, $y]`, "x", "$y")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"x", "$y"}, p.Vars()); diff != "" {
		t.Errorf("Vars() mismatch (-want +got):\n%s", diff)
	}
	out, err := evaluator.Collect(ev.Run(context.Background(), p, value.NullValue,
		evaluator.WithVariables(map[string]value.Value{"x": value.Int(1)})))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{`[1,null]`}, toJSON(out)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRunInputs(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{`[., input]`, []string{`[0,1]`}},
		{`[inputs]`, []string{`[1,2,3]`}},
		{`input, input, input, try input catch .`, []string{`1`, `2`, `3`, `"No more inputs"`}},
		{`first(inputs), [inputs]`, []string{`1`, `[2,3]`}},
		{`input_filename`, []string{`"data.json"`}},
	}
	ev := evaluator.New()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			inputs := evaluator.FromValues(value.Int(1), value.Int(2), value.Int(3))
			out, err := ev.Eval(context.Background(), tt.query, value.Int(0),
				evaluator.WithInputs(inputs), evaluator.WithFilename("data.json"))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, toJSON(out)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnviron(t *testing.T) {
	runEvalCases(t, []evalCase{
		{`$ENV.FOO`, ``, []string{`"bar"`}},
		{`env | keys`, ``, []string{`["EMPTY","FOO"]`}},
		{`$ENV.EMPTY`, ``, []string{`""`}},
	}, evaluator.WithEnviron([]string{"FOO=bar", "EMPTY=", "BROKEN"}))
}

func TestStderrAndDebug(t *testing.T) {
	var stderr, logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ev := evaluator.New(evaluator.WithStderr(&stderr), evaluator.WithLogger(logger))

	got := evalJSON(t, ev, `stderr | debug | debug("msg: \(.a)") | .a`, `{"a":1}`)
	if diff := cmp.Diff([]string{`1`}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if stderr.String() != `{"a":1}` {
		t.Errorf("stderr = %q", stderr.String())
	}
	for _, want := range []string{"DEBUG:", "msg: 1"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("debug log %q does not contain %q", logs.String(), want)
		}
	}
}

func TestHalt(t *testing.T) {
	tests := []struct {
		query string
		code  int
		value string
	}{
		{`halt_error`, 5, `"bye"`},
		{`halt_error(1)`, 1, `"bye"`},
		{`{a: .} | halt_error(2)`, 2, `{"a":"bye"}`},
	}
	ev := evaluator.New()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := ev.Eval(context.Background(), `try (`+tt.query+`) catch "caught"`, value.String("bye"))
			var halt *evaluator.HaltError
			if !errors.As(err, &halt) {
				t.Fatalf("error = %v, want *HaltError", err)
			}
			if halt.Code != tt.code {
				t.Errorf("code = %d, want %d", halt.Code, tt.code)
			}
			if got := value.ToJSON(halt.Value); got != tt.value {
				t.Errorf("value = %s, want %s", got, tt.value)
			}
		})
	}

	t.Run("ends the run", func(t *testing.T) {
		p, err := ev.Compile(`1, halt, 2`)
		if err != nil {
			t.Fatal(err)
		}
		it := ev.Run(context.Background(), p, value.NullValue)
		if v, err := it.Next(); err != nil || value.ToJSON(v) != "1" {
			t.Fatalf("first = %v, %v", v, err)
		}
		if _, err := it.Next(); err == nil {
			t.Fatal("want halt error")
		}
		if _, err := it.Next(); err != evaluator.Done {
			t.Errorf("after halt = %v, want Done", err)
		}
	})
}

func TestTimeout(t *testing.T) {
	ev := evaluator.New(evaluator.WithTimeout(50 * time.Millisecond))
	for _, q := range []string{
		`last(range(1e12))`,
		`try last(range(1e12)) catch "caught"`,
	} {
		t.Run(q, func(t *testing.T) {
			start := time.Now()
			_, err := ev.Eval(context.Background(), q, value.NullValue)
			var terr *types.Error
			if !errors.As(err, &terr) || terr.Code != types.ErrTimeout {
				t.Fatalf("error = %v, want %s", err, types.ErrTimeout)
			}
			if d := time.Since(start); d > 5*time.Second {
				t.Errorf("timeout took %s", d)
			}
		})
	}
}

func TestCancel(t *testing.T) {
	ev := evaluator.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ev.Eval(ctx, `last(range(1e9))`, value.NullValue)
	var terr *types.Error
	if !errors.As(err, &terr) || terr.Code != types.ErrTimeout {
		t.Fatalf("error = %v, want %s", err, types.ErrTimeout)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v does not wrap context.Canceled", err)
	}
}

func TestCloseReleasesRun(t *testing.T) {
	var runCtx context.Context
	grab := func(ctx context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
		runCtx = ctx
		return in, nil
	}
	ev := evaluator.New(
		evaluator.WithTimeout(time.Hour),
		evaluator.WithCustomFunction("grab", 0, grab),
	)

	t.Run("abandoned run", func(t *testing.T) {
		p, err := ev.Compile(`grab | range(10)`)
		if err != nil {
			t.Fatal(err)
		}
		it := ev.Run(context.Background(), p, value.NullValue)
		if v, err := it.Next(); err != nil || value.ToJSON(v) != "0" {
			t.Fatalf("Next() = %v, %v", v, err)
		}
		if runCtx.Err() != nil {
			t.Fatal("run context ended before Close")
		}
		evaluator.Close(it)
		evaluator.Close(it)
		if !errors.Is(runCtx.Err(), context.Canceled) {
			t.Errorf("run context error = %v, want %v", runCtx.Err(), context.Canceled)
		}
		if _, err := it.Next(); err != evaluator.Done {
			t.Errorf("Next() after Close = %v, want Done", err)
		}
	})

	t.Run("eval stopped by an error", func(t *testing.T) {
		runCtx = nil
		_, err := ev.Eval(context.Background(), `grab | 1, error("stop"), 2`, value.NullValue)
		if err == nil {
			t.Fatal("expected an error")
		}
		if runCtx == nil || !errors.Is(runCtx.Err(), context.Canceled) {
			t.Errorf("run context not released after Eval")
		}
	})

	evaluator.Close(evaluator.FromValues(value.Int(1)))
}

func TestAppendFold(t *testing.T) {
	ev := evaluator.New(evaluator.WithTimeout(10 * time.Second))
	out, err := ev.Eval(context.Background(), `reduce range(100000) as $x ([]; . + [$x]) | [length, .[0], .[-1]]`, value.NullValue)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{`[100000,0,99999]`}, toJSON(out)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxDepth(t *testing.T) {
	ev := evaluator.New(evaluator.WithMaxDepth(100))
	for _, q := range []string{
		`def f: [f]; f`,
		`def f: 1 + f; try f catch "caught"`,
	} {
		t.Run(q, func(t *testing.T) {
			_, err := ev.Eval(context.Background(), q, value.NullValue)
			var terr *types.Error
			if !errors.As(err, &terr) || terr.Code != types.ErrStackOverflow {
				t.Fatalf("error = %v, want %s", err, types.ErrStackOverflow)
			}
		})
	}

	got := evalJSON(t, ev, `[range(50)] | reduce .[] as $x (0; . + $x)`, ``)
	if diff := cmp.Diff([]string{`1225`}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCaching(t *testing.T) {
	ev := evaluator.New(evaluator.WithCaching(true), evaluator.WithCacheSize(2))
	p1, err := ev.Compile(`.a`)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := ev.Compile(`.a`)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("cached program not reused")
	}
	p3, err := ev.Compile(`.a`, "x")
	if err != nil {
		t.Fatal(err)
	}
	if p3 == p1 {
		t.Error("programs with different variables share a cache entry")
	}
	if n := ev.Cache().Len(); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
	if _, err := ev.Compile(`.b`); err != nil {
		t.Fatal(err)
	}
	if n := ev.Cache().Len(); n != 2 {
		t.Errorf("Len() after eviction = %d, want 2", n)
	}

	if evaluator.New().Cache() != nil {
		t.Error("caching enabled by default")
	}
}

func TestModules(t *testing.T) {
	loader := evaluator.MapLoader{
		"lib":       `def inc: . + 1; def twice(f): f | f;`,
		"util":      `import "lib" as l; def inc2: l::twice(l::inc);`,
		"data.json": `{"a":1} {"a":2}`,
		"bad":       `def f: ;`,
		"self":      `import "self" as s; def f: 1;`,
	}
	runEvalCases(t, []evalCase{
		{`import "lib" as lib; lib::inc`, `1`, []string{`2`}},
		{`include "lib"; twice(inc)`, `1`, []string{`3`}},
		{`import "util" as u; u::inc2`, `1`, []string{`3`}},
		{`import "data" as $d; $d | map(.a)`, ``, []string{`[1,2]`}},
		{`import "data" as $d; $d::d | length`, ``, []string{`2`}},
		{`import "lib" as lib; def inc: 10; inc, lib::inc`, `1`, []string{`10`, `2`}},
	}, evaluator.WithModuleLoader(loader))

	tests := []struct {
		query string
		code  types.ErrorCode
	}{
		{`import "missing" as m; .`, types.ErrModuleNotFound},
		{`import "nodata" as $m; .`, types.ErrModuleNotFound},
		{`import "bad" as b; .`, types.ErrModuleInvalid},
		{`import "self" as s; .`, types.ErrModuleInvalid},
		{`include "lib"; lib::inc`, types.ErrUndefinedFunction},
	}
	ev := evaluator.New(evaluator.WithModuleLoader(loader))
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := ev.Compile(tt.query)
			var terr *types.Error
			if !errors.As(err, &terr) || terr.Code != tt.code {
				t.Fatalf("Compile error = %v, want %s", err, tt.code)
			}
		})
	}

	t.Run("no loader", func(t *testing.T) {
		_, err := evaluator.New().Compile(`import "lib" as lib; .`)
		var terr *types.Error
		if !errors.As(err, &terr) || terr.Code != types.ErrModuleNotFound {
			t.Fatalf("Compile error = %v, want %s", err, types.ErrModuleNotFound)
		}
	})
}

func TestEvalStream(t *testing.T) {
	ev := evaluator.New()
	p, err := ev.Compile(`if .n == 2 then error("two") else .n * 10 end`)
	if err != nil {
		t.Fatal(err)
	}
	dec := codec.NewJSONDecoder(strings.NewReader(`{"n":1} {"n":2} {"n":3} {"n":`))
	ch, err := ev.EvalStream(context.Background(), p, dec)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for r := range ch {
		switch {
		case r.Err != nil && r.Input == nil:
			got = append(got, "decode error")
		case r.Err != nil:
			got = append(got, value.ToJSON(r.Input)+": "+r.Err.Error())
		default:
			got = append(got, value.ToJSON(r.Input)+": "+value.ToJSON(r.Value))
		}
	}
	want := []string{`{"n":1}: 10`, `{"n":2}: two`, `{"n":3}: 30`, "decode error"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalStreamInputs(t *testing.T) {
	ev := evaluator.New()
	p, err := ev.Compile(`[., input]`)
	if err != nil {
		t.Fatal(err)
	}
	dec := codec.NewJSONDecoder(strings.NewReader(`1 2 3 4`))
	ch, err := ev.EvalStream(context.Background(), p, dec)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for r := range ch {
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
		got = append(got, value.ToJSON(r.Value))
	}
	if diff := cmp.Diff([]string{`[1,2]`, `[3,4]`}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := ev.EvalStream(context.Background(), nil, dec); err == nil {
		t.Error("EvalStream(nil) succeeded")
	}
}

func TestConcurrentRuns(t *testing.T) {
	ev := evaluator.New(evaluator.WithCaching(true))
	p, err := ev.Compile(`reduce range(.) as $x (0; . + $x)`)
	if err != nil {
		t.Fatal(err)
	}
	errs := make(chan error, 8)
	for i := range 8 {
		go func() {
			out, err := evaluator.Collect(ev.Run(context.Background(), p, value.Int(i*10)))
			if err == nil && value.ToJSON(out[0]) != fmt.Sprint(i*10*(i*10-1)/2) {
				err = fmt.Errorf("run %d: got %s", i, value.ToJSON(out[0]))
			}
			errs <- err
		}()
	}
	for range 8 {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}
