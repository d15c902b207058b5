package evaluator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/evaluator"
	"github.com/sandrolain/gojaq/pkg/ext"
	"github.com/sandrolain/gojaq/pkg/types"
	"github.com/sandrolain/gojaq/pkg/value"
)

// conformanceCase is one entry of a testdata/*.yaml group. Input and
// outputs are JSON texts so that integers and floats stay distinct.
type conformanceCase struct {
	Name   string            `yaml:"name"`
	Query  string            `yaml:"query"`
	Input  string            `yaml:"input"`
	Inputs []string          `yaml:"inputs"`
	Vars   map[string]string `yaml:"vars"`
	Output []string          `yaml:"output"`
	// Error is the expected error: a compile error code such as C0101, or
	// the kind of a run-time error (TypeError, IndexError, UserError).
	Error string `yaml:"error"`
	Skip  string `yaml:"skip"`
}

type conformanceGroup struct {
	Name  string
	Cases []conformanceCase
}

func loadConformanceGroups(t *testing.T) []conformanceGroup {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no conformance files in testdata")
	}
	var groups []conformanceGroup
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		var cases []conformanceCase
		if err := yaml.Unmarshal(data, &cases); err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		groups = append(groups, conformanceGroup{
			Name:  strings.TrimSuffix(filepath.Base(f), ".yaml"),
			Cases: cases,
		})
	}
	return groups
}

func TestConformance(t *testing.T) {
	ev := evaluator.New(ext.WithAll(), evaluator.WithEnviron([]string{"HOME=/home/test"}))
	var total, skipped int
	for _, group := range loadConformanceGroups(t) {
		t.Run(group.Name, func(t *testing.T) {
			for _, tc := range group.Cases {
				total++
				name := tc.Name
				if name == "" {
					name = tc.Query
				}
				t.Run(name, func(t *testing.T) {
					if tc.Skip != "" {
						skipped++
						t.Skip(tc.Skip)
					}
					runConformanceCase(t, ev, tc)
				})
			}
		})
	}
	t.Logf("%d conformance cases, %d skipped", total, skipped)
}

func runConformanceCase(t *testing.T, ev *evaluator.Evaluator, tc conformanceCase) {
	t.Helper()
	var names []string
	vars := map[string]value.Value{}
	for name, src := range tc.Vars {
		names = append(names, name)
		vars[name] = parse(t, src)
	}
	p, err := ev.Compile(tc.Query, names...)
	if err != nil {
		checkConformanceError(t, tc, err)
		return
	}

	var inputs []value.Value
	for _, src := range tc.Inputs {
		inputs = append(inputs, parse(t, src))
	}
	opts := []evaluator.RunOption{
		evaluator.WithVariables(vars),
		evaluator.WithInputs(evaluator.FromValues(inputs...)),
	}
	out, err := evaluator.Collect(ev.Run(context.Background(), p, parse(t, tc.Input), opts...))
	if err != nil {
		checkConformanceError(t, tc, err)
		return
	}
	if tc.Error != "" {
		t.Fatalf("%s: want error %s, got %v", tc.Query, tc.Error, toJSON(out))
	}

	want := make([]string, len(tc.Output))
	for i, src := range tc.Output {
		want[i] = normalizeJSON(t, src)
	}
	got := toJSON(out)
	if w, g := strings.Join(want, "\n"), strings.Join(got, "\n"); w != g {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(w, g, false)
		t.Errorf("%s on %s:\n%s", tc.Query, tc.Input, dmp.DiffPrettyText(diffs))
	}
}

// normalizeJSON re-encodes src so that expected outputs may be written with
// any spacing.
func normalizeJSON(t *testing.T, src string) string {
	t.Helper()
	v, err := codec.ParseJSON(src)
	if err != nil {
		t.Fatalf("bad expected output %q: %v", src, err)
	}
	return value.ToJSON(v)
}

func checkConformanceError(t *testing.T, tc conformanceCase, err error) {
	t.Helper()
	if tc.Error == "" {
		t.Fatalf("%s: unexpected error: %v", tc.Query, err)
	}
	var terr *types.Error
	var verr *value.Error
	var got string
	switch {
	case errors.As(err, &terr):
		got = string(terr.Code)
	case errors.As(err, &verr):
		got = verr.Kind.String()
	default:
		got = err.Error()
	}
	if got != tc.Error {
		t.Errorf("%s: error = %s (%v), want %s", tc.Query, got, err, tc.Error)
	}
}
