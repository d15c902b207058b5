package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/scott-cotton/cli"
)

type cliCase struct {
	name   string
	setup  func(cfg *Config)
	args   []string
	stdin  string
	stdout string
	status int
}

func runCLI(t *testing.T, setup func(*Config), stdin string, args ...string) (string, string, int) {
	t.Helper()
	cfg := newConfig()
	if setup != nil {
		setup(cfg)
	}
	var stdout, stderr bytes.Buffer
	status := execute(context.Background(), cfg, strings.NewReader(stdin), &stdout, &stderr, args)
	return stdout.String(), stderr.String(), status
}

func compact(cfg *Config) { cfg.Compact = true }

func TestCLI(t *testing.T) {
	tests := []cliCase{
		{
			name:   "pretty",
			args:   []string{"."},
			stdin:  `{"a":[1,2]}`,
			stdout: "{\n  \"a\": [\n    1,\n    2\n  ]\n}\n",
		},
		{
			name:   "compact",
			setup:  compact,
			args:   []string{".a[] * 10"},
			stdin:  `{"a":[1,2]} {"a":[3]}`,
			stdout: "10\n20\n30\n",
		},
		{
			name:   "tab",
			setup:  func(cfg *Config) { cfg.Tab = true },
			args:   []string{"."},
			stdin:  `[1]`,
			stdout: "[\n\t1\n]\n",
		},
		{
			name:   "indent",
			setup:  func(cfg *Config) { cfg.Indent = 4 },
			args:   []string{"."},
			stdin:  `{"a":1}`,
			stdout: "{\n    \"a\": 1\n}\n",
		},
		{
			name: "sort keys",
			setup: func(cfg *Config) {
				cfg.Compact = true
				cfg.SortKeys = true
			},
			args:   []string{"."},
			stdin:  `{"b":1,"a":2}`,
			stdout: "{\"a\":2,\"b\":1}\n",
		},
		{
			name:   "ascii",
			setup:  func(cfg *Config) { cfg.ASCII = true },
			args:   []string{"."},
			stdin:  `"é"`,
			stdout: "\"\\u00e9\"\n",
		},
		{
			name:   "raw output",
			setup:  func(cfg *Config) { cfg.RawOutput = true },
			args:   []string{".[]"},
			stdin:  `["a", 1, "b"]`,
			stdout: "a\n1\nb\n",
		},
		{
			name:   "join output",
			setup:  func(cfg *Config) { cfg.Join = true },
			args:   []string{".[]"},
			stdin:  `["a", 1, "b"]`,
			stdout: "a1b",
		},
		{
			name:   "null input",
			setup:  func(cfg *Config) { cfg.NullInput = true },
			args:   []string{"[., 1]"},
			stdin:  `5`,
			stdout: "[\n  null,\n  1\n]\n",
		},
		{
			name: "null input reads inputs",
			setup: func(cfg *Config) {
				cfg.NullInput = true
				cfg.Compact = true
			},
			args:   []string{"[inputs]"},
			stdin:  `1 2 3`,
			stdout: "[1,2,3]\n",
		},
		{
			name:   "input shares the stream",
			setup:  compact,
			args:   []string{"[., input]"},
			stdin:  `1 2 3 4`,
			stdout: "[1,2]\n[3,4]\n",
		},
		{
			name: "slurp",
			setup: func(cfg *Config) {
				cfg.Slurp = true
				cfg.Compact = true
			},
			args:   []string{"., add"},
			stdin:  `1 2 3`,
			stdout: "[1,2,3]\n6\n",
		},
		{
			name: "raw input",
			setup: func(cfg *Config) {
				cfg.RawInput = true
				cfg.Compact = true
			},
			args:   []string{"length"},
			stdin:  "ab\ncde\r\nf",
			stdout: "2\n3\n1\n",
		},
		{
			name: "raw input slurped",
			setup: func(cfg *Config) {
				cfg.RawInput = true
				cfg.Slurp = true
				cfg.Compact = true
			},
			args:   []string{"."},
			stdin:  "ab\ncd\n",
			stdout: "\"ab\\ncd\\n\"\n",
		},
		{
			name: "named arguments",
			setup: func(cfg *Config) {
				cfg.NullInput = true
				cfg.Compact = true
				mustOpt(t, cfg.argOpt, "who=world")
				mustOpt(t, cfg.argJSONOpt, "n={\"x\":[1]}")
			},
			args:   []string{`"hello \($who)", $n.x[0], $ARGS.named`},
			stdout: "\"hello world\"\n1\n{\"who\":\"world\",\"n\":{\"x\":[1]}}\n",
		},
		{
			name: "yaml input",
			setup: func(cfg *Config) {
				cfg.YAMLIn = true
				cfg.Compact = true
			},
			args:   []string{".a"},
			stdin:  "a: 1\n---\na: [x, y]\n",
			stdout: "1\n[\"x\",\"y\"]\n",
		},
		{
			name: "toml input",
			setup: func(cfg *Config) {
				cfg.TOMLIn = true
				cfg.Compact = true
			},
			args:   []string{".server.port"},
			stdin:  "[server]\nport = 8080\n",
			stdout: "8080\n",
		},
		{
			name:   "no output",
			args:   []string{"empty"},
			stdin:  `1`,
			stdout: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, status := runCLI(t, tt.setup, tt.stdin, tt.args...)
			if status != tt.status {
				t.Errorf("status = %d, want %d (stderr %q)", status, tt.status, stderr)
			}
			if diff := cmp.Diff(tt.stdout, stdout); diff != "" {
				t.Errorf("stdout mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func mustOpt(t *testing.T, opt cli.FuncOpt, a string) {
	t.Helper()
	if _, err := opt(nil, a); err != nil {
		t.Fatal(err)
	}
}

func TestExitStatus(t *testing.T) {
	exit := func(cfg *Config) { cfg.ExitStatus = true }
	tests := []struct {
		query string
		stdin string
		want  int
	}{
		{`.`, `1`, exitOK},
		{`.`, `false`, exitFalsy},
		{`.`, `null`, exitFalsy},
		{`.[]`, `[null, 1]`, exitOK},
		{`.[]`, `[1, null]`, exitFalsy},
		{`empty`, `1`, exitNoOutput},
	}
	for _, tt := range tests {
		t.Run(tt.query+" "+tt.stdin, func(t *testing.T) {
			if _, _, status := runCLI(t, exit, tt.stdin, tt.query); status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
		})
	}
	if _, _, status := runCLI(t, nil, `false`, "."); status != exitOK {
		t.Errorf("without -e: status = %d, want 0", status)
	}
}

func TestErrors(t *testing.T) {
	t.Run("runtime error continues", func(t *testing.T) {
		stdout, stderr, status := runCLI(t, compact, `{"a":"x"} {"a":1}`, ".a + 1")
		if status != exitRuntimeError {
			t.Errorf("status = %d, want %d", status, exitRuntimeError)
		}
		if stdout != "2\n" {
			t.Errorf("stdout = %q", stdout)
		}
		if !strings.Contains(stderr, "gojaq: error (at <stdin>):") {
			t.Errorf("stderr = %q", stderr)
		}
	})
	t.Run("compile error", func(t *testing.T) {
		_, stderr, status := runCLI(t, nil, `1`, ".[")
		if status != exitCompile {
			t.Errorf("status = %d, want %d", status, exitCompile)
		}
		if !strings.Contains(stderr, "1 compile error") {
			t.Errorf("stderr = %q", stderr)
		}
	})
	t.Run("no filter", func(t *testing.T) {
		if _, _, status := runCLI(t, nil, ``); status != exitUsage {
			t.Errorf("status = %d, want %d", status, exitUsage)
		}
	})
	t.Run("bad input", func(t *testing.T) {
		stdout, _, status := runCLI(t, compact, `1 {`, ".")
		if status != exitUsage {
			t.Errorf("status = %d, want %d", status, exitUsage)
		}
		if stdout != "1\n" {
			t.Errorf("stdout = %q", stdout)
		}
	})
	t.Run("exclusive formats", func(t *testing.T) {
		both := func(cfg *Config) {
			cfg.YAMLIn = true
			cfg.TOMLIn = true
		}
		if _, _, status := runCLI(t, both, `1`, "."); status != exitUsage {
			t.Errorf("status = %d, want %d", status, exitUsage)
		}
	})
	t.Run("halt_error", func(t *testing.T) {
		stdout, stderr, status := runCLI(t, nil, `1 2`, `if . == 1 then "bye\n" | halt_error(3) else . end`)
		if status != 3 {
			t.Errorf("status = %d, want 3", status)
		}
		if stderr != "bye\n" {
			t.Errorf("stderr = %q", stderr)
		}
		if stdout != "" {
			t.Errorf("stdout = %q, want no outputs after halt", stdout)
		}
	})
	t.Run("halt", func(t *testing.T) {
		stdout, _, status := runCLI(t, compact, `1 2`, `., halt`)
		if status != exitOK || stdout != "1\n" {
			t.Errorf("status %d, stdout %q", status, stdout)
		}
	})
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	a := write("a.json", `{"v":1}`)
	b := write("b.json", `{"v":2} {"v":3}`)

	stdout, _, status := runCLI(t, compact, "", "[.v, input_filename]", a, b)
	want := strings.Join([]string{
		`[1,"` + a + `"]`,
		`[2,"` + b + `"]`,
		`[3,"` + b + `"]`,
	}, "\n") + "\n"
	if status != exitOK {
		t.Errorf("status = %d", status)
	}
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}

	stdout, stderr, status := runCLI(t, compact, "", ".v", filepath.Join(dir, "missing.json"), a)
	if status != exitUsage || stdout != "1\n" || !strings.Contains(stderr, "missing.json") {
		t.Errorf("missing file: status %d, stdout %q, stderr %q", status, stdout, stderr)
	}

	filter := write("prog.jq", `include "lib"; .v | inc`)
	write("lib.jq", `def inc: . + 100;`)
	fromFile := func(cfg *Config) {
		cfg.Compact = true
		cfg.FromFile = filter
	}
	stdout, stderr, status = runCLI(t, fromFile, "", a)
	if status != exitOK || stdout != "101\n" {
		t.Errorf("-f: status %d, stdout %q, stderr %q", status, stdout, stderr)
	}

	withLib := func(cfg *Config) {
		cfg.Compact = true
		cfg.LibDirs = []string{dir}
	}
	stdout, _, _ = runCLI(t, withLib, `{"v":1}`, `import "lib" as l; .v | l::inc`)
	if stdout != "101\n" {
		t.Errorf("-L: stdout %q", stdout)
	}
}

func TestOptionValues(t *testing.T) {
	cfg := newConfig()
	if _, err := cfg.indentOpt(nil, "9"); err == nil {
		t.Error("indent 9 accepted")
	}
	if _, err := cfg.argOpt(nil, "novalue"); err == nil {
		t.Error("-arg without = accepted")
	}
	if _, err := cfg.argJSONOpt(nil, "x={"); err == nil {
		t.Error("-argjson with bad JSON accepted")
	}
	if _, err := cfg.argOpt(nil, "$x=1"); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.argOpt(nil, "x=2"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"x"}, cfg.NamedKeys); diff != "" {
		t.Errorf("NamedKeys mismatch (-want +got):\n%s", diff)
	}
	cfg.Timeout = "soon"
	if _, err := cfg.timeout(); err == nil {
		t.Error("bad timeout accepted")
	}
}
