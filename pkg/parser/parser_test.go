package parser_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sandrolain/gojaq/pkg/parser"
	"github.com/sandrolain/gojaq/pkg/types"
	"github.com/sandrolain/gojaq/pkg/value"
)

// sexpr renders an AST compactly so that expectations stay readable.
func sexpr(n *types.ASTNode) string {
	if n == nil {
		return "_"
	}
	switch n.Type {
	case types.NodeLiteral:
		return value.ToJSON(n.Value)
	case types.NodeIdentity:
		return "."
	case types.NodeRecurse:
		return ".."
	case types.NodeFormat:
		return "@" + n.StrValue
	case types.NodeVariable:
		return "$" + n.StrValue
	case types.NodeLoc:
		return "$__loc__"
	case types.NodePath:
		parts := []string{"path", sexpr(n.LHS)}
		for _, s := range n.Steps {
			parts = append(parts, step(s))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case types.NodeBinary, types.NodeAssign:
		return fmt.Sprintf("(%s %s %s)", n.StrValue, sexpr(n.LHS), sexpr(n.RHS))
	case types.NodeNeg:
		return fmt.Sprintf("(neg %s)", sexpr(n.LHS))
	case types.NodeArray:
		return fmt.Sprintf("(array %s)", sexpr(n.LHS))
	case types.NodeObject:
		entries := make([]string, len(n.Entries))
		for i, e := range n.Entries {
			entries[i] = sexpr(e.Key) + ": " + sexpr(e.Value)
		}
		return "{" + strings.Join(entries, ", ") + "}"
	case types.NodeCall:
		if len(n.Arguments) == 0 {
			return n.StrValue
		}
		return n.StrValue + "(" + join(n.Arguments, "; ") + ")"
	case types.NodeInterp:
		return fmt.Sprintf("(interp%s %s)", fmtPrefix(n.StrValue), join(n.Steps, " "))
	case types.NodeBind:
		return fmt.Sprintf("(as %s %s %s)", sexpr(n.LHS), pattern(n.Patterns[0]), sexpr(n.RHS))
	case types.NodeDef:
		return fmt.Sprintf("(def %s %s %s)", signature(n.Func), sexpr(n.Func.Body), sexpr(n.RHS))
	case types.NodeIf:
		return fmt.Sprintf("(if %s %s %s)", sexpr(n.LHS), sexpr(n.RHS), sexpr(n.Else))
	case types.NodeTry:
		return fmt.Sprintf("(try %s %s)", sexpr(n.LHS), sexpr(n.RHS))
	case types.NodeReduce:
		return fmt.Sprintf("(reduce %s %s %s %s)", sexpr(n.LHS), pattern(n.Patterns[0]), sexpr(n.Init), sexpr(n.Update))
	case types.NodeForeach:
		return fmt.Sprintf("(foreach %s %s %s %s %s)", sexpr(n.LHS), pattern(n.Patterns[0]), sexpr(n.Init), sexpr(n.Update), sexpr(n.Else))
	case types.NodeLabel:
		return fmt.Sprintf("(label $%s %s)", n.StrValue, sexpr(n.LHS))
	case types.NodeBreak:
		return "(break $" + n.StrValue + ")"
	}
	return "<" + string(n.Type) + ">"
}

func step(s *types.ASTNode) string {
	var out string
	switch s.Type {
	case types.NodeIterate:
		out = "[]"
	case types.NodeSlice:
		out = "[" + sexpr(s.Arguments[0]) + ":" + sexpr(s.Arguments[1]) + "]"
	default:
		out = "[" + sexpr(s.LHS) + "]"
	}
	if s.Optional {
		out += "?"
	}
	return out
}

func join(ns []*types.ASTNode, sep string) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = sexpr(n)
	}
	return strings.Join(parts, sep)
}

func fmtPrefix(f string) string {
	if f == "" {
		return ""
	}
	return "@" + f
}

func signature(f *types.FuncDef) string {
	if len(f.Params) == 0 {
		return f.Name
	}
	return f.Name + "(" + strings.Join(f.Params, "; ") + ")"
}

func pattern(p *types.Pattern) string {
	switch {
	case p.Array != nil:
		parts := make([]string, len(p.Array))
		for i, e := range p.Array {
			parts[i] = pattern(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case p.Object != nil:
		parts := make([]string, len(p.Object))
		for i, e := range p.Object {
			switch {
			case e.KeyVar != "" && e.Value == nil:
				parts[i] = "$" + e.KeyVar
			case e.KeyVar != "":
				parts[i] = "$" + e.KeyVar + ": " + pattern(e.Value)
			default:
				parts[i] = sexpr(e.Key) + ": " + pattern(e.Value)
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "$" + p.Var
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		// paths
		{``, `.`},
		{`.`, `.`},
		{`..`, `..`},
		{`.a`, `(path . ["a"])`},
		{`.a.b`, `(path . ["a"] ["b"])`},
		{`."a-b"`, `(path . ["a-b"])`},
		{`.a[0]`, `(path . ["a"] [0])`},
		{`.[]?`, `(path . []?)`},
		{`.a?`, `(path . ["a"]?)`},
		{`.[1:3]`, `(path . [1:3])`},
		{`.[:2]`, `(path . [_:2])`},
		{`.[2:]`, `(path . [2:_])`},
		{`.[.a]`, `(path . [(path . ["a"])])`},
		{`$x[0]`, `(path $x [0])`},
		{`f?`, `(try f _)`},

		// operators
		{`1 + 2 * 3`, `(+ 1 (* 2 3))`},
		{`1 - 2 - 3`, `(- (- 1 2) 3)`},
		{`a | b | c`, `(| a (| b c))`},
		{`1, 2 | 3`, `(| (, 1 2) 3)`},
		{`.a // .b // 1`, `(// (path . ["a"]) (// (path . ["b"]) 1))`},
		{`.a |= . + 1`, `(|= (path . ["a"]) (+ . 1))`},
		{`.a //= 1`, `(//= (path . ["a"]) 1)`},
		{`.a and .b or .c`, `(or (and (path . ["a"]) (path . ["b"])) (path . ["c"]))`},
		{`1 < 2 == true`, `(== (< 1 2) true)`},
		{`-1 + 2`, `(+ (neg 1) 2)`},
		{`-.a`, `(neg (path . ["a"]))`},

		// constructors
		{`[]`, `(array _)`},
		{`[1, 2]`, `(array (, 1 2))`},
		{`{a, "b": 1, $c, (.d): 2}`, `{"a": (path . ["a"]), "b": 1, "c": $c, (path . ["d"]): 2}`},
		{`{a: 1 | 2}`, `{"a": (| 1 2)}`},
		{`{if: 1}`, `{"if": 1}`},
		{`{"\(.k)": 1}`, `{(interp "" (path . ["k"]) ""): 1}`},

		// literals and calls
		{`true, null`, `(, true null)`},
		{`"plain"`, `"plain"`},
		{`1.5`, `1.5`},
		{`f(1; 2)`, `f(1; 2)`},
		{`mod::f`, `mod::f`},

		// strings
		{`"a\(1)b"`, `(interp "a" 1 "b")`},
		{`@base64 "x\(.)"`, `(interp@base64 "x" . "")`},
		{`@json`, `@json`},
		{`@text "plain"`, `"plain"`},

		// control flow
		{`if . then 1 elif 2 then 3 else 4 end`, `(if . 1 (if 2 3 4))`},
		{`if . then 1 end`, `(if . 1 _)`},
		{`try error catch .`, `(try error .)`},
		{`try .a`, `(try (path . ["a"]) _)`},
		{`reduce .[] as $x (0; . + $x)`, `(reduce (path . []) $x 0 (+ . $x))`},
		{`foreach .[] as [$a, $b] (0; 1; 2)`, `(foreach (path . []) [$a, $b] 0 1 2)`},
		{`foreach .[] as $x (0; 1)`, `(foreach (path . []) $x 0 1 _)`},
		{`label $out | break $out`, `(label $out (break $out))`},

		// bindings and definitions
		{`1 as $x | 2`, `(as 1 $x 2)`},
		{`. as {a: $x, $y} | $x`, `(as . {"a": $x, $y} $x)`},
		{`. as {$a: [$b]} | $b`, `(as . {$a: [$b]} $b)`},
		{`def f(g; $x): g + $x; f(1; 2)`, `(def f(g; $x) (+ g $x) f(1; 2))`},
		{`def f: 1;`, `(def f 1 .)`},
		{`def f: def g: 2; g; f`, `(def f (def g 2 g) f)`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, err := parser.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, sexpr(expr.AST())); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseLoc(t *testing.T) {
	expr, err := parser.Parse("1 |\n\n$__loc__")
	if err != nil {
		t.Fatal(err)
	}
	loc := expr.AST().RHS
	if loc.Type != types.NodeLoc || loc.Line != 3 {
		t.Errorf("got %s at line %d, want loc at line 3", loc.Type, loc.Line)
	}
}

func TestParseDirectives(t *testing.T) {
	expr, err := parser.Parse(`import "lib/a" as a; import "data" as $d; include "b" {search: "."}; a::f`)
	if err != nil {
		t.Fatal(err)
	}
	want := []types.Import{
		{Path: "lib/a", Alias: "a", Position: 0},
		{Path: "data", Alias: "d", Data: true, Position: 21},
		{Path: "b", Include: true, Position: 42},
	}
	if diff := cmp.Diff(want, expr.Module().Imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
	if got := sexpr(expr.AST()); got != "a::f" {
		t.Errorf("body = %s, want a::f", got)
	}
}

func TestParseModule(t *testing.T) {
	mod, err := parser.ParseModule(`include "c"; def a: 1; def b(f): f;`)
	if err != nil {
		t.Fatal(err)
	}
	if len(mod.Imports) != 1 || !mod.Imports[0].Include {
		t.Errorf("imports = %+v", mod.Imports)
	}
	var names []string
	for _, d := range mod.Defs {
		names = append(names, signature(d))
	}
	if diff := cmp.Diff([]string{"a", "b(f)"}, names); diff != "" {
		t.Errorf("defs mismatch (-want +got):\n%s", diff)
	}

	if _, err := parser.ParseModule(`def a: 1; 2`); err == nil {
		t.Error("expected an error for a module with a body")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		code  types.ErrorCode
	}{
		{`1 +`, types.ErrUnexpectedEnd},
		{`(1`, types.ErrExpectedToken},
		{`[1`, types.ErrExpectedToken},
		{`if 1 then 2`, types.ErrExpectedToken},
		{`def f: 1`, types.ErrExpectedToken},
		{`. as 1 | .`, types.ErrInvalidPattern},
		{`reduce . as [1] (0; 1)`, types.ErrInvalidPattern},
		{`. as [$a] ?// $b | 1`, types.ErrSyntaxError},
		{`1 2`, types.ErrSyntaxError},
		{`.[:]`, types.ErrSyntaxError},
		{`label out | 1`, types.ErrSyntaxError},
		{`def 1: 2; 3`, types.ErrSyntaxError},
		{`{(1)}`, types.ErrExpectedToken},
		{`"abc`, types.ErrStringNotClosed},
		{`1 + !`, types.ErrInvalidCharacter},
		{`import "x";`, types.ErrExpectedToken},
		{`import x as y; .`, types.ErrInvalidDirective},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parser.Parse(tt.input)
			var terr *types.Error
			if !errors.As(err, &terr) {
				t.Fatalf("Parse(%q) error = %v, want *types.Error", tt.input, err)
			}
			if terr.Code != tt.code {
				t.Errorf("Parse(%q) code = %s, want %s (%v)", tt.input, terr.Code, tt.code, err)
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	tests := []struct {
		input string
		pos   int
	}{
		{`1 +`, 3},
		{`(1`, 2},
		{`1 2`, 2},
	}
	for _, tt := range tests {
		_, err := parser.Parse(tt.input)
		var terr *types.Error
		if !errors.As(err, &terr) {
			t.Fatalf("Parse(%q) error = %v", tt.input, err)
		}
		if terr.Position != tt.pos {
			t.Errorf("Parse(%q) position = %d, want %d", tt.input, terr.Position, tt.pos)
		}
	}
}

func TestMaxDepth(t *testing.T) {
	deep := strings.Repeat("(", 600) + "1" + strings.Repeat(")", 600)
	_, err := parser.Compile(deep)
	var terr *types.Error
	if !errors.As(err, &terr) || terr.Code != types.ErrNestingTooDeep {
		t.Errorf("default depth: got %v, want %s", err, types.ErrNestingTooDeep)
	}

	shallow := strings.Repeat("[", 20) + strings.Repeat("]", 20)
	if _, err := parser.Compile(shallow, parser.WithMaxDepth(10)); err == nil {
		t.Error("expected nesting error with WithMaxDepth(10)")
	}
	if _, err := parser.Compile(shallow); err != nil {
		t.Errorf("default depth rejected %q: %v", shallow, err)
	}
}
