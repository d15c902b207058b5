package types

import "github.com/sandrolain/gojaq/pkg/value"

// NodeType identifies the type of an AST node.
type NodeType string

// AST node types.
const (
	// Literals
	NodeLiteral NodeType = "literal" // null, true, false, numbers, plain strings
	NodeInterp  NodeType = "interp"  // "a\(.b)c", @fmt "a\(.b)"
	NodeFormat  NodeType = "format"  // @base64 applied to .

	// Navigation
	NodeIdentity NodeType = "identity" // .
	NodeRecurse  NodeType = "recurse"  // ..
	NodePath     NodeType = "path"     // term followed by suffixes
	NodeIndex    NodeType = "index"    // .a, .[e]
	NodeSlice    NodeType = "slice"    // .[e:e]
	NodeIterate  NodeType = "iterate"  // .[]

	// Operators
	NodeBinary NodeType = "binary" // + - * / % == != < <= > >= and or // , |
	NodeAssign NodeType = "assign" // = |= += -= *= /= %= //=
	NodeNeg    NodeType = "neg"    // -e

	// Constructors
	NodeArray  NodeType = "array"  // [e]
	NodeObject NodeType = "object" // {k: v}

	// Bindings and functions
	NodeVariable NodeType = "variable" // $x
	NodeLoc      NodeType = "loc"      // $__loc__
	NodeBind     NodeType = "bind"     // e as $p | body
	NodeDef      NodeType = "def"      // def f: body; rest
	NodeCall     NodeType = "call"     // f, f(a; b)

	// Control flow
	NodeIf      NodeType = "if"      // if c then t else e end
	NodeTry     NodeType = "try"     // try b catch c, b?
	NodeReduce  NodeType = "reduce"  // reduce s as $x (init; update)
	NodeForeach NodeType = "foreach" // foreach s as $x (init; update; extract)
	NodeLabel   NodeType = "label"   // label $l | body
	NodeBreak   NodeType = "break"   // break $l
)

// ASTNode represents a node in the Abstract Syntax Tree.
type ASTNode struct {
	Type     NodeType
	Value    value.Value // literal value (NodeLiteral)
	StrValue string      // operator, name or format (NodeBinary, NodeAssign, NodeCall, NodeVariable, NodeFormat, ...)
	Position int
	Line     int // NodeLoc only

	// Relations
	LHS       *ASTNode   // left operand, path head, bind source, if condition, try body
	RHS       *ASTNode   // right operand, bind body, if-then branch, catch branch
	Else      *ASTNode   // if-else branch, foreach extract
	Steps     []*ASTNode // path suffixes, interpolation parts
	Arguments []*ASTNode // call arguments, slice bounds (nil for an open end)
	Entries   []ObjectEntry
	Patterns  []*Pattern // bind / reduce / foreach pattern
	Init      *ASTNode   // reduce / foreach seed
	Update    *ASTNode   // reduce / foreach update

	Func *FuncDef // NodeDef

	// Optional marks a path suffix written with `?`.
	Optional bool
}

// ObjectEntry is one key/value pair of an object constructor. Value is
// never nil: shorthand forms are expanded by the parser.
type ObjectEntry struct {
	Key   *ASTNode
	Value *ASTNode
}

// Pattern is the destructuring target of `as`, `reduce` and `foreach`.
// Exactly one of Var, Array and Object is set.
type Pattern struct {
	Var    string
	Array  []*Pattern
	Object []PatternEntry
}

// PatternEntry is one entry of an object pattern.
//
//	{a: $x}       Key="a" literal, Value=$x
//	{$a}          KeyVar="a"
//	{$a: [$b]}    KeyVar="a", Value=[$b]
//	{(e): $x}     Key=e, Value=$x
type PatternEntry struct {
	KeyVar string
	Key    *ASTNode
	Value  *Pattern
}

// Vars returns the variables bound by the pattern in binding order.
func (p *Pattern) Vars() []string {
	var out []string
	var walk func(p *Pattern)
	walk = func(p *Pattern) {
		switch {
		case p.Var != "":
			out = append(out, p.Var)
		case p.Array != nil:
			for _, e := range p.Array {
				walk(e)
			}
		default:
			for _, e := range p.Object {
				if e.KeyVar != "" {
					out = append(out, e.KeyVar)
				}
				if e.Value != nil {
					walk(e.Value)
				}
			}
		}
	}
	walk(p)
	return out
}

// FuncDef is a filter definition. Parameters prefixed with `$` take values,
// the others take filters.
type FuncDef struct {
	Name     string
	Params   []string
	Body     *ASTNode
	Position int
}

// Import is an `include` or `import` directive.
type Import struct {
	Path     string
	Alias    string // `import "p" as alias;` or `import "p" as $alias;`
	Data     bool   // alias binds a data variable
	Include  bool   // `include "p";`
	Position int
}

// Module is a parsed source file: directives, definitions and, for the main
// program, a body.
type Module struct {
	Imports []Import
	Defs    []*FuncDef
	Body    *ASTNode
}

// NewASTNode creates a new AST node of the specified type.
func NewASTNode(nodeType NodeType, position int) *ASTNode {
	return &ASTNode{
		Type:     nodeType,
		Position: position,
	}
}

// String returns a string representation of the node type.
func (n *ASTNode) String() string {
	if n.StrValue != "" {
		return string(n.Type) + "(" + n.StrValue + ")"
	}
	return string(n.Type)
}
