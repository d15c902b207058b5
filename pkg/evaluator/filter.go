package evaluator

import (
	"github.com/sandrolain/gojaq/pkg/value"
)

// node is a compiled filter. Nodes are immutable after compilation and are
// shared by all runs of a Program.
type node interface {
	describe() string
}

type (
	idNode    struct{}
	constNode struct{ v value.Value }

	// pathNode is a head filter followed by index, slice and iterate parts.
	pathNode struct {
		head  node
		parts []part
	}

	arrayNode  struct{ f node } // f == nil for []
	objectNode struct{ entries []objEntry }

	pipeNode  struct{ l, r node }
	commaNode struct{ l, r node }
	negNode   struct{ f node }
	mathNode  struct {
		op   value.Op
		l, r node
	}
	cmpNode struct {
		op   cmpOp
		l, r node
	}
	andNode struct{ l, r node }
	orNode  struct{ l, r node }
	altNode struct{ l, r node }

	ifNode struct{ cond, then, els node }
	// tryNode with a nil catch drops errors.
	tryNode struct{ body, catch node }

	// bindNode binds every output of src to pat and runs body with the
	// input of the bind.
	bindNode struct {
		src  node
		pat  *pattern
		body node
	}
	reduceNode struct {
		src          node
		pat          *pattern
		init, update node
	}
	foreachNode struct {
		src                   node
		pat                   *pattern
		init, update, extract node
	}

	labelNode struct{ body node }
	breakNode struct {
		idx  int
		name string
	}

	varNode     struct{ idx int }
	closureNode struct {
		idx   int
		param paramRef
	}
	callNode struct {
		fn   int
		name string
		skip int
		args []node
	}
	nativeNode struct {
		fn   *native
		args []node
	}

	// updateNode is `path |= f`; the other assignment operators compile to
	// it.
	updateNode struct{ path, f node }

	// interpNode concatenates string literals and the outputs of
	// formatted expressions.
	interpNode struct{ parts []node }
)

type partKind uint8

const (
	partIndex partKind = iota
	partSlice
	partIterate
)

// part is one suffix of a path. from is the index for partIndex; from and
// to are the slice bounds (nil for an open end).
type part struct {
	kind     partKind
	from, to node
	opt      bool
}

type objEntry struct {
	key, val node
}

type cmpOp uint8

const (
	cmpEq cmpOp = iota
	cmpNe
	cmpLt
	cmpLe
	cmpGt
	cmpGe
)

func (op cmpOp) apply(l, r value.Value) bool {
	switch op {
	case cmpEq:
		return value.Equal(l, r)
	case cmpNe:
		return !value.Equal(l, r)
	case cmpLt:
		return value.Compare(l, r) < 0
	case cmpLe:
		return value.Compare(l, r) <= 0
	case cmpGt:
		return value.Compare(l, r) > 0
	default:
		return value.Compare(l, r) >= 0
	}
}

// pattern is a compiled destructuring pattern. Exactly one of the fields
// describes it: bind is set for $name, elems for arrays, entries for
// objects.
type pattern struct {
	bind    bool
	elems   []*pattern
	entries []patEntry
}

type patEntry struct {
	key    node
	keyVar bool
	val    *pattern
}

func (idNode) describe() string      { return "." }
func (constNode) describe() string   { return "literal" }
func (pathNode) describe() string    { return "path" }
func (arrayNode) describe() string   { return "array construction" }
func (objectNode) describe() string  { return "object construction" }
func (pipeNode) describe() string    { return "|" }
func (commaNode) describe() string   { return "," }
func (negNode) describe() string     { return "negation" }
func (n mathNode) describe() string  { return n.op.String() }
func (cmpNode) describe() string     { return "comparison" }
func (andNode) describe() string     { return "and" }
func (orNode) describe() string      { return "or" }
func (altNode) describe() string     { return "//" }
func (ifNode) describe() string      { return "if" }
func (tryNode) describe() string     { return "try" }
func (bindNode) describe() string    { return "as" }
func (reduceNode) describe() string  { return "reduce" }
func (foreachNode) describe() string { return "foreach" }
func (labelNode) describe() string   { return "label" }
func (breakNode) describe() string   { return "break" }
func (varNode) describe() string     { return "variable" }
func (closureNode) describe() string { return "filter argument" }
func (n callNode) describe() string  { return n.name }
func (n nativeNode) describe() string {
	return n.fn.name
}
func (updateNode) describe() string { return "assignment" }
func (interpNode) describe() string { return "string interpolation" }
