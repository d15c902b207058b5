package evaluator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sandrolain/gojaq/pkg/parser"
	"github.com/sandrolain/gojaq/pkg/types"
	"github.com/sandrolain/gojaq/pkg/value"
)

// funcDef is an entry of the definition table. Calls refer to definitions
// by their index, which is stable for the life of a Program.
type funcDef struct {
	name  string
	arity int
	body  node
	// pathParams marks the filter parameters that the body always
	// evaluates as paths; calls must pass path arguments there.
	pathParams []bool
}

// paramRef is parameter pos of definition def.
type paramRef struct{ def, pos int }

// pathResult is the memoized path check of a definition body: the
// parameters it reaches in path position, or why it is not a path.
type pathResult struct {
	refs []paramRef
	err  error
}

// defGroup is a run of sibling definitions being compiled. A body may
// call a sibling that comes after it.
type defGroup struct {
	base int
	defs []*types.FuncDef
	idx  []int
	next int
}

type scopeKind uint8

const (
	scopeVar scopeKind = iota
	scopeParam
	scopeLabel
	scopeDef
	scopeConst
)

// scopeEntry mirrors the run-time environment during compilation. Vars,
// params and labels occupy a run-time cell; defs and consts do not.
type scopeEntry struct {
	kind  scopeKind
	name  string
	arity int
	def   int
	pos   int
	val   value.Value
}

func (s scopeEntry) runtime() bool {
	return s.kind == scopeVar || s.kind == scopeParam || s.kind == scopeLabel
}

// compiler turns parsed modules into nodes, resolving every name.
type compiler struct {
	defs    []*funcDef
	scope   []scopeEntry
	natives map[string]*native
	// custom natives shadow the definitions of the prelude, but not the
	// definitions of the program.
	custom  map[string]*native
	prelude int

	loader  ModuleLoader
	loading map[string]bool

	// pathOK memoizes the assignment target check per definition.
	pathOK map[int]pathResult

	groups []*defGroup
	// calls made inside definition groups, checked again once the group
	// is complete.
	calls []*callNode
	// pending holds path targets whose check reached a definition that
	// was not compiled yet.
	pending    []node
	incomplete bool
}

func nativeKey(name string, arity int) string {
	return fmt.Sprintf("%s/%d", name, arity)
}

// fork returns a compiler sharing the definitions compiled so far. The
// definition table is append-only, so the copy can grow independently.
func (c *compiler) fork() *compiler {
	return &compiler{
		defs:    c.defs[:len(c.defs):len(c.defs)],
		scope:   slices.Clone(c.scope),
		natives: c.natives,
		custom:  c.custom,
		prelude: len(c.scope),
		loader:  c.loader,
		loading: map[string]bool{},
		pathOK:  map[int]pathResult{},
	}
}

func compileError(code types.ErrorCode, pos int, format string, args ...any) *types.Error {
	return types.NewError(code, fmt.Sprintf(format, args...), pos)
}

// compileDefs compiles a run of sibling definitions, leaving them in
// scope. Table entries are reserved up front so that a body can call a
// sibling defined after it.
func (c *compiler) compileDefs(defs []*types.FuncDef) error {
	g := &defGroup{base: len(c.scope), defs: defs, idx: make([]int, len(defs))}
	for i, d := range defs {
		g.idx[i] = len(c.defs)
		c.defs = append(c.defs, &funcDef{name: d.Name, arity: len(d.Params)})
	}
	calls, pending := len(c.calls), len(c.pending)
	c.groups = append(c.groups, g)
	defer func() { c.groups = c.groups[:len(c.groups)-1] }()
	for i, d := range defs {
		g.next = i + 1
		if err := c.compileDef(d, g.idx[i]); err != nil {
			return err
		}
	}
	return c.settle(calls, pending)
}

// compileDef compiles d into table entry idx and pushes it on the scope.
// Value parameters ($name) are bound from the filter argument of the same
// name before the body runs.
func (c *compiler) compileDef(d *types.FuncDef, idx int) error {
	def := c.defs[idx]
	c.scope = append(c.scope, scopeEntry{kind: scopeDef, name: d.Name, arity: len(d.Params), def: idx})
	mark := len(c.scope)

	for i, p := range d.Params {
		c.scope = append(c.scope, scopeEntry{kind: scopeParam, name: strings.TrimPrefix(p, "$"), def: idx, pos: i})
	}
	var srcs []node
	for _, p := range d.Params {
		name, ok := strings.CutPrefix(p, "$")
		if !ok {
			continue
		}
		srcs = append(srcs, c.lookupParam(name))
		c.scope = append(c.scope, scopeEntry{kind: scopeVar, name: name})
	}
	body, err := c.compile(d.Body)
	c.scope = c.scope[:mark]
	if err != nil {
		return err
	}
	for i := len(srcs) - 1; i >= 0; i-- {
		body = &bindNode{src: srcs[i], pat: &pattern{bind: true}, body: body}
	}
	def.body = body
	return nil
}

func (c *compiler) lookupParam(name string) node {
	n := 0
	for i := len(c.scope) - 1; i >= 0; i-- {
		s := c.scope[i]
		if s.kind == scopeParam && s.name == name {
			return &closureNode{idx: n, param: paramRef{s.def, s.pos}}
		}
		if s.runtime() {
			n++
		}
	}
	panic("parameter not in scope: " + name)
}

func (c *compiler) push(kind scopeKind, name string) {
	c.scope = append(c.scope, scopeEntry{kind: kind, name: name})
}

func (c *compiler) pop(n int) {
	c.scope = c.scope[:len(c.scope)-n]
}

// compile translates an AST node.
func (c *compiler) compile(n *types.ASTNode) (node, error) {
	switch n.Type {
	case types.NodeLiteral:
		return &constNode{v: n.Value}, nil

	case types.NodeIdentity:
		return idNode{}, nil

	case types.NodeRecurse:
		return c.resolveCall("recurse", nil, n.Position)

	case types.NodePath:
		return c.compilePath(n)

	case types.NodeFormat:
		return c.resolveCall("@"+n.StrValue, nil, n.Position)

	case types.NodeInterp:
		return c.compileInterp(n)

	case types.NodeBinary:
		return c.compileBinary(n)

	case types.NodeAssign:
		return c.compileAssign(n)

	case types.NodeNeg:
		f, err := c.compile(n.LHS)
		if err != nil {
			return nil, err
		}
		if k, ok := f.(*constNode); ok && value.IsNumber(k.v) {
			v, err := value.Neg(k.v)
			if err == nil {
				return &constNode{v: v}, nil
			}
		}
		return &negNode{f: f}, nil

	case types.NodeArray:
		if n.LHS == nil {
			return &arrayNode{}, nil
		}
		f, err := c.compile(n.LHS)
		if err != nil {
			return nil, err
		}
		return &arrayNode{f: f}, nil

	case types.NodeObject:
		o := &objectNode{entries: make([]objEntry, 0, len(n.Entries))}
		for _, e := range n.Entries {
			k, err := c.compile(e.Key)
			if err != nil {
				return nil, err
			}
			v, err := c.compile(e.Value)
			if err != nil {
				return nil, err
			}
			o.entries = append(o.entries, objEntry{key: k, val: v})
		}
		return o, nil

	case types.NodeVariable:
		return c.resolveVar(n.StrValue, n.Position)

	case types.NodeLoc:
		return &constNode{v: value.NewObject(
			value.Entry{Key: "file", Value: value.String("<stdin>")},
			value.Entry{Key: "line", Value: value.Int(n.Line)},
		)}, nil

	case types.NodeBind:
		src, err := c.compile(n.LHS)
		if err != nil {
			return nil, err
		}
		pat, vars, err := c.compilePattern(n.Patterns[0])
		if err != nil {
			return nil, err
		}
		for _, v := range vars {
			c.push(scopeVar, v)
		}
		body, err := c.compile(n.RHS)
		c.pop(len(vars))
		if err != nil {
			return nil, err
		}
		return &bindNode{src: src, pat: pat, body: body}, nil

	case types.NodeDef:
		mark := len(c.scope)
		var defs []*types.FuncDef
		for n.Type == types.NodeDef {
			defs = append(defs, n.Func)
			n = n.RHS
		}
		if err := c.compileDefs(defs); err != nil {
			return nil, err
		}
		rest, err := c.compile(n)
		c.scope = c.scope[:mark]
		return rest, err

	case types.NodeCall:
		return c.resolveCall(n.StrValue, n.Arguments, n.Position)

	case types.NodeIf:
		cond, err := c.compile(n.LHS)
		if err != nil {
			return nil, err
		}
		then, err := c.compile(n.RHS)
		if err != nil {
			return nil, err
		}
		var els node = idNode{}
		if n.Else != nil {
			if els, err = c.compile(n.Else); err != nil {
				return nil, err
			}
		}
		return &ifNode{cond: cond, then: then, els: els}, nil

	case types.NodeTry:
		body, err := c.compile(n.LHS)
		if err != nil {
			return nil, err
		}
		t := &tryNode{body: body}
		if n.RHS != nil {
			if t.catch, err = c.compile(n.RHS); err != nil {
				return nil, err
			}
		}
		return t, nil

	case types.NodeReduce, types.NodeForeach:
		return c.compileFold(n)

	case types.NodeLabel:
		c.push(scopeLabel, n.StrValue)
		body, err := c.compile(n.LHS)
		c.pop(1)
		if err != nil {
			return nil, err
		}
		return &labelNode{body: body}, nil

	case types.NodeBreak:
		idx := 0
		for i := len(c.scope) - 1; i >= 0; i-- {
			s := c.scope[i]
			if s.kind == scopeLabel && s.name == n.StrValue {
				return &breakNode{idx: idx, name: n.StrValue}, nil
			}
			if s.runtime() {
				idx++
			}
		}
		return nil, compileError(types.ErrUndefinedLabel, n.Position, "$*label-%s is not defined", n.StrValue)
	}
	return nil, compileError(types.ErrSyntaxError, n.Position, "unexpected node %s", n)
}

func (c *compiler) compilePath(n *types.ASTNode) (node, error) {
	head, err := c.compile(n.LHS)
	if err != nil {
		return nil, err
	}
	parts := make([]part, 0, len(n.Steps))
	for _, s := range n.Steps {
		p := part{opt: s.Optional}
		switch s.Type {
		case types.NodeIterate:
			p.kind = partIterate
		case types.NodeIndex:
			p.kind = partIndex
			if p.from, err = c.compile(s.LHS); err != nil {
				return nil, err
			}
		case types.NodeSlice:
			p.kind = partSlice
			if s.Arguments[0] != nil {
				if p.from, err = c.compile(s.Arguments[0]); err != nil {
					return nil, err
				}
			}
			if s.Arguments[1] != nil {
				if p.to, err = c.compile(s.Arguments[1]); err != nil {
					return nil, err
				}
			}
		default:
			return nil, compileError(types.ErrSyntaxError, s.Position, "unexpected path step %s", s)
		}
		parts = append(parts, p)
	}
	return &pathNode{head: head, parts: parts}, nil
}

// compileInterp compiles a string with interpolations. Every interpolated
// expression is piped into the format (tostring when there is none).
func (c *compiler) compileInterp(n *types.ASTNode) (node, error) {
	format := "tostring"
	if n.StrValue != "" {
		format = "@" + n.StrValue
	}
	parts := make([]node, 0, len(n.Steps))
	for i, s := range n.Steps {
		f, err := c.compile(s)
		if err != nil {
			return nil, err
		}
		if i%2 == 1 {
			fmtNode, err := c.resolveCall(format, nil, s.Position)
			if err != nil {
				return nil, err
			}
			f = &pipeNode{l: f, r: fmtNode}
		} else if k, ok := f.(*constNode); ok && k.v == value.String("") {
			continue
		}
		parts = append(parts, f)
	}
	return &interpNode{parts: parts}, nil
}

var mathOps = map[string]value.Op{
	"+": value.OpAdd,
	"-": value.OpSub,
	"*": value.OpMul,
	"/": value.OpDiv,
	"%": value.OpMod,
}

var cmpOps = map[string]cmpOp{
	"==": cmpEq,
	"!=": cmpNe,
	"<":  cmpLt,
	"<=": cmpLe,
	">":  cmpGt,
	">=": cmpGe,
}

func (c *compiler) compileBinary(n *types.ASTNode) (node, error) {
	l, err := c.compile(n.LHS)
	if err != nil {
		return nil, err
	}
	r, err := c.compile(n.RHS)
	if err != nil {
		return nil, err
	}
	switch op := n.StrValue; op {
	case "|":
		if _, ok := l.(idNode); ok {
			return r, nil
		}
		return &pipeNode{l: l, r: r}, nil
	case ",":
		return &commaNode{l: l, r: r}, nil
	case "//":
		return &altNode{l: l, r: r}, nil
	case "and":
		return &andNode{l: l, r: r}, nil
	case "or":
		return &orNode{l: l, r: r}, nil
	default:
		if m, ok := mathOps[op]; ok {
			return &mathNode{op: m, l: l, r: r}, nil
		}
		if cmp, ok := cmpOps[op]; ok {
			return &cmpNode{op: cmp, l: l, r: r}, nil
		}
		return nil, compileError(types.ErrSyntaxError, n.Position, "unknown operator %s", op)
	}
}

// compileAssign compiles the assignment operators. `p |= f` is primitive;
// `p = f` is `f as $x | p |= $x`, `p op= f` is `f as $x | p |= . op $x` and
// `p //= f` is `f as $x | p |= (. // $x)`.
func (c *compiler) compileAssign(n *types.ASTNode) (node, error) {
	if n.StrValue == "|=" {
		path, err := c.compile(n.LHS)
		if err != nil {
			return nil, err
		}
		if err := c.pathRoot(path); err != nil {
			return nil, err
		}
		f, err := c.compile(n.RHS)
		if err != nil {
			return nil, err
		}
		return &updateNode{path: path, f: f}, nil
	}

	rhs, err := c.compile(n.RHS)
	if err != nil {
		return nil, err
	}
	c.push(scopeVar, "")
	path, err := c.compile(n.LHS)
	c.pop(1)
	if err != nil {
		return nil, err
	}
	if err := c.pathRoot(path); err != nil {
		return nil, err
	}

	x := &varNode{idx: 0}
	var f node
	switch op := strings.TrimSuffix(n.StrValue, "="); op {
	case "":
		f = x
	case "//":
		f = &altNode{l: idNode{}, r: x}
	default:
		m, ok := mathOps[op]
		if !ok {
			return nil, compileError(types.ErrSyntaxError, n.Position, "unknown operator %s", n.StrValue)
		}
		f = &mathNode{op: m, l: idNode{}, r: x}
	}
	return &bindNode{src: rhs, pat: &pattern{bind: true}, body: &updateNode{path: path, f: f}}, nil
}

func (c *compiler) compileFold(n *types.ASTNode) (node, error) {
	src, err := c.compile(n.LHS)
	if err != nil {
		return nil, err
	}
	pat, vars, err := c.compilePattern(n.Patterns[0])
	if err != nil {
		return nil, err
	}
	init, err := c.compile(n.Init)
	if err != nil {
		return nil, err
	}
	for _, v := range vars {
		c.push(scopeVar, v)
	}
	defer c.pop(len(vars))

	update, err := c.compile(n.Update)
	if err != nil {
		return nil, err
	}
	if n.Type == types.NodeReduce {
		return &reduceNode{src: src, pat: pat, init: init, update: update}, nil
	}
	var extract node
	if n.Else != nil {
		if extract, err = c.compile(n.Else); err != nil {
			return nil, err
		}
	}
	return &foreachNode{src: src, pat: pat, init: init, update: update, extract: extract}, nil
}

// compilePattern compiles p and returns the variables it binds in binding
// order. Key expressions are compiled in the enclosing scope.
func (c *compiler) compilePattern(p *types.Pattern) (*pattern, []string, error) {
	var walk func(p *types.Pattern) (*pattern, error)
	walk = func(p *types.Pattern) (*pattern, error) {
		switch {
		case p.Var != "":
			return &pattern{bind: true}, nil
		case p.Array != nil:
			out := &pattern{elems: make([]*pattern, 0, len(p.Array))}
			for _, e := range p.Array {
				sub, err := walk(e)
				if err != nil {
					return nil, err
				}
				out.elems = append(out.elems, sub)
			}
			return out, nil
		default:
			out := &pattern{entries: make([]patEntry, 0, len(p.Object))}
			for _, e := range p.Object {
				pe := patEntry{keyVar: e.KeyVar != ""}
				if e.Key != nil {
					k, err := c.compile(e.Key)
					if err != nil {
						return nil, err
					}
					pe.key = k
				} else {
					pe.key = &constNode{v: value.String(e.KeyVar)}
				}
				if e.Value != nil {
					sub, err := walk(e.Value)
					if err != nil {
						return nil, err
					}
					pe.val = sub
				}
				out.entries = append(out.entries, pe)
			}
			return out, nil
		}
	}
	pat, err := walk(p)
	if err != nil {
		return nil, nil, err
	}
	return pat, p.Vars(), nil
}

func (c *compiler) resolveVar(name string, pos int) (node, error) {
	idx := 0
	for i := len(c.scope) - 1; i >= 0; i-- {
		s := c.scope[i]
		switch {
		case s.kind == scopeVar && s.name == name:
			return &varNode{idx: idx}, nil
		case s.kind == scopeConst && s.name == name:
			return &constNode{v: s.val}, nil
		}
		if s.runtime() {
			idx++
		}
	}
	if fn, ok := c.natives[nativeKey("$"+name, 0)]; ok {
		return &nativeNode{fn: fn}, nil
	}
	return nil, compileError(types.ErrUndefinedVariable, pos, "$%s is not defined", name)
}

// resolveCall resolves a call of name with the given arguments. Local
// definitions and filter parameters come first, then custom functions,
// then the definitions of the standard library and finally the natives.
func (c *compiler) resolveCall(name string, args []*types.ASTNode, pos int) (node, error) {
	arity := len(args)
	key := nativeKey(name, arity)
	var hint []int

	idx := 0
	for i := len(c.scope) - 1; i >= 0; i-- {
		if i == c.prelude-1 {
			if fn, ok := c.custom[key]; ok {
				return c.nativeCall(fn, args)
			}
		}
		s := c.scope[i]
		switch s.kind {
		case scopeDef:
			if s.name == name {
				if s.arity == arity {
					return c.defCall(s.def, name, idx, args)
				}
				hint = append(hint, s.arity)
			}
		case scopeParam:
			if s.name == name && arity == 0 {
				return &closureNode{idx: idx, param: paramRef{s.def, s.pos}}, nil
			}
		}
		if s.runtime() {
			idx++
		}
	}
	if fn, ok := c.custom[key]; ok && c.prelude == 0 {
		return c.nativeCall(fn, args)
	}
	if fn, ok := c.natives[key]; ok {
		return c.nativeCall(fn, args)
	}
	if def, skip, ok := c.forward(name, arity); ok {
		return c.defCall(def, name, skip, args)
	}
	for _, fn := range c.natives {
		if fn.name == name {
			hint = append(hint, fn.arity)
		}
	}
	for _, fn := range c.custom {
		if fn.name == name {
			hint = append(hint, fn.arity)
		}
	}
	if len(hint) > 0 {
		slices.Sort(hint)
		return nil, compileError(types.ErrArityMismatch, pos, "%s/%d is not defined (arity %v exists)", name, arity, slices.Compact(hint))
	}
	if strings.HasPrefix(name, "@") {
		return nil, compileError(types.ErrUndefinedFunction, pos, "%s is not a valid format", name)
	}
	return nil, compileError(types.ErrUndefinedFunction, pos, "%s/%d is not defined", name, arity)
}

func (c *compiler) compileArgs(args []*types.ASTNode) ([]node, error) {
	out := make([]node, len(args))
	for i, a := range args {
		f, err := c.compile(a)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// forward resolves a call to a sibling definition that comes later in an
// enclosing group. Such a definition is only used when no other name
// matches.
func (c *compiler) forward(name string, arity int) (def, skip int, ok bool) {
	for i := len(c.groups) - 1; i >= 0; i-- {
		g := c.groups[i]
		for j := g.next; j < len(g.defs); j++ {
			if d := g.defs[j]; d.Name != name || len(d.Params) != arity {
				continue
			}
			for _, s := range c.scope[g.base:] {
				if s.runtime() {
					skip++
				}
			}
			return g.idx[j], skip, true
		}
	}
	return 0, 0, false
}

func (c *compiler) defCall(def int, name string, skip int, args []*types.ASTNode) (node, error) {
	compiled, err := c.compileArgs(args)
	if err != nil {
		return nil, err
	}
	call := &callNode{fn: def, name: name, skip: skip, args: compiled}
	if _, err := c.checkArgs(call); err != nil {
		return nil, err
	}
	if len(c.groups) > 0 {
		c.calls = append(c.calls, call)
	}
	return call, nil
}

func (c *compiler) nativeCall(fn *native, args []*types.ASTNode) (node, error) {
	compiled, err := c.compileArgs(args)
	if err != nil {
		return nil, err
	}
	for _, i := range fn.pathArgs {
		if err := c.pathRoot(compiled[i]); err != nil {
			return nil, err
		}
	}
	return &nativeNode{fn: fn, args: compiled}, nil
}

// settle finishes the path checks of a definition group once all of its
// bodies are compiled. Targets that reached a later sibling are checked
// again, then calls are checked until no parameter becomes a path
// parameter.
func (c *compiler) settle(calls, pending int) error {
	retry := slices.Clone(c.pending[pending:])
	c.pending = c.pending[:pending]
	for _, f := range retry {
		if err := c.pathRoot(f); err != nil {
			return err
		}
	}
	for changed := true; changed; {
		changed = false
		for _, f := range c.calls[calls:] {
			ch, err := c.checkArgs(f)
			if err != nil {
				return err
			}
			changed = changed || ch
		}
	}
	return nil
}

// pathRoot checks f where it is always evaluated as a path, such as the
// target of an assignment. Filter parameters reaching f become path
// parameters of their definition.
func (c *compiler) pathRoot(f node) error {
	saved := c.incomplete
	c.incomplete = false
	refs, err := c.checkPath(f)
	if err != nil {
		return err
	}
	if c.incomplete {
		c.pending = append(c.pending, f)
	}
	c.incomplete = saved
	c.markPaths(refs)
	return nil
}

func (c *compiler) markPaths(refs []paramRef) bool {
	changed := false
	for _, r := range refs {
		d := c.defs[r.def]
		if d.pathParams == nil {
			d.pathParams = make([]bool, d.arity)
		}
		if !d.pathParams[r.pos] {
			d.pathParams[r.pos] = true
			changed = true
		}
	}
	return changed
}

// checkArgs checks the arguments passed where the callee evaluates its
// parameters as paths.
func (c *compiler) checkArgs(f *callNode) (bool, error) {
	changed := false
	for i, isPath := range c.defs[f.fn].pathParams {
		if !isPath {
			continue
		}
		refs, err := c.checkPath(f.args[i])
		if err != nil {
			return false, err
		}
		if c.markPaths(refs) {
			changed = true
		}
	}
	return changed, nil
}

// checkPath reports whether f can be used where a path is expected. It
// returns the filter parameters that f evaluates in path position.
func (c *compiler) checkPath(f node) ([]paramRef, error) {
	switch f := f.(type) {
	case idNode, *breakNode:
		return nil, nil
	case *closureNode:
		return []paramRef{f.param}, nil
	case *pathNode:
		return c.checkPath(f.head)
	case *pipeNode:
		return c.checkPaths(f.l, f.r)
	case *commaNode:
		return c.checkPaths(f.l, f.r)
	case *altNode:
		return c.checkPaths(f.l, f.r)
	case *ifNode:
		return c.checkPaths(f.then, f.els)
	case *tryNode:
		if f.catch != nil {
			return nil, notAPath(f)
		}
		return c.checkPath(f.body)
	case *bindNode:
		return c.checkPath(f.body)
	case *labelNode:
		return c.checkPath(f.body)
	case *callNode:
		return c.checkCall(f)
	case *nativeNode:
		if f.fn.paths == nil && f.fn.update == nil {
			return nil, notAPath(f)
		}
		var refs []paramRef
		for _, i := range f.fn.pathArgs {
			r, err := c.checkPath(f.args[i])
			if err != nil {
				return nil, err
			}
			refs = addRefs(refs, r)
		}
		return refs, nil
	}
	return nil, notAPath(f)
}

func (c *compiler) checkPaths(fs ...node) ([]paramRef, error) {
	var refs []paramRef
	for _, f := range fs {
		r, err := c.checkPath(f)
		if err != nil {
			return nil, err
		}
		refs = addRefs(refs, r)
	}
	return refs, nil
}

// checkCall checks a call in path position: the body of the callee must
// be a path, and so must each argument that the body uses as one.
func (c *compiler) checkCall(f *callNode) ([]paramRef, error) {
	own, err := c.checkDef(f.fn)
	if err != nil {
		return nil, err
	}
	var refs []paramRef
	for _, r := range own {
		if r.def != f.fn {
			refs = addRefs(refs, []paramRef{r})
			continue
		}
		sub, err := c.checkPath(f.args[r.pos])
		if err != nil {
			return nil, err
		}
		refs = addRefs(refs, sub)
	}
	return refs, nil
}

// checkDef checks the body of definition i in path position. Recursive
// definitions are iterated until the set of parameters stops growing.
// Results that depend on a body not compiled yet are not memoized.
func (c *compiler) checkDef(i int) ([]paramRef, error) {
	if r, ok := c.pathOK[i]; ok {
		return r.refs, r.err
	}
	body := c.defs[i].body
	if body == nil {
		c.incomplete = true
		return nil, nil
	}
	saved := c.incomplete
	c.incomplete = false
	c.pathOK[i] = pathResult{}
	var refs []paramRef
	var err error
	for {
		refs, err = c.checkPath(body)
		prev := c.pathOK[i].refs
		c.pathOK[i] = pathResult{refs: refs, err: err}
		if err != nil || len(refs) == len(prev) {
			break
		}
	}
	if c.incomplete {
		delete(c.pathOK, i)
	}
	c.incomplete = c.incomplete || saved
	return refs, err
}

func addRefs(refs, more []paramRef) []paramRef {
	for _, r := range more {
		if !slices.Contains(refs, r) {
			refs = append(refs, r)
		}
	}
	return refs
}

func notAPath(f node) error {
	return types.NewError(types.ErrNotAPath, fmt.Sprintf("invalid path expression: %s", f.describe()), -1)
}

// compileModule compiles a library module: its own imports, then its
// definitions. Only the definitions of the module remain in scope, renamed
// with prefix when it is not empty.
func (c *compiler) compileModule(mod *types.Module, prefix string) error {
	mark := len(c.scope)
	if err := c.compileImports(mod.Imports); err != nil {
		return err
	}
	own := len(c.defs)
	if err := c.compileDefs(mod.Defs); err != nil {
		return err
	}
	kept := c.scope[:mark]
	for _, s := range c.scope[mark:] {
		if s.kind != scopeDef || s.def < own {
			continue
		}
		if prefix != "" {
			s.name = prefix + "::" + s.name
		}
		kept = append(kept, s)
	}
	c.scope = kept
	return nil
}

func (c *compiler) compileImports(imps []types.Import) error {
	for _, imp := range imps {
		if c.loader == nil {
			return compileError(types.ErrModuleNotFound, imp.Position, "module %q: no module loader configured", imp.Path)
		}
		if imp.Data {
			v, err := c.loader.LoadJSON(imp.Path)
			if err != nil {
				return compileError(types.ErrModuleNotFound, imp.Position, "data %q: %v", imp.Path, err).WithCause(err)
			}
			c.scope = append(c.scope,
				scopeEntry{kind: scopeConst, name: imp.Alias, val: v},
				scopeEntry{kind: scopeConst, name: imp.Alias + "::" + imp.Alias, val: v},
			)
			continue
		}
		if c.loading[imp.Path] {
			return compileError(types.ErrModuleInvalid, imp.Position, "module %q imports itself", imp.Path)
		}
		src, err := c.loader.LoadModule(imp.Path)
		if err != nil {
			return compileError(types.ErrModuleNotFound, imp.Position, "module %q: %v", imp.Path, err).WithCause(err)
		}
		mod, err := parser.ParseModule(src)
		if err != nil {
			return compileError(types.ErrModuleInvalid, imp.Position, "module %q: %v", imp.Path, err).WithCause(err)
		}
		c.loading[imp.Path] = true
		prefix := imp.Alias
		if imp.Include {
			prefix = ""
		}
		err = c.compileModule(mod, prefix)
		delete(c.loading, imp.Path)
		if err != nil {
			return err
		}
	}
	return nil
}
