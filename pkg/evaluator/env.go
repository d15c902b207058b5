package evaluator

import "github.com/sandrolain/gojaq/pkg/value"

// closure is a filter argument together with the environment of its caller.
type closure struct {
	f   node
	env env
}

// cell is one entry of the environment: a variable, a filter argument or a
// label id.
type cell struct {
	val   value.Value
	clo   *closure
	label uint64
	next  *cell
}

// env is a persistent list of cells. Entries are addressed by their distance
// from the top; pushing never mutates existing cells, so environments can be
// shared freely between lazy iterators.
type env struct {
	top   *cell
	calls int
}

func (e env) bind(v value.Value) env {
	return env{top: &cell{val: v, next: e.top}, calls: e.calls}
}

func (e env) bindClosure(c *closure) env {
	return env{top: &cell{clo: c, next: e.top}, calls: e.calls}
}

func (e env) bindLabel(id uint64) env {
	return env{top: &cell{label: id, next: e.top}, calls: e.calls}
}

func (e env) skip(n int) env {
	c := e.top
	for ; n > 0; n-- {
		c = c.next
	}
	return env{top: c, calls: e.calls}
}

func (e env) at(n int) *cell {
	return e.skip(n).top
}
