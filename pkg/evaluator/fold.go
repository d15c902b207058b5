package evaluator

import (
	"github.com/sandrolain/gojaq/pkg/value"
)

// foldState is one accumulator of a fold, about to consume the source
// output at step.
type foldState struct {
	acc  value.Value
	env  env
	step int
	grow *growBuf
}

// growBuf is the backing array of an accumulator built by appending.
// Accumulators are views capped at their length, so the elements past the
// longest view are private and can be written in place.
type growBuf struct{ arr value.Array }

func (g *growBuf) append(acc, more value.Array) (value.Array, *growBuf) {
	if g == nil || len(g.arr) != len(acc) {
		out := make(value.Array, len(acc), max(2*(len(acc)+len(more)), 8))
		copy(out, acc)
		g = &growBuf{arr: out}
	}
	g.arr = append(g.arr, more...)
	n := len(g.arr)
	return g.arr[:n:n], g
}

// appendOperand returns f when update is `. + f`, the update of folds that
// collect an array.
func appendOperand(update node) node {
	if f, ok := update.(*mathNode); ok && f.op == value.OpAdd {
		if _, ok := f.l.(idNode); ok {
			return f.r
		}
	}
	return nil
}

// foldFrame holds the accumulators produced by one update. The next
// outcome is fetched ahead so that exhausted frames leave the stack before
// their children are pushed.
type foldFrame struct {
	states seq[foldState]
	next   foldState
	err    error
}

func newFoldFrame(states seq[foldState]) *foldFrame {
	f := &foldFrame{states: states}
	f.advance()
	return f
}

func (f *foldFrame) advance() {
	f.next, f.err = f.states.Next()
}

// sourceBuffer caches the outputs of a fold source, which every branch of
// the fold consumes in turn. Outputs no branch can reach again are dropped.
type sourceBuffer struct {
	src  Iter
	outs []outcome[value.Value]
	base int
	done bool
}

func (b *sourceBuffer) get(i int) (value.Value, error) {
	for !b.done && i >= b.base+len(b.outs) {
		v, err := b.src.Next()
		if err == Done {
			b.done = true
			break
		}
		b.outs = append(b.outs, outcome[value.Value]{v, err})
	}
	if i >= b.base+len(b.outs) {
		return nil, Done
	}
	o := b.outs[i-b.base]
	return o.v, o.err
}

func (b *sourceBuffer) trim(low int) {
	if n := low - b.base; n > 0 && n <= len(b.outs) {
		clear(b.outs[:n])
		b.outs = b.outs[n:]
		b.base = low
	}
}

// fold runs reduce and foreach. Every output of the update continues the
// fold independently, so the accumulators form a tree that is walked
// depth first. foreach emits the projections of every accumulator as soon
// as it is produced; reduce emits the accumulators that consumed the whole
// source.
func (m *machine) fold(src node, pat *pattern, init, update, extract node, each bool, e env, in value.Value) Iter {
	buf := &sourceBuffer{src: m.run(src, e, in, nil)}
	grow := appendOperand(update)
	stack := []*foldFrame{newFoldFrame(mapSeq(m.run(init, e, in, nil), func(acc value.Value) (foldState, error) {
		return foldState{acc: acc, env: e}, nil
	}))}
	var pending Iter

	return seqFunc[value.Value](func() (value.Value, error) {
		for {
			if pending != nil {
				v, err := pending.Next()
				if err != Done {
					return v, err
				}
				pending = nil
			}
			if len(stack) == 0 {
				return nil, Done
			}
			top := stack[len(stack)-1]
			st, err := top.next, top.err
			if err == Done {
				stack = stack[:len(stack)-1]
				continue
			}
			top.advance()
			if top.err == Done {
				stack = stack[:len(stack)-1]
			}
			if err != nil {
				return nil, err
			}
			if err := m.tick(); err != nil {
				return nil, err
			}

			if each && st.step > 0 {
				pending = m.project(extract, st)
			}
			x, err := buf.get(st.step)
			low := st.step
			if len(stack) > 0 {
				low = min(low, stack[0].next.step)
			}
			buf.trim(low)

			switch {
			case err == Done:
				if !each {
					pending = one(st.acc)
				}
				continue
			case err != nil:
				pending = appendErr(pending, err)
				continue
			}

			acc, step := st.acc, st.step+1
			states := flatMap(m.destructure(pat, e, in, x), func(be env) seq[foldState] {
				if arr, ok := acc.(value.Array); ok && grow != nil {
					return m.appendStep(grow, be, arr, st.grow, step)
				}
				return mapSeq(m.run(update, be, acc, nil), func(next value.Value) (foldState, error) {
					return foldState{acc: next, env: be, step: step}, nil
				})
			})
			stack = append(stack, newFoldFrame(states))
		}
	})
}

// appendStep runs an update `. + f` on an array accumulator. Arrays from f
// are appended to the buffer of the accumulator instead of copying it.
func (m *machine) appendStep(f node, e env, acc value.Array, g *growBuf, step int) seq[foldState] {
	return mapSeq(m.run(f, e, acc, nil), func(r value.Value) (foldState, error) {
		more, ok := r.(value.Array)
		if !ok {
			next, err := value.Add(acc, r)
			return foldState{acc: next, env: e, step: step}, err
		}
		next, ng := g.append(acc, more)
		return foldState{acc: next, env: e, step: step, grow: ng}, nil
	})
}

func (m *machine) project(extract node, st foldState) Iter {
	if extract == nil {
		return one(st.acc)
	}
	return m.run(extract, st.env, st.acc, nil)
}

func appendErr(it Iter, err error) Iter {
	if it == nil {
		return failed(err)
	}
	return chain(it, func() Iter { return failed(err) })
}
