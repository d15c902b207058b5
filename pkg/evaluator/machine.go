package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sandrolain/gojaq/pkg/types"
	"github.com/sandrolain/gojaq/pkg/value"
)

// updater receives the value at a location and returns the replacements.
type updater func(value.Value) Iter

// machine holds the state of a single run. It is not safe for concurrent
// use; every call to Run creates its own.
type machine struct {
	ctx      context.Context
	defs     []*funcDef
	natives  map[string]*native
	custom   map[string]*native
	inputs   Iter
	logger   *slog.Logger
	stderr   io.Writer
	environ  value.Value
	filename value.Value
	builtins value.Value
	maxDepth int

	labels uint64
	ticks  uint
	// tombstones is set once an update deleted an array element; from then
	// on values are swept before they can be observed.
	tombstones bool
}

// breakError unwinds to the label with the same id.
type breakError struct {
	id   uint64
	name string
}

func (e *breakError) Error() string {
	return fmt.Sprintf("break $%s outside of its label", e.name)
}

// updError carries an error raised by the right-hand side of an update
// through the path traversal, which must not catch it.
type updError struct {
	err error
}

func (e *updError) Error() string { return e.err.Error() }
func (e *updError) Unwrap() error { return e.err }

// HaltError is returned when a program calls halt or halt_error.
type HaltError struct {
	Code  int
	Value value.Value
}

func (e *HaltError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("halt with exit code %d", e.Code)
	}
	if s, ok := e.Value.(value.String); ok {
		return string(s)
	}
	return value.ToJSON(e.Value)
}

// caught returns the payload of err if try/catch may handle it.
func caught(err error) (value.Value, bool) {
	if e, ok := err.(*value.Error); ok {
		return e.Payload, true
	}
	return nil, false
}

// tick checks the context every few hundred steps.
func (m *machine) tick() error {
	m.ticks++
	if m.ticks&0xff != 0 {
		return nil
	}
	if err := m.ctx.Err(); err != nil {
		return timeoutError(err)
	}
	return nil
}

func timeoutError(err error) error {
	msg := "evaluation cancelled"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "evaluation timed out"
	}
	return types.NewError(types.ErrTimeout, msg, -1).WithCause(err)
}

// wrapErr converts errors returned by Go code into catchable errors.
// Engine errors pass unchanged.
func wrapErr(err error) error {
	switch err.(type) {
	case nil:
		return nil
	case *value.Error, *types.Error, *breakError, *updError, *HaltError:
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err)
	}
	return &value.Error{Kind: value.UserError, Payload: value.String(err.Error())}
}

func (m *machine) eval(c *closure, in value.Value) Iter {
	return m.run(c.f, c.env, in, nil)
}

// lazy defers building a sequence until its first output is requested.
func lazy[T any](build func() seq[T]) seq[T] {
	var it seq[T]
	return seqFunc[T](func() (T, error) {
		if it == nil {
			it = build()
		}
		return it.Next()
	})
}

func one(v value.Value) Iter       { return &onceSeq[value.Value]{v: v} }
func failed(err error) Iter        { return &onceSeq[value.Value]{err: err} }
func none() Iter                   { return emptySeq[value.Value]{} }
func values(vs []value.Value) Iter { return fromSlice(vs) }

func result(v value.Value, err error) Iter {
	if err != nil {
		return failed(err)
	}
	return one(v)
}
