package evaluator

import (
	"fmt"
	"io"

	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

func fnEmpty(*machine, value.Value, []*closure) Iter { return none() }

func pathsEmpty(*machine, pathVal, []*closure) seq[pathVal] { return empty[pathVal]() }

func fnError0(_ *machine, in value.Value, _ []*closure) Iter {
	return failed(value.Thrown(in))
}

func pathsError0(_ *machine, pv pathVal, _ []*closure) seq[pathVal] {
	return fail[pathVal](value.Thrown(pv.v))
}

func fnError1(m *machine, in value.Value, args []*closure) Iter {
	return flatMap(m.eval(args[0], in), func(msg value.Value) Iter {
		return failed(value.Thrown(msg))
	})
}

// fnInput pulls the next value from the inputs of the run.
func fnInput(m *machine, _ value.Value, _ []*closure) Iter {
	return lazy(func() Iter {
		v, err := m.inputs.Next()
		if err == Done {
			return failed(value.Thrown(value.String("No more inputs")))
		}
		return result(v, wrapErr(err))
	})
}

func fnInputs(m *machine, _ value.Value, _ []*closure) Iter {
	return seqFunc[value.Value](func() (value.Value, error) {
		v, err := m.inputs.Next()
		if err != nil && err != Done {
			return nil, wrapErr(err)
		}
		return v, err
	})
}

func fnDebug(m *machine, in value.Value, _ []*closure) Iter {
	m.logger.Debug("debug", "value", lazyJSON{value.Array{value.String("DEBUG:"), in}})
	return one(in)
}

func fnStderr(m *machine, in value.Value, _ []*closure) Iter {
	if _, err := io.WriteString(m.stderr, value.ToJSON(in)); err != nil {
		m.logger.Warn("stderr write failed", "error", err)
	}
	m.logger.Debug("stderr", "value", lazyJSON{in})
	return one(in)
}

// lazyJSON defers the encoding of logged values until a handler needs it.
type lazyJSON struct{ v value.Value }

func (l lazyJSON) String() string { return value.ToJSON(l.v) }

func fnInputFilename(m *machine, _ value.Value, _ []*closure) Iter {
	return one(m.filename)
}

func fnBuiltins(m *machine, _ value.Value, _ []*closure) Iter {
	return one(m.builtins)
}

func fnEnv(m *machine, _ value.Value, _ []*closure) Iter {
	return one(m.environ)
}

func fnHalt(*machine, value.Value, []*closure) Iter {
	return failed(&HaltError{Code: 0})
}

func fnHaltError(m *machine, in value.Value, args []*closure) Iter {
	return flatMap(m.eval(args[0], in), func(code value.Value) Iter {
		c, ok := code.(value.Int)
		if !ok {
			return failed(value.NewTypeError("halt_error/1: number required"))
		}
		return failed(&HaltError{Code: int(c), Value: in})
	})
}

// nativeFunc adapts a custom Go function with value arguments.
func nativeFunc(name string, arity int, fn functions.CustomFunc) *native {
	return &native{name: name, arity: arity, run: func(m *machine, in value.Value, args []*closure) Iter {
		return m.argValues(in, args, func(vs []value.Value) Iter {
			v, err := fn(m.ctx, in, vs...)
			if err == nil && v == nil {
				v = value.NullValue
			}
			return result(v, wrapErr(err))
		})
	}}
}

// generatorFunc adapts a custom Go function with value arguments and any
// number of outputs.
func generatorFunc(name string, arity int, fn functions.GeneratorFunc) *native {
	return &native{name: name, arity: arity, run: func(m *machine, in value.Value, args []*closure) Iter {
		return m.argValues(in, args, func(vs []value.Value) Iter {
			out, err := fn(m.ctx, in, vs...)
			if err != nil {
				return failed(wrapErr(err))
			}
			return values(out)
		})
	}}
}

// caller lets custom Go functions run their filter arguments.
type caller struct {
	m    *machine
	args []*closure
}

func (c caller) Call(i int, input value.Value) ([]value.Value, error) {
	if i < 0 || i >= len(c.args) {
		return nil, fmt.Errorf("argument %d out of range", i)
	}
	return collect(c.m.eval(c.args[i], input))
}

// advancedFunc adapts a custom Go function that receives its arguments as
// filters.
func advancedFunc(name string, arity int, fn functions.AdvancedCustomFunc) *native {
	return &native{name: name, arity: arity, run: func(m *machine, in value.Value, args []*closure) Iter {
		return lazy(func() Iter {
			out, err := fn(m.ctx, caller{m: m, args: args}, in)
			if err != nil {
				return failed(wrapErr(err))
			}
			return values(out)
		})
	}}
}
