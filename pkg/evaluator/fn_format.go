package evaluator

import (
	"github.com/sandrolain/gojaq/pkg/value"
)

// fnFormat implements format($name): the same as @name.
func fnFormat(m *machine, in value.Value, args []*closure) Iter {
	return flatMap(m.eval(args[0], in), func(name value.Value) Iter {
		s, ok := name.(value.String)
		if !ok {
			return failed(value.NewTypeError("%s is not a valid format", value.Describe(name)))
		}
		fn := m.format(string(s))
		if fn == nil {
			return failed(value.NewTypeError("%s is not a valid format", string(s)))
		}
		return fn.run(m, in, nil)
	})
}

// format looks up the native of @name.
func (m *machine) format(name string) *native {
	key := nativeKey("@"+name, 0)
	if fn, ok := m.custom[key]; ok {
		return fn
	}
	return m.natives[key]
}
