package evaluator

import (
	"errors"

	"github.com/sandrolain/gojaq/pkg/value"
)

// Done is returned by Next when an iterator has no more outputs.
var Done = errors.New("no more outputs")

// Iter is a lazy sequence of filter outcomes.
//
// Next returns the next output, an error outcome, or Done. An error outcome
// does not end the sequence: callers may keep pulling until Done.
type Iter = seq[value.Value]

// seq is the generic pull iterator used for values and paths alike.
type seq[T any] interface {
	Next() (T, error)
}

type seqFunc[T any] func() (T, error)

func (f seqFunc[T]) Next() (T, error) { return f() }

type emptySeq[T any] struct{}

func (emptySeq[T]) Next() (T, error) {
	var zero T
	return zero, Done
}

func empty[T any]() seq[T] { return emptySeq[T]{} }

type onceSeq[T any] struct {
	v    T
	err  error
	done bool
}

func (s *onceSeq[T]) Next() (T, error) {
	if s.done {
		var zero T
		return zero, Done
	}
	s.done = true
	return s.v, s.err
}

func once[T any](v T) seq[T] { return &onceSeq[T]{v: v} }

func fail[T any](err error) seq[T] { return &onceSeq[T]{err: err} }

type sliceSeq[T any] struct {
	vs []T
	i  int
}

func (s *sliceSeq[T]) Next() (T, error) {
	if s.i >= len(s.vs) {
		var zero T
		return zero, Done
	}
	v := s.vs[s.i]
	s.i++
	return v, nil
}

func fromSlice[T any](vs []T) seq[T] {
	switch len(vs) {
	case 0:
		return empty[T]()
	case 1:
		return once(vs[0])
	}
	return &sliceSeq[T]{vs: vs}
}

// chain yields a, then the sequence built by b. b is only called once a is
// exhausted.
func chain[T any](a seq[T], b func() seq[T]) seq[T] {
	return seqFunc[T](func() (T, error) {
		for {
			v, err := a.Next()
			if err != Done {
				return v, err
			}
			if b == nil {
				return v, Done
			}
			a, b = b(), nil
		}
	})
}

// flatMap runs f on every value of src and yields the outputs in order.
// Error outcomes of src are passed through.
func flatMap[T, U any](src seq[T], f func(T) seq[U]) seq[U] {
	var cur seq[U]
	return seqFunc[U](func() (U, error) {
		for {
			if cur != nil {
				v, err := cur.Next()
				if err != Done {
					return v, err
				}
				cur = nil
			}
			x, err := src.Next()
			if err != nil {
				var zero U
				return zero, err
			}
			cur = f(x)
		}
	})
}

func mapSeq[T, U any](src seq[T], f func(T) (U, error)) seq[U] {
	return seqFunc[U](func() (U, error) {
		x, err := src.Next()
		if err != nil {
			var zero U
			return zero, err
		}
		return f(x)
	})
}

// filterSeq drops error outcomes matched by drop.
func filterSeq[T any](src seq[T], drop func(error) bool) seq[T] {
	return seqFunc[T](func() (T, error) {
		for {
			v, err := src.Next()
			if err != nil && err != Done && drop(err) {
				continue
			}
			return v, err
		}
	})
}

// take yields at most n outcomes of src.
func take[T any](src seq[T], n int) seq[T] {
	return seqFunc[T](func() (T, error) {
		if n <= 0 {
			var zero T
			return zero, Done
		}
		n--
		return src.Next()
	})
}

// collect drains s, stopping at the first error outcome.
func collect[T any](s seq[T]) ([]T, error) {
	var out []T
	for {
		v, err := s.Next()
		if err == Done {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

type outcome[T any] struct {
	v   T
	err error
}

// collectAll drains s keeping every outcome, errors included.
func collectAll[T any](s seq[T]) []outcome[T] {
	var out []outcome[T]
	for {
		v, err := s.Next()
		if err == Done {
			return out
		}
		out = append(out, outcome[T]{v, err})
	}
}

func replay[T any](os []outcome[T]) seq[T] {
	i := 0
	return seqFunc[T](func() (T, error) {
		if i >= len(os) {
			var zero T
			return zero, Done
		}
		o := os[i]
		i++
		return o.v, o.err
	})
}

// Collect drains it and returns all values, stopping at the first error.
// The run behind it is closed in either case.
func Collect(it Iter) ([]value.Value, error) {
	defer Close(it)
	return collect(it)
}

// Close ends a run returned by Evaluator.Run that is abandoned before it
// reports Done, releasing its timeout. Other sequences are left alone.
func Close(it Iter) {
	if c, ok := it.(interface{ Close() }); ok {
		c.Close()
	}
}
