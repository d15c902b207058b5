package evaluator

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/value"
)

// StreamResult holds one output of a streaming evaluation.
type StreamResult struct {
	// Input is the document that produced the output.
	Input value.Value
	// Value is the output, or nil when Err is set.
	Value value.Value
	// Err is an uncaught run-time error of the program, or a decode error.
	// After a decode error the channel is closed; run-time errors do not
	// end the stream.
	Err error
}

// FromDecoder returns the documents of dec as a sequence. Decode errors
// are outcomes of the sequence and end it. The sequence is safe to pull
// from several runs sharing the same decoder.
func FromDecoder(dec codec.Decoder) Iter {
	var mu sync.Mutex
	done := false
	return seqFunc[value.Value](func() (value.Value, error) {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return nil, Done
		}
		v, err := dec.Decode()
		if err == io.EOF {
			done = true
			return nil, Done
		}
		if err != nil {
			done = true
			return nil, err
		}
		return v, nil
	})
}

// EvalStream reads the documents of dec and runs p on each of them, sending
// the outputs on the returned channel. The program sees the remaining
// documents through input and inputs.
//
// The channel is closed when all input has been consumed, the context is
// cancelled or the program halts. It is the caller's responsibility to drain
// the channel or cancel the context to avoid goroutine leaks.
func (e *Evaluator) EvalStream(ctx context.Context, p *Program, dec codec.Decoder, opts ...RunOption) (<-chan StreamResult, error) {
	if p == nil {
		return nil, errors.New("invalid program")
	}
	ch := make(chan StreamResult, 16)
	inputs := FromDecoder(dec)
	opts = append(opts, WithInputs(inputs))

	send := func(r StreamResult) bool {
		select {
		case ch <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(ch)
		for {
			if ctx.Err() != nil {
				return
			}
			doc, err := inputs.Next()
			if err == Done {
				return
			}
			if err != nil {
				send(StreamResult{Err: err})
				return
			}
			if !e.stream(ctx, p, doc, opts, send) {
				return
			}
		}
	}()
	return ch, nil
}

// stream sends the outcomes of one run. It reports false when the stream
// must stop.
func (e *Evaluator) stream(ctx context.Context, p *Program, doc value.Value, opts []RunOption, send func(StreamResult) bool) bool {
	it := e.Run(ctx, p, doc, opts...)
	defer Close(it)
	for {
		v, err := it.Next()
		if err == Done {
			return true
		}
		if !send(StreamResult{Input: doc, Value: v, Err: err}) {
			return false
		}
		var halt *HaltError
		if errors.As(err, &halt) {
			return false
		}
	}
}
