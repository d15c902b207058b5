//go:build js && wasm

// Command gojaq-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `gojaq` object with the following API:
//
//	gojaq.version()               → string
//	gojaq.eval(filter, dataJSON)  → JSON array of outputs  (throws on error)
//	gojaq.compile(filter)         → { eval(dataJSON) → JSON array }  (throws on error)
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o gojaq.wasm ./cmd/wasm/js/
//
// Usage in Node.js:
//
//	const gq = await load()
//	const out = gq.eval('.items[].name', JSON.stringify({items: [{name: 'a'}]}))
//	console.log(JSON.parse(out)) // ['a']
package main

import (
	"context"
	"fmt"
	"strings"
	"syscall/js"

	"github.com/sandrolain/gojaq"
	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/evaluator"
	"github.com/sandrolain/gojaq/pkg/ext"
	"github.com/sandrolain/gojaq/pkg/value"
)

var ev = evaluator.New(ext.WithAll(), evaluator.WithCaching(true), evaluator.WithEnviron([]string{}))

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	panic(js.Global().Get("Error").New(msg))
}

// run evaluates p on the JSON text data and returns the outputs as a JSON
// array, keys in input order.
func run(p *evaluator.Program, data string) (string, error) {
	in, err := codec.ParseJSON(data)
	if err != nil {
		return "", fmt.Errorf("invalid data JSON: %w", err)
	}
	outs, err := evaluator.Collect(ev.Run(context.Background(), p, in))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range outs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(value.ToJSON(v))
	}
	sb.WriteByte(']')
	return sb.String(), nil
}

// jsEval implements gojaq.eval(filter, dataJSON).
func jsEval(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		jsThrow("gojaq.eval requires 2 arguments: filter (string) and data (JSON string)")
	}
	p, err := ev.Compile(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("gojaq.eval: %v", err))
	}
	out, err := run(p, args[1].String())
	if err != nil {
		jsThrow(fmt.Sprintf("gojaq.eval: %v", err))
	}
	return out
}

// jsCompile implements gojaq.compile(filter).
func jsCompile(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("gojaq.compile requires 1 argument: filter (string)")
	}
	p, err := ev.Compile(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("gojaq.compile: %v", err))
	}
	evalFn := js.FuncOf(func(_ js.Value, innerArgs []js.Value) any {
		if len(innerArgs) < 1 {
			jsThrow("compiled.eval requires 1 argument: data (JSON string)")
		}
		out, err := run(p, innerArgs[0].String())
		if err != nil {
			jsThrow(fmt.Sprintf("compiled.eval: %v", err))
		}
		return out
	})
	return js.ValueOf(map[string]any{"eval": evalFn})
}

func main() {
	api := map[string]any{
		"eval":    js.FuncOf(jsEval),
		"compile": js.FuncOf(jsCompile),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) any {
			return gojaq.Version()
		}),
	}
	js.Global().Set("gojaq", js.ValueOf(api))

	// The JS event loop owns execution from here.
	select {}
}
