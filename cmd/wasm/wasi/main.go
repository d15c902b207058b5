//go:build wasip1

// Command gojaq-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "filter": "<jq filter>", "data": <any JSON value>, "vars": {"name": <JSON>} }
//	stdout: { "results": [<JSON value>, ...] }   on success
//	        { "error":  "<message>" }            on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o gojaq.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"filter":".name","data":{"name":"Alice"}}' | wasmtime gojaq.wasm
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/evaluator"
	"github.com/sandrolain/gojaq/pkg/ext"
	"github.com/sandrolain/gojaq/pkg/value"
)

type request struct {
	Filter string                     `json:"filter"`
	Data   json.RawMessage            `json:"data"`
	Vars   map[string]json.RawMessage `json:"vars"`
}

type response struct {
	Results []json.RawMessage `json:"results,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func eval(req request) ([]json.RawMessage, error) {
	in := value.Value(value.NullValue)
	if len(req.Data) > 0 {
		var err error
		if in, err = codec.ParseJSONBytes(req.Data); err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
	}
	names := make([]string, 0, len(req.Vars))
	vars := make(map[string]value.Value, len(req.Vars))
	for name, raw := range req.Vars {
		v, err := codec.ParseJSONBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("variable $%s: %w", name, err)
		}
		names = append(names, name)
		vars[name] = v
	}
	slices.Sort(names)

	ev := evaluator.New(ext.WithAll(), evaluator.WithEnviron([]string{}))
	p, err := ev.Compile(req.Filter, names...)
	if err != nil {
		return nil, err
	}
	outs, err := evaluator.Collect(ev.Run(context.Background(), p, in, evaluator.WithVariables(vars)))
	if err != nil {
		return nil, err
	}
	res := make([]json.RawMessage, len(outs))
	for i, v := range outs {
		res[i] = json.RawMessage(value.ToJSON(v))
	}
	return res, nil
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: "invalid request JSON: " + err.Error()}, 1)
	}
	res, err := eval(req)
	if err != nil {
		writeResponse(response{Error: err.Error()}, 1)
	}
	writeResponse(response{Results: res}, 0)
}
