// Package parser implements the parser for jq filter programs.
//
// The parser is a hand-written Pratt parser on top of a rune-based lexer.
// It produces a types.Module: import directives, top-level definitions and
// the program body.
//
// # Architecture
//
// The parser consists of two components:
//   - Lexer: Tokenizes the input program into a stream of tokens, including
//     the pieces of interpolated strings
//   - Parser: Builds an Abstract Syntax Tree (AST) from tokens
//
// Name resolution is not performed here; it is the job of the compiler in
// the evaluator package.
//
// # Example
//
//	expr, err := parser.Parse(".items[] | select(.price > 100)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ast := expr.AST()
package parser

import (
	"github.com/sandrolain/gojaq/pkg/types"
)

// Parse parses a filter program and returns the parsed Expression.
//
// If parsing fails, it returns a *types.Error with position information.
//
// Example:
//
//	expr, err := parser.Parse(".name")
//	if err != nil {
//	    fmt.Printf("Parse error: %v\n", err)
//	    return
//	}
func Parse(query string) (*types.Expression, error) {
	p := NewParser(query)
	return p.Parse()
}

// Compile is an alias for Parse accepting options, provided for API consistency.
func Compile(query string, opts ...CompileOption) (*types.Expression, error) {
	p := NewParser(query, opts...)
	return p.Parse()
}

// ParseModule parses a library module: import directives followed by
// definitions, without a body.
func ParseModule(source string, opts ...CompileOption) (*types.Module, error) {
	p := NewParser(source, opts...)
	return p.ParseModule()
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits recursion depth to prevent stack overflow.
	MaxDepth int
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
