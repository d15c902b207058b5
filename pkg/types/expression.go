// Package types defines the types shared by the parser and the evaluator.
//
// This package contains type definitions for:
//   - Expression: a parsed filter program
//   - ASTNode, Pattern, FuncDef, Module: the abstract syntax tree
//   - Error: structured parse and compile errors with codes
package types

// Expression represents a parsed filter program.
//
// An Expression is immutable and safe for concurrent use; it is compiled by
// the evaluator before running.
type Expression struct {
	module *Module
	source string
}

// NewExpression creates a new Expression from a parsed module.
func NewExpression(module *Module, source string) *Expression {
	return &Expression{
		module: module,
		source: source,
	}
}

// Module returns the parsed program.
func (e *Expression) Module() *Module {
	return e.module
}

// AST returns the body of the program.
func (e *Expression) AST() *ASTNode {
	return e.module.Body
}

// Source returns the original source code of the expression.
func (e *Expression) Source() string {
	return e.source
}

// String returns a string representation of the expression.
func (e *Expression) String() string {
	return e.source
}
