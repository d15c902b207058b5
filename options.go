package gojaq

import "github.com/sandrolain/gojaq/pkg/evaluator"

// EvalOption configures the evaluator behind Compile and Eval.
type EvalOption = evaluator.EvalOption

// Options re-exported from pkg/evaluator.
var (
	WithCaching        = evaluator.WithCaching
	WithCacheSize      = evaluator.WithCacheSize
	WithTimeout        = evaluator.WithTimeout
	WithDebug          = evaluator.WithDebug
	WithLogger         = evaluator.WithLogger
	WithMaxDepth       = evaluator.WithMaxDepth
	WithModuleLoader   = evaluator.WithModuleLoader
	WithStderr         = evaluator.WithStderr
	WithEnviron        = evaluator.WithEnviron
	WithCustomFunction = evaluator.WithCustomFunction
	WithFunctions      = evaluator.WithFunctions
)
