// Package evaluator compiles and runs filters.
//
// An Evaluator owns the standard library and the registered custom
// functions. Filters are compiled into Programs, which are immutable and can
// be run concurrently; every run returns a lazy sequence of outputs.
//
// # Example
//
//	ev := evaluator.New()
//	prog, err := ev.Compile(".items[] | select(.price > 100)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	it := ev.Run(ctx, prog, input)
//	for {
//	    v, err := it.Next()
//	    if err == evaluator.Done {
//	        break
//	    }
//	    ...
//	}
package evaluator

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/sandrolain/gojaq/pkg/cache"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/parser"
	"github.com/sandrolain/gojaq/pkg/types"
	"github.com/sandrolain/gojaq/pkg/value"
)

//go:embed std.jq
var stdSource string

// Evaluator compiles filters against the standard library and the custom
// functions it was configured with.
type Evaluator struct {
	opts     EvalOptions
	logger   *slog.Logger
	cache    *cache.Cache[*Program] // non-nil when caching is enabled
	custom   map[string]*native
	prelude  *compiler
	builtins value.Value
	environ  value.Value
	err      error
}

// EvalOptions configures an Evaluator.
type EvalOptions struct {
	// Caching keeps compiled programs by source text.
	Caching bool
	// CacheSize is the capacity of the default cache. Defaults to 256.
	CacheSize int
	// Cache is a custom program cache. If non-nil, Caching is implied.
	Cache *cache.Cache[*Program]
	// MaxDepth limits the nesting of function calls. Zero means no limit.
	MaxDepth int
	// Timeout bounds every run. Zero means no timeout.
	Timeout time.Duration
	// Debug enables debug logging on the default logger.
	Debug bool
	// Logger receives debug output and internal diagnostics.
	Logger *slog.Logger
	// Functions holds the registered custom functions and definitions.
	Functions []functions.FunctionEntry
	// ModuleLoader resolves import and include directives.
	ModuleLoader ModuleLoader
	// Stderr receives the output of the stderr builtin.
	Stderr io.Writer
	// Environ is the environment exposed as $ENV, as KEY=value pairs.
	Environ []string
}

// EvalOption configures an Evaluator.
type EvalOption func(*EvalOptions)

// defaultMaxDepth is the default of EvalOptions.MaxDepth. WebAssembly
// targets lower it in evaluator_wasm.go.
var defaultMaxDepth = 100000

// New creates an Evaluator.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		MaxDepth: defaultMaxDepth,
		Timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
		if options.Debug {
			options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	}
	if options.Stderr == nil {
		options.Stderr = os.Stderr
	}
	if options.Environ == nil {
		options.Environ = os.Environ()
	}

	var c *cache.Cache[*Program]
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		c = cache.New[*Program](options.CacheSize)
	}

	e := &Evaluator{
		opts:    options,
		logger:  options.Logger,
		cache:   c,
		custom:  map[string]*native{},
		environ: environValue(options.Environ),
	}
	e.err = e.init()
	return e
}

// init registers the custom functions and compiles the standard library.
func (e *Evaluator) init() error {
	initBuiltinNatives()
	var defs []functions.Definitions
	for _, entry := range e.opts.Functions {
		var fn *native
		switch f := entry.(type) {
		case functions.CustomFunctionDef:
			fn = nativeFunc(f.Name, f.Arity, f.Fn)
		case functions.GeneratorFunctionDef:
			fn = generatorFunc(f.Name, f.Arity, f.Fn)
		case functions.AdvancedCustomFunctionDef:
			fn = advancedFunc(f.Name, f.Arity, f.Fn)
		case functions.Definitions:
			defs = append(defs, f)
			continue
		default:
			continue
		}
		e.custom[nativeKey(fn.name, fn.arity)] = fn
	}

	c := &compiler{
		natives: builtinNatives,
		custom:  e.custom,
		loading: map[string]bool{},
		pathOK:  map[int]pathResult{},
	}
	sources := append([]functions.Definitions{{Name: "std", Source: stdSource}}, defs...)
	for _, src := range sources {
		mod, err := parser.ParseModule(src.Source)
		if err != nil {
			return types.NewError(types.ErrModuleInvalid, "definitions "+src.Name+": "+err.Error(), -1).WithCause(err)
		}
		if err := c.compileDefs(mod.Defs); err != nil {
			return err
		}
	}
	e.prelude = c

	names := nativeNames(builtinNatives, e.custom)
	for _, s := range c.scope {
		if s.kind == scopeDef && !strings.HasPrefix(s.name, "_") {
			names = append(names, nativeKey(s.name, s.arity))
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)
	list := make(value.Array, len(names))
	for i, n := range names {
		list[i] = value.String(n)
	}
	e.builtins = list
	return nil
}

func environValue(environ []string) value.Value {
	entries := make([]value.Entry, 0, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		entries = append(entries, value.Entry{Key: k, Value: value.String(v)})
	}
	return value.NewObject(entries...)
}

// Cache returns the program cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.Cache[*Program] {
	return e.cache
}

// Program is a compiled filter. It is immutable and safe for concurrent use.
type Program struct {
	source string
	defs   []*funcDef
	body   node
	vars   []string
}

// String returns the source of the program.
func (p *Program) String() string { return p.source }

// Vars returns the names of the global variables the program was compiled
// with.
func (p *Program) Vars() []string { return p.vars }

// Compile compiles query. vars names the global variables ($name, given
// without the dollar sign) that WithVariables will provide at run time.
func (e *Evaluator) Compile(query string, vars ...string) (*Program, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.cache == nil {
		return e.compile(query, vars)
	}
	key := query
	if len(vars) > 0 {
		key = strings.Join(vars, ",") + "\x00" + query
	}
	return e.cache.GetOrCompile(key, func() (*Program, error) {
		return e.compile(query, vars)
	})
}

func (e *Evaluator) compile(query string, vars []string) (*Program, error) {
	expr, err := parser.Compile(query)
	if err != nil {
		return nil, err
	}
	return e.CompileExpression(expr, vars...)
}

// CompileExpression compiles an already parsed filter.
func (e *Evaluator) CompileExpression(expr *types.Expression, vars ...string) (*Program, error) {
	if e.err != nil {
		return nil, e.err
	}
	mod := expr.Module()
	if mod == nil || mod.Body == nil {
		return nil, types.NewError(types.ErrSyntaxError, "empty program", -1)
	}
	c := e.prelude.fork()
	c.loader = e.opts.ModuleLoader
	for _, v := range vars {
		c.push(scopeVar, strings.TrimPrefix(v, "$"))
	}
	if err := c.compileImports(mod.Imports); err != nil {
		return nil, err
	}
	if err := c.compileDefs(mod.Defs); err != nil {
		return nil, err
	}
	body, err := c.compile(mod.Body)
	if err != nil {
		return nil, err
	}
	return &Program{source: expr.Source(), defs: c.defs, body: body, vars: slices.Clone(vars)}, nil
}

// RunOptions configures a single run.
type RunOptions struct {
	Inputs    Iter
	Variables map[string]value.Value
	Filename  value.Value
}

// RunOption configures a single run.
type RunOption func(*RunOptions)

// WithInputs sets the values returned by input and inputs.
func WithInputs(inputs Iter) RunOption {
	return func(o *RunOptions) { o.Inputs = inputs }
}

// WithVariables provides the values of the global variables. Variables the
// program was not compiled with are ignored; missing ones are null.
func WithVariables(vars map[string]value.Value) RunOption {
	return func(o *RunOptions) { o.Variables = vars }
}

// WithFilename sets the value returned by input_filename.
func WithFilename(name string) RunOption {
	return func(o *RunOptions) { o.Filename = value.String(name) }
}

// Run runs p on input. Errors are outcomes of the returned sequence and do
// not end it, except halt, timeouts and cancellation.
func (e *Evaluator) Run(ctx context.Context, p *Program, input value.Value, opts ...RunOption) Iter {
	o := RunOptions{Filename: value.NullValue}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Inputs == nil {
		o.Inputs = none()
	}

	cancel := context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}
	maxDepth := e.opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = math.MaxInt
	}
	m := &machine{
		ctx:      ctx,
		defs:     p.defs,
		natives:  builtinNatives,
		custom:   e.custom,
		inputs:   o.Inputs,
		logger:   e.logger,
		stderr:   e.opts.Stderr,
		environ:  e.environ,
		filename: o.Filename,
		builtins: e.builtins,
		maxDepth: maxDepth,
	}

	var globals env
	for _, name := range p.vars {
		v, ok := o.Variables[strings.TrimPrefix(name, "$")]
		if !ok {
			v = value.NullValue
		}
		globals = globals.bind(v)
	}
	return &results{it: m.run(p.body, globals, input, nil), m: m, cancel: cancel}
}

// results ends a run: it releases the timeout and reports errors that
// escaped the program.
type results struct {
	it     Iter
	m      *machine
	cancel context.CancelFunc
	done   bool
}

func (r *results) Next() (value.Value, error) {
	if r.done {
		return nil, Done
	}
	v, err := r.it.Next()
	if err == nil {
		return v, nil
	}
	if err == Done {
		r.finish()
		return nil, Done
	}
	var brk *breakError
	var halt *HaltError
	var terr *types.Error
	switch {
	case errors.As(err, &brk):
		r.m.logger.Error("break escaped its label", "label", brk.name)
	case errors.As(err, &halt):
		r.finish()
	case errors.As(err, &terr) && terr.Code == types.ErrTimeout:
		r.finish()
	}
	return nil, err
}

func (r *results) finish() {
	r.done = true
	r.cancel()
}

// Close ends the run early. Next reports Done afterwards.
func (r *results) Close() {
	if !r.done {
		r.finish()
	}
}

// Eval compiles query and returns all outputs of running it on input. The
// first error ends the evaluation.
func (e *Evaluator) Eval(ctx context.Context, query string, input value.Value, opts ...RunOption) ([]value.Value, error) {
	p, err := e.Compile(query)
	if err != nil {
		return nil, err
	}
	return Collect(e.Run(ctx, p, input, opts...))
}

// FromValues returns a sequence of vs, suitable for WithInputs.
func FromValues(vs ...value.Value) Iter {
	return fromSlice(vs)
}

// WithCaching enables or disables program caching.
func WithCaching(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the capacity of the default cache.
func WithCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external program cache.
func WithCache(c *cache.Cache[*Program]) EvalOption {
	return func(opts *EvalOptions) {
		opts.Cache = c
	}
}

// WithTimeout sets the timeout of every run.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum nesting of function calls.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithModuleLoader sets the loader used by import and include.
func WithModuleLoader(l ModuleLoader) EvalOption {
	return func(opts *EvalOptions) {
		opts.ModuleLoader = l
	}
}

// WithStderr redirects the output of the stderr builtin.
func WithStderr(w io.Writer) EvalOption {
	return func(opts *EvalOptions) {
		opts.Stderr = w
	}
}

// WithEnviron sets the environment exposed as $ENV.
func WithEnviron(environ []string) EvalOption {
	return func(opts *EvalOptions) {
		opts.Environ = environ
	}
}

// WithCustomFunction registers fn as name/arity.
//
// Example:
//
//	evaluator.New(evaluator.WithCustomFunction("double", 0, func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
//	    return value.Mul(in, value.Int(2))
//	}))
func WithCustomFunction(name string, arity int, fn functions.CustomFunc) EvalOption {
	return WithFunctions(functions.CustomFunctionDef{Name: name, Arity: arity, Fn: fn})
}

// WithFunctions registers custom functions and definitions of any kind.
func WithFunctions(fns ...functions.FunctionEntry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Functions = append(opts.Functions, fns...)
	}
}
