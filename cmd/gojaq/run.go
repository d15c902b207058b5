package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/evaluator"
	"github.com/sandrolain/gojaq/pkg/ext"
	"github.com/sandrolain/gojaq/pkg/value"
)

// Exit statuses, as in jq.
const (
	exitOK           = 0
	exitFalsy        = 1
	exitUsage        = 2
	exitCompile      = 3
	exitNoOutput     = 4
	exitRuntimeError = 5
)

type runner struct {
	cfg    *Config
	ev     *evaluator.Evaluator
	prog   *evaluator.Program
	vars   map[string]value.Value
	inputs *inputStream
	enc    *codec.Encoder
	stderr io.Writer
	logger *slog.Logger

	outputs  int
	last     value.Value
	inputErr bool
	runErr   bool
	halted   *evaluator.HaltError
}

// execute runs the filter of args over the inputs and returns the exit
// status.
func execute(ctx context.Context, cfg *Config, stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	filter, files, err := filterSource(cfg, args)
	if err != nil {
		fmt.Fprintf(stderr, "gojaq: %v\n", err)
		return exitUsage
	}
	inFmt, err := cfg.inFormat()
	if err != nil {
		fmt.Fprintf(stderr, "gojaq: %v\n", err)
		return exitUsage
	}
	timeout, err := cfg.timeout()
	if err != nil {
		fmt.Fprintf(stderr, "gojaq: %v\n", err)
		return exitUsage
	}
	out := bufio.NewWriter(stdout)
	defer out.Flush()
	encOpts, err := cfg.encOpts(stdout)
	if err != nil {
		fmt.Fprintf(stderr, "gojaq: %v\n", err)
		return exitUsage
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ev := evaluator.New(
		ext.WithAll(),
		evaluator.WithLogger(logger),
		evaluator.WithDebug(cfg.Debug),
		evaluator.WithTimeout(timeout),
		evaluator.WithStderr(stderr),
		evaluator.WithModuleLoader(evaluator.NewFileLoader(libDirs(cfg)...)),
	)
	names := append(append([]string(nil), cfg.NamedKeys...), "ARGS")
	prog, err := ev.Compile(filter, names...)
	if err != nil {
		fmt.Fprintf(stderr, "gojaq: error: %v\ngojaq: 1 compile error\n", err)
		return exitCompile
	}

	r := &runner{
		cfg:    cfg,
		ev:     ev,
		prog:   prog,
		vars:   programArgs(cfg),
		inputs: newInputStream(files, stdin, inFmt, cfg.RawInput),
		enc:    codec.NewEncoder(out, encOpts...),
		stderr: stderr,
		logger: logger,
	}
	logger.Debug("compiled filter", "filter", filter, "files", len(files))
	return r.loop(ctx)
}

func filterSource(cfg *Config, args []string) (string, []string, error) {
	if cfg.FromFile != "" {
		b, err := os.ReadFile(cfg.FromFile)
		if err != nil {
			return "", nil, err
		}
		return string(b), args, nil
	}
	if len(args) == 0 {
		return "", nil, errors.New("no filter given; usage: gojaq [opts] FILTER [FILES...]")
	}
	return args[0], args[1:], nil
}

// libDirs are the module search dirs: those of -L, or ~/.jq and the
// directory of the -f file.
func libDirs(cfg *Config) []string {
	if len(cfg.LibDirs) > 0 {
		return cfg.LibDirs
	}
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".jq"))
	}
	if cfg.FromFile != "" {
		dirs = append(dirs, filepath.Dir(cfg.FromFile))
	}
	return dirs
}

// programArgs binds the -arg and -argjson values, and $ARGS.
func programArgs(cfg *Config) map[string]value.Value {
	vars := make(map[string]value.Value, len(cfg.Named)+1)
	named := make([]value.Entry, 0, len(cfg.NamedKeys))
	for _, k := range cfg.NamedKeys {
		vars[k] = cfg.Named[k]
		named = append(named, value.Entry{Key: k, Value: cfg.Named[k]})
	}
	vars["ARGS"] = value.NewObject(
		value.Entry{Key: "positional", Value: value.Array{}},
		value.Entry{Key: "named", Value: value.NewObject(named...)},
	)
	return vars
}

func (r *runner) loop(ctx context.Context) int {
	switch {
	case r.cfg.NullInput:
		r.process(ctx, value.NullValue)
	case r.cfg.Slurp:
		v, errs := r.inputs.Slurp()
		for _, err := range errs {
			r.inputFailed(err)
		}
		r.process(ctx, v)
	default:
		for r.halted == nil && ctx.Err() == nil {
			v, err := r.inputs.Next()
			if errors.Is(err, evaluator.Done) {
				break
			}
			if err != nil {
				r.inputFailed(err)
				continue
			}
			r.process(ctx, v)
		}
	}
	return r.status()
}

// process runs the filter on one input and writes its outputs.
func (r *runner) process(ctx context.Context, in value.Value) {
	opts := []evaluator.RunOption{
		evaluator.WithInputs(r.inputs),
		evaluator.WithVariables(r.vars),
	}
	if name := r.inputs.Filename(); name != "" {
		opts = append(opts, evaluator.WithFilename(name))
	}
	it := r.ev.Run(ctx, r.prog, in, opts...)
	defer evaluator.Close(it)
	for {
		v, err := it.Next()
		if errors.Is(err, evaluator.Done) {
			return
		}
		if err != nil {
			var halt *evaluator.HaltError
			if errors.As(err, &halt) {
				r.halt(halt)
				return
			}
			r.runFailed(in, err)
			continue
		}
		r.outputs++
		r.last = v
		if err := r.enc.Encode(v); err != nil {
			r.inputFailed(err)
			r.halted = &evaluator.HaltError{Code: exitUsage}
			return
		}
	}
}

func (r *runner) halt(h *evaluator.HaltError) {
	r.halted = h
	switch v := h.Value.(type) {
	case nil:
	case value.String:
		fmt.Fprint(r.stderr, string(v))
	default:
		fmt.Fprintln(r.stderr, value.ToJSON(v))
	}
}

func (r *runner) inputFailed(err error) {
	r.inputErr = true
	fmt.Fprintf(r.stderr, "gojaq: error: %v\n", err)
}

func (r *runner) runFailed(in value.Value, err error) {
	r.runErr = true
	fmt.Fprintf(r.stderr, "gojaq: error (at %s): %v\n", displayName(r.inputs.Filename()), err)
	if r.logger.Enabled(context.Background(), slog.LevelDebug) {
		r.logger.Debug("uncaught error", "input", value.ToJSON(in))
	}
}

func (r *runner) status() int {
	switch {
	case r.halted != nil:
		return r.halted.Code
	case r.inputErr:
		return exitUsage
	case r.runErr:
		return exitRuntimeError
	case !r.cfg.ExitStatus:
		return exitOK
	case r.outputs == 0:
		return exitNoOutput
	case !value.Truthy(r.last):
		return exitFalsy
	}
	return exitOK
}
