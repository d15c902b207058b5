package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/value"
)

type Config struct {
	NullInput  bool `cli:"name=n aliases=null-input desc='use null as the single input value'"`
	RawInput   bool `cli:"name=R aliases=raw-input desc='read each line of input as a string'"`
	Slurp      bool `cli:"name=s aliases=slurp desc='read all inputs into one array'"`
	RawOutput  bool `cli:"name=r aliases=raw-output desc='write strings without quotes'"`
	Join       bool `cli:"name=j aliases=join-output desc='like -r without a newline after each output'"`
	ASCII      bool `cli:"name=a aliases=ascii-output desc='escape non-ASCII characters'"`
	Compact    bool `cli:"name=c aliases=compact-output desc='compact output'"`
	SortKeys   bool `cli:"name=S aliases=sort-keys desc='sort object keys'"`
	Color      bool `cli:"name=C aliases=color-output desc='colorize JSON output'"`
	Monochrome bool `cli:"name=M aliases=monochrome-output desc='never colorize output'"`
	Tab        bool `cli:"name=tab desc='indent with tabs'"`
	ExitStatus bool `cli:"name=e aliases=exit-status desc='set the exit status from the last output'"`

	FromFile string `cli:"name=f aliases=from-file desc='read the filter from a file'"`
	YAMLIn   bool   `cli:"name=yaml desc='read YAML input'"`
	TOMLIn   bool   `cli:"name=toml desc='read TOML input'"`
	YAMLOut  bool   `cli:"name=yaml-out desc='write YAML output'"`
	TOMLOut  bool   `cli:"name=toml-out desc='write TOML output'"`
	Timeout  string `cli:"name=timeout desc='abort each run after this duration, e.g. 10s'"`
	Debug    bool   `cli:"name=debug desc='log debug messages'"`

	Indent int

	// Named holds the values of -arg and -argjson in the order given.
	Named     map[string]value.Value
	NamedKeys []string
	LibDirs   []string

	Main *cli.Command
}

func newConfig() *Config {
	return &Config{Indent: 2, Named: map[string]value.Value{}}
}

func (cfg *Config) opts() ([]*cli.Opt, error) {
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		return nil, err
	}
	return append(sOpts, []*cli.Opt{
		{
			Name:        "indent",
			Description: "number of spaces per indentation level (default 2)",
			Type:        cli.NamedFuncOpt(cfg.indentOpt, "(n)"),
		},
		{
			Name:        "arg",
			Description: "bind $name to the string value",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(cfg.argOpt), "(name=value)"),
		},
		{
			Name:        "argjson",
			Description: "bind $name to the JSON value",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(cfg.argJSONOpt), "(name=json)"),
		},
		{
			Name:        "L",
			Aliases:     []string{"library-path"},
			Description: "search dir for modules",
			Type:        cli.NamedFuncOpt(cfg.libOpt, "(dir)"),
		},
	}...), nil
}

func (cfg *Config) indentOpt(_ *cli.Context, a string) (any, error) {
	n, err := strconv.Atoi(a)
	if err != nil || n < 0 || n > 7 {
		return nil, fmt.Errorf("%w: -indent takes a number between 0 and 7, got %q", cli.ErrUsage, a)
	}
	cfg.Indent = n
	return n, nil
}

func (cfg *Config) argOpt(_ *cli.Context, a string) (any, error) {
	name, v, err := splitBinding("arg", a)
	if err != nil {
		return nil, err
	}
	cfg.bind(name, value.String(v))
	return 0, nil
}

func (cfg *Config) argJSONOpt(_ *cli.Context, a string) (any, error) {
	name, src, err := splitBinding("argjson", a)
	if err != nil {
		return nil, err
	}
	v, err := codec.ParseJSON(src)
	if err != nil {
		return nil, fmt.Errorf("%w: -argjson %s: invalid JSON: %w", cli.ErrUsage, name, err)
	}
	cfg.bind(name, v)
	return 0, nil
}

func (cfg *Config) libOpt(_ *cli.Context, a string) (any, error) {
	cfg.LibDirs = append(cfg.LibDirs, a)
	return a, nil
}

func (cfg *Config) bind(name string, v value.Value) {
	if _, ok := cfg.Named[name]; !ok {
		cfg.NamedKeys = append(cfg.NamedKeys, name)
	}
	cfg.Named[name] = v
}

func splitBinding(opt, a string) (string, string, error) {
	name, v, ok := strings.Cut(a, "=")
	name = strings.TrimPrefix(name, "$")
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: -%s takes name=value, got %q", cli.ErrUsage, opt, a)
	}
	return name, v, nil
}

func (cfg *Config) inFormat() (codec.Format, error) {
	switch {
	case cfg.YAMLIn && cfg.TOMLIn:
		return codec.JSON, fmt.Errorf("%w: -yaml and -toml are exclusive", cli.ErrUsage)
	case cfg.YAMLIn:
		return codec.YAML, nil
	case cfg.TOMLIn:
		return codec.TOML, nil
	}
	return codec.JSON, nil
}

func (cfg *Config) outFormat() (codec.Format, error) {
	switch {
	case cfg.YAMLOut && cfg.TOMLOut:
		return codec.JSON, fmt.Errorf("%w: -yaml-out and -toml-out are exclusive", cli.ErrUsage)
	case cfg.YAMLOut:
		return codec.YAML, nil
	case cfg.TOMLOut:
		return codec.TOML, nil
	}
	return codec.JSON, nil
}

func (cfg *Config) timeout() (time.Duration, error) {
	if cfg.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: -timeout: %w", cli.ErrUsage, err)
	}
	return d, nil
}

func (cfg *Config) encOpts(w io.Writer) ([]codec.EncodeOption, error) {
	f, err := cfg.outFormat()
	if err != nil {
		return nil, err
	}
	res := []codec.EncodeOption{
		codec.WithFormat(f),
		codec.WithSortKeys(cfg.SortKeys),
		codec.WithASCII(cfg.ASCII),
		codec.WithRawStrings(cfg.RawOutput),
		codec.WithJoin(cfg.Join),
	}
	switch {
	case cfg.Tab:
		res = append(res, codec.WithTab())
	case cfg.Compact:
		res = append(res, codec.WithIndent(0))
	default:
		res = append(res, codec.WithIndent(cfg.Indent))
	}
	if f != codec.JSON || cfg.Monochrome {
		return res, nil
	}
	if cfg.Color || isTerminal(w) && os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
		res = append(res, codec.WithColors(codec.NewColors()))
	}
	return res, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
