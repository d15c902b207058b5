// Command gojaq runs a jq filter over JSON, YAML or TOML inputs.
//
//	echo '{"a":[1,2]}' | gojaq '.a[] * 10'
//	gojaq -n -arg who=world '"hello \($who)"'
//	gojaq -yaml -c '.spec.containers[].image' deploy.yaml
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/scott-cotton/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cli.MainContext(ctx, MainCommand(ctx))
}

func MainCommand(ctx context.Context) *cli.Command {
	cfg := newConfig()
	opts, err := cfg.opts()
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "gojaq").
		WithSynopsis("gojaq [opts] FILTER [FILES...]").
		WithDescription("gojaq runs a jq filter on each input value and writes the outputs.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return gojaq(ctx, cfg, cc, args)
		})
}

func gojaq(ctx context.Context, cfg *Config, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if code := execute(ctx, cfg, cc.In, cc.Out, os.Stderr, args); code != exitOK {
		return cli.ExitCodeErr(code)
	}
	return nil
}
