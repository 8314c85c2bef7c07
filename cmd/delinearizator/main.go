// Command delinearizator rewrites a linearized PDF file without its
// linearization dictionary.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/scott-cotton/cli"
	"github.com/tsawler/pdfedit/internal/cmdutil"
	"github.com/tsawler/pdfedit/rewrite"
	"github.com/tsawler/pdfedit/writer"
)

type delinearizeConfig struct {
	*cli.Command
	File      string `cli:"name=file desc='input file'"`
	Output    string `cli:"name=output aliases=o desc='output file'"`
	Reachable bool   `cli:"name=reachable desc='keep only objects reachable from the trailer'"`
	Verbose   bool   `cli:"name=v desc='log progress to stderr'"`
}

func delinearizeCommand() *cli.Command {
	cfg := &delinearizeConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "delinearizator").
		WithSynopsis("delinearizator -file <in> -output <out> [-reachable]").
		WithDescription("write a linearized document back out without its linearization dictionary").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *delinearizeConfig) run(cc *cli.Context, args []string) error {
	if _, err := cfg.Parse(cc, args); err != nil {
		return err
	}
	if cfg.File == "" || cfg.Output == "" {
		return fmt.Errorf("%w: -file and -output are required", cli.ErrUsage)
	}

	in, closer, err := cmdutil.OpenInput(cfg.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	d, err := rewrite.NewDelinearizator(in, rewrite.Options{
		Logger: cmdutil.Logger(os.Stderr, cfg.Verbose),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.File, err)
	}
	if cfg.Reachable {
		if err := d.InitReachableObjects(); err != nil {
			return err
		}
	}
	return cmdutil.WriteOutput(cfg.Output, func(s writer.Stream) error {
		return d.Write(s)
	})
}

func main() {
	cli.MainContext(context.Background(), delinearizeCommand())
}
