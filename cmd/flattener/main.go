// Command flattener rewrites a PDF file as a single revision holding only
// the objects reachable from its newest trailer.
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

type flattenConfig struct {
	*cli.Command
	File     string `cli:"name=file desc='input file'"`
	Output   string `cli:"name=output aliases=o desc='output file'"`
	PageSize int    `cli:"name=page-size desc='objects held in memory at once'"`
	Verbose  bool   `cli:"name=v desc='log progress to stderr'"`
}

func flattenCommand() *cli.Command {
	cfg := &flattenConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "flattener").
		WithSynopsis("flattener -file <in> -output <out>").
		WithDescription("write the reachable objects of the newest revision as a single revision").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *flattenConfig) run(cc *cli.Context, args []string) error {
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

	fl, err := rewrite.NewFlattener(in, rewrite.Options{
		PageSize: cfg.PageSize,
		Logger:   cmdutil.Logger(os.Stderr, cfg.Verbose),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.File, err)
	}
	return cmdutil.WriteOutput(cfg.Output, func(s writer.Stream) error {
		return fl.Write(s)
	})
}

func main() {
	cli.MainContext(context.Background(), flattenCommand())
}
