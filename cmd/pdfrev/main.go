// Command pdfrev inspects the revisions of a PDF file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"github.com/tsawler/pdfedit"
	"github.com/tsawler/pdfedit/internal/cmdutil"
)

type mainConfig struct {
	Verbose bool `cli:"name=v desc='log to stderr'"`

	Main *cli.Command
}

func mainCommand() *cli.Command {
	cfg := &mainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "pdfrev").
		WithSynopsis("pdfrev [opts] command [opts] <file>").
		WithDescription("pdfrev lists the revisions and document information of PDF files.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return pdfrevMain(cfg, cc, args)
		}).
		WithSubs(
			revisionsCommand(cfg),
			infoCommand(cfg),
		)
}

func pdfrevMain(cfg *mainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

// openDocument opens the single file argument read-only
func (cfg *mainConfig) openDocument(args []string) (*pdfedit.Document, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected one file argument", cli.ErrUsage)
	}
	return pdfedit.Open(args[0],
		pdfedit.ReadOnly(),
		pdfedit.WithLogger(cmdutil.Logger(os.Stderr, cfg.Verbose)),
	)
}

// colorable reports whether w is a terminal
func colorable(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	cli.MainContext(context.Background(), mainCommand())
}
