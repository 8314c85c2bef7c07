package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/scott-cotton/cli"
	"github.com/tsawler/pdfedit"
)

type revisionsConfig struct {
	*mainConfig
	JSON bool `cli:"name=json aliases=j desc='print json'"`

	Revisions *cli.Command
}

func revisionsCommand(mainCfg *mainConfig) *cli.Command {
	cfg := &revisionsConfig{mainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Revisions, "revisions").
		WithAliases("r").
		WithSynopsis("revisions [-json] <file>").
		WithDescription("list the stored revisions, newest first").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return revisions(cfg, cc, args)
		})
}

// revisionRow is one listed revision
type revisionRow struct {
	Index      int    `json:"index"`
	XRefOffset int64  `json:"xrefOffset"`
	EOFOffset  int64  `json:"eofOffset"`
	Digest     string `json:"digest"`
	Current    bool   `json:"current"`
}

func revisions(cfg *revisionsConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Revisions.Parse(cc, args)
	if err != nil {
		return err
	}
	doc, err := cfg.openDocument(args)
	if err != nil {
		return err
	}
	defer doc.Close()

	rows, err := revisionRows(doc)
	if err != nil {
		return err
	}
	if cfg.JSON {
		return writeJSON(cc.Out, rows)
	}
	return writeRevisions(cc.Out, rows, colorable(cc.Out))
}

func revisionRows(doc *pdfedit.Document) ([]revisionRow, error) {
	rw := doc.Store()
	var rows []revisionRow
	for _, rev := range rw.Revisions() {
		sum, err := rw.Base().Digest(rev.Index)
		if err != nil {
			return nil, err
		}
		rows = append(rows, revisionRow{
			Index:      rev.Index,
			XRefOffset: rev.XRefOffset,
			EOFOffset:  rev.EOFOffset,
			Digest:     fmt.Sprintf("%016x", sum),
			Current:    rev.Index == doc.Revision(),
		})
	}
	return rows, nil
}

func writeRevisions(w io.Writer, rows []revisionRow, colored bool) error {
	current := color.New(color.FgGreen, color.Bold)
	if !colored {
		current.DisableColor()
	}
	if _, err := fmt.Fprintf(w, "%-4s %12s %12s  %s\n", "REV", "XREF", "EOF", "DIGEST"); err != nil {
		return err
	}
	for _, row := range rows {
		line := fmt.Sprintf("%-4d %12d %12d  %s", row.Index, row.XRefOffset, row.EOFOffset, row.Digest)
		if row.Current {
			line = current.Sprint(line + " *")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
