package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/scott-cotton/cli"
	"github.com/tsawler/pdfedit"
)

type infoConfig struct {
	*mainConfig
	JSON bool `cli:"name=json aliases=j desc='print json'"`

	Info *cli.Command
}

func infoCommand(mainCfg *mainConfig) *cli.Command {
	cfg := &infoConfig{mainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Info, "info").
		WithAliases("i").
		WithSynopsis("info [-json] <file>").
		WithDescription("show the version, revision count, page count and document information").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return info(cfg, cc, args)
		})
}

// documentInfo is what info prints
type documentInfo struct {
	Version    string            `json:"version"`
	Revisions  int               `json:"revisions"`
	Linearized bool              `json:"linearized"`
	Encrypted  bool              `json:"encrypted"`
	Pages      int               `json:"pages"`
	Info       map[string]string `json:"info,omitempty"`
}

func info(cfg *infoConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Info.Parse(cc, args)
	if err != nil {
		return err
	}
	doc, err := cfg.openDocument(args)
	if err != nil {
		return err
	}
	defer doc.Close()

	di, err := describe(doc)
	if err != nil {
		return err
	}
	if cfg.JSON {
		return writeJSON(cc.Out, di)
	}
	return writeInfo(cc.Out, di)
}

func describe(doc *pdfedit.Document) (documentInfo, error) {
	entries, err := doc.Info()
	if err != nil {
		return documentInfo{}, err
	}
	rw := doc.Store()
	return documentInfo{
		Version:    doc.Version().String(),
		Revisions:  doc.RevisionCount(),
		Linearized: rw.Linearized(),
		Encrypted:  rw.Base().Encrypted(),
		Pages:      doc.PageCount(),
		Info:       entries,
	}, nil
}

func writeInfo(w io.Writer, di documentInfo) error {
	fmt.Fprintf(w, "Version:    %s\n", di.Version)
	fmt.Fprintf(w, "Revisions:  %d\n", di.Revisions)
	fmt.Fprintf(w, "Linearized: %t\n", di.Linearized)
	fmt.Fprintf(w, "Encrypted:  %t\n", di.Encrypted)
	fmt.Fprintf(w, "Pages:      %d\n", di.Pages)

	keys := make([]string, 0, len(di.Info))
	for k := range di.Info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%-11s %s\n", k+":", di.Info[k]); err != nil {
			return err
		}
	}
	return nil
}
