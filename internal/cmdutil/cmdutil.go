// Package cmdutil holds what the command line tools share.
package cmdutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tsawler/pdfedit/reader"
	"github.com/tsawler/pdfedit/writer"
)

// Logger returns a text logger on w. Debug output is enabled by verbose.
func Logger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// OpenInput parses the file at path. The returned closer releases it.
func OpenInput(path string) (*reader.File, io.Closer, error) {
	doc, f, err := reader.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, f, nil
}

// WriteOutput creates path and hands it to write as a Stream. A failed
// write removes the partial output.
func WriteOutput(path string, write func(writer.Stream) error) (err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	stream, err := writer.NewFileStream(f)
	if err != nil {
		return err
	}
	if err := write(stream); err != nil {
		return err
	}
	return stream.Flush()
}
