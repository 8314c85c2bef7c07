package pdfedit

import (
	"log/slog"

	"github.com/tsawler/pdfedit/store"
)

// Option configures how a document is opened
type Option func(*options)

type options struct {
	mode     store.Mode
	readOnly bool
	logger   *slog.Logger
}

// defaultOptions returns paranoid, writable settings with the default logger.
func defaultOptions() options {
	return options{
		mode:   store.Paranoid,
		logger: slog.Default(),
	}
}

// WithMode selects paranoid or easy mutation checks
func WithMode(mode store.Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// ReadOnly opens the document without write access; every mutation fails
// with core.ErrReadOnlyDocument.
func ReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// WithLogger sets the logger used for saves and revision changes
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func (o options) config() store.Config {
	return store.Config{Mode: o.mode, ReadOnly: o.readOnly, Logger: o.logger}
}
