package pdfpipe

import (
	"log/slog"

	"github.com/tsawler/pdfpipe/pipe"
)

// Options holds configuration for a pass.
type Options struct {
	xrefFormat       pipe.Format
	compressionLevel int
	bufferSize       int
	tailWindow       int64
	addID            bool
	logger           *slog.Logger
}

// defaultOptions returns the default pass options.
func defaultOptions() Options {
	return Options{
		xrefFormat:       pipe.FormatAuto,
		compressionLevel: -1, // zlib default
		bufferSize:       32 * 1024,
		tailWindow:       0, // xref package default
		logger:           nil,
	}
}

// clone creates a copy of Options.
func (o Options) clone() Options {
	return o
}

// config builds the session configuration, logging warnings to warn as
// well as to the configured logger.
func (o Options) config(warn *warningLog) *pipe.Config {
	var handler slog.Handler = warningHandler{log: warn}
	if o.logger != nil {
		handler = fanoutHandler{o.logger.Handler(), handler}
	}
	return pipe.NewConfig(
		pipe.WithLogger(slog.New(handler)),
		pipe.WithXRefFormat(o.xrefFormat),
		pipe.WithCompressionLevel(o.compressionLevel),
		pipe.WithBufferSize(o.bufferSize),
		pipe.WithTailWindow(o.tailWindow),
		pipe.WithAddID(o.addID),
	)
}
