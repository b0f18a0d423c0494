package pipe

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tsawler/pdfpipe/grammar"
	"github.com/tsawler/pdfpipe/internal/filters"
	"github.com/tsawler/pdfpipe/reader"
)

// Format selects how the regenerated cross-reference section is written.
type Format int

const (
	// FormatAuto writes the section in the family the input used. A
	// document with compressed objects always gets a stream.
	FormatAuto Format = iota
	// FormatTable writes a classic xref table and trailer.
	FormatTable
	// FormatStream writes a compressed cross-reference stream.
	FormatStream
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatTable:
		return "table"
	case FormatStream:
		return "stream"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat reads a format name: auto, table or stream.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "table", "text":
		return FormatTable, nil
	case "stream", "binary":
		return FormatStream, nil
	}
	return FormatAuto, fmt.Errorf("unknown xref format %q", s)
}

// Config is built once and shared by every session that uses it. The
// compiled grammar and the filter registry are read-only after NewConfig.
type Config struct {
	Graph    *grammar.Graph
	Registry *filters.Registry
	Logger   *slog.Logger

	// BufferSize is the chunk the input is read in.
	BufferSize int
	// XRefFormat overrides the output index family.
	XRefFormat Format
	// TailWindow bounds the backward search for startxref.
	TailWindow int64
	// AddID gives an /ID to documents that have none. An existing /ID
	// always has its second element refreshed.
	AddID bool

	level int
}

// Option configures a Config.
type Option func(*Config)

// WithLogger sets the logger sessions report to.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithBufferSize sets the input read chunk.
func WithBufferSize(n int) Option {
	return func(c *Config) { c.BufferSize = n }
}

// WithXRefFormat forces the output index family.
func WithXRefFormat(f Format) Option {
	return func(c *Config) { c.XRefFormat = f }
}

// WithCompressionLevel sets the Flate level used when streams and the
// index are re-encoded.
func WithCompressionLevel(level int) Option {
	return func(c *Config) { c.level = level }
}

// WithTailWindow sets how far back from the end startxref is searched for.
func WithTailWindow(n int64) Option {
	return func(c *Config) { c.TailWindow = n }
}

// WithAddID makes sessions add an /ID to documents that lack one.
func WithAddID(add bool) Option {
	return func(c *Config) { c.AddID = add }
}

// NewConfig compiles the grammar and builds the filter registry.
func NewConfig(opts ...Option) *Config {
	c := &Config{BufferSize: 32 * 1024, level: -1}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.Graph = grammar.New()
	c.Registry = filters.NewRegistry(filters.WithCompressionLevel(c.level))
	return c
}

func (c *Config) reader() reader.Config {
	return reader.Config{
		Graph:      c.Graph,
		Registry:   c.Registry,
		Logger:     c.Logger,
		TailWindow: c.TailWindow,
	}
}
