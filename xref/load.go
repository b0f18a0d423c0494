package xref

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfpipe/core"
	"github.com/tsawler/pdfpipe/docio"
	"github.com/tsawler/pdfpipe/grammar"
	"github.com/tsawler/pdfpipe/internal/filters"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// DefaultTailWindow is how far back from the end of the file the loader
// looks for startxref.
const DefaultTailWindow = 64 * 1024

// Loader reads the cross-reference sections of a document.
type Loader struct {
	Graph    *grammar.Graph
	Registry *filters.Registry
	Logger   *slog.Logger
	// TailWindow bounds the backward search for startxref.
	TailWindow int64
}

// Load locates startxref, walks every section through /Prev and /XRefStm
// and merges them.
func (l *Loader) Load(ch *docio.Channel) (*Master, error) {
	logger := l.Logger
	if logger == nil {
		logger = discardLogger
	}

	start, err := l.FindStartXRef(ch)
	if err != nil {
		return nil, err
	}

	var chain []*Section
	seen := make(map[int64]bool)
	queue := []int64{start}
	for len(queue) > 0 {
		off := queue[0]
		queue = queue[1:]
		if seen[off] {
			logger.Warn("cross-reference chain loops", "offset", off)
			continue
		}
		seen[off] = true

		s, err := l.Section(ch, off)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read xref section at %d", off)
		}
		logger.Debug("cross-reference section", "offset", off, "family", s.Family, "entries", s.Table.Count())
		if s.Skipped > 0 {
			logger.Warn("ignoring cross-reference entries beyond the object number limit",
				"offset", off, "entries", s.Skipped, "limit", IDLimit(ch.Size()))
		}

		if stm, ok := s.Trailer.GetInt("XRefStm"); ok && s.Family == Text && !seen[int64(stm)] {
			seen[int64(stm)] = true
			hybrid, err := l.Section(ch, int64(stm))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read /XRefStm section at %d", stm)
			}
			hybrid.Hybrid = true
			hybrid.table = s
			chain = append(chain, hybrid)
		}
		chain = append(chain, s)

		if prev, ok := s.Trailer.GetInt("Prev"); ok {
			queue = append(queue, int64(prev))
		}
	}

	return Merge(chain, IDLimit(ch.Size()), logger), nil
}

// FindStartXRef scans backwards from the end of the input for the
// startxref pointer.
func (l *Loader) FindStartXRef(ch *docio.Channel) (int64, error) {
	prev := ch.SetMode(docio.Reversed)
	defer ch.SetMode(prev)
	if err := ch.Seek(ch.Size()); err != nil {
		return 0, err
	}

	window := l.TailWindow
	if window <= 0 {
		window = DefaultTailWindow
	}
	src := ch.Source()
	remaining := window
	limited := func(min int) ([]byte, error) {
		if remaining <= 0 {
			return nil, io.EOF
		}
		chunk, err := src(min)
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		remaining -= int64(len(chunk))
		return chunk, err
	}

	off, err := l.Graph.FindStartXRef(limited)
	if err != nil {
		return 0, errors.Wrap(err, "failed to find startxref")
	}
	if off < 0 || off >= ch.Size() {
		return 0, errors.Errorf("startxref offset %d outside file of %d bytes", off, ch.Size())
	}
	return off, nil
}

// Section reads the section at off, a text table or an xref stream.
func (l *Loader) Section(ch *docio.Channel, off int64) (*Section, error) {
	prev := ch.SetMode(docio.RandomAccess)
	defer ch.SetMode(prev)
	if err := ch.Seek(off); err != nil {
		return nil, err
	}

	p := grammar.NewParser(l.Graph, ch.Source(), off)
	if l.Logger != nil {
		p.Logger = l.Logger
	}
	item, err := p.Next()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read token")
	}
	switch {
	case item.Kind == grammar.ItemKeyword && item.Keyword == "xref":
		return ParseText(p, off, IDLimit(ch.Size()))
	case item.Kind == grammar.ItemObject:
		s, ok := item.Object.(*core.Stream)
		if !ok {
			return nil, errors.Errorf("object %d at %d is not a stream", item.Ref.Number, off)
		}
		return ParseStream(item.Ref, s, off, IDLimit(ch.Size()), l.Registry)
	default:
		return nil, errors.Errorf("expected xref or an xref stream at %d", off)
	}
}
