package pdfpipe

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/tsawler/pdfpipe/core"
	"github.com/tsawler/pdfpipe/docio"
	"github.com/tsawler/pdfpipe/pipe"
)

// setupFunc prepares a session before it runs.
type setupFunc func(*pipe.Session) error

// Pipeline provides a fluent interface for configuring a pass over a PDF.
// Each configuration method returns a new Pipeline instance, so a partly
// configured Pipeline can be reused as a template.
type Pipeline struct {
	// Source
	filename string
	in       io.ReaderAt
	size     int64

	// Lifecycle
	file *os.File // set while a terminal operation holds the file open

	// Configuration
	options Options
	setup   []setupFunc

	// Accumulated error (fail-fast)
	err error
}

// clone creates a shallow copy of the Pipeline with its own setup list.
// This ensures immutability - each chain method returns a new instance.
func (p *Pipeline) clone() *Pipeline {
	return &Pipeline{
		filename: p.filename,
		in:       p.in,
		size:     p.size,
		options:  p.options.clone(),
		setup:    append([]setupFunc(nil), p.setup...),
		err:      p.err,
	}
}

func (p *Pipeline) then(fn setupFunc) *Pipeline {
	np := p.clone()
	np.setup = append(np.setup, fn)
	return np
}

// ensureInput opens the input file if the Pipeline has one.
func (p *Pipeline) ensureInput() error {
	if p.in != nil {
		return nil
	}
	if p.filename == "" {
		return fmt.Errorf("no input specified")
	}
	f, err := os.Open(p.filename)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	size, err := docio.SizeOf(f)
	if err != nil {
		f.Close()
		return err
	}
	p.file = f
	p.in = f
	p.size = size
	return nil
}

// close releases a file opened by ensureInput.
func (p *Pipeline) close() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	p.in = nil
	return err
}

// open starts a session on a private copy of p, so the Pipeline itself is
// never modified by a terminal operation.
func (p *Pipeline) open(out io.Writer) (*Pipeline, *pipe.Session, *warningLog, error) {
	if p.err != nil {
		return nil, nil, nil, p.err
	}
	run := p.clone()
	if err := run.ensureInput(); err != nil {
		return nil, nil, nil, err
	}
	warn := &warningLog{}
	s, err := pipe.Open(run.options.config(warn), run.in, run.size, out)
	if err != nil {
		run.close()
		return nil, nil, warn, fmt.Errorf("failed to open PDF: %w", err)
	}
	return run, s, warn, nil
}

// ============================================================================
// Configuration Methods (return new Pipeline instance)
// ============================================================================

// XRefFormat sets the family of the regenerated cross-reference section.
//
// Example:
//
//	pdfpipe.Open("in.pdf").XRefFormat(pipe.FormatStream).WriteFile("out.pdf")
func (p *Pipeline) XRefFormat(f pipe.Format) *Pipeline {
	np := p.clone()
	np.options.xrefFormat = f
	return np
}

// CompressionLevel sets the Flate level for re-encoded streams.
func (p *Pipeline) CompressionLevel(level int) *Pipeline {
	np := p.clone()
	if level < -1 || level > 9 {
		np.err = fmt.Errorf("compression level %d outside -1..9", level)
	}
	np.options.compressionLevel = level
	return np
}

// BufferSize sets the chunk the input is read in.
func (p *Pipeline) BufferSize(n int) *Pipeline {
	np := p.clone()
	np.options.bufferSize = n
	return np
}

// AddID gives the output an /ID when the input has none. An existing /ID
// is always kept and has its second element refreshed.
func (p *Pipeline) AddID() *Pipeline {
	np := p.clone()
	np.options.addID = true
	return np
}

// Logger sets the logger the pass reports to. Warnings are returned by the
// terminal operations whether or not a logger is set.
func (p *Pipeline) Logger(l *slog.Logger) *Pipeline {
	np := p.clone()
	np.options.logger = l
	return np
}

// On adds a task run on every object matching pred.
//
// Example:
//
//	pdfpipe.Open("in.pdf").On(pipe.IsRoot(), func(o *pipe.Object) pipe.Result {
//	    d, _ := o.Dict()
//	    d["PageLayout"] = core.Name("TwoColumnLeft")
//	    return pipe.Continue
//	}).WriteFile("out.pdf")
func (p *Pipeline) On(pred pipe.Predicate, fn pipe.TaskFunc) *Pipeline {
	return p.then(func(s *pipe.Session) error {
		s.Enqueue(pred, fn)
		return nil
	})
}

// Strip removes every object whose /Type is one of types. Objects stored
// in object streams cannot be removed and are replaced by null.
//
// Example:
//
//	pdfpipe.Open("in.pdf").Strip("Annot", "Metadata").WriteFile("out.pdf")
func (p *Pipeline) Strip(types ...string) *Pipeline {
	types = append([]string(nil), types...)
	return p.then(func(s *pipe.Session) error {
		for _, t := range types {
			s.Enqueue(pipe.ByType(t), stripObject)
		}
		return nil
	})
}

func stripObject(o *pipe.Object) pipe.Result {
	if o.Class() == pipe.Compressed {
		o.Set(core.Null{})
	} else {
		o.Delete()
	}
	return pipe.Continue
}

// SetInfo sets a text entry of the document information dictionary.
//
// Example:
//
//	pdfpipe.Open("in.pdf").SetInfo("Title", "Report").WriteFile("out.pdf")
func (p *Pipeline) SetInfo(key, value string) *Pipeline {
	return p.then(func(s *pipe.Session) error {
		s.SetInfo(key, value)
		return nil
	})
}

// InsertPage inserts page so that it becomes page number at (1-indexed).
// An out-of-range page number is reported as an error.
func (p *Pipeline) InsertPage(at int, page core.Dict) *Pipeline {
	page = core.Clone(page).(core.Dict)
	return p.then(func(s *pipe.Session) error {
		tree, err := s.Reader().PageTree()
		if err != nil {
			return err
		}
		pages, err := tree.Pages()
		if err != nil {
			return err
		}
		if count := len(pages); at < 1 || at > count+1 {
			return fmt.Errorf("insert page %d: outside 1..%d", at, len(pages)+1)
		}
		_, err = s.InsertPage(at, page)
		return err
	})
}

// ============================================================================
// Terminal Operations (run the pass and return results)
// ============================================================================

// Result summarizes a completed pass.
type Result struct {
	// Objects is the number of objects written.
	Objects int
	// Bytes is the size of the output.
	Bytes int64
}

// WriteTo runs the pass, writing the output to w. If the pass fails, what
// was written to w is incomplete and must be discarded.
func (p *Pipeline) WriteTo(w io.Writer) (Result, []Warning, error) {
	cw := &countingWriter{w: w}
	run, s, warn, err := p.open(cw)
	if err != nil {
		return Result{}, warnings(warn), err
	}
	defer run.close()

	for _, fn := range run.setup {
		if err := fn(s); err != nil {
			return Result{}, warn.list(), err
		}
	}
	n, err := s.Run()
	return Result{Objects: n, Bytes: cw.n}, warn.list(), err
}

// WriteFile runs the pass into a temporary file next to path and renames
// it into place once the pass has succeeded, so a failed pass never leaves
// a finished-looking file behind.
//
// Example:
//
//	res, warnings, err := pdfpipe.Open("in.pdf").WriteFile("out.pdf")
func (p *Pipeline) WriteFile(path string) (Result, []Warning, error) {
	if p.err != nil {
		return Result{}, nil, p.err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return Result{}, nil, fmt.Errorf("failed to create output: %w", err)
	}
	res, warnings, err := p.WriteTo(tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output: %w", cerr)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return res, warnings, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return res, warnings, fmt.Errorf("failed to move output into place: %w", err)
	}
	return res, warnings, nil
}

// Info describes a document without rewriting it.
type Info struct {
	Version    string
	Objects    int
	Pages      int
	Sections   int
	XRefFormat string
	Linearized bool
	Encrypted  bool
	// Metadata holds the text entries of the information dictionary.
	Metadata map[string]string
}

// MetadataKeys returns the Metadata keys in sorted order.
func (i *Info) MetadataKeys() []string {
	keys := make([]string, 0, len(i.Metadata))
	for k := range i.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Inspect reads the document's index, page tree and information
// dictionary.
//
// Example:
//
//	info, err := pdfpipe.Open("document.pdf").Inspect()
//	fmt.Println(info.Version, info.Pages)
func (p *Pipeline) Inspect() (*Info, error) {
	run, s, _, err := p.open(nil)
	if err != nil {
		return nil, err
	}
	defer run.close()

	r := s.Reader()
	m := s.Master()
	info := &Info{
		Version:    r.Version().String(),
		Objects:    r.NumObjects(),
		Sections:   len(m.Sections),
		XRefFormat: m.Family.String(),
		Linearized: m.Linearized,
		Encrypted:  r.Encrypted(),
		Metadata:   make(map[string]string),
	}
	if catalog, err := r.GetCatalog(); err == nil {
		if v, ok := catalog.GetName("Version"); ok && string(v) > info.Version {
			info.Version = string(v)
		}
	}
	if pages, err := r.PageCount(); err == nil {
		info.Pages = pages
	}
	if dict, err := r.GetInfo(); err == nil {
		for k, v := range dict {
			if str, ok := v.(core.String); ok {
				info.Metadata[k] = str.Text()
			}
		}
	}
	return info, nil
}

// PageCount returns the number of pages declared by the page tree.
func (p *Pipeline) PageCount() (int, error) {
	run, s, _, err := p.open(nil)
	if err != nil {
		return 0, err
	}
	defer run.close()
	return s.Reader().PageCount()
}

func warnings(l *warningLog) []Warning {
	if l == nil {
		return nil
	}
	return l.list()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
