package reader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"github.com/tsawler/pdfpipe/core"
	"github.com/tsawler/pdfpipe/docio"
	"github.com/tsawler/pdfpipe/grammar"
	"github.com/tsawler/pdfpipe/internal/filters"
	"github.com/tsawler/pdfpipe/pages"
	"github.com/tsawler/pdfpipe/resolver"
	"github.com/tsawler/pdfpipe/xref"
)

// ErrNotFound is returned for object numbers the cross-reference index
// does not list as in use.
var ErrNotFound = errors.New("object not found")

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v is older than o.
func (v PDFVersion) Less(o PDFVersion) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

// Config carries the collaborators a Reader parses with. Zero fields get a
// freshly built default.
type Config struct {
	Graph    *grammar.Graph
	Registry *filters.Registry
	Logger   *slog.Logger
	// TailWindow bounds the backward search for startxref.
	TailWindow int64
}

func (c Config) withDefaults() Config {
	if c.Graph == nil {
		c.Graph = grammar.New()
	}
	if c.Registry == nil {
		c.Registry = filters.NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Reader loads objects from a PDF by random access through its
// cross-reference index.
type Reader struct {
	ch        *docio.Channel
	file      *os.File
	cfg       Config
	master    *xref.Master
	trailer   core.Dict
	version   PDFVersion
	encrypted bool
	objCache  map[int]core.Object        // Cache for loaded objects
	streams   map[int]*core.ObjectStream // Loaded object streams by container number
	loading   map[int]bool               // Objects being parsed, to stop /Length recursion
	spans     map[int][2]int64           // Byte ranges of objects read from the file
	pageTree  *pages.PageTree            // Cached page tree
}

// Ensure Reader implements pages.ObjectResolver
var _ pages.ObjectResolver = (*Reader)(nil)

// NewReader reads the header and the cross-reference index of the document
// on ch.
func NewReader(ch *docio.Channel, cfg Config) (*Reader, error) {
	cfg = cfg.withDefaults()
	r := &Reader{
		ch:       ch,
		cfg:      cfg,
		objCache: make(map[int]core.Object),
		streams:  make(map[int]*core.ObjectStream),
		loading:  make(map[int]bool),
		spans:    make(map[int][2]int64),
	}

	version, err := r.parseHeader()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	r.version = version

	loader := &xref.Loader{Graph: cfg.Graph, Registry: cfg.Registry, Logger: cfg.Logger, TailWindow: cfg.TailWindow}
	master, err := loader.Load(ch)
	if err != nil {
		return nil, fmt.Errorf("failed to load xref: %w", err)
	}
	r.master = master
	r.trailer = master.Trailer
	r.encrypted = master.Trailer.Has("Encrypt")
	if r.encrypted {
		cfg.Logger.Warn("document is encrypted, stream content stays opaque")
	}

	return r, nil
}

// Open opens a PDF file for reading.
func Open(filename string, cfg Config) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	size, err := docio.SizeOf(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	reader, err := NewReader(docio.New(file, size, nil), cfg)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.file = file

	return reader, nil
}

// Close closes the file opened by Open.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

var headerPattern = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// headerWindow is how far into the file the header may start.
const headerWindow = 1024

// parseHeader parses the PDF header (%PDF-x.y), which may follow some junk.
func (r *Reader) parseHeader() (PDFVersion, error) {
	n := int64(headerWindow)
	if r.ch.Size() < n {
		n = r.ch.Size()
	}
	header := make([]byte, n)
	got, err := r.ch.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return PDFVersion{}, fmt.Errorf("failed to read header: %w", err)
	}

	matches := headerPattern.FindSubmatch(header[:got])
	if matches == nil {
		return PDFVersion{}, fmt.Errorf("invalid PDF header")
	}

	major, _ := strconv.Atoi(string(matches[1]))
	minor, _ := strconv.Atoi(string(matches[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// Version returns the version declared by the file header.
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the merged trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// Master returns the merged cross-reference index.
func (r *Reader) Master() *xref.Master {
	return r.master
}

// Encrypted reports whether the trailer names an /Encrypt dictionary.
func (r *Reader) Encrypted() bool {
	return r.encrypted
}

// ParseObjectAt parses the indirect object definition starting at offset.
// The item's span covers the definition through the end of line after
// endobj. It does not consult or fill the cache.
func (r *Reader) ParseObjectAt(offset int64) (*grammar.Item, error) {
	return r.parseIn(docio.RandomAccess, offset)
}

// ReadObjectAt is ParseObjectAt on the channel's ReadWrite cursor, the way
// a forward traversal reads the definitions it passes.
func (r *Reader) ReadObjectAt(offset int64) (*grammar.Item, error) {
	return r.parseIn(docio.ReadWrite, offset)
}

func (r *Reader) parseIn(mode docio.Mode, offset int64) (*grammar.Item, error) {
	prev := r.ch.SetMode(mode)
	defer r.ch.SetMode(prev)
	if err := r.ch.Seek(offset); err != nil {
		return nil, err
	}

	p := r.Parser(r.ch.Source(), offset)
	item, err := p.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object at %d: %w", offset, err)
	}
	if item.Kind != grammar.ItemObject {
		return nil, fmt.Errorf("no object definition at %d", offset)
	}
	r.markEncrypted(item.Object)
	return item, nil
}

// Parser returns a grammar parser over src whose indirect /Length values
// are resolved through r.
func (r *Reader) Parser(src grammar.Source, base int64) *grammar.Parser {
	p := grammar.NewParser(r.cfg.Graph, src, base)
	p.Length = r.Length
	p.Logger = r.cfg.Logger
	return p
}

// Length resolves a stream /Length given by reference.
func (r *Reader) Length(ref core.IndirectRef) (int64, error) {
	if r.loading[ref.Number] {
		return 0, fmt.Errorf("/Length %s refers to the object being read", ref)
	}
	obj, err := r.GetObject(ref.Number)
	if err != nil {
		return 0, err
	}
	n, ok := obj.(core.Int)
	if !ok || n < 0 {
		return 0, fmt.Errorf("/Length %s is %v, not a non-negative integer", ref, obj)
	}
	return int64(n), nil
}

// markEncrypted flags stream content as ciphertext. Cross-reference
// streams are never encrypted.
func (r *Reader) markEncrypted(obj core.Object) {
	s, ok := obj.(*core.Stream)
	if !ok || !r.encrypted {
		return
	}
	if typ, _ := s.Dict.GetName("Type"); typ != "XRef" {
		s.Encrypted = true
	}
}

// GetObject loads an object by its number
// Uses caching to avoid re-reading objects
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}

	entry, ok := r.master.Get(objNum)
	if !ok || entry.Kind == xref.Free || objNum == 0 {
		return nil, fmt.Errorf("object %d: %w", objNum, ErrNotFound)
	}

	var obj core.Object
	switch entry.Kind {
	case xref.Used:
		r.loading[objNum] = true
		item, err := r.ParseObjectAt(entry.Offset)
		delete(r.loading, objNum)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", objNum, err)
		}
		if item.Ref.Number != objNum {
			return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, item.Ref.Number)
		}
		r.spans[objNum] = [2]int64{item.Start, item.End}
		obj = item.Object

	case xref.Compressed:
		stm, err := r.ObjectStream(entry.Container())
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", objNum, err)
		}
		member, num, err := stm.GetObjectByIndex(entry.Index())
		if err != nil || num != objNum {
			// The index is a hint; fall back to the header.
			member, _, err = stm.GetObjectByNumber(objNum)
		}
		if err != nil {
			return nil, fmt.Errorf("object %d in object stream %d: %w", objNum, entry.Container(), err)
		}
		obj = member
	}

	r.objCache[objNum] = obj
	return obj, nil
}

// Span returns the byte range of an object read from the file body.
func (r *Reader) Span(objNum int) (start, end int64, ok bool) {
	span, ok := r.spans[objNum]
	return span[0], span[1], ok
}

// ObjectStream returns the loaded object stream stored as object num.
func (r *Reader) ObjectStream(num int) (*core.ObjectStream, error) {
	if stm, ok := r.streams[num]; ok {
		return stm, nil
	}
	obj, err := r.GetObject(num)
	if err != nil {
		return nil, err
	}
	s, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is %T, not a stream", num, obj)
	}
	stm, err := core.NewObjectStream(s, r.cfg.Graph.ParseValue)
	if err != nil {
		return nil, err
	}
	if err := stm.Load(r.cfg.Registry); err != nil {
		return nil, fmt.Errorf("object stream %d: %w", num, err)
	}
	r.streams[num] = stm
	return stm, nil
}

// ResolveReference resolves an indirect reference. A reference to a free
// or missing object resolves to null.
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, err := r.GetObject(ref.Number)
	if errors.Is(err, ErrNotFound) {
		return core.Null{}, nil
	}
	return obj, err
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (core.Dict, error) {
	rootRef := r.trailer.Get("Root")
	if rootRef == nil {
		return nil, fmt.Errorf("trailer missing /Root entry")
	}

	ref, ok := rootRef.(core.IndirectRef)
	if !ok {
		return nil, fmt.Errorf("invalid /Root type: %T", rootRef)
	}

	obj, err := r.GetObject(ref.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}

	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}

	return catalog, nil
}

// GetInfo returns the document info dictionary (metadata)
func (r *Reader) GetInfo() (core.Dict, error) {
	infoRef := r.trailer.Get("Info")
	if infoRef == nil {
		return nil, nil // Info is optional
	}

	ref, ok := infoRef.(core.IndirectRef)
	if !ok {
		return nil, fmt.Errorf("invalid /Info type: %T", infoRef)
	}

	obj, err := r.GetObject(ref.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve info: %w", err)
	}

	info, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("info is not a dictionary: %T", obj)
	}

	return info, nil
}

// NumObjects returns the number of object numbers the index covers.
func (r *Reader) NumObjects() int {
	return r.master.Len()
}

// FileSize returns the size of the PDF file in bytes
func (r *Reader) FileSize() int64 {
	return r.ch.Size()
}

// ClearCache clears the object cache
// Useful for freeing memory when processing large PDFs
func (r *Reader) ClearCache() {
	r.objCache = make(map[int]core.Object)
	r.streams = make(map[int]*core.ObjectStream)
}

// CacheSize returns the number of cached objects
func (r *Reader) CacheSize() int {
	return len(r.objCache)
}

// Resolve resolves an object if it's an indirect reference, otherwise returns it as-is
// Implements pages.ObjectResolver interface
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// ResolveDeep expands every indirect reference inside obj. Back-links
// such as a page's /Parent stay references.
// Implements pages.ObjectResolver interface
func (r *Reader) ResolveDeep(obj core.Object) (core.Object, error) {
	return resolver.NewResolver(r).ResolveDeep(obj)
}

// PageCount returns the number of pages in the PDF
func (r *Reader) PageCount() (int, error) {
	tree, err := r.PageTree()
	if err != nil {
		return 0, err
	}
	return tree.Count()
}

// GetPage returns the page with the given number, counting from 1.
func (r *Reader) GetPage(number int) (*pages.Page, error) {
	tree, err := r.PageTree()
	if err != nil {
		return nil, err
	}
	return tree.GetPage(number)
}

// PageTree returns the document's page tree, loading it on first use.
func (r *Reader) PageTree() (*pages.PageTree, error) {
	if r.pageTree != nil {
		return r.pageTree, nil
	}

	catalog, err := r.GetCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	tree, err := pages.NewCatalog(catalog, r).PageTree()
	if err != nil {
		return nil, err
	}
	r.pageTree = tree
	return tree, nil
}
