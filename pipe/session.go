package pipe

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/tsawler/pdfpipe/core"
	"github.com/tsawler/pdfpipe/docio"
	"github.com/tsawler/pdfpipe/reader"
	"github.com/tsawler/pdfpipe/resolver"
	"github.com/tsawler/pdfpipe/xref"
)

type runState int

const (
	ready runState = iota
	running
	finished
	failed
)

// Session is one forward pass from an input document to an output.
// A session is not safe for concurrent use.
type Session struct {
	cfg    *Config
	log    *slog.Logger
	ch     *docio.Channel
	rd     *reader.Reader
	master *xref.Master
	hash   *blake3.Hasher

	queues map[Predicate]*queue
	order  []*queue

	objects map[int]*Object // created, current and modified committed objects
	done    []bool          // original objects the traversal has passed
	created []*Object
	sealed  bool // created objects are being flushed
	nextID  int
	trailer *Object
	newInfo *Object

	root, info int
	pageOf     map[int]int // object number to page number
	rebuild    map[int]bool

	out       *xref.Table
	state     runState
	processed int
}

// Open reads the index of size bytes of in and prepares a pass writing to
// out. A nil out makes a read-only session whose output is discarded.
func Open(cfg *Config, in io.ReaderAt, size int64, out io.Writer) (*Session, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	h := blake3.New()
	var w io.Writer = h
	if out != nil {
		w = io.MultiWriter(out, h)
	}
	ch := docio.New(in, size, w, docio.WithChunkSize(cfg.BufferSize))
	rd, err := reader.NewReader(ch, cfg.reader())
	if err != nil {
		return nil, err
	}

	m := rd.Master()
	s := &Session{
		cfg:     cfg,
		log:     cfg.Logger,
		ch:      ch,
		rd:      rd,
		master:  m,
		hash:    h,
		queues:  make(map[Predicate]*queue),
		objects: make(map[int]*Object),
		done:    make([]bool, m.Len()),
		nextID:  m.Len(),
		rebuild: make(map[int]bool),
		out:     xref.NewTable(xref.TextLayout),
	}
	if ref, ok := m.Trailer.GetIndirectRef("Root"); ok {
		s.root = ref.Number
	}
	if ref, ok := m.Trailer.GetIndirectRef("Info"); ok {
		s.info = ref.Number
	}
	s.trailer = s.newObject(core.IndirectRef{}, Trailer, core.Clone(m.Trailer))

	s.log.Debug("session opened",
		"version", rd.Version().String(),
		"objects", m.Len(),
		"sections", len(m.Sections),
		"family", m.Family.String(),
		"linearized", m.Linearized)
	return s, nil
}

// Reader returns the random-access reader over the input.
func (s *Session) Reader() *reader.Reader { return s.rd }

// Master returns the merged cross-reference index of the input.
func (s *Session) Master() *xref.Master { return s.master }

// Enqueue adds fn to the tasks of p. Tasks may be enqueued at any time,
// including from inside a running task. A task for an object the
// traversal has already written never runs.
func (s *Session) Enqueue(p Predicate, fn TaskFunc) {
	q, ok := s.queues[p]
	if !ok {
		q = &queue{pred: p}
		s.queues[p] = q
		s.order = append(s.order, q)
	}
	q.push(fn)
	if p.kind == byPage {
		s.loadPages()
	}
}

func (s *Session) loadPages() {
	if s.pageOf != nil {
		return
	}
	s.pageOf = make(map[int]int)
	tree, err := s.rd.PageTree()
	if err == nil {
		var numbers map[int]int
		numbers, err = tree.Numbers()
		if err == nil {
			s.pageOf = numbers
		}
	}
	if err != nil {
		s.log.Warn("page tree unavailable, page tasks will not run", "error", err)
	}
}

// committed reports whether the traversal has passed object id.
func (s *Session) committed(id int) bool {
	if o, ok := s.objects[id]; ok {
		return o.phase == Committed
	}
	return id < len(s.done) && s.done[id]
}

// Fetch returns object id for reading. A current object is returned as
// the one being edited; any other object is a frozen snapshot whose Value
// is a copy. Objects not in the document give ErrNotFound.
func (s *Session) Fetch(id int) (*Object, error) {
	if o, ok := s.objects[id]; ok {
		return o, nil
	}
	e, ok := s.master.Get(id)
	if !ok || id == 0 || e.Kind == xref.Free {
		return nil, fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	v, err := s.rd.GetObject(id)
	if err != nil {
		return nil, err
	}
	class, gen := Regular, e.Gen
	if e.Kind == xref.Compressed {
		class, gen = Compressed, 0
	}
	o := s.newObject(core.IndirectRef{Number: id, Generation: gen}, class, core.Clone(v))
	if s.committed(id) {
		o.phase = Committed
	}
	return o, nil
}

// GetObject returns the value of object id as the session currently sees
// it. Together with ResolveReference it lets a resolver follow references
// through the session.
func (s *Session) GetObject(id int) (core.Object, error) {
	o, err := s.Fetch(id)
	if err != nil {
		return nil, err
	}
	return o.Value(), nil
}

// ResolveReference returns the value ref points at, or null when the
// object does not exist.
func (s *Session) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	v, err := s.GetObject(ref.Number)
	if errors.Is(err, ErrNotFound) {
		return core.Null{}, nil
	}
	return v, err
}

// Resolve replaces every reference inside obj with the value it points at.
func (s *Session) Resolve(obj core.Object) (core.Object, error) {
	return resolver.NewResolver(s).ResolveDeep(obj)
}

// Append adds a new object. It stays current, and editable, until it is
// written after the last original object. Created objects are written in
// reverse creation order.
func (s *Session) Append(v core.Object) *Object {
	if s.sealed || s.state == finished || s.state == failed {
		violation("append", 0, "objects can no longer be added")
	}
	if v == nil {
		v = core.Null{}
	}
	o := s.newObject(core.IndirectRef{Number: s.nextID}, Regular, v)
	o.print = nil
	o.phase = Current
	s.nextID++
	s.objects[o.ref.Number] = o
	s.created = append(s.created, o)
	return o
}

// Processed returns the number of objects written so far.
func (s *Session) Processed() int { return s.processed }
