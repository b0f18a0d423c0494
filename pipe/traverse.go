package pipe

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfpipe/core"
	"github.com/tsawler/pdfpipe/xref"
)

// Run performs the pass: every object is visited in ascending offset
// order, matching tasks run while it is current, and it is written out
// and frozen before the traversal moves on. Created objects follow the
// last original object, then the regenerated index and trailer. Run
// returns the number of objects written.
//
// On error or Abort the output is left without an index and must be
// discarded.
func (s *Session) Run() (int, error) {
	if s.state != ready {
		return s.processed, ErrFinished
	}
	s.state = running
	if err := s.run(); err != nil {
		s.state = failed
		if ferr := s.ch.Flush(); ferr != nil {
			s.log.Warn("flushing partial output", "error", ferr)
		}
		if errors.Is(err, ErrAborted) {
			s.log.Info("run aborted", "processed", s.processed)
		} else {
			s.log.Error("run failed", "processed", s.processed, "error", err)
		}
		return s.processed, err
	}
	s.state = finished
	return s.processed, nil
}

func (s *Session) run() error {
	objs := s.master.ByOffset()
	for i, o := range objs {
		if err := s.visit(o, i == len(objs)-1); err != nil {
			return err
		}
	}
	// The old index and trailer are replaced.
	if err := s.ch.SkipTo(s.ch.Size()); err != nil {
		return err
	}
	if err := s.flushCreated(); err != nil {
		return err
	}
	return s.finish()
}

// visit handles the object stored at o's offset, preceded by the members
// of the object stream it may be.
func (s *Session) visit(o xref.Object, last bool) error {
	start := o.Entry.Offset
	if start < s.ch.Copied() || start >= s.ch.Size() {
		s.log.Warn("object offset overlaps a previous definition or lies past the end, freeing it",
			"object", o.ID, "offset", start)
		s.out.Set(o.ID, xref.Entry{Kind: xref.Free, Gen: o.Entry.Gen})
		s.done[o.ID] = true
		return nil
	}
	if err := s.ch.PassTo(start); err != nil {
		return err
	}
	at := s.ch.Written()

	for _, m := range s.master.Members(o.ID) {
		if err := s.visitMember(o.ID, m); err != nil {
			return err
		}
	}

	if !last && !s.rebuild[o.ID] && !s.wants(o.ID) {
		s.out.Set(o.ID, xref.Entry{Kind: xref.Used, Offset: at, Gen: o.Entry.Gen})
		s.done[o.ID] = true
		s.processed++
		return nil
	}

	item, err := s.rd.ReadObjectAt(start)
	if err != nil {
		return fmt.Errorf("object %d: %w", o.ID, err)
	}
	if item.Ref.Number != o.ID {
		return fmt.Errorf("object %d: offset %d holds object %d", o.ID, start, item.Ref.Number)
	}
	obj := s.newObject(item.Ref, Regular, item.Object)
	obj.start, obj.end = item.Start, item.End
	if s.rebuild[o.ID] {
		if err := s.rebuildContainer(obj); err != nil {
			return err
		}
	}
	if err := s.runTasks(obj); err != nil {
		return err
	}
	if err := s.commit(obj, at); err != nil {
		return err
	}
	if last && s.ch.Copied() < obj.end {
		return s.ch.PassTo(obj.end)
	}
	return nil
}

// visitMember runs the tasks of an object stored in container. Edited
// members mark the container for re-encoding.
func (s *Session) visitMember(container int, m xref.Object) error {
	defer func() {
		s.out.Set(m.ID, m.Entry)
		s.done[m.ID] = true
		s.processed++
	}()
	if !s.wants(m.ID) {
		return nil
	}
	v, err := s.rd.GetObject(m.ID)
	if err != nil {
		s.log.Warn("compressed object unreadable, its tasks are skipped",
			"object", m.ID, "container", container, "error", err)
		return nil
	}
	obj := s.newObject(core.IndirectRef{Number: m.ID}, Compressed, core.Clone(v))
	if err := s.runTasks(obj); err != nil {
		return err
	}
	obj.phase = Committed
	if obj.Modified() {
		s.objects[m.ID] = obj
		s.rebuild[container] = true
	} else {
		delete(s.objects, m.ID)
	}
	return nil
}

// rebuildContainer re-encodes an object stream with its edited members.
// Entries that no longer point into the container keep their old values
// so every member keeps its index.
func (s *Session) rebuildContainer(obj *Object) error {
	id := obj.ref.Number
	st, ok := obj.value.(*core.Stream)
	if !ok {
		return fmt.Errorf("object stream %d is %T, not a stream", id, obj.value)
	}
	orig, err := s.rd.ObjectStream(id)
	if err != nil {
		return fmt.Errorf("object stream %d: %w", id, err)
	}
	numbers, err := orig.ObjectNumbers()
	if err != nil {
		return fmt.Errorf("object stream %d: %w", id, err)
	}

	members := make([]core.Member, len(numbers))
	for i, n := range numbers {
		v, _, err := orig.GetObjectByIndex(i)
		if err != nil {
			return fmt.Errorf("object stream %d member %d: %w", id, i, err)
		}
		e, _ := s.master.Get(n)
		if edited, ok := s.objects[n]; ok && e.Kind == xref.Compressed && e.Container() == id && e.Index() == i {
			v = edited.value
		}
		members[i] = core.Member{Number: n, Object: v}
	}

	stm, err := core.NewObjectStream(st, s.cfg.Graph.ParseValue)
	if err != nil {
		return fmt.Errorf("object stream %d: %w", id, err)
	}
	if err := stm.Rebuild(s.cfg.Registry, members); err != nil {
		return fmt.Errorf("re-encoding object stream %d: %w", id, err)
	}
	s.log.Debug("object stream rebuilt", "object", id, "members", len(members))
	return nil
}

// wants reports whether any live task could match object id.
func (s *Session) wants(id int) bool {
	if _, ok := s.objects[id]; ok {
		return true
	}
	for _, q := range s.order {
		if q.live == 0 {
			continue
		}
		switch q.pred.kind {
		case byID:
			if q.pred.id == id {
				return true
			}
		case isRoot:
			if id == s.root {
				return true
			}
		case isInfo:
			if id == s.info {
				return true
			}
		case byType:
			return true
		case byPage:
			if s.pageOf[id] == q.pred.id {
				return true
			}
		}
	}
	return false
}

func (s *Session) matches(p Predicate, o *Object) bool {
	if o.class == Trailer {
		return p.kind == isTrailer
	}
	n := o.ref.Number
	switch p.kind {
	case byID:
		return n == p.id
	case isRoot:
		return n == s.root
	case isInfo:
		return s.info > 0 && n == s.info
	case byType:
		return o.Type() == p.name
	case byPage:
		return s.pageOf[n] == p.id
	}
	return false
}

// runTasks makes o current and runs every matching task. Queues are
// scanned in the order they were created, so tasks enqueued while the
// chain runs are picked up.
func (s *Session) runTasks(o *Object) error {
	o.phase = Current
	if o.class != Trailer {
		s.objects[o.ref.Number] = o
	}
	defer s.compact()

	for qi := 0; qi < len(s.order); qi++ {
		q := s.order[qi]
		if q.live == 0 || !s.matches(q.pred, o) {
			continue
		}
	chain:
		for ti := 0; ti < len(q.tasks); ti++ {
			t := q.tasks[ti]
			if t.removed {
				continue
			}
			switch t.fn(o) {
			case SkipRest:
				break chain
			case Abort:
				return ErrAborted
			case RemoveSelf:
				q.remove(t)
			}
			if o.state == Deleted {
				return nil
			}
		}
	}
	return nil
}

func (s *Session) compact() {
	for _, q := range s.order {
		q.compact()
	}
}

// commit writes a visited regular object at output offset at and
// freezes it.
func (s *Session) commit(o *Object, at int64) error {
	id := o.ref.Number
	o.phase = Committed
	s.done[id] = true
	s.processed++

	switch {
	case o.state == Deleted:
		if err := s.ch.SkipTo(o.end); err != nil {
			return err
		}
		gen := o.ref.Generation
		if gen < 65535 {
			gen++
		}
		s.out.Set(id, xref.Entry{Kind: xref.Free, Gen: gen})
		s.log.Debug("object deleted", "object", id)
		return nil
	case o.Modified():
		buf := core.AppendIndirect(nil, o.ref, o.value)
		if err := s.ch.Replace(o.start, o.end, buf); err != nil {
			return err
		}
		s.log.Debug("object rewritten", "object", id, "bytes", len(buf))
	default:
		delete(s.objects, id)
	}
	s.out.Set(id, xref.Entry{Kind: xref.Used, Offset: at, Gen: o.ref.Generation})
	return nil
}
