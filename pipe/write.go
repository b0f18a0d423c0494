package pipe

import (
	"fmt"

	"github.com/tsawler/pdfpipe/core"
	"github.com/tsawler/pdfpipe/xref"
)

// flushCreated writes the objects created during the session, newest
// first, after running their tasks.
func (s *Session) flushCreated() error {
	s.sealed = true
	for i := len(s.created) - 1; i >= 0; i-- {
		o := s.created[i]
		id := o.ref.Number
		if err := s.runTasks(o); err != nil {
			return err
		}
		o.phase = Committed
		if o.state == Deleted {
			s.out.Set(id, xref.Entry{Kind: xref.Free})
			continue
		}
		at := s.ch.Written()
		if err := s.ch.Insert(core.AppendIndirect(nil, o.ref, o.value)); err != nil {
			return err
		}
		s.out.Set(id, xref.Entry{Kind: xref.Used, Offset: at})
		s.processed++
		s.log.Debug("object appended", "object", id, "offset", at)
	}
	return nil
}

// finish runs the trailer tasks and writes the regenerated index and
// trailer.
func (s *Session) finish() error {
	if err := s.runTasks(s.trailer); err != nil {
		return err
	}
	s.trailer.phase = Committed
	trailer := s.trailer.value.(core.Dict)
	for _, k := range []string{"Prev", "XRefStm"} {
		trailer.Delete(k)
	}

	s.out.Grow(s.nextID)
	s.out.Fill()
	s.out.LinkFree()

	stream := s.streamOutput()
	id, err := s.documentID(trailer)
	if err != nil {
		return err
	}
	if id != nil {
		trailer["ID"] = id
	}

	at := s.ch.Written()
	var section []byte
	if stream {
		ref := core.IndirectRef{Number: s.out.Len()}
		section, err = xref.EncodeStream(s.out, trailer, ref, at, s.cfg.Registry)
	} else {
		trailer["Size"] = core.Int(s.out.Len())
		section, err = xref.EncodeText(s.out, trailer, at)
	}
	if err != nil {
		return fmt.Errorf("writing cross-reference section: %w", err)
	}
	if err := s.ch.Insert(section); err != nil {
		return err
	}
	if err := s.ch.Flush(); err != nil {
		return err
	}
	s.log.Debug("cross-reference section written", "offset", at, "stream", stream, "size", s.out.Len())
	return nil
}

// streamOutput decides the output index family: the input's, unless the
// configuration forces one. Compressed entries need a stream.
func (s *Session) streamOutput() bool {
	stream := s.master.Family == xref.Binary
	switch s.cfg.XRefFormat {
	case FormatTable:
		stream = false
	case FormatStream:
		stream = true
	}
	if !stream {
		for id := 0; id < s.out.Len(); id++ {
			if e, _ := s.out.Get(id); e.Kind == xref.Compressed {
				s.log.Warn("document has compressed objects, writing an index stream")
				return true
			}
		}
	}
	return stream
}

// documentID keeps the first /ID element and replaces the second with a
// hash of everything written so far. A document without an /ID keeps
// none unless Config.AddID is set, in which case the hash is used for
// both. A nil result leaves the trailer as it is.
func (s *Session) documentID(trailer core.Dict) (core.Array, error) {
	var first core.Object
	if old, ok := trailer.GetArray("ID"); ok && len(old) == 2 {
		if v, ok := old[0].(core.String); ok {
			first = v
		}
	}
	if first == nil && !s.cfg.AddID {
		return nil, nil
	}
	if err := s.ch.Flush(); err != nil {
		return nil, err
	}
	sum := core.String(s.hash.Sum(nil)[:16])
	if first == nil {
		first = sum
	}
	return core.Array{first, sum}, nil
}
