package xref

import (
	"github.com/pkg/errors"

	"github.com/tsawler/pdfpipe/core"
	"github.com/tsawler/pdfpipe/grammar"
	"github.com/tsawler/pdfpipe/internal/filters"
)

// Family is the encoding of a cross-reference section.
type Family int

const (
	// Text is a classic "xref" table followed by a trailer.
	Text Family = iota
	// Binary is an xref stream of packed records.
	Binary
)

// String returns the family name.
func (f Family) String() string {
	if f == Binary {
		return "stream"
	}
	return "table"
}

// Section is one revision's cross-reference section.
type Section struct {
	Offset  int64
	Family  Family
	Ref     core.IndirectRef // the xref stream object, Binary only
	Trailer core.Dict
	Table   *Table
	// Hybrid marks a stream reached through a table's /XRefStm.
	Hybrid bool
	// Skipped counts entries ignored for naming an object number at or
	// beyond the limit the section was parsed with.
	Skipped int
	table   *Section
}

// MaxObjectID is the largest object number any section may name.
const MaxObjectID = 1<<23 - 1

// minIDLimit keeps small inputs from rejecting ordinary sparse numbering.
const minIDLimit = 1024

// IDLimit returns the exclusive bound on object numbers for an input of
// size bytes: one object per byte, at least minIDLimit and at most
// MaxObjectID+1. It keeps a corrupt /Size or subsection start from
// sizing the index.
func IDLimit(size int64) int {
	switch {
	case size < minIDLimit:
		return minIDLimit
	case size > MaxObjectID:
		return MaxObjectID + 1
	}
	return int(size)
}

// sectionKeys are trailer entries that describe one section rather than
// the document.
var sectionKeys = map[string]bool{
	"Prev": true, "XRefStm": true, "Type": true, "W": true, "Index": true,
	"Length": true, "Filter": true, "DecodeParms": true,
}

// ParseText reads a text section after its "xref" keyword: subsections of
// "first count" headers and "offset gen n|f" records, then the trailer.
// Entries for object numbers at or beyond limit are skipped.
func ParseText(p *grammar.Parser, offset int64, limit int) (*Section, error) {
	t := NewTable(TextLayout)
	skipped := 0
	for {
		item, err := p.Next()
		if err != nil {
			return nil, errors.Wrapf(err, "xref table at %d", offset)
		}
		switch item.Kind {
		case grammar.ItemTrailer:
			return &Section{Offset: offset, Family: Text, Trailer: item.Object.(core.Dict), Table: t, Skipped: skipped}, nil
		case grammar.ItemNumber:
		default:
			return nil, errors.Errorf("xref table at %d: unexpected %q at %d", offset, item.Keyword, item.Start)
		}

		first := item.Number
		count, err := number(p)
		if err != nil {
			return nil, errors.Wrapf(err, "xref subsection %d at %d", first, item.Start)
		}
		for i := int64(0); i < count; i++ {
			e, err := textEntry(p)
			if err != nil {
				return nil, errors.Wrapf(err, "xref entry %d", first+i)
			}
			if first+i >= int64(limit) {
				skipped++
				continue
			}
			t.Set(int(first+i), e)
		}
	}
}

func number(p *grammar.Parser) (int64, error) {
	item, err := p.Next()
	if err != nil {
		return 0, err
	}
	if item.Kind != grammar.ItemNumber {
		return 0, errors.Errorf("expected a number at %d, got %q", item.Start, item.Keyword)
	}
	return item.Number, nil
}

func textEntry(p *grammar.Parser) (Entry, error) {
	offset, err := number(p)
	if err != nil {
		return Entry{}, err
	}
	gen, err := number(p)
	if err != nil {
		return Entry{}, err
	}
	item, err := p.Next()
	if err != nil {
		return Entry{}, err
	}
	switch item.Keyword {
	case "n":
		return Entry{Kind: Used, Offset: offset, Gen: int(gen)}, nil
	case "f":
		return Entry{Kind: Free, Offset: offset, Gen: int(gen)}, nil
	default:
		return Entry{}, errors.Errorf("invalid in-use flag %q at %d", item.Keyword, item.Start)
	}
}

// ParseStream decodes an xref stream: /W gives the field widths, /Index
// the covered object ranges (default 0 to /Size). Entries for object
// numbers at or beyond limit are skipped.
func ParseStream(ref core.IndirectRef, s *core.Stream, offset int64, limit int, reg *filters.Registry) (*Section, error) {
	if typ, _ := s.Dict.GetName("Type"); typ != "XRef" {
		return nil, errors.Errorf("object %d at %d is not an xref stream", ref.Number, offset)
	}

	wArr, ok := s.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, errors.Errorf("xref stream %d: invalid /W %v", ref.Number, s.Dict.Get("W"))
	}
	var l Layout
	for i := range l {
		w, ok := wArr.GetInt(i)
		if !ok || w < 0 || w > 8 {
			return nil, errors.Errorf("xref stream %d: invalid /W %v", ref.Number, wArr)
		}
		l[i] = int(w)
	}
	if l.Size() == 0 {
		return nil, errors.Errorf("xref stream %d: empty /W", ref.Number)
	}

	size, ok := s.Dict.GetInt("Size")
	if !ok {
		return nil, errors.Errorf("xref stream %d: missing /Size", ref.Number)
	}
	index := []int64{0, int64(size)}
	if idx, ok := s.Dict.GetArray("Index"); ok {
		if len(idx)%2 != 0 {
			return nil, errors.Errorf("xref stream %d: odd /Index length %d", ref.Number, len(idx))
		}
		index = index[:0]
		for i := range idx {
			v, ok := idx.GetInt(i)
			if !ok || v < 0 {
				return nil, errors.Errorf("xref stream %d: invalid /Index %v", ref.Number, idx)
			}
			index = append(index, int64(v))
		}
	}

	data, err := s.Decode(reg)
	if err != nil {
		return nil, errors.Wrapf(err, "xref stream %d", ref.Number)
	}

	t := NewTable(l)
	recSize := l.Size()
	skipped := 0
	for i := 0; i < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := int64(0); j < count; j++ {
			if len(data) < recSize {
				return nil, errors.Errorf("xref stream %d: data ends before entry %d", ref.Number, first+j)
			}
			e := l.get(data[:recSize])
			data = data[recSize:]
			if e.Kind > Compressed {
				// Unknown types are null references.
				continue
			}
			if first+j >= int64(limit) {
				skipped++
				continue
			}
			t.Set(int(first+j), e)
		}
	}

	return &Section{Offset: offset, Family: Binary, Ref: ref, Trailer: s.Dict, Table: t, Skipped: skipped}, nil
}

// documentKeys returns the trailer entries of d that describe the document.
func documentKeys(d core.Dict) core.Dict {
	out := make(core.Dict, len(d))
	for k, v := range d {
		if !sectionKeys[k] {
			out[k] = v
		}
	}
	return out
}
