package xref

import (
	"log/slog"
	"sort"

	"github.com/tsawler/pdfpipe/core"
)

// Master is the merged index of every revision of a document.
type Master struct {
	*Table
	// Trailer holds the document entries (Root, Info, Encrypt, ID, Size),
	// each taken from the newest section that supplies it.
	Trailer core.Dict
	// Sections are the merged sections, oldest first.
	Sections []*Section
	// Dropped are sections discarded as inconsistent.
	Dropped []*Section
	// StartXRef is the offset the file's final startxref points at.
	StartXRef  int64
	Linearized bool
	// Family is the encoding the index is written back in.
	Family Family
}

// Merge builds the master index from sections in discovery order, newest
// first, with a hybrid file's stream section ahead of the table that names
// it. Two sections whose newer one precedes the older in the file are a
// linearized pair and are united. Otherwise any section located after the
// newest one is stale and dropped. A declared /Size larger than limit is
// ignored.
func Merge(chain []*Section, limit int, logger *slog.Logger) *Master {
	if logger == nil {
		logger = discardLogger
	}
	m := &Master{Trailer: make(core.Dict)}
	if len(chain) == 0 {
		m.Table = NewTable(TextLayout)
		return m
	}

	head := chain[0]
	for _, s := range chain {
		if !s.Hybrid {
			head = s
			break
		}
	}
	m.StartXRef = head.Offset
	m.Family = head.Family

	kept := chain
	if len(chain) == 2 && !chain[0].Hybrid && !chain[1].Hybrid && chain[0].Offset < chain[1].Offset {
		m.Linearized = true
		logger.Debug("linearized cross-reference sections", "first", chain[0].Offset, "main", chain[1].Offset)
	} else {
		kept = make([]*Section, 0, len(chain))
		dropped := make(map[*Section]bool)
		for _, s := range chain {
			if s.Offset > m.StartXRef || (s.Hybrid && dropped[s.table]) {
				logger.Warn("dropping cross-reference section beyond the newest",
					"offset", s.Offset, "newest", m.StartXRef)
				m.Dropped = append(m.Dropped, s)
				dropped[s] = true
				continue
			}
			kept = append(kept, s)
		}
	}

	// Oldest first so newer entries overwrite.
	m.Sections = make([]*Section, len(kept))
	for i, s := range kept {
		m.Sections[len(kept)-1-i] = s
	}

	size := 0
	for _, s := range kept {
		if s.Table.Len() > size {
			size = s.Table.Len()
		}
	}
	m.Table = NewTable(TextLayout)
	m.Table.Grow(size)
	for _, s := range m.Sections {
		m.Table.Merge(s.Table)
	}

	for _, s := range kept {
		for k, v := range documentKeys(s.Trailer) {
			if !m.Trailer.Has(k) {
				m.Trailer[k] = v
			}
		}
	}
	if declared, ok := m.Trailer.GetInt("Size"); ok && int64(declared) > int64(m.Table.Len()) {
		if int64(declared) > int64(limit) {
			logger.Warn("ignoring trailer /Size beyond the object number limit", "size", int64(declared), "limit", limit)
		} else {
			m.Table.Grow(int(declared))
		}
	}

	// The index streams themselves are regenerated, so their numbers are
	// released.
	for _, s := range kept {
		if s.Family != Binary {
			continue
		}
		if e, ok := m.Table.Get(s.Ref.Number); ok && e.Kind == Used && e.Gen == s.Ref.Generation {
			m.Table.Set(s.Ref.Number, Entry{Kind: Free, Gen: e.Gen + 1})
		}
	}
	m.Table.Fill()
	if m.hasCompressed() {
		m.Family = Binary
	}
	return m
}

func (m *Master) hasCompressed() bool {
	for id := 0; id < m.Len(); id++ {
		if e, _ := m.Get(id); e.Kind == Compressed {
			return true
		}
	}
	return false
}

// Object is a located object number.
type Object struct {
	ID    int
	Entry Entry
}

// ByOffset returns the used entries sorted by byte offset.
func (m *Master) ByOffset() []Object {
	var objs []Object
	for id := 1; id < m.Len(); id++ {
		if e, ok := m.Get(id); ok && e.Kind == Used {
			objs = append(objs, Object{ID: id, Entry: e})
		}
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Entry.Offset < objs[j].Entry.Offset })
	return objs
}

// Members returns the compressed entries stored in container, ordered by
// index.
func (m *Master) Members(container int) []Object {
	var objs []Object
	for id := 1; id < m.Len(); id++ {
		if e, ok := m.Get(id); ok && e.Kind == Compressed && e.Container() == container {
			objs = append(objs, Object{ID: id, Entry: e})
		}
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Entry.Index() < objs[j].Entry.Index() })
	return objs
}
