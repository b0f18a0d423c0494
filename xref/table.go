package xref

// Table maps object numbers to entries, stored as packed fixed-width
// records. The layout only grows: an entry too wide for it re-encodes the
// whole table at the wider layout.
type Table struct {
	layout  Layout
	records []byte
	present []bool
}

// NewTable returns an empty table with the given starting layout.
func NewTable(l Layout) *Table {
	return &Table{layout: l}
}

// Layout returns the current record layout.
func (t *Table) Layout() Layout { return t.layout }

// Len returns one more than the highest object number the table covers.
func (t *Table) Len() int { return len(t.present) }

// Count returns the number of object numbers with an entry.
func (t *Table) Count() int {
	n := 0
	for _, p := range t.present {
		if p {
			n++
		}
	}
	return n
}

// Get returns the entry for id.
func (t *Table) Get(id int) (Entry, bool) {
	if id < 0 || id >= len(t.present) || !t.present[id] {
		return Entry{}, false
	}
	size := t.layout.Size()
	return t.layout.get(t.records[id*size : (id+1)*size]), true
}

// Set stores e under id, growing the table and its layout as needed.
// Negative ids are ignored.
func (t *Table) Set(id int, e Entry) {
	if id < 0 {
		return
	}
	if l := t.layout.Fit(e); l != t.layout {
		t.relayout(l)
	}
	t.Grow(id + 1)
	size := t.layout.Size()
	t.layout.put(t.records[id*size:(id+1)*size], e)
	t.present[id] = true
}

// Grow extends the table to cover n object numbers.
func (t *Table) Grow(n int) {
	if n <= len(t.present) {
		return
	}
	size := t.layout.Size()
	t.records = append(t.records, make([]byte, (n-len(t.present))*size)...)
	t.present = append(t.present, make([]bool, n-len(t.present))...)
}

// Widen re-encodes the table so its layout is at least l.
func (t *Table) Widen(l Layout) {
	if w := t.layout.Max(l); w != t.layout {
		t.relayout(w)
	}
}

func (t *Table) relayout(l Layout) {
	old, oldSize := t.layout, t.layout.Size()
	size := l.Size()
	records := make([]byte, len(t.present)*size)
	for id, p := range t.present {
		if p {
			l.put(records[id*size:(id+1)*size], old.get(t.records[id*oldSize:(id+1)*oldSize]))
		}
	}
	t.layout = l
	t.records = records
}

// Merge copies every entry of newer over t.
func (t *Table) Merge(newer *Table) {
	t.Widen(newer.layout)
	for id := range newer.present {
		if e, ok := newer.Get(id); ok {
			t.Set(id, e)
		}
	}
}

// Clone returns an independent copy of t.
func (t *Table) Clone() *Table {
	return &Table{
		layout:  t.layout,
		records: append([]byte(nil), t.records...),
		present: append([]bool(nil), t.present...),
	}
}

// Equal reports whether t and o hold the same entries, regardless of layout.
func (t *Table) Equal(o *Table) bool {
	n := t.Len()
	if o.Len() > n {
		n = o.Len()
	}
	for id := 0; id < n; id++ {
		a, aok := t.Get(id)
		b, bok := o.Get(id)
		if aok != bok || a != b {
			return false
		}
	}
	return true
}

// Subsections returns runs of consecutive object numbers with entries as
// [first, count] pairs.
func (t *Table) Subsections() [][2]int {
	var runs [][2]int
	for id := 0; id < len(t.present); id++ {
		if !t.present[id] {
			continue
		}
		start := id
		for id < len(t.present) && t.present[id] {
			id++
		}
		runs = append(runs, [2]int{start, id - start})
	}
	return runs
}

// Fill gives every object number below Len without an entry a free entry.
func (t *Table) Fill() {
	for id, p := range t.present {
		if !p {
			t.Set(id, Entry{Kind: Free})
		}
	}
}

// LinkFree chains the free entries into the free list: each points at the
// next free object number and the last points back to 0. Object 0 heads
// the list with generation 65535.
func (t *Table) LinkFree() {
	t.Grow(1)
	head, _ := t.Get(0)
	head.Kind = Free
	head.Gen = 65535
	t.Set(0, head)

	prev := 0
	for id := 1; id < len(t.present); id++ {
		e, ok := t.Get(id)
		if !ok || e.Kind != Free {
			continue
		}
		p, _ := t.Get(prev)
		p.Offset = int64(id)
		t.Set(prev, p)
		prev = id
	}
	last, _ := t.Get(prev)
	last.Offset = 0
	t.Set(prev, last)
}

// Records returns the packed records for the given run of object numbers.
func (t *Table) Records(first, count int) []byte {
	size := t.layout.Size()
	return t.records[first*size : (first+count)*size]
}
