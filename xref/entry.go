package xref

import "fmt"

// Kind is the type field of a cross-reference entry.
type Kind uint8

const (
	// Free marks an unused object number.
	Free Kind = iota
	// Used marks an object stored at a byte offset.
	Used
	// Compressed marks an object stored inside an object stream.
	Compressed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Free:
		return "free"
	case Used:
		return "used"
	case Compressed:
		return "compressed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entry locates one object. The meaning of Offset and Gen depends on Kind:
//
//	Free:       next free object number, generation to reuse
//	Used:       byte offset, generation
//	Compressed: object stream number, index within the stream
type Entry struct {
	Kind   Kind
	Offset int64
	Gen    int
}

// Container returns the object stream holding a compressed entry.
func (e Entry) Container() int { return int(e.Offset) }

// Index returns a compressed entry's position within its object stream.
func (e Entry) Index() int { return e.Gen }

// String returns a short description of the entry.
func (e Entry) String() string {
	switch e.Kind {
	case Used:
		return fmt.Sprintf("used@%d gen %d", e.Offset, e.Gen)
	case Compressed:
		return fmt.Sprintf("compressed in %d[%d]", e.Offset, e.Gen)
	default:
		return fmt.Sprintf("free next %d gen %d", e.Offset, e.Gen)
	}
}

// Layout holds the byte widths of the three fields of a packed entry, as
// in an xref stream's /W array.
type Layout [3]int

// TextLayout is the starting layout for tables read from text sections.
var TextLayout = Layout{1, 4, 1}

// Size returns the width of one packed record.
func (l Layout) Size() int { return l[0] + l[1] + l[2] }

// Fit returns the narrowest layout at least as wide as l that can hold e.
func (l Layout) Fit(e Entry) Layout {
	need := Layout{width(uint64(e.Kind)), width(uint64(e.Offset)), width(uint64(e.Gen))}
	if need[0] == 0 {
		need[0] = 1
	}
	for i := range l {
		if need[i] > l[i] {
			l[i] = need[i]
		}
	}
	return l
}

// Max returns the field-wise maximum of l and o.
func (l Layout) Max(o Layout) Layout {
	for i := range l {
		if o[i] > l[i] {
			l[i] = o[i]
		}
	}
	return l
}

func width(v uint64) int {
	n := 0
	for v > 0 {
		n++
		v >>= 8
	}
	return n
}

// put writes e as a big-endian record into b, which must be l.Size() long.
func (l Layout) put(b []byte, e Entry) {
	fields := [3]uint64{uint64(e.Kind), uint64(e.Offset), uint64(e.Gen)}
	for i, w := range l {
		v := fields[i]
		for j := w - 1; j >= 0; j-- {
			b[j] = byte(v)
			v >>= 8
		}
		b = b[w:]
	}
}

// get reads a record. A zero-width type field means Used.
func (l Layout) get(b []byte) Entry {
	var fields [3]uint64
	for i, w := range l {
		for _, c := range b[:w] {
			fields[i] = fields[i]<<8 | uint64(c)
		}
		b = b[w:]
	}
	kind := Kind(fields[0])
	if l[0] == 0 {
		kind = Used
	}
	return Entry{Kind: kind, Offset: int64(fields[1]), Gen: int(fields[2])}
}
