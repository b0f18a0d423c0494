package pipe

import (
	"bytes"
	"fmt"

	"github.com/tsawler/pdfpipe/core"
)

// Class says where an object's definition lives.
type Class int

const (
	// Regular objects are written as "n g obj ... endobj" in the file body.
	Regular Class = iota
	// Compressed objects are stored inside an object stream.
	Compressed
	// Trailer is the trailer dictionary written after the index.
	Trailer
)

func (c Class) String() string {
	switch c {
	case Regular:
		return "regular"
	case Compressed:
		return "compressed"
	case Trailer:
		return "trailer"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// State is an object's lifecycle.
type State int

const (
	// Unparsed objects have a location but no value yet.
	Unparsed State = iota
	// Instantiated objects carry a parsed or created value.
	Instantiated
	// Deleted objects are dropped from the output and freed in the index.
	Deleted
)

func (s State) String() string {
	switch s {
	case Unparsed:
		return "unparsed"
	case Instantiated:
		return "instantiated"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Phase is an object's position relative to the traversal.
type Phase int

const (
	// Pending objects lie ahead of the traversal. They can be read but not
	// edited.
	Pending Phase = iota
	// Current objects are being visited. Tasks edit them in place.
	Current
	// Committed objects have been written and are frozen.
	Committed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Current:
		return "current"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Object is a document object as a session sees it.
type Object struct {
	s     *Session
	ref   core.IndirectRef
	class Class
	state State
	phase Phase

	value core.Object
	print []byte // serialization when the value was loaded

	start, end int64 // input span of a regular definition
}

func (s *Session) newObject(ref core.IndirectRef, class Class, value core.Object) *Object {
	return &Object{
		s:     s,
		ref:   ref,
		class: class,
		state: Instantiated,
		value: value,
		print: fingerprint(value),
	}
}

// fingerprint serializes v without touching a stream's /Length.
func fingerprint(v core.Object) []byte {
	if s, ok := v.(*core.Stream); ok {
		buf := core.AppendObject(nil, s.Dict)
		buf = append(buf, "stream"...)
		return append(buf, s.Data...)
	}
	return core.AppendObject(nil, v)
}

// Ref returns the object's identity. The trailer has none.
func (o *Object) Ref() core.IndirectRef { return o.ref }

// Number returns the object number.
func (o *Object) Number() int { return o.ref.Number }

func (o *Object) Class() Class      { return o.class }
func (o *Object) State() State      { return o.state }
func (o *Object) Phase() Phase      { return o.phase }
func (o *Object) Deleted() bool     { return o.state == Deleted }
func (o *Object) Session() *Session { return o.s }

// Value returns the object's value. While the object is current the value
// itself is returned and may be edited in place; otherwise a copy.
func (o *Object) Value() core.Object {
	if o.phase == Current {
		return o.value
	}
	return core.Clone(o.value)
}

// Dict returns the value as a dictionary, or a stream's dictionary.
func (o *Object) Dict() (core.Dict, bool) {
	switch v := o.Value().(type) {
	case core.Dict:
		return v, true
	case *core.Stream:
		return v.Dict, true
	}
	return nil, false
}

// Type returns the /Type name of a dictionary or stream.
func (o *Object) Type() string {
	var d core.Dict
	switch v := o.value.(type) {
	case core.Dict:
		d = v
	case *core.Stream:
		d = v.Dict
	default:
		return ""
	}
	name, _ := d.GetName("Type")
	return string(name)
}

func (o *Object) mustEdit(op string) {
	if o.phase != Current {
		violation(op, o.ref.Number, "object is "+o.phase.String()+", not current")
	}
	if o.state == Deleted {
		violation(op, o.ref.Number, "object is deleted")
	}
}

// Set replaces the object's value. The object must be current.
func (o *Object) Set(v core.Object) {
	o.mustEdit("set")
	if v == nil {
		v = core.Null{}
	}
	if _, ok := v.(*core.Stream); ok && o.class != Regular {
		violation("set", o.ref.Number, o.class.String()+" objects cannot hold a stream")
	}
	if _, ok := v.(core.Dict); !ok && o.class == Trailer {
		violation("set", 0, "the trailer must be a dictionary")
	}
	o.value = v
}

// StreamData returns the decoded content of a stream object.
func (o *Object) StreamData() ([]byte, error) {
	st, ok := o.value.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object %d is %s, not a stream", o.ref.Number, o.value.Type())
	}
	data, err := st.Decode(o.s.cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", o.ref.Number, err)
	}
	return data, nil
}

// SetStreamData replaces a stream's content, encoding data through the
// stream's filter chain. The object must be current.
func (o *Object) SetStreamData(data []byte) error {
	o.mustEdit("set stream data")
	st, ok := o.value.(*core.Stream)
	if !ok {
		return fmt.Errorf("object %d is %s, not a stream", o.ref.Number, o.value.Type())
	}
	if err := st.SetData(o.s.cfg.Registry, data); err != nil {
		return fmt.Errorf("object %d: %w", o.ref.Number, err)
	}
	return nil
}

// Delete drops the object from the output. The object must be current and
// must not live in an object stream.
func (o *Object) Delete() {
	switch o.class {
	case Compressed:
		violation("delete", o.ref.Number, "objects inside an object stream cannot be deleted")
	case Trailer:
		violation("delete", 0, "the trailer cannot be deleted")
	}
	o.mustEdit("delete")
	o.state = Deleted
}

// Modified reports whether the value differs from what was loaded.
func (o *Object) Modified() bool {
	return o.state == Deleted || !bytes.Equal(o.print, fingerprint(o.value))
}
