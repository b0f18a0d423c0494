package core

import (
	"fmt"
	"strconv"

	"github.com/tsawler/pdfpipe/internal/filters"
)

// ValueParser parses the first PDF value in data and reports how many bytes
// it consumed.
type ValueParser func(data []byte) (Object, int, error)

// ObjectStream represents a PDF Object Stream (Type /ObjStm), introduced in PDF 1.5.
// Object streams store multiple objects in a single compressed stream, providing
// better compression than storing objects individually.
type ObjectStream struct {
	stream  *Stream              // Underlying stream object
	n       int                  // Number of objects in stream
	first   int                  // Byte offset of first object in decoded data
	extends *IndirectRef         // Optional reference to another ObjStm this one extends
	objects map[int]Object       // Cached parsed objects (index -> object)
	offsets []objectStreamOffset // Parsed offset pairs from header
	decoded []byte               // Decoded stream data (cached)
	parse   ValueParser
}

// objectStreamOffset pairs an object number with its byte offset within the decoded data.
type objectStreamOffset struct {
	ObjNum int // Object number
	Offset int // Byte offset within decoded data (relative to First)
}

// NewObjectStream creates an ObjectStream from a Stream object.
// The stream must have Type /ObjStm and required entries /N and /First.
// Returns an error if the stream is not a valid object stream.
func NewObjectStream(stream *Stream, parse ValueParser) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}

	// Verify /Type is /ObjStm
	typeName, ok := stream.Dict.GetName("Type")
	if !ok || string(typeName) != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type: %v", stream.Dict.Get("Type"))
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok {
		return nil, fmt.Errorf("object stream missing or invalid /N: %v", stream.Dict.Get("N"))
	}
	if n < 0 {
		return nil, fmt.Errorf("invalid /N value: %d", n)
	}

	first, ok := stream.Dict.GetInt("First")
	if !ok {
		return nil, fmt.Errorf("object stream missing or invalid /First: %v", stream.Dict.Get("First"))
	}
	if first < 0 {
		return nil, fmt.Errorf("invalid /First value: %d", first)
	}

	// Get optional /Extends - reference to another object stream
	var extends *IndirectRef
	if extendsObj := stream.Dict.Get("Extends"); extendsObj != nil {
		ref, ok := extendsObj.(IndirectRef)
		if !ok {
			return nil, fmt.Errorf("invalid /Extends type: %T", extendsObj)
		}
		extends = &ref
	}

	return &ObjectStream{
		stream:  stream,
		n:       int(n),
		first:   int(first),
		extends: extends,
		objects: make(map[int]Object),
		parse:   parse,
	}, nil
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int {
	return os.n
}

// First returns the byte offset to the first object's data in the decoded stream.
// The header (object number/offset pairs) precedes this offset.
func (os *ObjectStream) First() int {
	return os.first
}

// Extends returns the reference to another object stream this one extends, or nil.
func (os *ObjectStream) Extends() *IndirectRef {
	return os.extends
}

// Stream returns the container stream.
func (os *ObjectStream) Stream() *Stream {
	return os.stream
}

// Load decodes the container and parses its header. It is a no-op once the
// stream has been loaded.
func (os *ObjectStream) Load(reg *filters.Registry) error {
	if os.decoded != nil {
		return nil
	}

	decoded, err := os.stream.Decode(reg)
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	os.decoded = decoded

	if err := os.parseHeader(); err != nil {
		os.decoded = nil
		return fmt.Errorf("failed to parse object stream header: %w", err)
	}
	return nil
}

// parseHeader parses the object stream header containing N pairs of integers.
// Format: "objNum1 offset1 objNum2 offset2 ... objNumN offsetN"
func (os *ObjectStream) parseHeader() error {
	if os.first > len(os.decoded) {
		return fmt.Errorf("First offset (%d) exceeds decoded data length (%d)", os.first, len(os.decoded))
	}

	header := os.decoded[:os.first]
	pos := 0
	next := func(what string, i int) (int, error) {
		obj, n, err := os.parse(header[pos:])
		if err != nil {
			return 0, fmt.Errorf("failed to parse %s %d: %w", what, i, err)
		}
		pos += n
		v, ok := obj.(Int)
		if !ok || v < 0 {
			return 0, fmt.Errorf("%s %d is not a non-negative integer: %v", what, i, obj)
		}
		return int(v), nil
	}

	os.offsets = make([]objectStreamOffset, 0, os.n)
	for i := 0; i < os.n; i++ {
		objNum, err := next("object number", i)
		if err != nil {
			return err
		}
		offset, err := next("offset", i)
		if err != nil {
			return err
		}
		os.offsets = append(os.offsets, objectStreamOffset{ObjNum: objNum, Offset: offset})
	}
	return nil
}

func (os *ObjectStream) loaded() error {
	if os.decoded == nil {
		return fmt.Errorf("object stream not loaded")
	}
	return nil
}

// GetObjectByIndex extracts an object by its index within the stream (0-based).
// Returns the object, its object number, and any error. The index corresponds
// to the position in the header, not the object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.loaded(); err != nil {
		return nil, 0, err
	}

	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(os.offsets))
	}

	// Check cache
	if obj, ok := os.objects[index]; ok {
		return obj, os.offsets[index].ObjNum, nil
	}

	// Calculate the actual offset in the decoded data
	offset := os.first + os.offsets[index].Offset

	// Determine the end of this object's data
	// It extends until the next object's offset, or end of data
	var endOffset int
	if index+1 < len(os.offsets) {
		endOffset = os.first + os.offsets[index+1].Offset
	} else {
		endOffset = len(os.decoded)
	}

	if offset >= len(os.decoded) {
		return nil, 0, fmt.Errorf("object offset %d exceeds decoded data length %d", offset, len(os.decoded))
	}
	if endOffset > len(os.decoded) || endOffset < offset {
		endOffset = len(os.decoded)
	}

	obj, _, err := os.parse(os.decoded[offset:endOffset])
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object at index %d: %w", index, err)
	}

	// Cache the parsed object
	os.objects[index] = obj

	return obj, os.offsets[index].ObjNum, nil
}

// GetObjectByNumber finds and extracts an object by its object number.
// Returns the object, its index within the stream, and any error.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, int, error) {
	if err := os.loaded(); err != nil {
		return nil, 0, err
	}

	// Find the index for this object number
	for i, entry := range os.offsets {
		if entry.ObjNum == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, i, err
		}
	}

	return nil, 0, fmt.Errorf("object %d not found in object stream", objNum)
}

// ObjectNumbers returns a slice of all object numbers stored in this stream.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.loaded(); err != nil {
		return nil, err
	}

	nums := make([]int, len(os.offsets))
	for i, entry := range os.offsets {
		nums[i] = entry.ObjNum
	}
	return nums, nil
}

// ContainsObject reports whether the given object number is stored in this stream.
func (os *ObjectStream) ContainsObject(objNum int) (bool, error) {
	if err := os.loaded(); err != nil {
		return false, err
	}

	for _, entry := range os.offsets {
		if entry.ObjNum == objNum {
			return true, nil
		}
	}
	return false, nil
}

// Member is one object stored in an object stream.
type Member struct {
	Number int
	Object Object
}

// Rebuild replaces the container's content with members, in order, and
// re-encodes it through the stream's filter chain. /N and /First are
// updated. Streams cannot be members.
func (os *ObjectStream) Rebuild(reg *filters.Registry, members []Member) error {
	header, body, err := EncodeObjectStream(members)
	if err != nil {
		return err
	}
	os.stream.Dict.Set("N", Int(len(members)))
	os.stream.Dict.Set("First", Int(len(header)))
	if err := os.stream.SetData(reg, append(header, body...)); err != nil {
		return err
	}

	os.n = len(members)
	os.first = len(header)
	os.decoded = nil
	os.objects = make(map[int]Object)
	return os.Load(reg)
}

// EncodeObjectStream serializes members into an object stream header of
// "number offset" pairs and a body of values separated by newlines.
func EncodeObjectStream(members []Member) (header, body []byte, err error) {
	for i, m := range members {
		if _, ok := m.Object.(*Stream); ok {
			return nil, nil, fmt.Errorf("object %d: streams cannot be stored in an object stream", m.Number)
		}
		if i > 0 {
			header = append(header, ' ')
		}
		header = strconv.AppendInt(header, int64(m.Number), 10)
		header = append(header, ' ')
		header = strconv.AppendInt(header, int64(len(body)), 10)

		body = AppendObject(body, m.Object)
		body = append(body, '\n')
	}
	header = append(header, '\n')
	return header, body, nil
}
