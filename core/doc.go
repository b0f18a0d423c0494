// Package core defines the PDF object model shared by the rest of the module.
//
// # Object Types
//
// PDF defines eight basic object types, all implemented as types satisfying the
// Object interface:
//
//   - [Null] - represents the PDF null object
//   - [Bool] - represents PDF boolean values (true/false)
//   - [Int] - represents PDF integers
//   - [Real] - represents PDF real numbers (floating point)
//   - [String] - represents PDF string objects (literal or hexadecimal)
//   - [Name] - represents PDF name objects (e.g., /Type, /Font)
//   - [Array] - represents PDF arrays
//   - [Dict] - represents PDF dictionaries
//
// Additionally, [Stream] represents a PDF stream (dictionary + binary data),
// and [IndirectRef] represents a reference to an indirect object.
//
// # Serialization
//
// [AppendObject], [AppendStream] and [AppendIndirect] write values back in
// PDF syntax. Parsing lives in the grammar package.
//
// # Object Streams
//
// The [ObjectStream] type (PDF 1.5+) handles object streams, which store multiple
// objects in a single compressed stream. Its members are parsed with a
// [ValueParser] and can be replaced with [ObjectStream.Rebuild].
//
// # Stream Data
//
// [Stream.Decode] runs the stream's filter chain from a filters.Registry and
// [Stream.SetData] re-encodes new content through the same chain.
package core
