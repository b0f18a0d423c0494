// Package grammar parses PDF syntax with a table-driven state machine.
//
// A [Graph] is a set of named states. Each state maps symbols to chains of
// operators that push and pop states, collect values and build tagged
// [Node] trees. Graphs are compiled once and shared; an [Engine] runs one
// over a [Scanner], which pulls input on demand from a [Source] and keeps
// it buffered so raw ranges such as string bodies can be sliced out
// without copying.
//
// # Built-in Grammars
//
// [New] returns the PDF grammar with these roots:
//
//   - [RootDocument] reads indirect objects, trailers and startxref pointers
//   - [RootValue] reads a single direct value
//   - [RootReverse] finds startxref in input fed backwards from the file end
//   - [RootHeader] reads an object stream's integer header
//   - [RootVerbatim] returns the next symbol unchanged
//
// # Parsing Documents
//
// [Parser] wraps the document grammar and turns nodes into core objects,
// reading stream data by /Length and falling back to a scan for endstream
// when the length is missing or wrong:
//
//	p := grammar.NewParser(grammar.New(), grammar.BytesSource(data), 0)
//	for {
//	    item, err := p.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// Values can be parsed directly with [Graph.ParseValue].
package grammar
