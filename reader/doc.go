// Package reader loads objects from a PDF by random access.
//
// A [Reader] reads the file header, loads the merged cross-reference index
// through the xref package and then parses individual objects on demand,
// at their recorded offset or out of their object stream.
//
// # Opening PDF Files
//
//	r, err := reader.Open("document.pdf", reader.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
// Or use [NewReader] with a docio.Channel the caller already owns. The pipe
// package does this so that random-access reads share the channel of the
// forward traversal without disturbing it.
//
// # Object Resolution
//
//   - GetObject(objNum) - load object by number
//   - ResolveReference(ref) - resolve an IndirectRef; missing objects are null
//   - Resolve(obj) - resolve if indirect, otherwise return as-is
//   - ResolveDeep(obj) - recursively resolve all references
//   - Length(ref) - resolve an indirect stream /Length
//
// # Document Structure
//
//   - Version() - header version (e.g., 1.7)
//   - GetCatalog(), GetInfo(), Trailer()
//   - PageTree(), PageCount(), GetPage(n) - pages numbered from 1
//
// # Object Caching
//
// The Reader caches loaded objects and object streams. Use ClearCache() to
// free memory when processing large PDFs.
package reader
