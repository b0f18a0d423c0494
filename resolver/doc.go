// Package resolver follows indirect references through any [ObjectReader].
//
// The pipe session implements ObjectReader, so resolving through a session
// sees edits that tasks have already made:
//
//	r := resolver.NewResolver(session)
//	page, err := r.Resolve(core.IndirectRef{Number: 3})
//
// [ObjectResolver.ResolveDeep] expands every reference nested in arrays and
// dictionaries. Streams keep their data and have their dictionary expanded.
//
// A reference that is already being expanded is reported as a cycle, keyed
// by number and generation. Nesting is bounded by [WithMaxDepth].
package resolver
