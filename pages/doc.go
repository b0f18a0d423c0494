// Package pages provides PDF page tree traversal and page access.
//
// # Page Tree
//
// PDF documents organize pages in a tree structure. The [PageTree] type
// navigates this hierarchy and numbers pages from 1 in document order:
//
//	tree := pages.NewPageTree(pagesRef, resolver)
//	count, _ := tree.Count()
//	page, _ := tree.GetPage(1)
//	numbers, _ := tree.Numbers() // object number -> page number
//
// Each [Page] remembers its own reference and the references of the /Pages
// nodes above it, which is what inserting a page needs to update /Kids and
// /Count.
//
// # Inherited Attributes
//
// MediaBox, CropBox and Rotate are looked up on the page first and then on
// each enclosing /Pages node.
//
// # Object Resolution
//
// The [ObjectResolver] interface abstracts object lookup, so the page tree
// can resolve indirect references without depending on the reader.
package pages
