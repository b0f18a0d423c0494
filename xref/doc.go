// Package xref reconstructs and regenerates a PDF document's
// cross-reference index.
//
// A [Loader] finds startxref by scanning backwards from the end of the
// file, then follows /Prev and /XRefStm links through every revision.
// Sections are text tables or xref streams; stream data is decoded through
// the filter registry. [Merge] unites the sections oldest first into a
// [Master] sized to the highest object number, collapsing linearized
// pairs and dropping sections that lie beyond the newest one.
//
// Entries are held as packed big-endian records whose field widths only
// grow. [EncodeText] and [EncodeStream] write the index back in either
// family.
package xref
