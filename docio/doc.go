// Package docio provides the dual-mode input/output channel a single-pass
// PDF rewrite runs on.
//
// A [Channel] reads an io.ReaderAt in three modes, each with its own
// cursor:
//
//   - [ReadWrite] for the forward traversal, whose input is mirrored to the
//     output with PassTo, Insert, Replace and SkipTo
//   - [RandomAccess] for lookups that must not disturb the traversal
//   - [Reversed] for scanning backwards from the end of the file
//
// Sources returned by [Channel.Source] plug directly into a grammar
// scanner.
package docio
