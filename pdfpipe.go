// Package pdfpipe provides a fluent API for rewriting PDF files in a single
// forward pass.
//
// Basic usage:
//
//	res, warnings, err := pdfpipe.Open("in.pdf").
//	    SetInfo("Title", "Quarterly Report").
//	    WriteFile("out.pdf")
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pdfpipe.FormatWarnings(warnings))
//	}
//
// With tasks:
//
//	_, _, err := pdfpipe.Open("in.pdf").
//	    Strip("Annot").
//	    On(pipe.ByPage(1), func(o *pipe.Object) pipe.Result {
//	        d, _ := o.Dict()
//	        d["Rotate"] = core.Int(90)
//	        return pipe.Continue
//	    }).
//	    XRefFormat(pipe.FormatStream).
//	    WriteFile("out.pdf")
//
// For full control over a pass, the lower-level pipe package is also
// available.
package pdfpipe

import (
	"io"
)

// Open returns a Pipeline reading the named file. The file is opened by
// the terminal operation and closed when it returns.
//
// Example:
//
//	info, err := pdfpipe.Open("document.pdf").Inspect()
func Open(filename string) *Pipeline {
	return &Pipeline{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromReaderAt returns a Pipeline reading size bytes of r. The caller
// keeps ownership of r.
//
// Example:
//
//	data, _ := os.ReadFile("document.pdf")
//	var out bytes.Buffer
//	_, _, err := pdfpipe.FromReaderAt(bytes.NewReader(data), int64(len(data))).WriteTo(&out)
func FromReaderAt(r io.ReaderAt, size int64) *Pipeline {
	return &Pipeline{
		in:      r,
		size:    size,
		options: defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	info := pdfpipe.Must(pdfpipe.Open("document.pdf").Inspect())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustResult is like Must for terminal operations that also report
// warnings. The warnings are discarded.
//
// Example:
//
//	res := pdfpipe.MustResult(pdfpipe.Open("in.pdf").WriteFile("out.pdf"))
func MustResult[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
