// Package filters implements PDF stream filters as chainable, invertible
// byte transforms.
//
// Every codec satisfies Filter, a small state machine: Begin hands over a
// new input block, Proceed collects further output for the same input, and
// the caller owns every output block. Filters are linked with NewChain and a
// chain of invertible filters can build its inverse with Invert:
//
//	enc := filters.NewChain(pred.Encoder(), filters.NewFlateEncoder(6))
//	compressed, err := filters.Run(enc, data, 0)
//	dec, err := filters.Invert(enc) // chain(inflate, unpredict)
//
// # Supported Filters
//
// A Registry maps /Filter names (and their abbreviations) to codecs:
//
//   - FlateDecode, with PNG predictors 10-15 and TIFF Predictor 2
//   - ASCIIHexDecode, ASCII85Decode, RunLengthDecode
//   - LZWDecode and CCITTFaxDecode, decode only
//   - DCTDecode, JPXDecode, JBIG2Decode and Crypt report ErrUnsupported
//
// # Decode Parameters
//
// Filters accept a Params map for additional parameters:
//
//	params := filters.Params{
//	    "Predictor": 12,
//	    "Columns":   100,
//	    "Colors":    3,
//	}
//	decoded, err := filters.FlateDecode(data, params)
package filters
