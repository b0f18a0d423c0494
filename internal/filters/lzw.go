package filters

import (
	"bytes"
	stdlzw "compress/lzw"
	"fmt"
	"io"

	"golang.org/x/image/tiff/lzw"
)

// LZWDecode decompresses LZW data. EarlyChange 1 (the default) is the
// TIFF variant, where the code width grows one code early; EarlyChange 0
// is the plain variant.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var reader io.ReadCloser
	if getIntParam(params, "EarlyChange", 1) == 0 {
		reader = stdlzw.NewReader(bytes.NewReader(data), stdlzw.MSB, 8)
	} else {
		reader = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("lzw decompression failed: %w", err)
	}
	return out, nil
}

// newLZW builds the LZWDecode filter, followed by the predictor named in
// params. No LZW encoder exists, so the result is not invertible.
func newLZW(params Params) (Filter, error) {
	pred, err := PredictorFromParams(params)
	if err != nil {
		return nil, err
	}
	fn := func(data []byte) ([]byte, error) { return LZWDecode(data, params) }
	decoder := newBlock(&accumulator{fn: fn}, 300)
	if pred == nil {
		return decoder, nil
	}
	return NewChain(decoder, pred.Decoder()), nil
}
