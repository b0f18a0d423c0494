package filters

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// inflater decompresses zlib data. The zlib reader needs the whole stream,
// so input is buffered until eof.
type inflater struct {
	buf []byte
}

func (z *inflater) feed(in []byte, eof bool) ([]byte, error) {
	z.buf = append(z.buf, in...)
	if !eof {
		return nil, nil
	}
	data := z.buf
	z.buf = nil
	return zlibDecompress(data)
}

func (z *inflater) reset() { z.buf = nil }

// zlibDecompress decompresses zlib-compressed data. Streams that stop short of
// their checksum still yield what was decoded; PDF writers commonly truncate
// them.
func zlibDecompress(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, reader)
	if err != nil {
		if buf.Len() > 0 && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum)) {
			return buf.Bytes(), nil
		}
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}

	return buf.Bytes(), nil
}

// deflater compresses into zlib format, emitting whatever the compressor
// has flushed after every block.
type deflater struct {
	level int
	out   bytes.Buffer
	w     *zlib.Writer
}

func (z *deflater) feed(in []byte, eof bool) ([]byte, error) {
	if z.w == nil {
		w, err := zlib.NewWriterLevel(&z.out, z.level)
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib writer: %w", err)
		}
		z.w = w
	}
	if _, err := z.w.Write(in); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if eof {
		if err := z.w.Close(); err != nil {
			return nil, fmt.Errorf("failed to finish compression: %w", err)
		}
		z.w = nil
	}
	produced := append([]byte(nil), z.out.Bytes()...)
	z.out.Reset()
	return produced, nil
}

func (z *deflater) reset() {
	z.w = nil
	z.out.Reset()
}

// NewFlateDecoder returns a zlib decompressor. Its inverse compresses at level.
func NewFlateDecoder(level int) Filter {
	f := &invertibleBlock{block: newBlock(&inflater{}, 400)}
	f.inverse = func() (Filter, error) { return NewFlateEncoder(level), nil }
	return f
}

// NewFlateEncoder returns a zlib compressor at the given level.
func NewFlateEncoder(level int) Filter {
	f := &invertibleBlock{block: newBlock(&deflater{level: level}, 60)}
	f.inverse = func() (Filter, error) { return NewFlateDecoder(level), nil }
	return f
}

// newFlate builds the FlateDecode filter for params. When params ask for
// prediction the result is a two-link chain: decompress then unpredict when
// decoding, predict then compress when encoding.
func newFlate(params Params, level int, encode bool) (Filter, error) {
	pred, err := PredictorFromParams(params)
	if err != nil {
		return nil, err
	}
	if encode {
		if pred == nil {
			return NewFlateEncoder(level), nil
		}
		return NewChain(pred.Encoder(), NewFlateEncoder(level)), nil
	}
	if pred == nil {
		return NewFlateDecoder(level), nil
	}
	return NewChain(NewFlateDecoder(level), pred.Decoder()), nil
}

// FlateDecode decompresses Flate (zlib/deflate) compressed data.
// This is the most common compression filter in PDFs. It optionally applies
// a predictor algorithm for image data decompression.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	f, err := newFlate(params, zlib.DefaultCompression, false)
	if err != nil {
		return nil, err
	}
	return Run(f, data, 0)
}

// FlateEncode compresses data, applying the predictor named in params first.
func FlateEncode(data []byte, params Params) ([]byte, error) {
	f, err := newFlate(params, zlib.DefaultCompression, true)
	if err != nil {
		return nil, err
	}
	return Run(f, data, 0)
}
