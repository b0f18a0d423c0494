package filters

import (
	"fmt"
)

// NewRunLengthDecoder returns the RunLengthDecode filter.
func NewRunLengthDecoder() Filter {
	f := &invertibleBlock{block: newBlock(&accumulator{fn: RunLengthDecode}, 200)}
	f.inverse = func() (Filter, error) { return NewRunLengthEncoder(), nil }
	return f
}

// NewRunLengthEncoder returns a filter producing RunLengthDecode input.
func NewRunLengthEncoder() Filter {
	f := &invertibleBlock{block: newBlock(&accumulator{fn: RunLengthEncode}, 102)}
	f.inverse = func() (Filter, error) { return NewRunLengthDecoder(), nil }
	return f
}

// RunLengthDecode expands run-length encoded data. A length byte n in 0-127
// copies the next n+1 bytes, 129-255 repeats the next byte 257-n times, and
// 128 ends the data.
func RunLengthDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, fmt.Errorf("run-length literal of %d bytes exceeds data", n+1)
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("run-length repeat missing its byte")
			}
			for j := 0; j < 257-n; j++ {
				out = append(out, data[i])
			}
			i++
		}
	}
	return out, nil
}

// RunLengthEncode compresses runs of two or more equal bytes and groups the
// rest into literal runs of at most 128 bytes.
func RunLengthEncode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)+len(data)/128+2)
	literal := 0 // start of pending literal run
	i := 0
	flush := func(end int) {
		for literal < end {
			n := end - literal
			if n > 128 {
				n = 128
			}
			out = append(out, byte(n-1))
			out = append(out, data[literal:literal+n]...)
			literal += n
		}
	}

	for i < len(data) {
		run := 1
		for i+run < len(data) && run < 128 && data[i+run] == data[i] {
			run++
		}
		if run >= 2 {
			flush(i)
			out = append(out, byte(257-run), data[i])
			i += run
			literal = i
			continue
		}
		i++
	}
	flush(len(data))
	return append(out, 128), nil
}
