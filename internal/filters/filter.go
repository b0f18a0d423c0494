package filters

import (
	"errors"
	"fmt"
)

// Result reports what a filter step left behind.
type Result int

const (
	// More means the output block was filled and the filter still holds
	// output for the current input. Call Proceed with a drained block.
	More Result = iota
	// Finished means no further output exists for the current input.
	Finished
)

// String returns the name of the result.
func (r Result) String() string {
	switch r {
	case More:
		return "More"
	case Finished:
		return "Finished"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

var (
	// ErrUnknownFilter is returned for filter names the registry does not know.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrUnsupported is returned for filters that are recognised but cannot
	// be applied in the requested direction (image codecs, Crypt).
	ErrUnsupported = errors.New("unsupported filter")
	// ErrNotInvertible is returned when a chain contains a one-way filter.
	ErrNotInvertible = errors.New("filter is not invertible")
	// ErrBusy is returned when Begin is called before the previous input
	// has been fully drained.
	ErrBusy = errors.New("filter still holds output for previous input")
)

// Filter is a byte-transform state machine.
//
// The caller hands input to Begin and receives output in a block it owns.
// When Begin or Proceed returns More, the block was filled and the caller
// must drain it and call Proceed. When they return Finished the filter is
// ready for new input. eof marks the last input block; filters that buffer
// (compression, row prediction) flush on it.
type Filter interface {
	Init() error
	Begin(in []byte, eof bool, out []byte) (int, Result, error)
	Proceed(out []byte) (int, Result, error)
	Done() error
	// Growth estimates output size as a percentage of input size. It sizes
	// intermediate blocks in chains.
	Growth() int
}

// Invertible is implemented by filters that can build their opposite
// direction: a decoder builds the matching encoder and vice versa.
type Invertible interface {
	Filter
	Invert() (Filter, error)
}

// Invert returns the inverse of f or ErrNotInvertible.
func Invert(f Filter) (Filter, error) {
	inv, ok := f.(Invertible)
	if !ok {
		return nil, ErrNotInvertible
	}
	return inv.Invert()
}

const (
	minBlock = 512
	maxBlock = 1 << 24
)

// blockSize picks an output block size for n input bytes at the given growth.
func blockSize(n, growth int) int {
	if growth <= 0 {
		growth = 100
	}
	size := n * growth / 100
	if size < minBlock {
		size = minBlock
	}
	if size > maxBlock {
		size = maxBlock
	}
	return size
}

// Run drives f over data as a single final input and returns everything it
// produces. capacity bounds the block handed to each step, which forces
// several Begin/Proceed cycles for small values; zero derives the block size
// from the filter's growth hint.
func Run(f Filter, data []byte, capacity int) ([]byte, error) {
	if err := f.Init(); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	if capacity <= 0 {
		capacity = blockSize(len(data), f.Growth())
	}
	block := make([]byte, capacity)
	out := make([]byte, 0, blockSize(len(data), f.Growth()))

	n, r, err := f.Begin(data, true, block)
	stalled := 0
	for {
		if err != nil {
			f.Done()
			return nil, err
		}
		out = append(out, block[:n]...)
		if r == Finished {
			break
		}
		if n == 0 {
			stalled++
			if stalled > 8 {
				f.Done()
				return nil, fmt.Errorf("filter stalled with output pending")
			}
		} else {
			stalled = 0
		}
		n, r, err = f.Proceed(block)
	}

	if err := f.Done(); err != nil {
		return nil, err
	}
	return out, nil
}

// transform is the buffer-level core of a codec. feed consumes in and
// returns whatever output it can produce; eof marks the final block.
type transform interface {
	feed(in []byte, eof bool) ([]byte, error)
	reset()
}

// block adapts a transform to the Filter protocol by holding produced
// output until the caller's blocks have drained it.
type block struct {
	t       transform
	growth  int
	pending []byte
}

func newBlock(t transform, growth int) *block {
	return &block{t: t, growth: growth}
}

func (b *block) Init() error {
	b.t.reset()
	b.pending = nil
	return nil
}

func (b *block) Begin(in []byte, eof bool, out []byte) (int, Result, error) {
	if len(b.pending) > 0 {
		return 0, Finished, ErrBusy
	}
	produced, err := b.t.feed(in, eof)
	if err != nil {
		return 0, Finished, err
	}
	b.pending = produced
	return b.Proceed(out)
}

func (b *block) Proceed(out []byte) (int, Result, error) {
	n := copy(out, b.pending)
	b.pending = b.pending[n:]
	if len(b.pending) > 0 {
		return n, More, nil
	}
	b.pending = nil
	return n, Finished, nil
}

func (b *block) Done() error {
	b.pending = nil
	return nil
}

func (b *block) Growth() int { return b.growth }

// invertibleBlock is a block that knows how to build its inverse.
type invertibleBlock struct {
	*block
	inverse func() (Filter, error)
}

func (f *invertibleBlock) Invert() (Filter, error) {
	return f.inverse()
}

// accumulator buffers all input and runs fn once on eof.
type accumulator struct {
	fn  func([]byte) ([]byte, error)
	buf []byte
}

func (a *accumulator) feed(in []byte, eof bool) ([]byte, error) {
	a.buf = append(a.buf, in...)
	if !eof {
		return nil, nil
	}
	data := a.buf
	a.buf = nil
	return a.fn(data)
}

func (a *accumulator) reset() { a.buf = nil }

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
type Params map[string]interface{}

// getIntParam extracts an integer parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to an integer.
func getIntParam(params Params, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}

	obj, ok := params[key]
	if !ok {
		return defaultValue
	}

	switch v := obj.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// getBoolParam extracts a boolean parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to a boolean.
func getBoolParam(params Params, key string, defaultValue bool) bool {
	if params == nil {
		return defaultValue
	}

	obj, ok := params[key]
	if !ok {
		return defaultValue
	}

	switch v := obj.(type) {
	case bool:
		return v
	default:
		return defaultValue
	}
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
