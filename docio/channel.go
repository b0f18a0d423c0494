package docio

import (
	"bufio"
	"fmt"
	"io"
)

// Mode selects how the channel reads its input.
type Mode int

const (
	// ReadWrite reads input sequentially while output is written
	// alongside it: passed through, inserted, replaced or skipped.
	ReadWrite Mode = iota
	// RandomAccess reads input from arbitrary offsets without touching the
	// ReadWrite cursor or pending output.
	RandomAccess
	// Reversed reads input backwards from an end offset.
	Reversed
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ReadWrite:
		return "ReadWrite"
	case RandomAccess:
		return "RandomAccess"
	case Reversed:
		return "Reversed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

const defaultChunk = 32 * 1024

// Channel couples a random-access input with a sequential output. Each mode
// keeps its own input cursor, so switching modes never disturbs another
// mode's position or the output.
type Channel struct {
	in    io.ReaderAt
	size  int64
	out   *bufio.Writer
	chunk int

	mode    Mode
	cursors [3]int64

	copied  int64 // input offset up to which output has been settled
	written int64
}

// Option configures a Channel.
type Option func(*Channel)

// WithChunkSize sets how many bytes a source reads at a time.
func WithChunkSize(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.chunk = n
		}
	}
}

// New returns a channel over size bytes of in. A nil out discards output.
func New(in io.ReaderAt, size int64, out io.Writer, opts ...Option) *Channel {
	if out == nil {
		out = io.Discard
	}
	c := &Channel{
		in:    in,
		size:  size,
		out:   bufio.NewWriter(out),
		chunk: defaultChunk,
	}
	c.cursors[Reversed] = size
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Size returns the input size.
func (c *Channel) Size() int64 { return c.size }

// Mode returns the current mode.
func (c *Channel) Mode() Mode { return c.mode }

// SetMode switches the read mode and returns the previous one.
func (c *Channel) SetMode(m Mode) Mode {
	prev := c.mode
	c.mode = m
	return prev
}

// Seek moves the current mode's cursor. In Reversed mode off is the end
// of the region to read; bytes before it are returned last-first.
func (c *Channel) Seek(off int64) error {
	if off < 0 || off > c.size {
		return fmt.Errorf("seek to %d outside input of %d bytes", off, c.size)
	}
	c.cursors[c.mode] = off
	return nil
}

// Tell returns the current mode's cursor.
func (c *Channel) Tell() int64 { return c.cursors[c.mode] }

// ReadAt reads len(p) bytes at off without moving any cursor.
func (c *Channel) ReadAt(p []byte, off int64) (int, error) {
	if off >= c.size {
		return 0, io.EOF
	}
	if rest := c.size - off; int64(len(p)) > rest {
		n, err := c.in.ReadAt(p[:rest], off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return c.in.ReadAt(p, off)
}

// Source returns a pull function that starts at the current mode's cursor.
// It returns at least min bytes while that many remain. Each source keeps
// its own position and mirrors it into the cursor of the mode it was
// created in, so nested sources do not disturb each other.
func (c *Channel) Source() func(min int) ([]byte, error) {
	mode := c.mode
	if mode == Reversed {
		return c.reversed()
	}
	pos := c.cursors[mode]
	return func(min int) ([]byte, error) {
		if pos >= c.size {
			return nil, io.EOF
		}
		n := c.chunk
		if min > n {
			n = min
		}
		if rest := c.size - pos; int64(n) > rest {
			n = int(rest)
		}
		buf := make([]byte, n)
		got, err := c.in.ReadAt(buf, pos)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading input at %d: %w", pos, err)
		}
		if got == 0 {
			return nil, io.EOF
		}
		pos += int64(got)
		c.cursors[mode] = pos
		return buf[:got], nil
	}
}

// reversed serves the bytes before the Reversed cursor, last byte first.
func (c *Channel) reversed() func(min int) ([]byte, error) {
	end := c.cursors[Reversed]
	return func(min int) ([]byte, error) {
		if end <= 0 {
			return nil, io.EOF
		}
		n := c.chunk
		if min > n {
			n = min
		}
		if int64(n) > end {
			n = int(end)
		}
		buf := make([]byte, n)
		if _, err := c.in.ReadAt(buf, end-int64(n)); err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading input at %d: %w", end-int64(n), err)
		}
		end -= int64(n)
		c.cursors[Reversed] = end
		for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
			buf[i], buf[j] = buf[j], buf[i]
		}
		return buf, nil
	}
}

// Copied returns the input offset up to which output has been settled by
// PassTo, SkipTo or Replace.
func (c *Channel) Copied() int64 { return c.copied }

// Written returns the number of bytes written to the output.
func (c *Channel) Written() int64 { return c.written }

// PassTo copies input from the settled offset up to off into the output.
func (c *Channel) PassTo(off int64) error {
	if off < c.copied || off > c.size {
		return fmt.Errorf("pass through to %d from %d outside input of %d bytes", off, c.copied, c.size)
	}
	n, err := io.Copy(c.out, io.NewSectionReader(c.in, c.copied, off-c.copied))
	c.written += n
	if err != nil {
		return fmt.Errorf("passing input %d-%d through: %w", c.copied, off, err)
	}
	c.copied = off
	return nil
}

// SkipTo drops input from the settled offset up to off.
func (c *Channel) SkipTo(off int64) error {
	if off < c.copied || off > c.size {
		return fmt.Errorf("skip to %d from %d outside input of %d bytes", off, c.copied, c.size)
	}
	c.copied = off
	return nil
}

// Insert writes b to the output.
func (c *Channel) Insert(b []byte) error {
	n, err := c.out.Write(b)
	c.written += int64(n)
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// Replace passes input through to start, writes b in place of the input
// bytes start to end, and continues after end.
func (c *Channel) Replace(start, end int64, b []byte) error {
	if err := c.PassTo(start); err != nil {
		return err
	}
	if err := c.Insert(b); err != nil {
		return err
	}
	return c.SkipTo(end)
}

// Flush writes buffered output.
func (c *Channel) Flush() error {
	if err := c.out.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}
