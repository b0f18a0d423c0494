package grammar

import (
	"errors"
	"fmt"
	"io"
)

// Kind classifies a scanned symbol.
type Kind int

const (
	// EOF marks the end of input.
	EOF Kind = iota
	// Regular is a run of bytes bounded by whitespace or delimiters.
	Regular
	// Delimiter is a single delimiter byte.
	Delimiter
	// Escape is a backslash and the byte after it, inside literal strings.
	Escape
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Regular:
		return "Regular"
	case Delimiter:
		return "Delimiter"
	case Escape:
		return "Escape"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Symbol is one lexical unit and its absolute input offset.
type Symbol struct {
	Kind  Kind
	Text  []byte
	Start int64
}

// String returns a printable form of the symbol.
func (s Symbol) String() string {
	if s.Kind == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%q@%d", s.Text, s.Start)
}

// Source supplies input on demand. It returns at least min bytes when that
// many remain (0 asks for any amount) and io.EOF once input is exhausted.
type Source func(min int) ([]byte, error)

// BytesSource serves data as a single chunk.
func BytesSource(data []byte) Source {
	done := false
	return func(int) ([]byte, error) {
		if done {
			return nil, io.EOF
		}
		done = true
		return data, nil
	}
}

// Scanner splits a pulled byte stream into symbols. Bytes stay buffered
// from the last Release onward, so ranges inside the current construct can
// be extracted verbatim.
type Scanner struct {
	src     Source
	buf     []byte
	base    int64 // absolute offset of buf[0]
	pos     int
	eof     bool
	err     error
	back    []Symbol
	literal bool
}

// NewScanner returns a scanner reading src, whose first byte sits at the
// absolute offset base.
func NewScanner(src Source, base int64) *Scanner {
	s := &Scanner{}
	s.Reset(src, base)
	return s
}

// Reset repositions the scanner on a new source.
func (s *Scanner) Reset(src Source, base int64) {
	s.src = src
	s.buf = nil
	s.base = base
	s.pos = 0
	s.eof = false
	s.err = nil
	s.back = s.back[:0]
	s.literal = false
}

// SetLiteral switches between token scanning and literal-string scanning,
// where whitespace is kept and backslash escapes form single symbols.
func (s *Scanner) SetLiteral(on bool) { s.literal = on }

// Pos returns the absolute offset of the next unread byte, or of the next
// pushed-back symbol.
func (s *Scanner) Pos() int64 {
	if n := len(s.back); n > 0 {
		return s.back[n-1].Start
	}
	return s.base + int64(s.pos)
}

// fill buffers until n unread bytes are available or input ends. It
// reports whether n bytes are available.
func (s *Scanner) fill(n int) bool {
	for len(s.buf)-s.pos < n && !s.eof {
		chunk, err := s.src(n - (len(s.buf) - s.pos))
		s.buf = append(s.buf, chunk...)
		if err != nil {
			s.eof = true
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
		}
	}
	return len(s.buf)-s.pos >= n
}

func (s *Scanner) peek() (byte, bool) {
	if s.pos < len(s.buf) || s.fill(1) {
		return s.buf[s.pos], true
	}
	return 0, false
}

// Err returns the first non-EOF error reported by the source.
func (s *Scanner) Err() error { return s.err }

// PushBack returns sym to the scanner; it is the next symbol read.
func (s *Scanner) PushBack(sym Symbol) {
	s.back = append(s.back, sym)
}

// Next returns the next symbol.
func (s *Scanner) Next() (Symbol, error) {
	if n := len(s.back); n > 0 {
		sym := s.back[n-1]
		s.back = s.back[:n-1]
		return sym, nil
	}
	if s.literal {
		return s.nextLiteral()
	}

	for {
		c, ok := s.peek()
		if !ok {
			return Symbol{Kind: EOF, Start: s.Pos()}, s.err
		}
		if !isWhitespace(c) {
			break
		}
		s.pos++
	}

	start := s.pos
	if isDelimiter(s.buf[s.pos]) {
		s.pos++
		return s.symbol(Delimiter, start), nil
	}
	for {
		s.pos++
		c, ok := s.peek()
		if !ok || isWhitespace(c) || isDelimiter(c) {
			break
		}
	}
	return s.symbol(Regular, start), nil
}

func (s *Scanner) nextLiteral() (Symbol, error) {
	c, ok := s.peek()
	if !ok {
		return Symbol{Kind: EOF, Start: s.Pos()}, s.err
	}
	start := s.pos
	switch c {
	case '(', ')':
		s.pos++
		return s.symbol(Delimiter, start), nil
	case '\\':
		s.pos++
		if _, ok := s.peek(); ok {
			s.pos++
		}
		return s.symbol(Escape, start), nil
	}
	for {
		s.pos++
		c, ok := s.peek()
		if !ok || c == '(' || c == ')' || c == '\\' {
			break
		}
	}
	return s.symbol(Regular, start), nil
}

func (s *Scanner) symbol(kind Kind, start int) Symbol {
	return Symbol{Kind: kind, Text: s.buf[start:s.pos:s.pos], Start: s.base + int64(start)}
}

// unwind drops pushed-back symbols, moving the read position to the
// earliest of them.
func (s *Scanner) unwind() {
	if len(s.back) == 0 {
		return
	}
	s.pos = int(s.Pos() - s.base)
	s.back = s.back[:0]
}

// SkipLine discards input through the next end-of-line marker.
func (s *Scanner) SkipLine() {
	s.unwind()
	for {
		c, ok := s.peek()
		if !ok {
			return
		}
		s.pos++
		if c == '\n' {
			return
		}
		if c == '\r' {
			if c, ok := s.peek(); ok && c == '\n' {
				s.pos++
			}
			return
		}
	}
}

// SkipEOL consumes a single CR LF, LF or CR if one is next.
func (s *Scanner) SkipEOL() {
	s.unwind()
	c, ok := s.peek()
	if !ok {
		return
	}
	switch c {
	case '\r':
		s.pos++
		if c, ok := s.peek(); ok && c == '\n' {
			s.pos++
		}
	case '\n':
		s.pos++
	}
}

// SkipToDelimiter advances to the next whitespace or delimiter byte.
func (s *Scanner) SkipToDelimiter() {
	s.unwind()
	for {
		c, ok := s.peek()
		if !ok || isWhitespace(c) || isDelimiter(c) {
			return
		}
		s.pos++
	}
}

// ReadN returns the next n raw bytes. Fewer bytes with
// io.ErrUnexpectedEOF means input ended first.
func (s *Scanner) ReadN(n int) ([]byte, error) {
	s.unwind()
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	if !s.fill(n) {
		data := s.buf[s.pos:len(s.buf):len(s.buf)]
		s.pos = len(s.buf)
		if s.err != nil {
			return data, s.err
		}
		return data, io.ErrUnexpectedEOF
	}
	data := s.buf[s.pos : s.pos+n : s.pos+n]
	s.pos += n
	return data, nil
}

// Range returns the buffered bytes between two absolute offsets, or nil
// when they are no longer buffered.
func (s *Scanner) Range(from, to int64) []byte {
	lo, hi := from-s.base, to-s.base
	if lo < 0 || hi < lo || hi > int64(len(s.buf)) {
		return nil
	}
	return s.buf[lo:hi:hi]
}

// Rewind moves back to an absolute offset that is still buffered.
func (s *Scanner) Rewind(to int64) error {
	i := to - s.base
	if i < 0 || i > int64(len(s.buf)) {
		return fmt.Errorf("offset %d is no longer buffered", to)
	}
	s.back = s.back[:0]
	s.pos = int(i)
	return nil
}

// Release forgets buffered bytes before the current position. Slices
// handed out earlier stay valid.
func (s *Scanner) Release() {
	keep := int(s.Pos() - s.base)
	if keep <= 0 {
		return
	}
	s.buf = s.buf[keep:]
	s.base += int64(keep)
	s.pos -= keep
}

// isWhitespace reports whether b is a PDF whitespace character: space, tab,
// LF, CR, FF or null.
func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	if b >= '0' && b <= '9' {
		return b - '0'
	}
	if b >= 'a' && b <= 'f' {
		return b - 'a' + 10
	}
	if b >= 'A' && b <= 'F' {
		return b - 'A' + 10
	}
	return 0
}

// isNumeric reports whether text is a PDF number: an optional sign, digits
// and at most one decimal point, with at least one digit.
func isNumeric(text []byte) bool {
	digits, dots := 0, 0
	for i, c := range text {
		switch {
		case isDigit(c):
			digits++
		case c == '.':
			dots++
		case (c == '+' || c == '-') && i == 0:
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
