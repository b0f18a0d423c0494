package grammar

import (
	"errors"
	"io"
	"testing"
)

// chunkSource serves data in pieces of size bytes, or more when the
// scanner asks for more.
func chunkSource(data []byte, size int) Source {
	return func(min int) ([]byte, error) {
		if len(data) == 0 {
			return nil, io.EOF
		}
		n := size
		if min > n {
			n = min
		}
		if n > len(data) {
			n = len(data)
		}
		chunk := data[:n]
		data = data[n:]
		return chunk, nil
	}
}

// TestScannerSymbols tests symbol kinds and absolute offsets
func TestScannerSymbols(t *testing.T) {
	input := []byte("<< /A 12 >>\n[(x)]")
	expected := []struct {
		kind  Kind
		text  string
		start int64
	}{
		{Delimiter, "<", 100},
		{Delimiter, "<", 101},
		{Delimiter, "/", 103},
		{Regular, "A", 104},
		{Regular, "12", 106},
		{Delimiter, ">", 109},
		{Delimiter, ">", 110},
		{Delimiter, "[", 112},
		{Delimiter, "(", 113},
		{Regular, "x", 114},
		{Delimiter, ")", 115},
		{Delimiter, "]", 116},
		{EOF, "", 117},
	}

	for _, size := range []int{1, 3, len(input)} {
		sc := NewScanner(chunkSource(input, size), 100)
		for i, exp := range expected {
			sym, err := sc.Next()
			if err != nil {
				t.Fatalf("chunk %d, symbol %d: %v", size, i, err)
			}
			if sym.Kind != exp.kind || string(sym.Text) != exp.text || sym.Start != exp.start {
				t.Errorf("chunk %d, symbol %d: got %v %s, want %v %q@%d",
					size, i, sym.Kind, sym, exp.kind, exp.text, exp.start)
			}
		}
	}
}

func TestScannerPushBack(t *testing.T) {
	sc := NewScanner(BytesSource([]byte("a b c")), 0)
	a, _ := sc.Next()
	b, _ := sc.Next()

	sc.PushBack(b)
	sc.PushBack(a)
	if got := sc.Pos(); got != a.Start {
		t.Errorf("Pos() = %d, want start of pushed-back symbol %d", got, a.Start)
	}

	for _, want := range []string{"a", "b", "c"} {
		sym, err := sc.Next()
		if err != nil {
			t.Fatal(err)
		}
		if string(sym.Text) != want {
			t.Errorf("got %q, want %q", sym.Text, want)
		}
	}
}

func TestScannerLiteralMode(t *testing.T) {
	sc := NewScanner(BytesSource([]byte(`a b\(c)d`)), 0)
	sc.SetLiteral(true)

	expected := []struct {
		kind Kind
		text string
	}{
		{Regular, "a b"},
		{Escape, `\(`},
		{Regular, "c"},
		{Delimiter, ")"},
		{Regular, "d"},
		{EOF, ""},
	}
	for i, exp := range expected {
		sym, err := sc.Next()
		if err != nil {
			t.Fatal(err)
		}
		if sym.Kind != exp.kind || string(sym.Text) != exp.text {
			t.Errorf("symbol %d: got %v %q, want %v %q", i, sym.Kind, sym.Text, exp.kind, exp.text)
		}
	}
}

func TestScannerReadN(t *testing.T) {
	sc := NewScanner(chunkSource([]byte("stream\r\nhello"), 2), 0)
	if sym, _ := sc.Next(); string(sym.Text) != "stream" {
		t.Fatalf("got %s, want stream", sym)
	}
	sc.SkipEOL()

	data, err := sc.ReadN(5)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("ReadN = %q, want hello", data)
	}

	data, err = sc.ReadN(1)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want io.ErrUnexpectedEOF", err)
	}
	if len(data) != 0 {
		t.Errorf("got %q past end of input", data)
	}
}

func TestScannerSkipLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lf", "%comment\nnext", "next"},
		{"crlf", "%comment\r\nnext", "next"},
		{"cr", "%comment\rnext", "next"},
		{"eof", "%comment", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewScanner(BytesSource([]byte(tt.input)), 0)
			sc.Next()
			sc.SkipLine()
			sym, _ := sc.Next()
			if string(sym.Text) != tt.want {
				t.Errorf("got %s, want %q", sym, tt.want)
			}
		})
	}
}

func TestScannerRangeRewindRelease(t *testing.T) {
	sc := NewScanner(chunkSource([]byte("alpha beta gamma"), 4), 0)
	alpha, _ := sc.Next()
	beta, _ := sc.Next()

	if got := string(sc.Range(0, 10)); got != "alpha beta" {
		t.Errorf("Range(0, 10) = %q", got)
	}

	if err := sc.Rewind(alpha.Start); err != nil {
		t.Fatal(err)
	}
	if sym, _ := sc.Next(); string(sym.Text) != "alpha" {
		t.Errorf("after Rewind got %s, want alpha", sym)
	}
	sc.Next()

	sc.Release()
	if sc.Range(0, 5) != nil {
		t.Error("released bytes are still reachable through Range")
	}
	if err := sc.Rewind(0); err == nil {
		t.Error("Rewind into released input succeeded")
	}
	if string(alpha.Text) != "alpha" || string(beta.Text) != "beta" {
		t.Errorf("released symbols changed: %q %q", alpha.Text, beta.Text)
	}

	gamma, _ := sc.Next()
	if string(gamma.Text) != "gamma" || gamma.Start != 11 {
		t.Errorf("got %s, want gamma@11", gamma)
	}
}

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"0", true},
		{"-12", true},
		{"+3.5", true},
		{".5", true},
		{"5.", true},
		{"1.2.3", false},
		{"-", false},
		{".", false},
		{"1-2", false},
		{"R", false},
	}

	for _, tt := range tests {
		if got := isNumeric([]byte(tt.input)); got != tt.want {
			t.Errorf("isNumeric(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
