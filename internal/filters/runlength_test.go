package filters

import (
	"bytes"
	"testing"
)

func TestRunLengthDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    []byte
		wantErr bool
	}{
		{"literal", []byte{2, 'a', 'b', 'c', 128}, []byte("abc"), false},
		{"repeat", []byte{254, 'x', 128}, []byte("xxx"), false},
		{"mixed", []byte{0, 'a', 255, 'b', 128}, []byte("abb"), false},
		{"no eod", []byte{1, 'h', 'i'}, []byte("hi"), false},
		{"data after eod", []byte{0, 'a', 128, 0, 'b'}, []byte("a"), false},
		{"short literal", []byte{5, 'a'}, nil, true},
		{"missing repeat byte", []byte{250}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RunLengthDecode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunLengthEncode(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("a"),
		[]byte("abcdef"),
		bytes.Repeat([]byte("z"), 300),
		append(bytes.Repeat([]byte("q"), 5), sample(400)...),
	}
	for _, in := range inputs {
		enc, err := RunLengthEncode(in)
		if err != nil {
			t.Fatal(err)
		}
		if enc[len(enc)-1] != 128 {
			t.Errorf("encoding of %d bytes does not end with EOD", len(in))
		}
		dec, err := RunLengthDecode(enc)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(dec, in) {
			t.Errorf("round trip of %d bytes mismatch", len(in))
		}
	}

	enc, _ := RunLengthEncode(bytes.Repeat([]byte("z"), 300))
	if len(enc) != 7 {
		t.Errorf("300-byte run encoded to %d bytes, want 7", len(enc))
	}
}
