package core

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/tsawler/pdfpipe/internal/filters"
)

var testRegistry = filters.NewRegistry()

// zlibCompress compresses data for testing
func zlibCompress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// TestStreamDecodeNoFilter tests stream with no filter
func TestStreamDecodeNoFilter(t *testing.T) {
	data := []byte("Raw stream data")
	stream := &Stream{
		Dict: Dict{},
		Data: data,
	}

	decoded, err := stream.Decode(testRegistry)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !bytes.Equal(decoded, data) {
		t.Error("decoded data should equal original when no filter")
	}
}

// TestStreamDecodeFlateDecode tests FlateDecode filter
func TestStreamDecodeFlateDecode(t *testing.T) {
	original := []byte("This is test data for FlateDecode")
	compressed := zlibCompress(original)

	stream := &Stream{
		Dict: Dict{
			"Filter": Name("FlateDecode"),
		},
		Data: compressed,
	}

	decoded, err := stream.Decode(testRegistry)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !bytes.Equal(decoded, original) {
		t.Errorf("decoded data doesn't match\ngot:  %s\nwant: %s", decoded, original)
	}
}

// TestStreamDecodeFlateDecode tests FlateDecode with abbreviation
func TestStreamDecodeFlateDecodeAbbrev(t *testing.T) {
	original := []byte("Test data")
	compressed := zlibCompress(original)

	stream := &Stream{
		Dict: Dict{
			"Filter": Name("Fl"), // Abbreviation
		},
		Data: compressed,
	}

	decoded, err := stream.Decode(testRegistry)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !bytes.Equal(decoded, original) {
		t.Error("decoded data doesn't match")
	}
}

// TestStreamDecodeFlateDecode WithParams tests FlateDecode with DecodeParms
func TestStreamDecodeFlateDecodeWithParams(t *testing.T) {
	// Create data with predictor
	data := []byte{
		0, 10, 20, 30, // Row with predictor=0 (None)
	}
	compressed := zlibCompress(data)

	stream := &Stream{
		Dict: Dict{
			"Filter": Name("FlateDecode"),
			"DecodeParms": Dict{
				"Predictor":        Int(10),
				"Columns":          Int(3),
				"Colors":           Int(1),
				"BitsPerComponent": Int(8),
			},
		},
		Data: compressed,
	}

	decoded, err := stream.Decode(testRegistry)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	expected := []byte{10, 20, 30}
	if !bytes.Equal(decoded, expected) {
		t.Errorf("decoded data doesn't match\ngot:  %v\nwant: %v", decoded, expected)
	}
}

// TestStreamDecodeASCIIHexDecode tests ASCIIHexDecode filter
func TestStreamDecodeASCIIHexDecode(t *testing.T) {
	// "Hello" = 48 65 6C 6C 6F
	encoded := []byte("48656C6C6F>")

	stream := &Stream{
		Dict: Dict{
			"Filter": Name("ASCIIHexDecode"),
		},
		Data: encoded,
	}

	decoded, err := stream.Decode(testRegistry)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	expected := []byte("Hello")
	if !bytes.Equal(decoded, expected) {
		t.Errorf("decoded data doesn't match")
	}
}

// TestStreamDecodeASCII85Decode tests ASCII85Decode filter
func TestStreamDecodeASCII85Decode(t *testing.T) {
	// "Hello" encoded in ASCII85
	encoded := []byte("87cURDZ~>")

	stream := &Stream{
		Dict: Dict{
			"Filter": Name("ASCII85Decode"),
		},
		Data: encoded,
	}

	decoded, err := stream.Decode(testRegistry)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	expected := []byte("Hello")
	if !bytes.Equal(decoded, expected) {
		t.Errorf("decoded data doesn't match")
	}
}

// TestStreamDecodeFilterChain tests multiple filters in sequence
func TestStreamDecodeFilterChain(t *testing.T) {
	// Apply ASCIIHexDecode then FlateDecode
	// 1. Original data
	original := []byte("Test data")

	// 2. Compress with FlateDecode
	compressed := zlibCompress(original)

	// 3. Encode with ASCIIHexDecode
	var hexEncoded bytes.Buffer
	for _, b := range compressed {
		hexEncoded.WriteString(string([]byte{hexDigit(b >> 4), hexDigit(b & 0xF)}))
	}
	hexEncoded.WriteByte('>')

	stream := &Stream{
		Dict: Dict{
			"Filter": Array{
				Name("ASCIIHexDecode"),
				Name("FlateDecode"),
			},
		},
		Data: hexEncoded.Bytes(),
	}

	decoded, err := stream.Decode(testRegistry)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !bytes.Equal(decoded, original) {
		t.Errorf("decoded data doesn't match")
	}
}

// TestStreamDecodeFilterChainWithParams tests filter chain with params
func TestStreamDecodeFilterChainWithParams(t *testing.T) {
	// Create simple test data
	original := []byte("AB")
	compressed := zlibCompress(original)

	// Hex encode
	var hexEncoded bytes.Buffer
	for _, b := range compressed {
		hexEncoded.WriteString(string([]byte{hexDigit(b >> 4), hexDigit(b & 0xF)}))
	}
	hexEncoded.WriteByte('>')

	stream := &Stream{
		Dict: Dict{
			"Filter": Array{
				Name("ASCIIHexDecode"),
				Name("FlateDecode"),
			},
			"DecodeParms": Array{
				Null{},                    // No params for ASCIIHexDecode
				Dict{"Predictor": Int(1)}, // No predictor for FlateDecode
			},
		},
		Data: hexEncoded.Bytes(),
	}

	decoded, err := stream.Decode(testRegistry)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !bytes.Equal(decoded, original) {
		t.Errorf("decoded data doesn't match")
	}
}

// TestStreamDecodeDCTDecode tests that image codecs report ErrUnsupported
func TestStreamDecodeDCTDecode(t *testing.T) {
	stream := &Stream{
		Dict: Dict{
			"Filter": Name("DCTDecode"),
		},
		Data: []byte("\xFF\xD8\xFF..."),
	}

	_, err := stream.Decode(testRegistry)
	if !errors.Is(err, filters.ErrUnsupported) {
		t.Errorf("Decode error = %v, want ErrUnsupported", err)
	}
}

// TestStreamDecodeEncrypted tests that encrypted content is refused
func TestStreamDecodeEncrypted(t *testing.T) {
	stream := &Stream{
		Dict:      Dict{"Filter": Name("FlateDecode")},
		Data:      zlibCompress([]byte("secret")),
		Encrypted: true,
	}

	if _, err := stream.Decode(testRegistry); !errors.Is(err, ErrEncrypted) {
		t.Errorf("Decode error = %v, want ErrEncrypted", err)
	}
	if err := stream.SetData(testRegistry, []byte("x")); !errors.Is(err, ErrEncrypted) {
		t.Errorf("SetData error = %v, want ErrEncrypted", err)
	}
}

// TestStreamSetData tests re-encoding through the stream's own filters
func TestStreamSetData(t *testing.T) {
	tests := []struct {
		name       string
		dict       Dict
		wantFilter Object
	}{
		{"no filter", Dict{}, nil},
		{"flate", Dict{"Filter": Name("FlateDecode")}, Name("FlateDecode")},
		{"flate predictor", Dict{
			"Filter":      Name("FlateDecode"),
			"DecodeParms": Dict{"Predictor": Int(12), "Columns": Int(4)},
		}, Name("FlateDecode")},
		{"hex over flate", Dict{"Filter": Array{Name("AHx"), Name("Fl")}}, Array{Name("AHx"), Name("Fl")}},
		{"lzw falls back to flate", Dict{"Filter": Name("LZWDecode")}, Name("FlateDecode")},
	}

	content := []byte("BT /F1 12 Tf 72 712 Td (replaced) Tj ET")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := &Stream{Dict: tt.dict, Data: []byte("old")}
			if err := stream.SetData(testRegistry, content); err != nil {
				t.Fatalf("SetData failed: %v", err)
			}

			if got, _ := stream.Dict.GetInt("Length"); int(got) != len(stream.Data) {
				t.Errorf("Length = %d, want %d", got, len(stream.Data))
			}
			if got := stream.Dict.Get("Filter"); tt.wantFilter != nil && got.String() != tt.wantFilter.String() {
				t.Errorf("Filter = %v, want %v", got, tt.wantFilter)
			}

			// Decode from the raw bytes, not the cache.
			fresh := &Stream{Dict: stream.Dict, Data: stream.Data}
			decoded, err := fresh.Decode(testRegistry)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(decoded, content) {
				t.Errorf("decoded = %q, want %q", decoded, content)
			}
		})
	}
}

// TestStreamFilters tests pairing of /Filter and /DecodeParms
func TestStreamFilters(t *testing.T) {
	stream := &Stream{Dict: Dict{
		"Filter":      Array{Name("ASCII85Decode"), Name("FlateDecode")},
		"DecodeParms": Array{Null{}, Dict{"Predictor": Int(12)}},
	}}

	names, params, err := stream.Filters()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "ASCII85Decode" || names[1] != "FlateDecode" {
		t.Errorf("names = %v", names)
	}
	if params[0] != nil {
		t.Errorf("params[0] = %v, want nil", params[0])
	}
	if params[1]["Predictor"] != 12 {
		t.Errorf("params[1] = %v", params[1])
	}
}

// TestStreamDecodeUnknownFilter tests error handling for unknown filter
func TestStreamDecodeUnknownFilter(t *testing.T) {
	stream := &Stream{
		Dict: Dict{
			"Filter": Name("UnknownFilter"),
		},
		Data: []byte("data"),
	}

	_, err := stream.Decode(testRegistry)
	if err == nil {
		t.Error("expected error for unknown filter")
	}
}

// TestStreamDecodeInvalidFilterType tests error handling for invalid Filter type
func TestStreamDecodeInvalidFilterType(t *testing.T) {
	stream := &Stream{
		Dict: Dict{
			"Filter": Int(123), // Invalid type
		},
		Data: []byte("data"),
	}

	_, err := stream.Decode(testRegistry)
	if err == nil {
		t.Error("expected error for invalid filter type")
	}
}

// TestParamsObjToDict tests the parameter conversion helper
func TestParamsObjToDict(t *testing.T) {
	// Dict
	dict := Dict{"Key": Int(123)}
	result := paramsObjToDict(dict)
	if result == nil {
		t.Error("expected dict to return as-is")
	}

	// Null
	result = paramsObjToDict(Null{})
	if result != nil {
		t.Error("expected Null to return nil")
	}

	// nil
	result = paramsObjToDict(nil)
	if result != nil {
		t.Error("expected nil to return nil")
	}

	// Other type
	result = paramsObjToDict(Int(123))
	if result != nil {
		t.Error("expected non-dict to return nil")
	}
}

// hexDigit converts a 4-bit value to a hex digit
func hexDigit(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'A' + (b - 10)
}
