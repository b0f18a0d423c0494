package core

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

var (
	utf16BOM = []byte{0xFE, 0xFF}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// pdfDocHigh maps PDFDocEncoding bytes 0x80-0x9F, which differ from Latin-1.
var pdfDocHigh = [32]rune{
	'•', '†', '‡', '…', '—', '–', 'ƒ', '⁄', '‹', '›', '−', '‰', '„', '“', '”', '‘',
	'’', '‚', '™', 'ﬁ', 'ﬂ', 'Ł', 'Œ', 'Š', 'Ÿ', 'Ž', 'ı', 'ł', 'œ', 'š', 'ž', 0xFFFD,
}

// Text decodes a PDF text string: UTF-16BE when it starts with a byte order
// mark, UTF-8 with its mark, otherwise PDFDocEncoding.
func (s String) Text() string {
	raw := []byte(s)
	switch {
	case bytes.HasPrefix(raw, utf16BOM):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return string(raw)
		}
		return string(out)
	case bytes.HasPrefix(raw, utf8BOM):
		return string(raw[len(utf8BOM):])
	}

	var b []rune
	for _, c := range raw {
		if c >= 0x80 && c < 0xA0 {
			b = append(b, pdfDocHigh[c-0x80])
			continue
		}
		b = append(b, rune(c))
	}
	return string(b)
}

// NewTextString encodes text as a PDF text string. Pure ASCII is stored as
// is; anything else becomes UTF-16BE with a byte order mark.
func NewTextString(text string) String {
	ascii := true
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return String(text)
	}

	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.String(text)
	if err != nil {
		return String(text)
	}
	return String(out)
}
