package core

import (
	"bytes"
	"sort"
	"strconv"
)

// Serialize returns the PDF syntax for obj.
func Serialize(obj Object) []byte {
	return AppendObject(nil, obj)
}

// AppendObject appends the PDF syntax for obj to buf. Dictionary keys are
// written in sorted order with /Type first so output is deterministic.
func AppendObject(buf []byte, obj Object) []byte {
	switch v := obj.(type) {
	case nil, Null:
		return append(buf, "null"...)
	case Bool:
		return strconv.AppendBool(buf, bool(v))
	case Int:
		return strconv.AppendInt(buf, int64(v), 10)
	case Real:
		return appendReal(buf, float64(v))
	case String:
		return appendString(buf, []byte(v))
	case Name:
		return appendName(buf, string(v))
	case Array:
		buf = append(buf, '[')
		for i, item := range v {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = AppendObject(buf, item)
		}
		return append(buf, ']')
	case Dict:
		return appendDict(buf, v)
	case *Stream:
		return AppendStream(buf, v)
	case IndirectRef:
		buf = strconv.AppendInt(buf, int64(v.Number), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(v.Generation), 10)
		return append(buf, " R"...)
	default:
		return append(buf, obj.String()...)
	}
}

// AppendStream writes the dictionary with /Length set to the stored data
// length, followed by the data between stream and endstream keywords.
// s itself is not changed.
func AppendStream(buf []byte, s *Stream) []byte {
	dict := make(Dict, len(s.Dict)+1)
	for k, v := range s.Dict {
		dict[k] = v
	}
	dict["Length"] = Int(len(s.Data))
	buf = appendDict(buf, dict)
	buf = append(buf, "\nstream\r\n"...)
	buf = append(buf, s.Data...)
	return append(buf, "\r\nendstream"...)
}

// AppendIndirect writes a complete "id gen obj ... endobj" definition
// terminated by a newline.
func AppendIndirect(buf []byte, ref IndirectRef, obj Object) []byte {
	buf = strconv.AppendInt(buf, int64(ref.Number), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(ref.Generation), 10)
	buf = append(buf, " obj\n"...)
	buf = AppendObject(buf, obj)
	return append(buf, "\nendobj\n"...)
}

// SortedKeys returns the dictionary keys with Type first, then the rest in
// lexical order.
func (d Dict) SortedKeys() []string {
	keys := d.Keys()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "Type" || keys[j] == "Type" {
			return keys[i] == "Type"
		}
		return keys[i] < keys[j]
	})
	return keys
}

func appendDict(buf []byte, d Dict) []byte {
	buf = append(buf, "<<"...)
	for _, key := range d.SortedKeys() {
		buf = appendName(buf, key)
		buf = append(buf, ' ')
		buf = AppendObject(buf, d[key])
	}
	return append(buf, ">>"...)
}

func appendReal(buf []byte, f float64) []byte {
	// PDF has no exponent form.
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if s == "-0" {
		s = "0"
	}
	return append(buf, s...)
}

// appendName writes a name, escaping delimiters, whitespace, '#' and bytes
// outside the printable range as #xx.
func appendName(buf []byte, name string) []byte {
	buf = append(buf, '/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '!' || c > '~' || c == '#' || isDelimiterByte(c) {
			buf = append(buf, '#', hexUpper[c>>4], hexUpper[c&0x0f])
			continue
		}
		buf = append(buf, c)
	}
	return buf
}

const hexUpper = "0123456789ABCDEF"

// appendString writes a literal string, or a hex string when the content is
// mostly binary.
func appendString(buf []byte, s []byte) []byte {
	binary := 0
	for _, c := range s {
		if (c < ' ' && c != '\n' && c != '\r' && c != '\t') || c > '~' {
			binary++
		}
	}
	if binary > 0 && binary*4 >= len(s) {
		buf = append(buf, '<')
		for _, c := range s {
			buf = append(buf, hexUpper[c>>4], hexUpper[c&0x0f])
		}
		return append(buf, '>')
	}

	buf = append(buf, '(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf = append(buf, '\\', c)
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\n':
			buf = append(buf, '\\', 'n')
		default:
			if c < ' ' || c > '~' {
				buf = append(buf, '\\', '0'+(c>>6), '0'+(c>>3)&7, '0'+c&7)
				continue
			}
			buf = append(buf, c)
		}
	}
	return append(buf, ')')
}

func isDelimiterByte(b byte) bool {
	return bytes.IndexByte([]byte("()<>[]{}/%"), b) >= 0
}
