package grammar

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tsawler/pdfpipe/core"
)

// Node tags produced by the built-in grammars.
const (
	TagSymbol    = "symbol"
	TagName      = "name"
	TagString    = "string"
	TagHex       = "hex"
	TagRef       = "ref"
	TagArray     = "array"
	TagDict      = "dict"
	TagObj       = "obj"
	TagTrailer   = "trailer"
	TagStartXRef = "startxref"
	TagMissing   = "missing"
	TagEOF       = "eof"
	TagHeader    = "header"
)

// Node is the tagged tree a parse produces. Text usually aliases scanner
// memory; it is only valid until the scanner's input is released unless
// copied.
type Node struct {
	Tag   string
	Name  string // variable name the node was stored under, if any
	Text  []byte
	Items []*Node
	Start int64
}

// Item returns the first child stored under name.
func (n *Node) Item(name string) *Node {
	for _, item := range n.Items {
		if item.Name == name {
			return item
		}
	}
	return nil
}

// Mode says what a conversion does to the node it reads.
type Mode int

const (
	// Copy leaves the node intact and usable.
	Copy Mode = iota
	// Move releases the node's children as they are converted; the node
	// must not be used afterwards.
	Move
)

// Object converts n into a PDF value.
func (n *Node) Object(mode Mode) (core.Object, error) {
	if n == nil {
		return nil, fmt.Errorf("grammar: nil node")
	}
	switch n.Tag {
	case TagSymbol:
		return symbolValue(n.Text)
	case TagName:
		return decodeName(n.Text)
	case TagString:
		return core.String(unescapeLiteral(n.Text)), nil
	case TagHex:
		return decodeHex(n.Text)
	case TagRef:
		num, gen := n.Item("num"), n.Item("gen")
		if num == nil || gen == nil {
			return nil, fmt.Errorf("grammar: incomplete reference")
		}
		a, err := strconv.Atoi(string(num.Text))
		if err != nil {
			return nil, fmt.Errorf("grammar: reference number %q: %w", num.Text, err)
		}
		b, err := strconv.Atoi(string(gen.Text))
		if err != nil {
			return nil, fmt.Errorf("grammar: reference generation %q: %w", gen.Text, err)
		}
		return core.IndirectRef{Number: a, Generation: b}, nil
	case TagArray:
		arr := make(core.Array, 0, len(n.Items))
		for _, item := range n.Items {
			v, err := item.Object(mode)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if mode == Move {
			n.Items = nil
		}
		return arr, nil
	case TagDict:
		if len(n.Items)%2 != 0 {
			return nil, fmt.Errorf("grammar: dictionary at offset %d has a key without a value", n.Start)
		}
		dict := make(core.Dict, len(n.Items)/2)
		for i := 0; i < len(n.Items); i += 2 {
			key, err := decodeName(n.Items[i].Text)
			if err != nil {
				return nil, err
			}
			v, err := n.Items[i+1].Object(mode)
			if err != nil {
				return nil, err
			}
			dict[string(key)] = v
		}
		if mode == Move {
			n.Items = nil
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("grammar: %s node is not a value", n.Tag)
	}
}

func symbolValue(text []byte) (core.Object, error) {
	switch string(text) {
	case "true":
		return core.Bool(true), nil
	case "false":
		return core.Bool(false), nil
	case "null":
		return core.Null{}, nil
	}
	if !isNumeric(text) {
		return nil, fmt.Errorf("grammar: %q is not a value", text)
	}
	if bytes.IndexByte(text, '.') < 0 {
		if i, err := strconv.ParseInt(string(text), 10, 64); err == nil {
			return core.Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return nil, fmt.Errorf("grammar: number %q: %w", text, err)
	}
	return core.Real(f), nil
}

// decodeName resolves #xx escapes in a name's raw bytes.
func decodeName(raw []byte) (core.Name, error) {
	if bytes.IndexByte(raw, '#') < 0 {
		return core.Name(raw), nil
	}
	var buf bytes.Buffer
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b == '#' {
			if i+2 >= len(raw) {
				return "", fmt.Errorf("grammar: truncated escape in name %q", raw)
			}
			hex1, hex2 := raw[i+1], raw[i+2]
			if !isHexDigit(hex1) || !isHexDigit(hex2) {
				return "", fmt.Errorf("grammar: invalid hex escape in name %q", raw)
			}
			buf.WriteByte(hexValue(hex1)*16 + hexValue(hex2))
			i += 2
			continue
		}
		buf.WriteByte(b)
	}
	return core.Name(buf.String()), nil
}

// decodeHex decodes the body of a hex string. Whitespace is ignored and an
// odd final digit is followed by an implied zero.
func decodeHex(raw []byte) (core.Object, error) {
	out := make([]byte, 0, len(raw)/2)
	var hi byte
	half := false
	for _, c := range raw {
		if isWhitespace(c) {
			continue
		}
		if !isHexDigit(c) {
			return nil, fmt.Errorf("grammar: invalid hex digit %q in string", c)
		}
		if half {
			out = append(out, hi<<4|hexValue(c))
		} else {
			hi = hexValue(c)
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return core.String(out), nil
}

// unescapeLiteral resolves backslash escapes in the body of a literal
// string and normalizes end-of-line markers to LF.
func unescapeLiteral(raw []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		switch b {
		case '\r':
			buf.WriteByte('\n')
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			continue
		case '\\':
		default:
			buf.WriteByte(b)
			continue
		}

		i++
		if i >= len(raw) {
			break
		}
		next := raw[i]
		switch next {
		case 'n':
			buf.WriteByte('\n')
		case 'r':
			buf.WriteByte('\r')
		case 't':
			buf.WriteByte('\t')
		case 'b':
			buf.WriteByte('\b')
		case 'f':
			buf.WriteByte('\f')
		case '(', ')', '\\':
			buf.WriteByte(next)
		case '\r':
			// Line continuation
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case '\n':
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := next - '0'
			for j := 0; j < 2 && i+1 < len(raw) && isOctalDigit(raw[i+1]); j++ {
				i++
				val = val*8 + (raw[i] - '0')
			}
			buf.WriteByte(val)
		default:
			// Unknown escape - keep the character
			buf.WriteByte(next)
		}
	}
	return buf.Bytes()
}
