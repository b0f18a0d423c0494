package grammar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/tsawler/pdfpipe/core"
)

// ItemKind classifies what Parser.Next found.
type ItemKind int

const (
	// ItemObject is an indirect object definition.
	ItemObject ItemKind = iota
	// ItemTrailer is a trailer dictionary.
	ItemTrailer
	// ItemStartXRef is a startxref pointer.
	ItemStartXRef
	// ItemNumber is a number outside any object, as in xref tables.
	ItemNumber
	// ItemKeyword is any other bare token, such as xref, f or n.
	ItemKeyword
)

// Item is one top-level construct. Start and End delimit its bytes; for
// objects End includes the end-of-line after endobj.
type Item struct {
	Kind    ItemKind
	Ref     core.IndirectRef
	Object  core.Object
	Keyword string
	Number  int64
	Start   int64
	End     int64
}

// LengthFunc resolves an indirect /Length value.
type LengthFunc func(ref core.IndirectRef) (int64, error)

// Parser reads top-level PDF constructs.
type Parser struct {
	g   *Graph
	sc  *Scanner
	eng *Engine

	// Length resolves /Length entries given by reference. When nil, or
	// when it fails, the data is delimited by scanning for endstream.
	Length LengthFunc
	// Logger receives recovery warnings.
	Logger *slog.Logger
}

// NewParser returns a parser reading src, whose first byte sits at the
// absolute offset base.
func NewParser(g *Graph, src Source, base int64) *Parser {
	sc := NewScanner(src, base)
	return &Parser{g: g, sc: sc, eng: NewEngine(g, sc), Logger: discardLogger}
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Reset repositions the parser on a new source.
func (p *Parser) Reset(src Source, base int64) {
	p.sc.Reset(src, base)
}

// Pos returns the absolute offset of the next unread byte.
func (p *Parser) Pos() int64 { return p.sc.Pos() }

// Next returns the next top-level construct, or io.EOF at end of input.
func (p *Parser) Next() (*Item, error) {
	p.sc.Release()
	node, err := p.eng.Parse(RootDocument)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("grammar: document parse produced nothing at offset %d", p.sc.Pos())
	}

	switch node.Tag {
	case TagEOF:
		return nil, io.EOF
	case TagObj:
		return p.object(node)
	case TagTrailer:
		v, err := node.Item("dict").Object(Move)
		if err != nil {
			return nil, err
		}
		dict, ok := v.(core.Dict)
		if !ok {
			return nil, fmt.Errorf("grammar: trailer at offset %d is %s, not a dictionary", node.Start, v.Type())
		}
		return &Item{Kind: ItemTrailer, Object: dict, Start: node.Start, End: p.sc.Pos()}, nil
	case TagStartXRef:
		n, err := strconv.ParseInt(string(node.Item("offset").Text), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("grammar: startxref offset: %w", err)
		}
		return &Item{Kind: ItemStartXRef, Number: n, Start: node.Start, End: p.sc.Pos()}, nil
	case TagSymbol:
		item := &Item{Kind: ItemKeyword, Keyword: string(node.Text), Start: node.Start, End: node.Start + int64(len(node.Text))}
		if isNumeric(node.Text) {
			if n, err := strconv.ParseInt(string(node.Text), 10, 64); err == nil {
				item.Kind = ItemNumber
				item.Number = n
			}
		}
		return item, nil
	default:
		return nil, fmt.Errorf("grammar: unexpected %s node at offset %d", node.Tag, node.Start)
	}
}

func (p *Parser) object(node *Node) (*Item, error) {
	num, err := strconv.Atoi(string(node.Item("num").Text))
	if err != nil {
		return nil, fmt.Errorf("grammar: object number %q: %w", node.Item("num").Text, err)
	}
	gen, err := strconv.Atoi(string(node.Item("gen").Text))
	if err != nil {
		return nil, fmt.Errorf("grammar: object generation %q: %w", node.Item("gen").Text, err)
	}
	item := &Item{Kind: ItemObject, Ref: core.IndirectRef{Number: num, Generation: gen}, Start: node.Start}

	value, err := node.Item("value").Object(Move)
	if err != nil {
		return nil, fmt.Errorf("grammar: object %d %d: %w", num, gen, err)
	}
	item.Object = value

	switch end := node.Item("end"); end.Tag {
	case TagMissing:
		p.Logger.Warn("object without endobj", "object", num, "offset", node.Start)
	default:
		if string(end.Text) == "stream" {
			dict, ok := value.(core.Dict)
			if !ok {
				return nil, fmt.Errorf("grammar: object %d %d: stream without dictionary", num, gen)
			}
			data, err := p.streamData(dict)
			if err != nil {
				return nil, fmt.Errorf("grammar: object %d %d: %w", num, gen, err)
			}
			item.Object = &core.Stream{Dict: dict, Data: data}
		}
	}

	p.sc.SkipEOL()
	item.End = p.sc.Pos()
	return item, nil
}

// streamData reads the bytes between stream and endstream and consumes
// endobj. A /Length that does not land on endstream falls back to scanning
// for the keyword.
func (p *Parser) streamData(dict core.Dict) ([]byte, error) {
	p.sc.SkipEOL()
	start := p.sc.Pos()

	length, err := p.length(dict)
	if err == nil {
		data, rerr := p.sc.ReadN(int(length))
		if rerr == nil && p.expect("endstream") && p.expect("endobj") {
			return data, nil
		}
		p.Logger.Warn("stream length does not match data, scanning for endstream",
			"offset", start, "length", length)
	} else {
		p.Logger.Debug("stream length unavailable, scanning for endstream", "offset", start, "error", err)
	}

	if err := p.sc.Rewind(start); err != nil {
		return nil, err
	}
	for {
		node, err := p.eng.Parse(RootVerbatim)
		if err != nil {
			return nil, err
		}
		if node.Tag == TagEOF {
			return nil, fmt.Errorf("no endstream after offset %d", start)
		}
		if string(node.Text) != "endstream" {
			continue
		}
		data := p.sc.Range(start, node.Start)
		data = bytes.TrimSuffix(data, []byte("\n"))
		data = bytes.TrimSuffix(data, []byte("\r"))
		if !p.expect("endobj") {
			p.Logger.Warn("endstream not followed by endobj", "offset", node.Start)
		}
		return data, nil
	}
}

func (p *Parser) length(dict core.Dict) (int64, error) {
	switch v := dict.Get("Length").(type) {
	case core.Int:
		if v < 0 {
			return 0, fmt.Errorf("negative /Length %d", v)
		}
		return int64(v), nil
	case core.IndirectRef:
		if p.Length == nil {
			return 0, fmt.Errorf("indirect /Length %s without resolver", v)
		}
		return p.Length(v)
	case nil:
		return 0, fmt.Errorf("missing /Length")
	default:
		return 0, fmt.Errorf("invalid /Length type %T", v)
	}
}

// expect reads the next symbol and reports whether its text is want. A
// mismatching symbol is pushed back.
func (p *Parser) expect(want string) bool {
	node, err := p.eng.Parse(RootVerbatim)
	if err != nil || node.Tag == TagEOF {
		return false
	}
	if string(node.Text) != want {
		p.sc.PushBack(Symbol{Kind: Regular, Text: node.Text, Start: node.Start})
		return false
	}
	return true
}

// ParseValue parses the first direct value in data and reports how many
// bytes it consumed.
func (g *Graph) ParseValue(data []byte) (core.Object, int, error) {
	sc := NewScanner(BytesSource(data), 0)
	node, err := NewEngine(g, sc).Parse(RootValue)
	if err != nil {
		return nil, 0, err
	}
	obj, err := node.Object(Copy)
	if err != nil {
		return nil, 0, err
	}
	return obj, int(sc.Pos()), nil
}

// ParseInts reads whitespace-separated integers, such as an object stream
// header.
func (g *Graph) ParseInts(data []byte) ([]int, error) {
	eng := NewEngine(g, NewScanner(BytesSource(data), 0))
	if _, err := eng.Parse(RootHeader); err != nil {
		return nil, err
	}
	nodes := eng.TakeStash()
	ints := make([]int, 0, len(nodes))
	for _, n := range nodes {
		v, err := strconv.Atoi(string(n.Text))
		if err != nil {
			return nil, fmt.Errorf("grammar: %q is not an integer: %w", n.Text, err)
		}
		ints = append(ints, v)
	}
	return ints, nil
}

// FindStartXRef parses a reversed source, the bytes of a file tail fed
// from the last byte backwards, and returns the startxref offset.
func (g *Graph) FindStartXRef(reversed Source) (int64, error) {
	eng := NewEngine(g, NewScanner(reversed, 0))
	node, err := eng.Parse(RootReverse)
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			return 0, fmt.Errorf("startxref not found: %w", err)
		}
		return 0, err
	}
	text := node.Item("offset").Text
	forward := make([]byte, len(text))
	for i, c := range text {
		forward[len(text)-1-i] = c
	}
	n, err := strconv.ParseInt(string(forward), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("startxref offset %q: %w", forward, err)
	}
	return n, nil
}
