package filters

import (
	"fmt"
)

// Strategy selects a row prediction algorithm.
type Strategy int

const (
	PNGNone Strategy = iota
	PNGSub
	PNGUp
	PNGAverage
	PNGPaeth
	// PNGOptimal is the nominal "choose per row" strategy. Rows are always
	// encoded with Up.
	PNGOptimal
	// TIFF is TIFF Predictor 2: each sample minus the sample to its left.
	TIFF
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case PNGNone:
		return "None"
	case PNGSub:
		return "Sub"
	case PNGUp:
		return "Up"
	case PNGAverage:
		return "Average"
	case PNGPaeth:
		return "Paeth"
	case PNGOptimal:
		return "Optimal"
	case TIFF:
		return "TIFF"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Predictor describes row prediction over samples laid out in rows.
type Predictor struct {
	Strategy         Strategy
	Columns          int
	Colors           int
	BitsPerComponent int
}

// PredictorFromParams reads /Predictor, /Columns, /Colors and
// /BitsPerComponent. It returns nil when no prediction is requested.
// Predictor values: 1 = none, 2 = TIFF Predictor 2, 10-15 = PNG None, Sub,
// Up, Average, Paeth, Optimal.
func PredictorFromParams(params Params) (*Predictor, error) {
	predictor := getIntParam(params, "Predictor", 1)
	if predictor == 1 {
		return nil, nil
	}

	p := &Predictor{
		Columns:          getIntParam(params, "Columns", 1),
		Colors:           getIntParam(params, "Colors", 1),
		BitsPerComponent: getIntParam(params, "BitsPerComponent", 8),
	}

	switch {
	case predictor == 2:
		p.Strategy = TIFF
	case predictor >= 10 && predictor <= 15:
		p.Strategy = Strategy(predictor - 10)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", predictor)
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Params returns the decode parameters that describe p.
func (p *Predictor) Params() Params {
	value := 2
	if p.Strategy != TIFF {
		value = int(p.Strategy) + 10
	}
	return Params{
		"Predictor":        value,
		"Columns":          p.Columns,
		"Colors":           p.Colors,
		"BitsPerComponent": p.BitsPerComponent,
	}
}

func (p *Predictor) validate() error {
	if p.Columns < 1 {
		return fmt.Errorf("invalid predictor columns: %d", p.Columns)
	}
	if p.Colors < 1 {
		return fmt.Errorf("invalid predictor colors: %d", p.Colors)
	}
	switch p.BitsPerComponent {
	case 1, 2, 4, 8, 16:
	default:
		return fmt.Errorf("invalid bits per component: %d", p.BitsPerComponent)
	}
	if p.Strategy == TIFF && p.BitsPerComponent != 8 {
		return fmt.Errorf("TIFF Predictor 2 only supports 8 bits per component, got %d", p.BitsPerComponent)
	}
	return nil
}

// rowBytes is the number of data bytes in one row.
func (p *Predictor) rowBytes() int {
	return (p.Columns*p.Colors*p.BitsPerComponent + 7) / 8
}

// bytesPerPixel is the distance to the "left" neighbour, at least one byte.
func (p *Predictor) bytesPerPixel() int {
	bpp := p.Colors * p.BitsPerComponent / 8
	if bpp < 1 {
		bpp = 1
	}
	return bpp
}

// Decoder returns a filter that removes the prediction.
func (p *Predictor) Decoder() Filter {
	return p.filter(false)
}

// Encoder returns a filter that applies the prediction.
func (p *Predictor) Encoder() Filter {
	return p.filter(true)
}

func (p *Predictor) filter(encode bool) Filter {
	pred := *p
	t := &rowPredictor{p: pred, encode: encode}
	growth := 100
	if encode && pred.Strategy != TIFF {
		growth = 100 + 100/pred.rowBytes() + 1
	}
	f := &invertibleBlock{block: newBlock(t, growth)}
	f.inverse = func() (Filter, error) { return pred.filter(!encode), nil }
	return f
}

// rowPredictor applies or removes prediction one row at a time, carrying a
// partial row between blocks.
type rowPredictor struct {
	p      Predictor
	encode bool
	prev   []byte
	carry  []byte
}

func (r *rowPredictor) reset() {
	r.prev = nil
	r.carry = nil
}

func (r *rowPredictor) feed(in []byte, eof bool) ([]byte, error) {
	data := append(r.carry, in...)
	r.carry = nil

	rowBytes := r.p.rowBytes()
	stride := rowBytes
	if !r.encode && r.p.Strategy != TIFF {
		stride++ // tag byte
	}
	if r.prev == nil {
		r.prev = make([]byte, rowBytes)
	}

	rows := len(data) / stride
	out := make([]byte, 0, rows*(rowBytes+1)+stride)
	for i := 0; i < rows; i++ {
		var err error
		out, err = r.row(out, data[i*stride:(i+1)*stride])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}

	rest := data[rows*stride:]
	if eof {
		// A short final row is processed as far as it goes.
		if len(rest) > 0 {
			var err error
			out, err = r.row(out, rest)
			if err != nil {
				return nil, fmt.Errorf("final row: %w", err)
			}
		}
		r.prev = nil
		return out, nil
	}
	r.carry = append([]byte(nil), rest...)
	return out, nil
}

func (r *rowPredictor) row(out, row []byte) ([]byte, error) {
	bpp := r.p.bytesPerPixel()
	if r.p.Strategy == TIFF {
		if r.encode {
			for i, b := range row {
				if i >= bpp {
					b -= row[i-bpp]
				}
				out = append(out, b)
			}
			return out, nil
		}
		start := len(out)
		for i, b := range row {
			if i >= bpp {
				b += out[start+i-bpp]
			}
			out = append(out, b)
		}
		return out, nil
	}

	if r.encode {
		strategy := r.p.Strategy
		if strategy == PNGOptimal {
			strategy = PNGUp
		}
		out = append(out, byte(strategy))
		for i, b := range row {
			out = append(out, b-predict(strategy, row, r.prev, i, bpp))
		}
		copy(r.prev, row)
		return out, nil
	}

	if len(row) == 0 {
		return out, nil
	}
	tag := Strategy(row[0])
	if tag > PNGPaeth {
		return nil, fmt.Errorf("unknown PNG predictor: %d", row[0])
	}
	data := row[1:]
	start := len(out)
	for i, b := range data {
		decoded := out[start:]
		out = append(out, b+predict(tag, decoded, r.prev, i, bpp))
	}
	copy(r.prev, out[start:])
	return out, nil
}

// predict returns the predicted value for position i of a row. cur holds
// the row's original samples up to at least i-1; prev holds the row above.
// Neighbours outside the image are zero.
func predict(s Strategy, cur, prev []byte, i, bpp int) byte {
	var left, up, upLeft byte
	if i >= bpp {
		left = cur[i-bpp]
		if i-bpp < len(prev) {
			upLeft = prev[i-bpp]
		}
	}
	if i < len(prev) {
		up = prev[i]
	}

	switch s {
	case PNGSub:
		return left
	case PNGUp:
		return up
	case PNGAverage:
		return byte((int(left) + int(up)) / 2)
	case PNGPaeth:
		return paethPredictor(left, up, upLeft)
	default:
		return 0
	}
}

// paethPredictor implements the Paeth predictor algorithm from the PNG specification.
// It selects the neighbor (left, above, or upper-left) closest to a linear prediction.
func paethPredictor(a, b, c byte) byte {
	// a = left, b = above, c = upper left
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}
