package xref

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfpipe/core"
	"github.com/tsawler/pdfpipe/internal/filters"
)

// EncodeText writes t as a text section followed by the trailer and the
// startxref pointer to at, the offset the section will be written at.
// Compressed entries cannot be expressed in a text table.
func EncodeText(t *Table, trailer core.Dict, at int64) ([]byte, error) {
	buf := make([]byte, 0, 64+t.Len()*20)
	buf = append(buf, "xref\n"...)
	for _, run := range t.Subsections() {
		buf = strconv.AppendInt(buf, int64(run[0]), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(run[1]), 10)
		buf = append(buf, '\n')
		for id := run[0]; id < run[0]+run[1]; id++ {
			e, _ := t.Get(id)
			flag := byte('n')
			switch e.Kind {
			case Free:
				flag = 'f'
			case Compressed:
				return nil, errors.Errorf("object %d is compressed; a text table cannot hold it", id)
			}
			if e.Offset > 9999999999 || e.Gen > 65535 {
				return nil, errors.Errorf("object %d: %s does not fit a text table", id, e)
			}
			buf = append(buf, fmt.Sprintf("%010d %05d %c\r\n", e.Offset, e.Gen, flag)...)
		}
	}
	buf = append(buf, "trailer\n"...)
	buf = core.AppendObject(buf, trailer)
	buf = append(buf, '\n')
	return appendStartXRef(buf, at), nil
}

// EncodeStream writes t as an xref stream object numbered ref, placed at
// offset at, followed by the startxref pointer. The stream's own entry is
// added to t. Records are compressed with Flate over the PNG Up predictor.
func EncodeStream(t *Table, trailer core.Dict, ref core.IndirectRef, at int64, reg *filters.Registry) ([]byte, error) {
	t.Set(ref.Number, Entry{Kind: Used, Offset: at, Gen: ref.Generation})
	l := t.Layout()

	dict := make(core.Dict, len(trailer)+6)
	for k, v := range documentKeys(trailer) {
		dict[k] = v
	}
	dict["Type"] = core.Name("XRef")
	dict["Size"] = core.Int(t.Len())
	dict["W"] = core.Array{core.Int(l[0]), core.Int(l[1]), core.Int(l[2])}
	dict["Filter"] = core.Name("FlateDecode")
	dict["DecodeParms"] = core.ParamsDict(filters.Params{"Predictor": 12, "Columns": l.Size()})

	runs := t.Subsections()
	var data []byte
	if len(runs) != 1 || runs[0][0] != 0 || runs[0][1] != t.Len() {
		index := make(core.Array, 0, 2*len(runs))
		for _, run := range runs {
			index = append(index, core.Int(run[0]), core.Int(run[1]))
		}
		dict["Index"] = index
	}
	for _, run := range runs {
		data = append(data, t.Records(run[0], run[1])...)
	}

	s := &core.Stream{Dict: dict}
	if err := s.SetData(reg, data); err != nil {
		return nil, errors.Wrap(err, "failed to encode xref stream")
	}
	buf := core.AppendIndirect(nil, ref, s)
	return appendStartXRef(buf, at), nil
}

func appendStartXRef(buf []byte, at int64) []byte {
	buf = append(buf, "startxref\n"...)
	buf = strconv.AppendInt(buf, at, 10)
	return append(buf, "\n%%EOF\n"...)
}
