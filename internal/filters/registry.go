package filters

import (
	"fmt"

	"github.com/klauspost/compress/zlib"
)

// Factory builds a filter for one stream from its decode parameters.
type Factory func(Params) (Filter, error)

// Registry maps filter names to codecs. It is built once and shared by
// reference; lookups do not mutate it.
type Registry struct {
	decoders map[string]Factory
	encoders map[string]Factory
	aliases  map[string]string
	level    int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCompressionLevel sets the zlib level used by Flate encoders.
func WithCompressionLevel(level int) RegistryOption {
	return func(r *Registry) {
		r.level = level
	}
}

// NewRegistry returns a registry holding every built-in codec.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		decoders: make(map[string]Factory),
		encoders: make(map[string]Factory),
		aliases: map[string]string{
			"Fl":  "FlateDecode",
			"AHx": "ASCIIHexDecode",
			"A85": "ASCII85Decode",
			"LZW": "LZWDecode",
			"RL":  "RunLengthDecode",
			"CCF": "CCITTFaxDecode",
			"DCT": "DCTDecode",
		},
		level: zlib.DefaultCompression,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.decoders["FlateDecode"] = func(p Params) (Filter, error) { return newFlate(p, r.level, false) }
	r.encoders["FlateDecode"] = func(p Params) (Filter, error) { return newFlate(p, r.level, true) }
	r.decoders["ASCIIHexDecode"] = func(Params) (Filter, error) { return NewASCIIHexDecoder(), nil }
	r.encoders["ASCIIHexDecode"] = func(Params) (Filter, error) { return NewASCIIHexEncoder(), nil }
	r.decoders["ASCII85Decode"] = func(Params) (Filter, error) { return NewASCII85Decoder(), nil }
	r.encoders["ASCII85Decode"] = func(Params) (Filter, error) { return NewASCII85Encoder(), nil }
	r.decoders["RunLengthDecode"] = func(Params) (Filter, error) { return NewRunLengthDecoder(), nil }
	r.encoders["RunLengthDecode"] = func(Params) (Filter, error) { return NewRunLengthEncoder(), nil }
	r.decoders["LZWDecode"] = newLZW
	r.decoders["CCITTFaxDecode"] = func(p Params) (Filter, error) { return NewCCITTFaxDecoder(p), nil }

	for _, name := range []string{"DCTDecode", "JPXDecode", "JBIG2Decode", "Crypt"} {
		name := name
		unsupported := func(Params) (Filter, error) {
			return nil, fmt.Errorf("%s: %w", name, ErrUnsupported)
		}
		r.decoders[name] = unsupported
		r.encoders[name] = unsupported
	}
	return r
}

// Register adds or replaces a codec. encoder may be nil for decode-only
// filters.
func (r *Registry) Register(name string, decoder, encoder Factory) {
	r.decoders[name] = decoder
	if encoder != nil {
		r.encoders[name] = encoder
	}
}

// Level returns the Flate compression level.
func (r *Registry) Level() int { return r.level }

// Canonical resolves an abbreviated filter name.
func (r *Registry) Canonical(name string) string {
	if full, ok := r.aliases[name]; ok {
		return full
	}
	return name
}

// Decoder builds the decoding filter for name.
func (r *Registry) Decoder(name string, params Params) (Filter, error) {
	return r.build(r.decoders, name, params)
}

// Encoder builds the filter producing data that name decodes.
func (r *Registry) Encoder(name string, params Params) (Filter, error) {
	if _, ok := r.decoders[r.Canonical(name)]; ok {
		if _, ok := r.encoders[r.Canonical(name)]; !ok {
			return nil, fmt.Errorf("%s has no encoder: %w", name, ErrUnsupported)
		}
	}
	return r.build(r.encoders, name, params)
}

func (r *Registry) build(m map[string]Factory, name string, params Params) (Filter, error) {
	factory, ok := m[r.Canonical(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownFilter)
	}
	return factory(params)
}

// DecodeChain builds the decode chain for a stream's /Filter list. params
// lines up with names; missing or nil entries mean no parameters.
func (r *Registry) DecodeChain(names []string, params []Params) (Filter, error) {
	links := make([]Filter, 0, len(names))
	for i, name := range names {
		f, err := r.Decoder(name, paramAt(params, i))
		if err != nil {
			return nil, err
		}
		links = append(links, f)
	}
	return NewChain(links...), nil
}

// EncodeChain builds the chain whose output DecodeChain(names, params)
// decodes: encoders applied in reverse order.
func (r *Registry) EncodeChain(names []string, params []Params) (Filter, error) {
	links := make([]Filter, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		f, err := r.Encoder(names[i], paramAt(params, i))
		if err != nil {
			return nil, err
		}
		links = append(links, f)
	}
	return NewChain(links...), nil
}

func paramAt(params []Params, i int) Params {
	if i < len(params) {
		return params[i]
	}
	return nil
}

// Decode runs the decode chain for names over data.
func (r *Registry) Decode(data []byte, names []string, params []Params) ([]byte, error) {
	f, err := r.DecodeChain(names, params)
	if err != nil {
		return nil, err
	}
	return Run(f, data, 0)
}

// Encode runs the encode chain for names over data.
func (r *Registry) Encode(data []byte, names []string, params []Params) ([]byte, error) {
	f, err := r.EncodeChain(names, params)
	if err != nil {
		return nil, err
	}
	return Run(f, data, 0)
}
