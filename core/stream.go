package core

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfpipe/internal/filters"
)

// ErrEncrypted is returned when stream content is protected by a cipher
// this package does not implement.
var ErrEncrypted = errors.New("stream is encrypted")

// Filters returns the stream's /Filter names and matching /DecodeParms in
// decode order. A single /DecodeParms dictionary applies to a single filter.
func (s *Stream) Filters() ([]string, []filters.Params, error) {
	filterObj := s.Dict.Get("Filter")
	if filterObj == nil {
		return nil, nil, nil
	}
	paramsObj := s.Dict.Get("DecodeParms")

	switch f := filterObj.(type) {
	case Name:
		return []string{string(f)}, []filters.Params{dictToParams(paramsObjToDict(paramsObj))}, nil
	case Array:
		names := make([]string, 0, len(f))
		params := make([]filters.Params, 0, len(f))
		paramsArray, isArray := paramsObj.(Array)
		for i, filter := range f {
			filterName, ok := filter.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("filter %d is not a name: %T", i, filter)
			}
			names = append(names, string(filterName))
			var p Dict
			if isArray {
				p = paramsObjToDict(paramsArray.Get(i))
			} else if i == 0 {
				p = paramsObjToDict(paramsObj)
			}
			params = append(params, dictToParams(p))
		}
		return names, params, nil
	default:
		return nil, nil, fmt.Errorf("invalid Filter type: %T", filterObj)
	}
}

// Decode decodes the stream data according to the Filter(s) specified in the
// stream dictionary. The result is cached until the data changes.
func (s *Stream) Decode(reg *filters.Registry) ([]byte, error) {
	if s.decoded != nil {
		return s.decoded, nil
	}
	names, params, err := s.Filters()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return s.Data, nil
	}
	if s.Encrypted {
		return nil, ErrEncrypted
	}

	decoded, err := reg.Decode(s.Data, names, params)
	if err != nil {
		return nil, fmt.Errorf("filter chain %v failed: %w", names, err)
	}
	s.decoded = decoded
	return decoded, nil
}

// SetData replaces the stream content with decoded, encoding it through the
// stream's own filter chain. When that chain cannot be inverted the content
// is re-encoded with FlateDecode alone. /Length is updated.
func (s *Stream) SetData(reg *filters.Registry, decoded []byte) error {
	if s.Encrypted {
		return ErrEncrypted
	}
	names, params, err := s.Filters()
	if err != nil {
		return err
	}

	encoded := decoded
	if len(names) > 0 {
		encoded, err = reg.Encode(decoded, names, params)
		if err != nil {
			encoded, err = reg.Encode(decoded, []string{"FlateDecode"}, nil)
			if err != nil {
				return fmt.Errorf("re-encoding stream: %w", err)
			}
			s.Dict.Set("Filter", Name("FlateDecode"))
			s.Dict.Delete("DecodeParms")
		}
	}

	s.Data = encoded
	s.decoded = append([]byte(nil), decoded...)
	s.Dict.Set("Length", Int(len(encoded)))
	return nil
}

// SetRaw replaces the stored bytes without encoding them and drops any
// cached decoded content.
func (s *Stream) SetRaw(data []byte) {
	s.Data = data
	s.decoded = nil
	s.Dict.Set("Length", Int(len(data)))
}

// paramsObjToDict converts a DecodeParms object to a Dict.
// Returns nil if the object is nil, Null, or not a Dict.
func paramsObjToDict(obj Object) Dict {
	if dict, ok := obj.(Dict); ok {
		return dict
	}
	return nil
}

// dictToParams converts a core.Dict to filters.Params, translating PDF object
// types to Go primitive types (Int->int, Real->float64, Bool->bool, etc.).
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}

	params := make(filters.Params)
	for k, v := range dict {
		// Convert PDF objects to Go primitives
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		default:
			// Keep other types as-is
			params[k] = v
		}
	}
	return params
}

// ParamsDict converts filter parameters back into a dictionary.
func ParamsDict(params filters.Params) Dict {
	if params == nil {
		return nil
	}
	d := make(Dict, len(params))
	for k, v := range params {
		switch val := v.(type) {
		case int:
			d[k] = Int(val)
		case float64:
			d[k] = Real(val)
		case bool:
			d[k] = Bool(val)
		case string:
			d[k] = Name(val)
		case Object:
			d[k] = val
		}
	}
	return d
}
